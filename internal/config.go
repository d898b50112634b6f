package internal

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

var (
	defaultExcludedPrefixes  = []string{"/auth/login", "/auth/signup", "/metrics", "/healthz"}
	defaultProtectedPrefixes = []string{"/championships", "/games", "/me/", "/admin"}
)

// Config is built once at startup and passed by value; nothing in this
// package reads the environment after LoadConfig returns.
type Config struct {
	DatabaseURL    string
	DBMaxConns     int32
	JWTSecret      string
	TokenTTL       time.Duration
	Port           string
	AllowedOrigins []string
	BcryptCost     int
	LogLevel       string
	LogFormat      string
	Gateway        GatewayRules
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	return configFromEnv(os.Getenv)
}

func configFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		DatabaseURL:    getenv("DATABASE_URL"),
		JWTSecret:      getenv("JWT_SECRET"),
		Port:           envOr(getenv, "PORT", "8080"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS")),
		LogLevel:       envOr(getenv, "LOG_LEVEL", "info"),
		LogFormat:      envOr(getenv, "LOG_FORMAT", "json"),
		Gateway: GatewayRules{
			Excluded:  defaultExcludedPrefixes,
			Protected: defaultProtectedPrefixes,
		},
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	minutes, err := envInt(getenv, "ACCESS_TOKEN_EXPIRE_MINUTES", 120)
	if err != nil {
		return Config{}, err
	}
	if minutes <= 0 {
		return Config{}, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	cfg.TokenTTL = time.Duration(minutes) * time.Minute

	if cfg.BcryptCost, err = envInt(getenv, "BCRYPT_COST", 12); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	maxConns, err := envInt(getenv, "DB_MAX_CONNS", 10)
	if err != nil {
		return Config{}, err
	}
	if maxConns < 1 || maxConns > math.MaxInt32 {
		return Config{}, errors.New("DB_MAX_CONNS must be a positive integer")
	}
	cfg.DBMaxConns = int32(maxConns)

	if v := splitList(getenv("GATEWAY_EXCLUDED_PREFIXES")); len(v) > 0 {
		cfg.Gateway.Excluded = v
	}
	if v := splitList(getenv("GATEWAY_PROTECTED_PREFIXES")); len(v) > 0 {
		cfg.Gateway.Protected = v
	}
	return cfg, nil
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
