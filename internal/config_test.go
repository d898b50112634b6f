package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := configFromEnv(envMap(map[string]string{
		"DATABASE_URL": "postgres://league@localhost/league",
		"JWT_SECRET":   "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, 120*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, defaultExcludedPrefixes, cfg.Gateway.Excluded)
	assert.Equal(t, defaultProtectedPrefixes, cfg.Gateway.Protected)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	cfg, err := configFromEnv(envMap(map[string]string{
		"DATABASE_URL":                "postgres://x",
		"JWT_SECRET":                  "s",
		"ACCESS_TOKEN_EXPIRE_MINUTES": "15",
		"BCRYPT_COST":                 "10",
		"DB_MAX_CONNS":                "4",
		"PORT":                        "9000",
		"ALLOWED_ORIGINS":             "http://localhost:3000, https://league.example ,",
		"GATEWAY_EXCLUDED_PREFIXES":   "/auth/login",
		"GATEWAY_PROTECTED_PREFIXES":  "/games,/me/",
	}))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, int32(4), cfg.DBMaxConns)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://league.example"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"/auth/login"}, cfg.Gateway.Excluded)
	assert.Equal(t, []string{"/games", "/me/"}, cfg.Gateway.Protected)
}

func TestConfigFromEnv_Errors(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET": "s"}
	}
	tests := map[string]func(map[string]string){
		"missing database url": func(m map[string]string) { delete(m, "DATABASE_URL") },
		"missing secret":       func(m map[string]string) { delete(m, "JWT_SECRET") },
		"zero ttl":             func(m map[string]string) { m["ACCESS_TOKEN_EXPIRE_MINUTES"] = "0" },
		"non-numeric ttl":      func(m map[string]string) { m["ACCESS_TOKEN_EXPIRE_MINUTES"] = "soon" },
		"non-numeric cost":     func(m map[string]string) { m["BCRYPT_COST"] = "high" },
		"cost below minimum":   func(m map[string]string) { m["BCRYPT_COST"] = "3" },
		"cost above maximum":   func(m map[string]string) { m["BCRYPT_COST"] = "32" },
		"zero max conns":       func(m map[string]string) { m["DB_MAX_CONNS"] = "0" },
		"negative max conns":   func(m map[string]string) { m["DB_MAX_CONNS"] = "-5" },
		"max conns overflow":   func(m map[string]string) { m["DB_MAX_CONNS"] = "4294967296" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			env := base()
			mutate(env)
			_, err := configFromEnv(envMap(env))
			assert.Error(t, err)
		})
	}
}
