package internal

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the router is built from.
type Deps struct {
	Config  Config
	Store   Store
	Codec   *TokenCodec
	Metrics *Metrics
	Log     *logrus.Logger
	Now     func() time.Time
}

// NewRouter assembles the engine: request logging and metrics first, then
// the gateway, then the routes with their per-route guards.
func NewRouter(d Deps) *gin.Engine {
	if d.Now == nil {
		d.Now = time.Now
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(d.Log), d.Metrics.Middleware())
	if len(d.Config.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.Config.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(Gateway(d.Codec, d.Config.Gateway, d.Log))

	st := d.Store
	user := CurrentUser(st, d.Codec)
	admin := RequireAdmin()

	r.GET("/healthz", Health(st))
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	authG := r.Group("/auth")
	{
		authG.POST("/signup", Signup(st, d.Config.BcryptCost))
		authG.POST("/login", Login(st, d.Codec))
		authG.GET("/me", user, Me())
	}

	champ := r.Group("/championships", user)
	{
		champ.POST("", admin, CreateChampionship(st))
		champ.GET("", ListChampionships(st))
		champ.GET("/:id", GetChampionship(st))
		champ.POST("/:id/join", JoinChampionship(st))
		champ.POST("/:id/close_signups", admin, CloseSignups(st, d.Metrics, d.Now))
		champ.GET("/:id/games", ListChampionshipGames(st))
	}

	games := r.Group("/games", user)
	{
		games.GET("/:id", GetGame(st))
		games.PATCH("/:id/schedule", admin, ScheduleGame(st))
		games.PATCH("/:id/score", admin, ScoreGame(st, d.Metrics))
	}

	me := r.Group("/me", user)
	{
		me.GET("/games", MyGames(st))
		me.GET("/championships", MyChampionships(st))
	}

	r.GET("/export/match/:id/players/csv", user, ExportMatchPlayersCSV(st))

	r.GET("/admin/logs", user, admin, AdminLogs(st))

	return r
}
