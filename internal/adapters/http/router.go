package http

import (
	"context"

	"github.com/dkeye/dicetable/internal/adapters/signal"
	"github.com/dkeye/dicetable/internal/app"
	"github.com/dkeye/dicetable/internal/auth"
	"github.com/dkeye/dicetable/internal/config"
	"github.com/dkeye/dicetable/internal/store"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "ct"

// Services are the collaborators the HTTP surface exposes.
// Tokens and Limiter may be nil.
type Services struct {
	Router  *app.Router
	Hub     *signal.Hub
	Store   store.RecordStore
	Tokens  *auth.JWTProvider
	Limiter *signal.RateLimiter
}

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable token kept in the
// session cookie. Anonymous players reconnect under it.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			sess.Set(clientTokenKey, token)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, svc Services) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookies := cookie.NewStore([]byte(cfg.Secret))
	cookies.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("DiceTableSessions", cookies))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	h := &handlers{svc: svc}
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.GET("/health", h.apiHealth)
	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:code/roster", h.roster)
	api.GET("/rooms/:code/records/:kind", h.listRecords)
	api.GET("/records/:kind/:id", h.getRecord)
	api.PUT("/records/:kind/:id", h.putRecord)
	api.DELETE("/records/:kind/:id", h.deleteRecord)
	// Dev helper: signs any caller-chosen identity.
	if cfg.Mode != "release" {
		api.POST("/auth/token", h.issueToken)
	}

	var provider auth.Provider
	if svc.Tokens != nil {
		provider = svc.Tokens
	}
	ctrl := signal.NewSignalWSController(svc.Router, svc.Hub, provider, svc.Limiter, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	})
	api.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
