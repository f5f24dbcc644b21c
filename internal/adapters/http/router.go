package http

import (
	"context"

	"github.com/dkeye/Doubts/internal/adapters/signal"
	"github.com/dkeye/Doubts/internal/app/orch"
	"github.com/dkeye/Doubts/internal/config"
	transport "github.com/dkeye/Doubts/internal/transport/http"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("DoubtsSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &transport.Handlers{Store: orch.Store, Rooms: orch.Rooms}
	r.GET("/healthz", h.Health)
	r.POST("/auth/signin", h.SignIn)

	doubts := r.Group("/doubts")
	doubts.GET("/get-all", h.AllDoubts)
	doubts.GET("/answered", h.AnsweredDoubts)

	ctrl := signal.NewSignalWSController(orch, signal.Options{
		ReadLimit:   cfg.ReadLimit,
		PingPeriod:  cfg.PingPeriod,
		WriteWait:   cfg.WriteWait,
		SendBuffer:  cfg.SendBuffer,
		AskLimit:    cfg.AskLimit,
		AskInterval: cfg.AskInterval,
	})

	api := r.Group("/api")
	api.GET("/rooms", h.ListRooms)
	api.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
