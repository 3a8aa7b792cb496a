package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/avelis/collabd/internal/adapters/ws"
	"github.com/avelis/collabd/internal/config"
	"github.com/avelis/collabd/internal/domain"
	"github.com/avelis/collabd/internal/session"
)

type notifyRequest struct {
	UserID  domain.UserID   `json:"userId"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func SetupRouter(ctx context.Context, cfg *config.Config, sessions *session.Manager, ctl *ws.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/static", cfg.StaticPath)
	r.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	r.GET("/ws", func(c *gin.Context) {
		ctl.Handle(ctx, c)
	})

	api := r.Group("/api")

	// One-shot directed push from the REST layer: invitations, project
	// updates, kicked-from-project notices. 204 either way; an offline
	// target is a defined no-op, not an error.
	api.POST("/notify", func(c *gin.Context) {
		var req notifyRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.Event == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId and event are required"})
			return
		}
		delivered := sessions.NotifyUser(req.UserID, req.Event, req.Payload)
		log.Debug().Str("module", "adapters.http").Str("user_id", string(req.UserID)).Str("event", req.Event).Bool("delivered", delivered).Msg("notify")
		c.Status(http.StatusNoContent)
	})

	return r
}
