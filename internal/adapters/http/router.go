package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sehatlink/teleconsult/internal/adapters/rest"
	"github.com/sehatlink/teleconsult/internal/adapters/signal"
	"github.com/sehatlink/teleconsult/internal/app"
	"github.com/sehatlink/teleconsult/internal/app/orch"
	"github.com/sehatlink/teleconsult/internal/config"
)

// SetupRouter wires HTTP routes (REST + WS) with the orchestrator and
// the session manager.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, sessions *app.SessionManager) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})

	wsCtl := signal.NewController(o, cfg)
	r.GET("/api/ws/signal", func(c *gin.Context) {
		wsCtl.HandleSignal(ctx, c)
	})

	handlers := rest.NewHandlers(sessions, o)
	cons := r.Group("/api/consultations", rest.IdentityMiddleware())
	{
		cons.POST("/start/:appointmentId", handlers.StartSession)
		cons.GET("/:id", handlers.GetSession)
		cons.POST("/:id/end", handlers.EndSession)
		cons.POST("/:id/message", handlers.PostChatMessage)
		cons.GET("/:id/messages", handlers.ListChatMessages)
		cons.POST("/:id/vitals", handlers.PostVital)
		cons.POST("/:id/technical-issue", handlers.PostTechnicalIssue)
	}

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
