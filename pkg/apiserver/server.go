package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/pkg/apiserver/handlers"
	"github.com/docuflow/docuflow/pkg/apiserver/middleware"
	"github.com/docuflow/docuflow/pkg/auth"
	"github.com/docuflow/docuflow/pkg/config"
	"github.com/docuflow/docuflow/pkg/store"
	"github.com/docuflow/docuflow/pkg/workflow"
)

// Dependencies are the collaborators the HTTP surface is built on.
type Dependencies struct {
	Engine        *workflow.Engine
	Audits        store.AuditStore
	Notifications store.NotificationStore
	// Tokens is nil when bearer authentication is not configured.
	Tokens *auth.TokenManager
}

type Server struct {
	router *gin.Engine
	deps   Dependencies
	cfg    *config.Config
	logger *zap.Logger
}

func NewServer(deps Dependencies, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.Use(middleware.Identity(s.deps.Tokens, s.cfg.Auth.TrustHeaders))

		workflowHandler := handlers.NewWorkflowHandler(s.deps.Engine, s.logger)
		api.POST("/workflow/:id/state", workflowHandler.SetState)
		api.GET("/workflow/:id/transitions", workflowHandler.Transitions)

		auditHandler := handlers.NewAuditHandler(s.deps.Audits, s.logger)
		api.GET("/audits/document/:id", auditHandler.ListByDocument)

		notificationHandler := handlers.NewNotificationHandler(s.deps.Notifications, s.logger)
		api.GET("/notifications/user/:username", notificationHandler.ListByUser)
		api.POST("/notifications", notificationHandler.Create)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
