package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/ec0249-assessment/internal/config"
	"github.com/SAP-F-2025/ec0249-assessment/internal/metrics"
	"github.com/SAP-F-2025/ec0249-assessment/internal/services"
	"github.com/SAP-F-2025/ec0249-assessment/internal/utils"
	"github.com/SAP-F-2025/ec0249-assessment/internal/validator"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	base              BaseHandler
	assessmentHandler *AssessmentHandler
	sessionHandler    *SessionHandler
	manager           *services.SessionManager
	metrics           *metrics.Metrics
	tokenParser       TokenParser
	rateLimit         config.RateLimitConfig
}

// HandlerConfig wires the HTTP layer. A nil TokenParser trusts the X-User-ID header.
type HandlerConfig struct {
	Manager     *services.SessionManager
	Export      *services.ExportService
	Metrics     *metrics.Metrics
	TokenParser TokenParser
	RateLimit   config.RateLimitConfig
	Validator   *validator.Validator
	Logger      utils.Logger
}

func NewHandlerManager(cfg HandlerConfig) *HandlerManager {
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.Export == nil {
		cfg.Export = services.NewExportService(cfg.Logger.Slog())
	}
	base := NewBaseHandler(cfg.Logger, cfg.Validator)
	return &HandlerManager{
		base:              base,
		assessmentHandler: NewAssessmentHandler(base, cfg.Manager.Catalog()),
		sessionHandler:    NewSessionHandler(base, cfg.Manager, cfg.Export),
		manager:           cfg.Manager,
		metrics:           cfg.Metrics,
		tokenParser:       cfg.TokenParser,
		rateLimit:         cfg.RateLimit,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(utils.ContextLogger(hm.base.logger), hm.base.RequestContext())
	if hm.metrics != nil {
		router.Use(hm.metrics.Middleware())
		router.GET("/metrics", hm.metrics.Handler())
	}

	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(hm.base.AuthMiddleware(hm.tokenParser), RateLimitMiddleware(hm.rateLimit))
	{
		assessments := v1.Group("/assessments")
		{
			assessments.GET("", hm.assessmentHandler.ListAssessments)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)
			assessments.POST("/:id/start", hm.sessionHandler.StartAssessment)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.GET("/current", hm.sessionHandler.CurrentSession)
			sessions.POST("/resume", hm.sessionHandler.ResumeSession)
			sessions.POST("/:id/answers", hm.sessionHandler.SubmitAnswer)
			sessions.POST("/:id/complete", hm.sessionHandler.CompleteSession)
			sessions.POST("/:id/extend", hm.sessionHandler.ExtendTime)
		}

		v1.GET("/results/:session_id", hm.sessionHandler.GetResult)

		history := v1.Group("/history")
		{
			history.GET("/:assessment_id", hm.sessionHandler.GetHistory)
			history.GET("/:assessment_id/export", hm.sessionHandler.ExportHistory)
		}
	}
}

// HealthCheck reports service status and catalog size.
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"service":         "ec0249-assessment",
		"catalog_version": hm.manager.Catalog().Version(),
		"assessments":     hm.manager.Catalog().Len(),
		"active_sessions": hm.manager.ActiveSessions(),
	})
}
