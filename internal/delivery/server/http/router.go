// Package http exposes the reminder service over a gin router.
package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
)

// ReminderService is the part of the reminder service the handlers call.
type ReminderService interface {
	GetPendingReminders(ctx context.Context, window time.Duration) ([]domain.PendingReminder, error)
	ProcessPendingReminders(ctx context.Context, window time.Duration) (domain.BatchResult, error)
	LogReminderSent(ctx context.Context, taskID string, reminderType domain.Type, delivered bool, details string) (bool, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

// RouterDeps are the collaborators behind the routes.
type RouterDeps struct {
	Reminders ReminderService
	Records   domain.RecordReader
	Health    HealthChecker
	Metrics   http.Handler
	Logger    logging.Logger
}

// RouterConfig shapes the router.
type RouterConfig struct {
	Environment        string
	CORSAllowedOrigins []string
	MetricsPath        string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps RouterDeps, cfg RouterConfig) *gin.Engine {
	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if env == "production" || env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := logging.OrNop(deps.Logger)
	if logging.IsNil(deps.Logger) {
		logger = logging.NewComponentLogger("HTTP")
	}

	engine := gin.New()
	engine.Use(CorrelationIDMiddleware())
	engine.Use(LoggingMiddleware(logger))
	engine.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.FromContext(c.Request.Context(), logger).Error("panic serving %s: %v", c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}))
	engine.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))

	handler := NewReminderHandler(deps.Reminders, deps.Records, logger)
	health := deps.Health

	engine.GET("/health", func(c *gin.Context) {
		if health != nil {
			if err := health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	if deps.Metrics != nil {
		path := strings.TrimSpace(cfg.MetricsPath)
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, gin.WrapH(deps.Metrics))
	}

	api := engine.Group("/api/reminders")
	api.GET("/pending", handler.HandleGetPending)
	api.POST("/process", handler.HandleProcess)
	api.POST("/log", handler.HandleLogSent)
	api.GET("/tasks/:id", handler.HandleTaskHistory)

	return engine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", correlationHeader}
	cfg.ExposeHeaders = []string{correlationHeader}
	return cfg
}

// NewServer wraps the engine in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Processing a batch runs inside the request.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
}
