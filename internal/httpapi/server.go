// Package httpapi provides the HTTP API for taskd.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskd/internal/pipeline"
	"github.com/fyrsmithlabs/taskd/internal/store"
)

// Input size bounds enforced at the API boundary.
const (
	minContentLength = 10
	maxContentLength = 50000
	maxSourceLength  = 50
)

// TaskStore is the persistence surface the API needs.
type TaskStore interface {
	CreateTask(ctx context.Context, task *store.Task) error
	GetTask(ctx context.Context, id string) (*store.Task, error)
	ListTasks(ctx context.Context, status store.Status, limit int) ([]store.Task, error)
	UpdateTask(ctx context.Context, task *store.Task) error
	DeleteTask(ctx context.Context, id string) error
	CreateMessage(ctx context.Context, msg *store.Message) error
	MarkMessageProcessed(ctx context.Context, id string, actionable bool) error
}

// InferenceRunner runs the task inference pipeline over one input.
type InferenceRunner interface {
	Run(ctx context.Context, content, source, originID string) (pipeline.State, error)
}

// Server provides HTTP endpoints for taskd.
type Server struct {
	echo   *echo.Echo
	store  TaskStore
	runner InferenceRunner
	logger *zap.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(st TaskStore, runner InferenceRunner, logger *zap.Logger, cfg *Config) (*Server, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("inference runner cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:   e,
		store:  st,
		runner: runner,
		logger: logger,
		config: cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/infer-tasks", s.handleInferTasks)
	v1.GET("/tasks", s.handleListTasks)
	v1.GET("/tasks/:id", s.handleGetTask)
	v1.POST("/tasks", s.handleCreateTask)
	v1.PUT("/tasks/:id", s.handleUpdateTask)
	v1.DELETE("/tasks/:id", s.handleDeleteTask)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
