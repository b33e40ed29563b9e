package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roadmapd/internal/detector"
	"github.com/fyrsmithlabs/roadmapd/internal/events"
	"github.com/fyrsmithlabs/roadmapd/internal/generator"
	"github.com/fyrsmithlabs/roadmapd/internal/logging"
	"github.com/fyrsmithlabs/roadmapd/internal/progress"
	"github.com/fyrsmithlabs/roadmapd/internal/store"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server wires the HTTP surface to the services behind it.
type Server struct {
	echo      *echo.Echo
	progress  progress.Service
	projects  store.ProjectStore
	generator *generator.Service
	detector  *detector.Detector
	publisher events.Publisher
	sseConn   sseSubscriber
	logger    *zap.Logger
	config    *Config
}

// NewServer creates the HTTP server. publisher may be events.Noop{} and
// sseConn may be nil when eventing is disabled; the SSE endpoint then
// returns 503.
func NewServer(
	progressSvc progress.Service,
	projects store.ProjectStore,
	gen *generator.Service,
	det *detector.Detector,
	publisher events.Publisher,
	sseConn sseSubscriber,
	logger *zap.Logger,
	cfg *Config,
) (*Server, error) {
	if progressSvc == nil {
		return nil, errors.New("progress service is required")
	}
	if projects == nil {
		return nil, errors.New("project store is required")
	}
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if det == nil {
		return nil, errors.New("detector is required")
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8087}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestContextMiddleware())
	e.Use(requestLogMiddleware(logger))

	metrics := NewHTTPMetrics(logger)
	e.Use(metrics.Middleware())

	s := &Server{
		echo:      e,
		progress:  progressSvc,
		projects:  projects,
		generator: gen,
		detector:  det,
		publisher: publisher,
		sseConn:   sseConn,
		logger:    logger,
		config:    cfg,
	}
	s.registerRoutes()
	return s, nil
}

// requestContextMiddleware copies the request ID into the request context so
// service-level logs can correlate with access logs.
func requestContextMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(req.Context(), rid)
			if id := c.Param("id"); id != "" {
				ctx = logging.WithProjectID(ctx, id)
			}
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func requestLogMiddleware(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/projects", s.handleCreateProject)
	v1.GET("/projects", s.handleListProjects)
	v1.GET("/projects/:id", s.handleGetProject)
	v1.DELETE("/projects/:id", s.handleDeleteProject)
	v1.PATCH("/projects/:id/status", s.handleSetStatus)
	v1.POST("/projects/:id/progress", s.handleProgress)
	v1.POST("/projects/:id/phases/:phase/expand", s.handleExpandPhase)
	v1.POST("/projects/:id/detect", s.handleDetect)
	v1.GET("/projects/:id/events", s.handleSSE)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start starts the HTTP server and blocks.
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
