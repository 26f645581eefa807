// Package server exposes question answering over HTTP: a JSON API, health and
// metrics endpoints, and the MCP Streamable HTTP transport.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bull/legal-rag/internal/answer"
	"github.com/bull/legal-rag/internal/metrics"
	"github.com/bull/legal-rag/internal/storage"
)

// Answerer answers and retrieves.
type Answerer interface {
	Answer(ctx context.Context, question string) (*answer.Answer, error)
	Retrieve(ctx context.Context, question string, k int) ([]storage.RetrievedChunk, error)
}

// HealthChecker is implemented by storage.Index.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config holds the server dependencies.
type Config struct {
	Answerer   Answerer
	Index      HealthChecker
	Collection string
	TopK       int
	Metrics    *metrics.Metrics // optional
	MCP        http.Handler     // optional, mounted at /mcp
	Logger     *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	echo   *echo.Echo
	cfg    Config
	logger *slog.Logger
}

// New creates a Server with all routes registered.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = answer.DefaultTopK
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, cfg: cfg, logger: cfg.Logger}
	e.HTTPErrorHandler = s.handleError

	e.GET("/", landing)
	e.GET("/health", s.health)
	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics.Handler()))
	}
	if cfg.MCP != nil {
		e.Any("/mcp", echo.WrapHandler(cfg.MCP))
	}

	api := e.Group("/v1")
	api.POST("/answer", s.answer)
	api.POST("/search", s.search)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// handleError writes every error as JSON and logs it.
func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	s.logger.Warn("request failed",
		"status", code, "method", req.Method, "path", req.URL.Path, "remote", c.RealIP(), "error", err)
	if !c.Response().Committed {
		_ = c.JSON(code, ErrorResponse{Error: msg})
	}
}
