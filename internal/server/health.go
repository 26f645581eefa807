package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Index      string `json:"index"`
	Collection string `json:"collection"`
	Timestamp  string `json:"timestamp"`
}

// health reports 200 when the vector index is reachable and 503 otherwise.
func (s *Server) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:     "healthy",
		Index:      "connected",
		Collection: s.cfg.Collection,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.cfg.Index.Health(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		response.Status = "unhealthy"
		response.Index = "disconnected"
		return c.JSON(http.StatusServiceUnavailable, response)
	}
	return c.JSON(http.StatusOK, response)
}
