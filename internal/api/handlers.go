// Package api contains the HTTP handlers for the boardflow service
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"boardflow/backend/internal/engine"
	"boardflow/backend/internal/registry"
	"boardflow/backend/internal/services"
	"boardflow/backend/pkg/models"
)

// Server holds the dependencies for the API server.
type Server struct {
	Engine    *engine.Engine
	Registry  registry.Registry
	Decisions *services.DecisionEngine
}

// NewServer creates a new Server.
func NewServer(eng *engine.Engine, reg registry.Registry, decisions *services.DecisionEngine) *Server {
	return &Server{Engine: eng, Registry: reg, Decisions: decisions}
}

// Register mounts all API routes on the given group.
func (s *Server) Register(g *echo.Group) {
	g.GET("/templates", s.ListTemplates)
	g.GET("/templates/:id", s.GetTemplate)
	g.POST("/executions", s.StartExecution)
	g.GET("/executions", s.ListExecutions)
	g.GET("/executions/:id", s.GetExecution)
	g.POST("/executions/:id/steps/:stepID", s.AdvanceStep)
	g.POST("/executions/:id/decisions", s.SubmitDecision)
	g.POST("/executions/:id/approvals", s.SubmitApproval)
	g.POST("/decisions/assess", s.AssessDecision)
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK)
func HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "boardflow",
		Version:   "1.0.0",
	})
}

// httpError maps internal error kinds to HTTP status codes. Not-found
// sentinels become 404, config errors 400, everything else 500.
func httpError(err error) *echo.HTTPError {
	switch {
	case models.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case models.IsConfigError(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
