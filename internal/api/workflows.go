package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"boardflow/backend/internal/engine"
	"boardflow/backend/internal/services"
)

// ListTemplates returns the workflow template catalog
// (GET /api/v1/templates)
func (s *Server) ListTemplates(c echo.Context) error {
	ctx := c.Request().Context()

	templates, err := s.Registry.List(ctx)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, templates)
}

// GetTemplate returns one workflow template
// (GET /api/v1/templates/:id)
func (s *Server) GetTemplate(c echo.Context) error {
	ctx := c.Request().Context()

	template, err := s.Registry.Template(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, template)
}

// StartExecution starts a new workflow execution
// (POST /api/v1/executions)
func (s *Server) StartExecution(c echo.Context) error {
	ctx := c.Request().Context()

	var req engine.StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.TemplateID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "template_id is required")
	}
	if req.InitiatedBy == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "initiated_by is required")
	}

	execution, err := s.Engine.StartWorkflow(ctx, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, execution)
}

// ListExecutions returns the executions started by a user
// (GET /api/v1/executions?initiated_by=...)
func (s *Server) ListExecutions(c echo.Context) error {
	ctx := c.Request().Context()

	initiatedBy := c.QueryParam("initiated_by")
	if initiatedBy == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "initiated_by query parameter is required")
	}

	executions, err := s.Engine.ListExecutions(ctx, initiatedBy)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, executions)
}

// GetExecution returns one execution's detail
// (GET /api/v1/executions/:id)
func (s *Server) GetExecution(c echo.Context) error {
	ctx := c.Request().Context()

	execution, err := s.Engine.Execution(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, execution)
}

// AdvanceStep dispatches a named step of an execution
// (POST /api/v1/executions/:id/steps/:stepID)
func (s *Server) AdvanceStep(c echo.Context) error {
	ctx := c.Request().Context()

	if err := s.Engine.ExecuteStep(ctx, c.Param("id"), c.Param("stepID")); err != nil {
		return httpError(err)
	}
	execution, err := s.Engine.Execution(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, execution)
}

// decisionRequest is the body for submitting a decision
type decisionRequest struct {
	StepID    string         `json:"step_id"`
	UserID    string         `json:"user_id"`
	Decision  string         `json:"decision"`
	Rationale string         `json:"rationale,omitempty"`
	Outputs   map[string]any `json:"outputs,omitempty"`
}

// SubmitDecision resumes a waiting decision point
// (POST /api/v1/executions/:id/decisions)
func (s *Server) SubmitDecision(c echo.Context) error {
	ctx := c.Request().Context()

	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.StepID == "" || req.Decision == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "step_id and decision are required")
	}

	err := s.Engine.Resume(ctx, c.Param("id"), req.StepID, engine.ResumePayload{
		UserID:    req.UserID,
		Decision:  req.Decision,
		Rationale: req.Rationale,
		Outputs:   req.Outputs,
	})
	if err != nil {
		return httpError(err)
	}
	execution, err := s.Engine.Execution(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, execution)
}

// approvalRequest is the body for submitting an approval outcome
type approvalRequest struct {
	StepID   string `json:"step_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	Approved bool   `json:"approved"`
	Comment  string `json:"comment,omitempty"`
}

// SubmitApproval resumes a waiting approval step
// (POST /api/v1/executions/:id/approvals)
func (s *Server) SubmitApproval(c echo.Context) error {
	ctx := c.Request().Context()

	var req approvalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.StepID == "" || req.Role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "step_id and role are required")
	}

	err := s.Engine.Resume(ctx, c.Param("id"), req.StepID, engine.ResumePayload{
		UserID:    req.UserID,
		Role:      req.Role,
		Approved:  req.Approved,
		Rationale: req.Comment,
	})
	if err != nil {
		return httpError(err)
	}
	execution, err := s.Engine.Execution(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, execution)
}

// AssessDecision scores a pending business decision
// (POST /api/v1/decisions/assess)
func (s *Server) AssessDecision(c echo.Context) error {
	var input services.DecisionInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return c.JSON(http.StatusOK, s.Decisions.Assess(input))
}
