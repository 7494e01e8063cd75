package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"boardflow/backend/internal/engine"
	"boardflow/backend/internal/registry"
	"boardflow/backend/internal/services"
)

// Server exposes the workflow engine to AI agents over the MCP protocol.
type Server struct {
	mcpServer *server.MCPServer
	engine    *engine.Engine
	registry  registry.Registry
	decisions *services.DecisionEngine
}

// NewServer creates the MCP server and registers the workflow tools.
func NewServer(eng *engine.Engine, reg registry.Registry, decisions *services.DecisionEngine) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Boardflow Workflows",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		engine:    eng,
		registry:  reg,
		decisions: decisions,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_templates",
			mcp.WithDescription("List the available workflow templates"),
		),
		s.handleListTemplates,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"start_workflow",
			mcp.WithDescription("Start a workflow execution from a template"),
			mcp.WithString("template_id", mcp.Required(), mcp.Description("The template to instantiate")),
			mcp.WithString("initiated_by", mcp.Required(), mcp.Description("The user starting the workflow")),
			mcp.WithString("session_id", mcp.Description("The owning session")),
			mcp.WithObject("context", mcp.Description("Initial workflow context values")),
		),
		s.handleStartWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_execution",
			mcp.WithDescription("Fetch one workflow execution's detail"),
			mcp.WithString("execution_id", mcp.Required(), mcp.Description("The execution ID")),
		),
		s.handleGetExecution,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"submit_decision",
			mcp.WithDescription("Submit a decision for a waiting decision point"),
			mcp.WithString("execution_id", mcp.Required(), mcp.Description("The execution ID")),
			mcp.WithString("step_id", mcp.Required(), mcp.Description("The waiting step")),
			mcp.WithString("decision", mcp.Required(), mcp.Description("The decision value")),
			mcp.WithString("user_id", mcp.Description("Who decided")),
		),
		s.handleSubmitDecision,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"submit_approval",
			mcp.WithDescription("Submit an approval outcome for a waiting approval step"),
			mcp.WithString("execution_id", mcp.Required(), mcp.Description("The execution ID")),
			mcp.WithString("step_id", mcp.Required(), mcp.Description("The waiting step")),
			mcp.WithString("role", mcp.Required(), mcp.Description("The approving role")),
			mcp.WithBoolean("approved", mcp.Required(), mcp.Description("Approve or reject")),
			mcp.WithString("user_id", mcp.Description("Who approved")),
		),
		s.handleSubmitApproval,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"assess_decision",
			mcp.WithDescription("Score a pending business decision"),
			mcp.WithString("risk_tolerance", mcp.Description("low, medium, or high")),
			mcp.WithString("timeline", mcp.Description("Free-form timeline description")),
			mcp.WithNumber("budget_amount", mcp.Description("Requested budget")),
			mcp.WithNumber("participant_count", mcp.Description("Number of participants")),
			mcp.WithNumber("document_count", mcp.Description("Number of attached documents")),
		),
		s.handleAssessDecision,
	)
}

func (s *Server) handleListTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := s.registry.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list templates: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(templates)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleStartWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	templateID, ok := args["template_id"].(string)
	if !ok || templateID == "" {
		return mcp.NewToolResultError("Missing required parameter: template_id"), nil
	}
	initiatedBy, ok := args["initiated_by"].(string)
	if !ok || initiatedBy == "" {
		return mcp.NewToolResultError("Missing required parameter: initiated_by"), nil
	}
	sessionID, _ := args["session_id"].(string)
	execContext, _ := args["context"].(map[string]interface{})

	execution, err := s.engine.StartWorkflow(ctx, engine.StartRequest{
		TemplateID:  templateID,
		SessionID:   sessionID,
		InitiatedBy: initiatedBy,
		Context:     execContext,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start workflow: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(execution)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetExecution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	executionID, ok := args["execution_id"].(string)
	if !ok || executionID == "" {
		return mcp.NewToolResultError("Missing required parameter: execution_id"), nil
	}

	execution, err := s.engine.Execution(ctx, executionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get execution: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(execution)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleSubmitDecision(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	executionID, _ := args["execution_id"].(string)
	stepID, _ := args["step_id"].(string)
	decision, _ := args["decision"].(string)
	if executionID == "" || stepID == "" || decision == "" {
		return mcp.NewToolResultError("execution_id, step_id, and decision are required"), nil
	}
	userID, _ := args["user_id"].(string)

	err := s.engine.Resume(ctx, executionID, stepID, engine.ResumePayload{
		UserID:   userID,
		Decision: decision,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to submit decision: %v", err)), nil
	}
	return mcp.NewToolResultText("Decision recorded"), nil
}

func (s *Server) handleSubmitApproval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	executionID, _ := args["execution_id"].(string)
	stepID, _ := args["step_id"].(string)
	role, _ := args["role"].(string)
	if executionID == "" || stepID == "" || role == "" {
		return mcp.NewToolResultError("execution_id, step_id, and role are required"), nil
	}
	approved, _ := args["approved"].(bool)
	userID, _ := args["user_id"].(string)

	err := s.engine.Resume(ctx, executionID, stepID, engine.ResumePayload{
		UserID:   userID,
		Role:     role,
		Approved: approved,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to submit approval: %v", err)), nil
	}
	return mcp.NewToolResultText("Approval recorded"), nil
}

func (s *Server) handleAssessDecision(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	input := services.DecisionInput{}
	input.RiskTolerance, _ = args["risk_tolerance"].(string)
	input.Timeline, _ = args["timeline"].(string)
	if v, ok := args["budget_amount"].(float64); ok {
		input.BudgetAmount = v
	}
	if v, ok := args["participant_count"].(float64); ok {
		input.ParticipantCount = int(v)
	}
	if v, ok := args["document_count"].(float64); ok {
		input.DocumentCount = int(v)
	}

	jsonBytes, _ := json.Marshal(s.decisions.Assess(input))
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MountHTTPHandlers mounts the MCP SSE endpoints on the given mux.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
