package models

import (
	"time"
)

// ExecutionStatus is the lifecycle state of a workflow execution
type ExecutionStatus string

const (
	ExecutionStatusPending    ExecutionStatus = "pending"
	ExecutionStatusInProgress ExecutionStatus = "in_progress"
	ExecutionStatusCompleted  ExecutionStatus = "completed"
	ExecutionStatusFailed     ExecutionStatus = "failed"
)

// StepStatus is the state of a single step attempt
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	// StepStatusWaiting marks a step blocked on human input; the execution
	// itself stays in_progress until resumed.
	StepStatusWaiting   StepStatus = "waiting"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// WorkflowExecution is one running instance of a template. It is owned by the
// engine for its lifetime; all mutation goes through engine methods.
type WorkflowExecution struct {
	ID             string          `json:"id"`
	TemplateID     string          `json:"template_id"`
	SessionID      string          `json:"session_id"`
	InitiatedBy    string          `json:"initiated_by"`
	Status         ExecutionStatus `json:"status"`
	CurrentStepID  string          `json:"current_step_id"`
	CompletedSteps []string        `json:"completed_steps"`

	// History holds one record per step attempt, in execution order.
	History []*WorkflowStepExecution `json:"history"`

	// Context accumulates key-value outputs of completed steps; later steps
	// read the values written by earlier ones.
	Context map[string]any `json:"context"`

	Documents    []string      `json:"documents,omitempty"`
	Participants []Participant `json:"participants"`

	StartedAt           time.Time  `json:"started_at"`
	EstimatedCompletion time.Time  `json:"estimated_completion"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`

	Decisions []DecisionRecord `json:"decisions,omitempty"`
	Actions   []ActionRecord   `json:"actions,omitempty"`

	Error string `json:"error,omitempty"`
}

// StepExecution returns the most recent attempt record for the given step,
// or nil if the step has not run.
func (e *WorkflowExecution) StepExecution(stepID string) *WorkflowStepExecution {
	for i := len(e.History) - 1; i >= 0; i-- {
		if e.History[i].StepID == stepID {
			return e.History[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the execution. Stores hand out clones so
// readers never share mutable state with the engine.
func (e *WorkflowExecution) Clone() *WorkflowExecution {
	if e == nil {
		return nil
	}
	clone := *e
	clone.CompletedSteps = append([]string(nil), e.CompletedSteps...)
	clone.Context = cloneMap(e.Context)
	clone.Documents = append([]string(nil), e.Documents...)
	clone.Participants = append([]Participant(nil), e.Participants...)
	clone.CompletedAt = cloneTime(e.CompletedAt)
	if e.History != nil {
		clone.History = make([]*WorkflowStepExecution, len(e.History))
		for i, stepExec := range e.History {
			clone.History[i] = stepExec.Clone()
		}
	}
	if e.Decisions != nil {
		clone.Decisions = make([]DecisionRecord, len(e.Decisions))
		for i, decision := range e.Decisions {
			decision.Outputs = cloneMap(decision.Outputs)
			clone.Decisions[i] = decision
		}
	}
	if e.Actions != nil {
		clone.Actions = make([]ActionRecord, len(e.Actions))
		for i, action := range e.Actions {
			action.Result = cloneMap(action.Result)
			clone.Actions[i] = action
		}
	}
	return &clone
}

// StepCompleted reports whether the given step id is in CompletedSteps.
func (e *WorkflowExecution) StepCompleted(stepID string) bool {
	for _, id := range e.CompletedSteps {
		if id == stepID {
			return true
		}
	}
	return false
}

// Terminal reports whether the execution has reached a final status.
func (e *WorkflowExecution) Terminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}

// WorkflowStepExecution records one attempt at a step.
// Invariant: RetryCount <= MaxRetries; exceeding MaxRetries fails the
// whole execution and is terminal for the step.
type WorkflowStepExecution struct {
	StepID      string           `json:"step_id"`
	Status      StepStatus       `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Input       map[string]any   `json:"input,omitempty"`
	Output      map[string]any   `json:"output,omitempty"`
	RetryCount  int              `json:"retry_count"`
	MaxRetries  int              `json:"max_retries"`
	AIResponse  *AIAnalysis      `json:"ai_response,omitempty"`
	Approval    *ApprovalRequest `json:"approval,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Clone returns a deep copy of the attempt record.
func (s *WorkflowStepExecution) Clone() *WorkflowStepExecution {
	if s == nil {
		return nil
	}
	clone := *s
	clone.CompletedAt = cloneTime(s.CompletedAt)
	clone.Input = cloneMap(s.Input)
	clone.Output = cloneMap(s.Output)
	if s.AIResponse != nil {
		analysis := *s.AIResponse
		analysis.Reasoning = append([]string(nil), s.AIResponse.Reasoning...)
		analysis.Recommendations = append([]string(nil), s.AIResponse.Recommendations...)
		analysis.Risks = append([]string(nil), s.AIResponse.Risks...)
		clone.AIResponse = &analysis
	}
	if s.Approval != nil {
		approval := *s.Approval
		approval.RequiredRoles = append([]string(nil), s.Approval.RequiredRoles...)
		approval.Approvals = append([]Approval(nil), s.Approval.Approvals...)
		clone.Approval = &approval
	}
	return &clone
}

// cloneMap deep-copies a context map, including nested maps and slices.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	copied := make(map[string]any, len(m))
	for k, v := range m {
		copied[k] = cloneValue(v)
	}
	return copied
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneMap(value)
	case []any:
		copied := make([]any, len(value))
		for i, item := range value {
			copied[i] = cloneValue(item)
		}
		return copied
	case []string:
		return append([]string(nil), value...)
	default:
		return v
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

// Participant is one party attached to an execution
type Participant struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// DecisionRecord captures a human decision submitted against a decision point
type DecisionRecord struct {
	StepID    string         `json:"step_id"`
	DecidedBy string         `json:"decided_by"`
	Decision  string         `json:"decision"`
	Rationale string         `json:"rationale,omitempty"`
	Outputs   map[string]any `json:"outputs,omitempty"`
	DecidedAt time.Time      `json:"decided_at"`
}

// ActionRecord captures one executed action step
type ActionRecord struct {
	StepID     string         `json:"step_id"`
	ActionType string         `json:"action_type"`
	Result     map[string]any `json:"result,omitempty"`
	ExecutedAt time.Time      `json:"executed_at"`
}

// AIAnalysis is the payload returned by the AI analysis collaborator
type AIAnalysis struct {
	Analysis           string   `json:"analysis"`
	Confidence         float64  `json:"confidence"`
	Reasoning          []string `json:"reasoning,omitempty"`
	Recommendations    []string `json:"recommendations,omitempty"`
	Risks              []string `json:"risks,omitempty"`
	EscalationRequired bool     `json:"escalation_required"`
}

// ApprovalRequest tracks the outstanding approvals for an approval step
type ApprovalRequest struct {
	StepID        string       `json:"step_id"`
	RequiredRoles []string     `json:"required_roles"`
	Mode          ApprovalMode `json:"mode"`
	Deadline      time.Time    `json:"deadline"`
	Approvals     []Approval   `json:"approvals,omitempty"`
	RequestedAt   time.Time    `json:"requested_at"`
}

// Approval is one submitted approval outcome
type Approval struct {
	Role       string    `json:"role"`
	ApprovedBy string    `json:"approved_by"`
	Approved   bool      `json:"approved"`
	Comment    string    `json:"comment,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

// Approved reports whether the request is satisfied under its mode. A single
// rejection is always terminal for the request.
func (r *ApprovalRequest) Approved() bool {
	if len(r.Approvals) == 0 {
		return false
	}
	roles := make(map[string]bool)
	for _, a := range r.Approvals {
		if !a.Approved {
			return false
		}
		roles[a.Role] = true
	}
	if r.Mode == ApprovalModeAny {
		return true
	}
	for _, role := range r.RequiredRoles {
		if !roles[role] {
			return false
		}
	}
	return true
}

// Rejected reports whether any submitted approval was a rejection.
func (r *ApprovalRequest) Rejected() bool {
	for _, a := range r.Approvals {
		if !a.Approved {
			return true
		}
	}
	return false
}
