// Package models defines the domain models for the boardflow service
package models

import (
	"fmt"
	"time"
)

// StepType identifies the behavior of a workflow step
type StepType string

const (
	StepTypeAIAnalysis    StepType = "ai_analysis"
	StepTypeDecisionPoint StepType = "decision_point"
	StepTypeApproval      StepType = "approval"
	StepTypeAction        StepType = "action"
	StepTypeCondition     StepType = "condition"
	StepTypeEscalation    StepType = "escalation"
)

// Complexity is a coarse sizing label for a workflow template
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// ApprovalMode determines how many required roles must approve
type ApprovalMode string

const (
	// ApprovalModeAny completes the step on the first approval
	ApprovalModeAny ApprovalMode = "any"
	// ApprovalModeAll requires an approval from every required role
	ApprovalModeAll ApprovalMode = "all"
)

// ConditionOperator is the comparison applied by a condition predicate
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorContains    ConditionOperator = "contains"
	OperatorExists      ConditionOperator = "exists"
)

// WorkflowTemplate is the immutable definition of a multi-step business
// process. Templates are created by configuration (registry or seed) and are
// never mutated at runtime.
type WorkflowTemplate struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	Category          string         `json:"category"`
	Complexity        Complexity     `json:"complexity"`
	EstimatedDuration time.Duration  `json:"estimated_duration"`
	Steps             []WorkflowStep `json:"steps"`
	StartStepID       string         `json:"start_step_id"`
	RequiredRoles     []string       `json:"required_roles"`
	MinParticipants   int            `json:"min_participants"`
	MaxParticipants   int            `json:"max_participants"`
}

// Step returns the step with the given id, or nil if the template has none.
func (t *WorkflowTemplate) Step(id string) *WorkflowStep {
	for i := range t.Steps {
		if t.Steps[i].ID == id {
			return &t.Steps[i]
		}
	}
	return nil
}

// Validate checks the template for structural problems: a broken step graph
// or steps without a valid type config.
func (t *WorkflowTemplate) Validate() error {
	if err := t.ValidateGraph(); err != nil {
		return err
	}
	for i := range t.Steps {
		step := &t.Steps[i]
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %q: %w", step.ID, err)
		}
	}
	return nil
}

// ValidateGraph checks the shape of the step graph: a known start step,
// successor ids that resolve, and no cycles. Config payloads are checked per
// step at dispatch time.
func (t *WorkflowTemplate) ValidateGraph() error {
	if t.StartStepID == "" {
		return &ConfigError{Field: "start_step_id", Reason: "must not be empty"}
	}
	ids := make(map[string]bool, len(t.Steps))
	for i := range t.Steps {
		ids[t.Steps[i].ID] = true
	}
	if !ids[t.StartStepID] {
		return &ConfigError{Field: "start_step_id", Reason: fmt.Sprintf("unknown step %q", t.StartStepID)}
	}
	for i := range t.Steps {
		step := &t.Steps[i]
		for _, next := range step.NextSteps {
			if !ids[next] {
				return &ConfigError{Field: "next_steps", Reason: fmt.Sprintf("step %q references unknown step %q", step.ID, next)}
			}
		}
	}
	return t.checkAcyclic()
}

// checkAcyclic walks the graph depth-first; a step reachable from itself
// would never terminate once executed.
func (t *WorkflowTemplate) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int, len(t.Steps))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return &ConfigError{Field: "next_steps", Reason: fmt.Sprintf("cycle through step %q", id)}
		case visited:
			return nil
		}
		state[id] = visiting
		if step := t.Step(id); step != nil {
			for _, next := range step.NextSteps {
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		state[id] = visited
		return nil
	}
	for i := range t.Steps {
		if err := visit(t.Steps[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// WorkflowStep is one node in the template graph. Exactly one type-specific
// config must be set, matching the step's Type. An empty NextSteps list marks
// a terminal step.
type WorkflowStep struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        StepType `json:"type"`

	AIConfig        *AIConfig        `json:"ai_config,omitempty"`
	ApprovalConfig  *ApprovalConfig  `json:"approval_config,omitempty"`
	ActionConfig    *ActionConfig    `json:"action_config,omitempty"`
	ConditionConfig *ConditionConfig `json:"condition_config,omitempty"`

	NextSteps []string `json:"next_steps"`
}

// Terminal reports whether the step has no successors.
func (s *WorkflowStep) Terminal() bool {
	return len(s.NextSteps) == 0
}

// Validate checks that the config payload required by the step type is
// present. Missing config is a ConfigError and is never retried.
func (s *WorkflowStep) Validate() error {
	switch s.Type {
	case StepTypeAIAnalysis:
		if s.AIConfig == nil {
			return &ConfigError{Field: "ai_config", Reason: "required for ai_analysis steps"}
		}
		if s.AIConfig.Prompt == "" {
			return &ConfigError{Field: "ai_config.prompt", Reason: "must not be empty"}
		}
	case StepTypeApproval:
		if s.ApprovalConfig == nil {
			return &ConfigError{Field: "approval_config", Reason: "required for approval steps"}
		}
		if len(s.ApprovalConfig.RequiredRoles) == 0 {
			return &ConfigError{Field: "approval_config.required_roles", Reason: "must not be empty"}
		}
		switch s.ApprovalConfig.Mode {
		case ApprovalModeAny, ApprovalModeAll:
		default:
			return &ConfigError{Field: "approval_config.mode", Reason: fmt.Sprintf("unknown mode %q", s.ApprovalConfig.Mode)}
		}
	case StepTypeAction:
		if s.ActionConfig == nil {
			return &ConfigError{Field: "action_config", Reason: "required for action steps"}
		}
		if s.ActionConfig.ActionType == "" {
			return &ConfigError{Field: "action_config.action_type", Reason: "must not be empty"}
		}
	case StepTypeCondition:
		if s.ConditionConfig == nil || len(s.ConditionConfig.Predicates) == 0 {
			return &ConfigError{Field: "condition_config", Reason: "at least one predicate required for condition steps"}
		}
	case StepTypeDecisionPoint, StepTypeEscalation:
		// no config payload
	default:
		return &ConfigError{Field: "type", Reason: fmt.Sprintf("unknown step type %q", s.Type)}
	}
	return nil
}

// AIConfig configures an ai_analysis step
type AIConfig struct {
	Prompt              string   `json:"prompt"`
	RequiredAgents      []string `json:"required_agents"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
}

// ApprovalConfig configures an approval step
type ApprovalConfig struct {
	RequiredRoles           []string     `json:"required_roles"`
	Mode                    ApprovalMode `json:"mode"`
	EscalationDeadlineHours int          `json:"escalation_deadline_hours"`
}

// ActionConfig configures an action step
type ActionConfig struct {
	ActionType string         `json:"action_type"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ConditionConfig configures a condition step. The step result is the AND of
// all predicates evaluated against the execution context.
type ConditionConfig struct {
	Predicates []ConditionPredicate `json:"predicates"`
}

// ConditionPredicate is one field comparison against the execution context
type ConditionPredicate struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    any               `json:"value,omitempty"`
}
