package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTemplate() *WorkflowTemplate {
	return &WorkflowTemplate{
		ID:          "review",
		Name:        "Review",
		StartStepID: "analyze",
		Steps: []WorkflowStep{
			{
				ID:   "analyze",
				Name: "Analyze",
				Type: StepTypeAIAnalysis,
				AIConfig: &AIConfig{
					Prompt: "Review the request.",
				},
				NextSteps: []string{"approve"},
			},
			{
				ID:   "approve",
				Name: "Approve",
				Type: StepTypeApproval,
				ApprovalConfig: &ApprovalConfig{
					RequiredRoles:           []string{"CFO"},
					Mode:                    ApprovalModeAny,
					EscalationDeadlineHours: 24,
				},
			},
		},
	}
}

func TestTemplateValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validTemplate().Validate())
	})

	t.Run("missing start step id", func(t *testing.T) {
		template := validTemplate()
		template.StartStepID = ""
		assert.True(t, IsConfigError(template.Validate()))
	})

	t.Run("unknown start step", func(t *testing.T) {
		template := validTemplate()
		template.StartStepID = "nope"
		assert.True(t, IsConfigError(template.Validate()))
	})

	t.Run("dangling successor", func(t *testing.T) {
		template := validTemplate()
		template.Steps[1].NextSteps = []string{"missing"}
		assert.True(t, IsConfigError(template.Validate()))
	})

	t.Run("cycle", func(t *testing.T) {
		template := validTemplate()
		template.Steps[1].NextSteps = []string{"analyze"}
		assert.True(t, IsConfigError(template.Validate()))
	})

	t.Run("self referencing step", func(t *testing.T) {
		template := validTemplate()
		template.Steps[1].NextSteps = []string{"approve"}
		assert.True(t, IsConfigError(template.Validate()))
	})
}

func TestTemplateValidateGraph(t *testing.T) {
	// graph checks ignore config payloads; those are checked at dispatch
	template := validTemplate()
	template.Steps[0].AIConfig = nil
	assert.NoError(t, template.ValidateGraph())
	assert.Error(t, template.Validate())

	template.Steps[1].NextSteps = []string{"analyze"}
	assert.True(t, IsConfigError(template.ValidateGraph()))
}

func TestStepValidate(t *testing.T) {
	tests := []struct {
		name string
		step WorkflowStep
		ok   bool
	}{
		{
			name: "ai step without config",
			step: WorkflowStep{ID: "a", Type: StepTypeAIAnalysis},
		},
		{
			name: "ai step with empty prompt",
			step: WorkflowStep{ID: "a", Type: StepTypeAIAnalysis, AIConfig: &AIConfig{}},
		},
		{
			name: "approval without roles",
			step: WorkflowStep{ID: "a", Type: StepTypeApproval, ApprovalConfig: &ApprovalConfig{Mode: ApprovalModeAny}},
		},
		{
			name: "approval with bad mode",
			step: WorkflowStep{ID: "a", Type: StepTypeApproval, ApprovalConfig: &ApprovalConfig{RequiredRoles: []string{"CFO"}, Mode: "most"}},
		},
		{
			name: "action without type",
			step: WorkflowStep{ID: "a", Type: StepTypeAction, ActionConfig: &ActionConfig{}},
		},
		{
			name: "condition without predicates",
			step: WorkflowStep{ID: "a", Type: StepTypeCondition, ConditionConfig: &ConditionConfig{}},
		},
		{
			name: "unknown type",
			step: WorkflowStep{ID: "a", Type: "magic"},
		},
		{
			name: "decision point needs no config",
			step: WorkflowStep{ID: "a", Type: StepTypeDecisionPoint},
			ok:   true,
		},
		{
			name: "escalation needs no config",
			step: WorkflowStep{ID: "a", Type: StepTypeEscalation},
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsConfigError(err))
			}
		})
	}
}

func TestExecutionClone(t *testing.T) {
	now := time.Now()
	execution := &WorkflowExecution{
		ID:             "exec-1",
		Status:         ExecutionStatusInProgress,
		CompletedSteps: []string{"analyze"},
		Context: map[string]any{
			"amount": 250000.0,
			"nested": map[string]any{"key": "value"},
			"tags":   []any{"finance"},
		},
		History: []*WorkflowStepExecution{
			{
				StepID: "approve",
				Status: StepStatusWaiting,
				Output: map[string]any{"awaiting": "approval"},
				Approval: &ApprovalRequest{
					RequiredRoles: []string{"CFO"},
					Mode:          ApprovalModeAny,
				},
			},
		},
		Decisions: []DecisionRecord{
			{StepID: "decide", Outputs: map[string]any{"cost_center": "eng"}, DecidedAt: now},
		},
	}

	clone := execution.Clone()
	require.Equal(t, execution, clone)
	assert.NotSame(t, execution, clone)

	// no mutable state is shared in either direction
	clone.Context["amount"] = 1.0
	clone.Context["nested"].(map[string]any)["key"] = "changed"
	clone.History[0].Status = StepStatusCompleted
	clone.History[0].Approval.Approvals = append(clone.History[0].Approval.Approvals, Approval{Role: "CFO"})
	clone.Decisions[0].Outputs["cost_center"] = "ops"
	clone.CompletedSteps[0] = "other"

	assert.Equal(t, 250000.0, execution.Context["amount"])
	assert.Equal(t, "value", execution.Context["nested"].(map[string]any)["key"])
	assert.Equal(t, StepStatusWaiting, execution.History[0].Status)
	assert.Empty(t, execution.History[0].Approval.Approvals)
	assert.Equal(t, "eng", execution.Decisions[0].Outputs["cost_center"])
	assert.Equal(t, []string{"analyze"}, execution.CompletedSteps)

	var nilExecution *WorkflowExecution
	assert.Nil(t, nilExecution.Clone())
}

func TestStepExecutionLookup(t *testing.T) {
	first := &WorkflowStepExecution{StepID: "a", Status: StepStatusFailed}
	second := &WorkflowStepExecution{StepID: "a", Status: StepStatusCompleted}
	execution := &WorkflowExecution{History: []*WorkflowStepExecution{first, second}}

	// the most recent attempt wins
	assert.Same(t, second, execution.StepExecution("a"))
	assert.Nil(t, execution.StepExecution("b"))
}

func TestApprovalRequest(t *testing.T) {
	now := time.Now()
	request := func(mode ApprovalMode, approvals ...Approval) *ApprovalRequest {
		return &ApprovalRequest{
			RequiredRoles: []string{"CEO", "CFO"},
			Mode:          mode,
			Approvals:     approvals,
			RequestedAt:   now,
		}
	}

	t.Run("no approvals yet", func(t *testing.T) {
		assert.False(t, request(ApprovalModeAny).Approved())
		assert.False(t, request(ApprovalModeAll).Approved())
	})

	t.Run("any satisfied by one role", func(t *testing.T) {
		r := request(ApprovalModeAny, Approval{Role: "CFO", Approved: true})
		assert.True(t, r.Approved())
	})

	t.Run("all needs every role", func(t *testing.T) {
		r := request(ApprovalModeAll, Approval{Role: "CFO", Approved: true})
		assert.False(t, r.Approved())

		r.Approvals = append(r.Approvals, Approval{Role: "CEO", Approved: true})
		assert.True(t, r.Approved())
	})

	t.Run("rejection is terminal in either mode", func(t *testing.T) {
		r := request(ApprovalModeAny,
			Approval{Role: "CFO", Approved: true},
			Approval{Role: "CEO", Approved: false},
		)
		assert.False(t, r.Approved())
		assert.True(t, r.Rejected())
	})
}
