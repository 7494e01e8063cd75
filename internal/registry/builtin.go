package registry

import (
	"time"

	"boardflow/backend/pkg/models"
)

// Builtin returns the built-in workflow template catalog.
func Builtin() []*models.WorkflowTemplate {
	return []*models.WorkflowTemplate{
		budgetApproval(),
		hiringApproval(),
		vendorContract(),
	}
}

// budgetApproval routes budget requests through AI analysis, a human decision
// point, and an executive approval gate for large amounts.
func budgetApproval() *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		ID:                "budget-approval",
		Name:              "Budget Approval",
		Description:       "Review and approve a budget request with executive sign-off for large amounts",
		Category:          "finance",
		Complexity:        models.ComplexityMedium,
		EstimatedDuration: 45 * time.Minute,
		StartStepID:       "analyze_request",
		RequiredRoles:     []string{"CEO", "CFO"},
		MinParticipants:   1,
		MaxParticipants:   6,
		Steps: []models.WorkflowStep{
			{
				ID:          "analyze_request",
				Name:        "Analyze budget request",
				Description: "AI review of the requested budget against historical spend",
				Type:        models.StepTypeAIAnalysis,
				AIConfig: &models.AIConfig{
					Prompt:              "Analyze this budget request for financial risk, alignment with strategy, and historical comparables.",
					RequiredAgents:      []string{"CFO", "CEO"},
					ConfidenceThreshold: 0.8,
				},
				NextSteps: []string{"decision_point"},
			},
			{
				ID:          "decision_point",
				Name:        "Review analysis",
				Description: "Initiator reviews the AI analysis and decides whether to proceed",
				Type:        models.StepTypeDecisionPoint,
				NextSteps:   []string{"check_amount"},
			},
			{
				ID:          "check_amount",
				Name:        "Check amount threshold",
				Description: "Large requests require executive approval",
				Type:        models.StepTypeCondition,
				ConditionConfig: &models.ConditionConfig{
					Predicates: []models.ConditionPredicate{
						{Field: "budget_amount", Operator: models.OperatorGreaterThan, Value: 100000.0},
					},
				},
				// true -> executive approval, false -> record directly
				NextSteps: []string{"executive_approval", "record_outcome"},
			},
			{
				ID:          "executive_approval",
				Name:        "Executive approval",
				Description: "CEO and CFO must both approve amounts above the threshold",
				Type:        models.StepTypeApproval,
				ApprovalConfig: &models.ApprovalConfig{
					RequiredRoles:           []string{"CEO", "CFO"},
					Mode:                    models.ApprovalModeAll,
					EscalationDeadlineHours: 24,
				},
				NextSteps: []string{"record_outcome"},
			},
			{
				ID:          "record_outcome",
				Name:        "Record outcome",
				Description: "Persist the final budget decision",
				Type:        models.StepTypeAction,
				ActionConfig: &models.ActionConfig{
					ActionType: "record_outcome",
					Parameters: map[string]any{"category": "budget"},
				},
			},
		},
	}
}

func hiringApproval() *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		ID:                "hiring-approval",
		Name:              "Hiring Approval",
		Description:       "Approve a new headcount request",
		Category:          "hr",
		Complexity:        models.ComplexityLow,
		EstimatedDuration: 30 * time.Minute,
		StartStepID:       "analyze_role",
		RequiredRoles:     []string{"HR", "CFO"},
		MinParticipants:   1,
		MaxParticipants:   4,
		Steps: []models.WorkflowStep{
			{
				ID:   "analyze_role",
				Name: "Analyze role request",
				Type: models.StepTypeAIAnalysis,
				AIConfig: &models.AIConfig{
					Prompt:              "Assess this headcount request against team capacity and budget.",
					RequiredAgents:      []string{"HR", "CFO"},
					ConfidenceThreshold: 0.7,
				},
				NextSteps: []string{"hr_approval"},
			},
			{
				ID:   "hr_approval",
				Name: "HR approval",
				Type: models.StepTypeApproval,
				ApprovalConfig: &models.ApprovalConfig{
					RequiredRoles:           []string{"HR"},
					Mode:                    models.ApprovalModeAny,
					EscalationDeadlineHours: 48,
				},
				NextSteps: []string{"notify_team"},
			},
			{
				ID:   "notify_team",
				Name: "Notify hiring team",
				Type: models.StepTypeAction,
				ActionConfig: &models.ActionConfig{
					ActionType: "notify",
					Parameters: map[string]any{"channel": "hiring"},
				},
			},
		},
	}
}

func vendorContract() *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		ID:                "vendor-contract",
		Name:              "Vendor Contract Review",
		Description:       "Review a vendor contract and escalate risky terms",
		Category:          "legal",
		Complexity:        models.ComplexityHigh,
		EstimatedDuration: 90 * time.Minute,
		StartStepID:       "analyze_contract",
		RequiredRoles:     []string{"CTO", "CFO"},
		MinParticipants:   2,
		MaxParticipants:   8,
		Steps: []models.WorkflowStep{
			{
				ID:   "analyze_contract",
				Name: "Analyze contract terms",
				Type: models.StepTypeAIAnalysis,
				AIConfig: &models.AIConfig{
					Prompt:              "Review this vendor contract for liability, lock-in, and pricing risk.",
					RequiredAgents:      []string{"CTO", "CFO"},
					ConfidenceThreshold: 0.85,
				},
				NextSteps: []string{"check_risk"},
			},
			{
				ID:   "check_risk",
				Name: "Check risk level",
				Type: models.StepTypeCondition,
				ConditionConfig: &models.ConditionConfig{
					Predicates: []models.ConditionPredicate{
						{Field: "risk_level", Operator: models.OperatorEquals, Value: "high"},
					},
				},
				// high risk -> escalate, otherwise straight to approval
				NextSteps: []string{"escalate_risk", "contract_approval"},
			},
			{
				ID:          "escalate_risk",
				Name:        "Escalate risky terms",
				Description: "Contract contains high-risk terms requiring leadership attention",
				Type:        models.StepTypeEscalation,
				NextSteps:   []string{"contract_approval"},
			},
			{
				ID:   "contract_approval",
				Name: "Contract approval",
				Type: models.StepTypeApproval,
				ApprovalConfig: &models.ApprovalConfig{
					RequiredRoles:           []string{"CTO", "CFO"},
					Mode:                    models.ApprovalModeAll,
					EscalationDeadlineHours: 72,
				},
				NextSteps: []string{"file_contract"},
			},
			{
				ID:   "file_contract",
				Name: "File signed contract",
				Type: models.StepTypeAction,
				ActionConfig: &models.ActionConfig{
					ActionType: "file_document",
					Parameters: map[string]any{"repository": "contracts"},
				},
			},
		},
	}
}
