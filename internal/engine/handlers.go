package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"boardflow/backend/internal/notifications"
	"boardflow/backend/internal/services"
	"boardflow/backend/pkg/models"
)

// handleAIAnalysis calls the AI collaborator and folds the analysis into the
// execution context keyed by step id. Low confidence against a strict
// threshold triggers a non-blocking escalation.
func (e *Engine) handleAIAnalysis(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution) (bool, error) {
	cfg := step.AIConfig

	analysis, err := e.aiClient.Analyze(ctx, services.AnalysisRequest{
		Prompt:         cfg.Prompt,
		RequiredAgents: cfg.RequiredAgents,
		Context:        snapshot(execution.Context),
	})
	if err != nil {
		return false, fmt.Errorf("ai analysis failed: %w", err)
	}

	stepExec.AIResponse = analysis
	stepExec.Output = map[string]any{
		"analysis":   analysis.Analysis,
		"confidence": analysis.Confidence,
	}

	execution.Context[step.ID+"_analysis"] = analysis.Analysis
	execution.Context[step.ID+"_confidence"] = analysis.Confidence
	execution.Context[step.ID+"_recommendations"] = analysis.Recommendations

	if analysis.EscalationRequired ||
		(analysis.Confidence < cfg.ConfidenceThreshold && cfg.ConfidenceThreshold > 0.7) {
		e.escalate(ctx, execution, step.ID,
			fmt.Sprintf("analysis confidence %.2f below threshold %.2f", analysis.Confidence, cfg.ConfidenceThreshold))
	}
	return true, nil
}

// handleDecisionPoint marks the step as awaiting human input and notifies
// participants. The step completes only through Resume.
func (e *Engine) handleDecisionPoint(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution) (bool, error) {
	stepExec.Output = map[string]any{
		"awaiting": "decision",
		"step":     step.Name,
	}
	e.notifier.Notify(ctx, notifications.Event{
		ExecutionID: execution.ID,
		TemplateID:  execution.TemplateID,
		StepID:      step.ID,
		Kind:        "step_waiting",
		Reason:      fmt.Sprintf("decision required: %s", step.Name),
		Recipients:  participantIDs(execution),
	})
	return false, nil
}

// handleApproval opens an approval request and schedules its escalation
// deadline. The step completes only through Resume.
func (e *Engine) handleApproval(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution) (bool, error) {
	cfg := step.ApprovalConfig
	now := time.Now()
	deadline := now.Add(time.Duration(cfg.EscalationDeadlineHours) * time.Hour)

	stepExec.Approval = &models.ApprovalRequest{
		StepID:        step.ID,
		RequiredRoles: cfg.RequiredRoles,
		Mode:          cfg.Mode,
		Deadline:      deadline,
		RequestedAt:   now,
	}
	stepExec.Output = map[string]any{
		"awaiting":       "approval",
		"required_roles": cfg.RequiredRoles,
		"mode":           string(cfg.Mode),
		"deadline":       deadline,
	}

	e.notifier.Notify(ctx, notifications.Event{
		ExecutionID: execution.ID,
		TemplateID:  execution.TemplateID,
		StepID:      step.ID,
		Kind:        "step_waiting",
		Reason:      fmt.Sprintf("approval required: %s", step.Name),
		Recipients:  cfg.RequiredRoles,
	})

	executionID := execution.ID
	stepID := step.ID
	stepName := step.Name
	e.scheduler.Schedule(deadlineKey(executionID, stepID), time.Until(deadline), func() {
		e.approvalDeadlinePassed(executionID, stepID, stepName)
	})
	return false, nil
}

// approvalDeadlinePassed escalates an approval that went unanswered. The
// step stays waiting; escalation notifies, it does not fail the execution.
func (e *Engine) approvalDeadlinePassed(executionID, stepID, stepName string) {
	ctx := context.Background()

	e.mu.Lock()
	defer e.mu.Unlock()

	execution, _, err := e.load(ctx, executionID)
	if err != nil || execution.Terminal() {
		return
	}
	stepExec := execution.StepExecution(stepID)
	if stepExec == nil || stepExec.Status != models.StepStatusWaiting {
		return
	}
	e.escalate(ctx, execution, stepID, fmt.Sprintf("approval deadline passed: %s", stepName))
}

// handleAction runs the configured side-effecting action and records it.
func (e *Engine) handleAction(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution) (bool, error) {
	cfg := step.ActionConfig

	result, err := e.actions.Run(ctx, cfg.ActionType, cfg.Parameters, execution.Context)
	if err != nil {
		return false, fmt.Errorf("action %q failed: %w", cfg.ActionType, err)
	}

	stepExec.Output = result
	execution.Context[step.ID+"_result"] = result
	execution.Actions = append(execution.Actions, models.ActionRecord{
		StepID:     step.ID,
		ActionType: cfg.ActionType,
		Result:     result,
		ExecutedAt: time.Now(),
	})
	return true, nil
}

// handleCondition evaluates every predicate against the execution context;
// the step result is their conjunction.
func (e *Engine) handleCondition(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution) (bool, error) {
	result := true
	for _, predicate := range step.ConditionConfig.Predicates {
		ok, err := evaluatePredicate(predicate, execution.Context)
		if err != nil {
			return false, err
		}
		if !ok {
			result = false
			break
		}
	}

	stepExec.Output = map[string]any{"result": result}
	execution.Context[step.ID+"_result"] = result
	return true, nil
}

// handleEscalation unconditionally escalates with the step description as the
// reason.
func (e *Engine) handleEscalation(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution) (bool, error) {
	reason := step.Description
	if reason == "" {
		reason = step.Name
	}
	e.escalate(ctx, execution, step.ID, reason)
	stepExec.Output = map[string]any{"escalated": true, "reason": reason}
	return true, nil
}

// escalate fires the escalation hook without blocking the execution.
func (e *Engine) escalate(ctx context.Context, execution *models.WorkflowExecution, stepID, reason string) {
	if e.metrics != nil {
		e.metrics.Escalation(ctx, execution.TemplateID)
	}
	e.logger.Warn("workflow escalation",
		"execution_id", execution.ID,
		"step_id", stepID,
		"reason", reason,
	)
	e.notifier.Notify(ctx, notifications.EscalationEvent(execution, stepID, reason))
}

// evaluatePredicate applies one comparison against the execution context.
// A missing field satisfies no operator, including exists.
func evaluatePredicate(predicate models.ConditionPredicate, execContext map[string]any) (bool, error) {
	value, present := execContext[predicate.Field]

	switch predicate.Operator {
	case models.OperatorExists:
		return present && value != nil, nil
	case models.OperatorEquals:
		if !present {
			return false, nil
		}
		return equalValues(value, predicate.Value), nil
	case models.OperatorGreaterThan, models.OperatorLessThan:
		if !present {
			return false, nil
		}
		left, okLeft := toFloat(value)
		right, okRight := toFloat(predicate.Value)
		if !okLeft || !okRight {
			return false, &models.ConfigError{
				Field:  predicate.Field,
				Reason: fmt.Sprintf("operator %q requires numeric operands", predicate.Operator),
			}
		}
		if predicate.Operator == models.OperatorGreaterThan {
			return left > right, nil
		}
		return left < right, nil
	case models.OperatorContains:
		if !present {
			return false, nil
		}
		return containsValue(value, predicate.Value), nil
	default:
		return false, &models.ConfigError{
			Field:  "operator",
			Reason: fmt.Sprintf("unknown operator %q", predicate.Operator),
		}
	}
}

// equalValues compares with numeric normalization so 250000 matches 250000.0
// regardless of how the values were decoded.
func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, okB := toFloat(b); okB {
			return fa == fb
		}
		return false
	}
	return a == b
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// containsValue handles substring match for strings and membership for
// slices.
func containsValue(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		return ok && strings.Contains(h, n)
	case []any:
		for _, item := range h {
			if equalValues(item, needle) {
				return true
			}
		}
		return false
	case []string:
		n, ok := needle.(string)
		if !ok {
			return false
		}
		for _, item := range h {
			if item == n {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func participantIDs(execution *models.WorkflowExecution) []string {
	ids := make([]string, 0, len(execution.Participants))
	for _, p := range execution.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}
