package engine

import (
	"context"
	"fmt"
	"time"

	"boardflow/backend/pkg/models"
)

// Resume delivers human input to a waiting decision point or approval step
// and advances the execution. It is the only way a human-wait step completes.
func (e *Engine) Resume(ctx context.Context, executionID, stepID string, payload ResumePayload) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	execution, template, err := e.load(ctx, executionID)
	if err != nil {
		return err
	}
	if execution.Terminal() {
		return fmt.Errorf("execution %q already %s", executionID, execution.Status)
	}
	step := template.Step(stepID)
	if step == nil {
		return fmt.Errorf("step %q: %w", stepID, models.ErrStepNotFound)
	}
	stepExec := execution.StepExecution(stepID)
	if stepExec == nil || stepExec.Status != models.StepStatusWaiting {
		return fmt.Errorf("step %q is not awaiting input", stepID)
	}

	switch step.Type {
	case models.StepTypeDecisionPoint:
		return e.resumeDecision(ctx, template, execution, step, stepExec, payload)
	case models.StepTypeApproval:
		return e.resumeApproval(ctx, template, execution, step, stepExec, payload)
	default:
		return fmt.Errorf("step %q of type %s cannot be resumed", stepID, step.Type)
	}
}

// resumeDecision records the decision, merges its outputs into the context,
// and completes the step. Caller holds e.mu.
func (e *Engine) resumeDecision(ctx context.Context, template *models.WorkflowTemplate, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution, payload ResumePayload) error {
	if payload.Decision == "" {
		return &models.ConfigError{Field: "decision", Reason: "must not be empty"}
	}

	record := models.DecisionRecord{
		StepID:    step.ID,
		DecidedBy: payload.UserID,
		Decision:  payload.Decision,
		Rationale: payload.Rationale,
		Outputs:   payload.Outputs,
		DecidedAt: time.Now(),
	}
	execution.Decisions = append(execution.Decisions, record)
	execution.Context[step.ID+"_decision"] = payload.Decision
	for k, v := range payload.Outputs {
		execution.Context[k] = v
	}

	stepExec.Output = map[string]any{
		"decision":   payload.Decision,
		"decided_by": payload.UserID,
	}
	e.logger.Info("decision submitted",
		"execution_id", execution.ID,
		"step_id", step.ID,
		"decision", payload.Decision,
		"decided_by", payload.UserID,
	)
	return e.completeStep(ctx, template, execution, step, stepExec)
}

// resumeApproval records one approval outcome. A rejection fails the
// execution; the step completes once its mode is satisfied. Caller holds e.mu.
func (e *Engine) resumeApproval(ctx context.Context, template *models.WorkflowTemplate, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution, payload ResumePayload) error {
	request := stepExec.Approval
	if request == nil {
		return fmt.Errorf("step %q has no open approval request", step.ID)
	}
	if !roleRequired(request.RequiredRoles, payload.Role) {
		return &models.ConfigError{Field: "role", Reason: fmt.Sprintf("role %q is not required for this approval", payload.Role)}
	}

	request.Approvals = append(request.Approvals, models.Approval{
		Role:       payload.Role,
		ApprovedBy: payload.UserID,
		Approved:   payload.Approved,
		Comment:    payload.Rationale,
		DecidedAt:  time.Now(),
	})

	if request.Rejected() {
		e.scheduler.Cancel(deadlineKey(execution.ID, step.ID))
		e.failExecution(ctx, execution, stepExec,
			fmt.Errorf("approval rejected by %s (%s)", payload.UserID, payload.Role))
		return nil
	}
	if !request.Approved() {
		// mode=all with outstanding roles: keep waiting
		return e.store.Put(ctx, execution)
	}

	e.scheduler.Cancel(deadlineKey(execution.ID, step.ID))
	execution.Context[step.ID+"_approved"] = true
	stepExec.Output = map[string]any{
		"approved":  true,
		"approvals": len(request.Approvals),
	}
	e.logger.Info("approval granted",
		"execution_id", execution.ID,
		"step_id", step.ID,
		"mode", string(request.Mode),
	)
	return e.completeStep(ctx, template, execution, step, stepExec)
}

func roleRequired(required []string, role string) bool {
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}
