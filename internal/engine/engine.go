// Package engine drives workflow executions through their step graph.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"boardflow/backend/internal/logging"
	"boardflow/backend/internal/notifications"
	"boardflow/backend/internal/observability"
	"boardflow/backend/internal/registry"
	"boardflow/backend/internal/repository"
	"boardflow/backend/internal/services"
	"boardflow/backend/pkg/models"
)

// RetryPolicy bounds automatic retries of transient step failures. The delay
// before attempt n is InitialDelay * BackoffMultiplier^(n-1).
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:        3,
	InitialDelay:      time.Second,
	BackoffMultiplier: 2.0,
}

// StartRequest carries the inputs for starting a workflow execution.
type StartRequest struct {
	TemplateID  string         `json:"template_id"`
	SessionID   string         `json:"session_id"`
	InitiatedBy string         `json:"initiated_by"`
	Context     map[string]any `json:"context,omitempty"`
	Documents   []string       `json:"documents,omitempty"`
}

// ResumePayload carries the human input that resumes a waiting step.
type ResumePayload struct {
	UserID    string         `json:"user_id"`
	Role      string         `json:"role,omitempty"`
	Decision  string         `json:"decision,omitempty"`
	Approved  bool           `json:"approved"`
	Rationale string         `json:"rationale,omitempty"`
	Outputs   map[string]any `json:"outputs,omitempty"`
}

type stepHandler func(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution) (done bool, err error)

// Engine owns the lifecycle of workflow executions: it instantiates
// templates, dispatches steps to their type handlers, schedules retries and
// approval deadlines, and resumes human-wait steps.
//
// State transitions are serialized by an engine-level mutex; handlers,
// scheduler callbacks, and resume calls never mutate an execution
// concurrently.
type Engine struct {
	registry  registry.Registry
	store     repository.ExecutionStore
	aiClient  services.AIClient
	actions   services.ActionRunner
	notifier  notifications.Notifier
	logger    *logging.Logger
	metrics   *observability.Metrics
	scheduler *Scheduler
	retry     RetryPolicy
	handlers  map[models.StepType]stepHandler

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(e *Engine) { e.retry = policy }
}

// WithMetrics attaches engine metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// NewEngine creates an Engine over the given collaborators.
func NewEngine(
	reg registry.Registry,
	store repository.ExecutionStore,
	aiClient services.AIClient,
	actions services.ActionRunner,
	notifier notifications.Notifier,
	logger *logging.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		registry:  reg,
		store:     store,
		aiClient:  aiClient,
		actions:   actions,
		notifier:  notifier,
		logger:    logger,
		scheduler: NewScheduler(),
		retry:     DefaultRetryPolicy,
	}
	e.handlers = map[models.StepType]stepHandler{
		models.StepTypeAIAnalysis:    e.handleAIAnalysis,
		models.StepTypeDecisionPoint: e.handleDecisionPoint,
		models.StepTypeApproval:      e.handleApproval,
		models.StepTypeAction:        e.handleAction,
		models.StepTypeCondition:     e.handleCondition,
		models.StepTypeEscalation:    e.handleEscalation,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Shutdown cancels all pending timers.
func (e *Engine) Shutdown() {
	e.scheduler.Stop()
}

// StartWorkflow instantiates a template and synchronously kicks off its start
// step. The returned execution is already registered in the store and
// reflects the state at return time; later transitions are observed through
// Execution, not through the returned object.
func (e *Engine) StartWorkflow(ctx context.Context, req StartRequest) (*models.WorkflowExecution, error) {
	template, err := e.registry.Template(ctx, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", req.TemplateID, err)
	}
	// per-step config is validated at dispatch; the graph shape must be
	// sound up front since step transitions follow it unguarded
	if template.Step(template.StartStepID) == nil {
		return nil, fmt.Errorf("template %q start step %q: %w", req.TemplateID, template.StartStepID, models.ErrStepNotFound)
	}
	if err := template.ValidateGraph(); err != nil {
		return nil, fmt.Errorf("template %q: %w", req.TemplateID, err)
	}

	now := time.Now()
	execContext := make(map[string]any, len(req.Context))
	for k, v := range req.Context {
		execContext[k] = v
	}

	execution := &models.WorkflowExecution{
		ID:            uuid.New().String(),
		TemplateID:    template.ID,
		SessionID:     req.SessionID,
		InitiatedBy:   req.InitiatedBy,
		Status:        models.ExecutionStatusPending,
		CurrentStepID: template.StartStepID,
		Context:       execContext,
		Documents:     req.Documents,
		Participants: []models.Participant{
			{UserID: req.InitiatedBy, Role: "initiator", JoinedAt: now},
		},
		StartedAt:           now,
		EstimatedCompletion: now.Add(template.EstimatedDuration),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Put(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to register execution: %w", err)
	}
	if e.metrics != nil {
		e.metrics.ExecutionStarted(ctx, template.ID)
	}
	e.logger.Info("workflow started",
		"execution_id", execution.ID,
		"template_id", template.ID,
		"initiated_by", req.InitiatedBy,
	)

	if err := e.executeStep(ctx, template, execution, template.StartStepID); err != nil {
		// recorded on the execution; callers poll status
		e.logger.Warn("start step failed",
			"execution_id", execution.ID,
			"step_id", template.StartStepID,
			"error", err,
		)
	}
	return execution, nil
}

// ExecuteStep advances the named step of an execution. Unknown execution or
// step ids and invalid step configuration are returned synchronously; handler
// failures are recorded on the execution and retried per policy.
func (e *Engine) ExecuteStep(ctx context.Context, executionID, stepID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	execution, template, err := e.load(ctx, executionID)
	if err != nil {
		return err
	}
	return e.executeStep(ctx, template, execution, stepID)
}

// Execution returns a snapshot of the execution with the given id. Reads
// take the engine mutex so they never observe a half-applied transition, and
// the store hands out copies, so callers can marshal the result while timers
// keep advancing the execution.
func (e *Engine) Execution(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Get(ctx, executionID)
}

// ListExecutions returns the executions started by a user.
func (e *Engine) ListExecutions(ctx context.Context, userID string) ([]*models.WorkflowExecution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ListByInitiator(ctx, userID)
}

// load fetches an execution and its template.
func (e *Engine) load(ctx context.Context, executionID string) (*models.WorkflowExecution, *models.WorkflowTemplate, error) {
	execution, err := e.store.Get(ctx, executionID)
	if err != nil {
		return nil, nil, err
	}
	template, err := e.registry.Template(ctx, execution.TemplateID)
	if err != nil {
		return nil, nil, fmt.Errorf("template %q: %w", execution.TemplateID, err)
	}
	return execution, template, nil
}

// executeStep is the core state-transition function. Caller holds e.mu.
func (e *Engine) executeStep(ctx context.Context, template *models.WorkflowTemplate, execution *models.WorkflowExecution, stepID string) error {
	step := template.Step(stepID)
	if step == nil {
		return fmt.Errorf("step %q: %w", stepID, models.ErrStepNotFound)
	}

	stepExec := &models.WorkflowStepExecution{
		StepID:     stepID,
		Status:     models.StepStatusInProgress,
		StartedAt:  time.Now(),
		Input:      snapshot(execution.Context),
		RetryCount: 0,
		MaxRetries: e.retry.MaxRetries,
	}
	execution.History = append(execution.History, stepExec)
	execution.CurrentStepID = stepID
	execution.Status = models.ExecutionStatusInProgress
	if err := e.store.Put(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist execution: %w", err)
	}

	// Invalid step configuration fails fast: no retry, no completedSteps
	// mutation.
	if err := step.Validate(); err != nil {
		e.failExecution(ctx, execution, stepExec, err)
		return err
	}

	return e.runStep(ctx, template, execution, step, stepExec)
}

// runStep dispatches to the step-type handler and applies the outcome.
// Caller holds e.mu.
func (e *Engine) runStep(ctx context.Context, template *models.WorkflowTemplate, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution) error {
	handler, ok := e.handlers[step.Type]
	if !ok {
		err := &models.ConfigError{Field: "type", Reason: fmt.Sprintf("no handler for step type %q", step.Type)}
		e.failExecution(ctx, execution, stepExec, err)
		return err
	}

	done, err := handler(ctx, execution, step, stepExec)
	if err != nil {
		e.handleStepFailure(ctx, execution, step, stepExec, err)
		return nil
	}
	if !done {
		// human-wait step: resumed through Resume, never auto-retried
		stepExec.Status = models.StepStatusWaiting
		if err := e.store.Put(ctx, execution); err != nil {
			return fmt.Errorf("failed to persist execution: %w", err)
		}
		return nil
	}
	return e.completeStep(ctx, template, execution, step, stepExec)
}

// completeStep marks a step finished and processes its successors.
// Caller holds e.mu.
func (e *Engine) completeStep(ctx context.Context, template *models.WorkflowTemplate, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution) error {
	now := time.Now()
	stepExec.Status = models.StepStatusCompleted
	stepExec.CompletedAt = &now
	execution.CompletedSteps = append(execution.CompletedSteps, step.ID)
	if err := e.store.Put(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist execution: %w", err)
	}
	return e.processNextSteps(ctx, template, execution, step, stepExec)
}

// processNextSteps applies the transition rule after a completed step.
//
// Condition steps select a single branch: NextSteps[0] when the stored result
// is true, NextSteps[1] when false. A missing branch completes the execution.
// All other step types fan out to every listed successor.
func (e *Engine) processNextSteps(ctx context.Context, template *models.WorkflowTemplate, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution) error {
	successors := step.NextSteps
	if step.Type == models.StepTypeCondition {
		successors = conditionBranch(step, stepExec)
	}

	if len(successors) == 0 {
		e.finalize(ctx, execution)
		return nil
	}

	var firstErr error
	for _, next := range successors {
		if execution.Terminal() {
			break
		}
		if err := e.executeStep(ctx, template, execution, next); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// conditionBranch picks the successor for a completed condition step.
func conditionBranch(step *models.WorkflowStep, stepExec *models.WorkflowStepExecution) []string {
	result, _ := stepExec.Output["result"].(bool)
	index := 0
	if !result {
		index = 1
	}
	if index >= len(step.NextSteps) {
		return nil
	}
	return []string{step.NextSteps[index]}
}

// finalize completes an execution and cancels its pending timers. The
// execution stays in the store so it remains queryable. Caller holds e.mu.
func (e *Engine) finalize(ctx context.Context, execution *models.WorkflowExecution) {
	now := time.Now()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now
	e.scheduler.CancelExecution(execution.ID)
	if err := e.store.Put(ctx, execution); err != nil {
		e.logger.Error("failed to persist completed execution", "execution_id", execution.ID, "error", err)
	}
	if e.metrics != nil {
		e.metrics.ExecutionCompleted(ctx, execution.TemplateID)
	}
	e.logger.Info("workflow completed", "execution_id", execution.ID, "template_id", execution.TemplateID)
}

// handleStepFailure records a failed attempt and either schedules a retry or
// fails the execution. Config errors and human-wait step types are never
// retried. Caller holds e.mu.
func (e *Engine) handleStepFailure(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, stepExec *models.WorkflowStepExecution, stepErr error) {
	stepExec.Error = stepErr.Error()

	if models.IsConfigError(stepErr) || !retryable(step.Type) || stepExec.RetryCount >= stepExec.MaxRetries {
		e.failExecution(ctx, execution, stepExec, stepErr)
		return
	}

	delay := e.backoff(stepExec.RetryCount)
	stepExec.RetryCount++
	stepExec.Status = models.StepStatusFailed
	if err := e.store.Put(ctx, execution); err != nil {
		e.logger.Error("failed to persist execution", "execution_id", execution.ID, "error", err)
	}
	if e.metrics != nil {
		e.metrics.StepRetried(ctx, step.ID)
	}
	e.logger.Warn("step failed, scheduling retry",
		"execution_id", execution.ID,
		"step_id", step.ID,
		"retry", stepExec.RetryCount,
		"max_retries", stepExec.MaxRetries,
		"delay", delay,
		"error", stepErr,
	)

	executionID := execution.ID
	stepID := step.ID
	e.scheduler.Schedule(retryKey(executionID, stepID), delay, func() {
		e.retryStep(executionID, stepID)
	})
}

// backoff computes the delay before the next attempt.
func (e *Engine) backoff(retryCount int) time.Duration {
	multiplier := math.Pow(e.retry.BackoffMultiplier, float64(retryCount))
	return time.Duration(float64(e.retry.InitialDelay) * multiplier)
}

// retryStep re-runs a previously failed step. Invoked from scheduler timers.
func (e *Engine) retryStep(executionID, stepID string) {
	ctx := context.Background()

	e.mu.Lock()
	defer e.mu.Unlock()

	execution, template, err := e.load(ctx, executionID)
	if err != nil {
		e.logger.Warn("retry skipped, execution unavailable", "execution_id", executionID, "error", err)
		return
	}
	if execution.Terminal() {
		return
	}
	step := template.Step(stepID)
	stepExec := execution.StepExecution(stepID)
	if step == nil || stepExec == nil {
		e.logger.Warn("retry skipped, step unavailable", "execution_id", executionID, "step_id", stepID)
		return
	}

	stepExec.Status = models.StepStatusInProgress
	stepExec.Error = ""
	if err := e.runStep(ctx, template, execution, step, stepExec); err != nil {
		e.logger.Warn("retry attempt failed", "execution_id", executionID, "step_id", stepID, "error", err)
	}
}

// failExecution marks the step and the whole execution failed, cancels
// pending timers, and fires the failure notification. Caller holds e.mu.
func (e *Engine) failExecution(ctx context.Context, execution *models.WorkflowExecution, stepExec *models.WorkflowStepExecution, stepErr error) {
	now := time.Now()
	stepExec.Status = models.StepStatusFailed
	stepExec.Error = stepErr.Error()
	stepExec.CompletedAt = &now
	execution.Status = models.ExecutionStatusFailed
	execution.Error = stepErr.Error()
	execution.CompletedAt = &now
	e.scheduler.CancelExecution(execution.ID)
	if err := e.store.Put(ctx, execution); err != nil {
		e.logger.Error("failed to persist failed execution", "execution_id", execution.ID, "error", err)
	}
	if e.metrics != nil {
		e.metrics.ExecutionFailed(ctx, execution.TemplateID)
	}
	e.notifier.Notify(ctx, notifications.Event{
		ExecutionID: execution.ID,
		TemplateID:  execution.TemplateID,
		StepID:      stepExec.StepID,
		Kind:        "execution_failed",
		Reason:      stepErr.Error(),
	})
	e.logger.Error("workflow failed",
		"execution_id", execution.ID,
		"step_id", stepExec.StepID,
		"error", stepErr,
	)
}

// retryable reports whether a step type is subject to automatic retry.
// Human-wait steps are resumed externally, and condition/escalation steps
// only fail on configuration problems.
func retryable(stepType models.StepType) bool {
	return stepType == models.StepTypeAIAnalysis || stepType == models.StepTypeAction
}

// snapshot copies the execution context for a step input record.
func snapshot(context map[string]any) map[string]any {
	copied := make(map[string]any, len(context))
	for k, v := range context {
		copied[k] = v
	}
	return copied
}
