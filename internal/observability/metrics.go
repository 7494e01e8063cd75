// Package observability exposes the service's OpenTelemetry metrics.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the counters instrumented by the workflow engine.
type Metrics struct {
	executionsStarted   metric.Int64Counter
	executionsCompleted metric.Int64Counter
	executionsFailed    metric.Int64Counter
	stepRetries         metric.Int64Counter
	escalations         metric.Int64Counter
}

// NewMetrics registers the engine counters on the global meter provider.
func NewMetrics() *Metrics {
	meter := otel.Meter("boardflow/engine")

	started, _ := meter.Int64Counter("workflow.executions.started",
		metric.WithDescription("Workflow executions started"))
	completed, _ := meter.Int64Counter("workflow.executions.completed",
		metric.WithDescription("Workflow executions completed"))
	failed, _ := meter.Int64Counter("workflow.executions.failed",
		metric.WithDescription("Workflow executions failed"))
	retries, _ := meter.Int64Counter("workflow.steps.retried",
		metric.WithDescription("Workflow step retry attempts"))
	escalations, _ := meter.Int64Counter("workflow.escalations",
		metric.WithDescription("Workflow escalations triggered"))

	return &Metrics{
		executionsStarted:   started,
		executionsCompleted: completed,
		executionsFailed:    failed,
		stepRetries:         retries,
		escalations:         escalations,
	}
}

// ExecutionStarted increments the started counter for a template.
func (m *Metrics) ExecutionStarted(ctx context.Context, templateID string) {
	m.executionsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("template_id", templateID)))
}

// ExecutionCompleted increments the completed counter for a template.
func (m *Metrics) ExecutionCompleted(ctx context.Context, templateID string) {
	m.executionsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("template_id", templateID)))
}

// ExecutionFailed increments the failed counter for a template.
func (m *Metrics) ExecutionFailed(ctx context.Context, templateID string) {
	m.executionsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("template_id", templateID)))
}

// StepRetried increments the retry counter for a step.
func (m *Metrics) StepRetried(ctx context.Context, stepID string) {
	m.stepRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("step_id", stepID)))
}

// Escalation increments the escalation counter.
func (m *Metrics) Escalation(ctx context.Context, templateID string) {
	m.escalations.Add(ctx, 1, metric.WithAttributes(attribute.String("template_id", templateID)))
}
