// Package notifications delivers escalation and participant notifications.
package notifications

import (
	"context"

	"boardflow/backend/internal/logging"
	"boardflow/backend/pkg/models"
)

// Event is one notification emitted by the engine.
type Event struct {
	ExecutionID string         `json:"execution_id"`
	TemplateID  string         `json:"template_id"`
	StepID      string         `json:"step_id,omitempty"`
	Kind        string         `json:"kind"` // escalation, step_waiting, execution_failed
	Reason      string         `json:"reason"`
	Recipients  []string       `json:"recipients,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Notifier is a fire-and-forget sink for workflow events.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// LogNotifier writes events to the service log. Used when no webhook is
// configured.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event.
func (n *LogNotifier) Notify(ctx context.Context, event Event) {
	n.logger.Info("workflow notification",
		"kind", event.Kind,
		"execution_id", event.ExecutionID,
		"step_id", event.StepID,
		"reason", event.Reason,
	)
}

// EscalationEvent builds an escalation Event for the given execution/step.
func EscalationEvent(execution *models.WorkflowExecution, stepID, reason string) Event {
	var recipients []string
	for _, p := range execution.Participants {
		recipients = append(recipients, p.UserID)
	}
	return Event{
		ExecutionID: execution.ID,
		TemplateID:  execution.TemplateID,
		StepID:      stepID,
		Kind:        "escalation",
		Reason:      reason,
		Recipients:  recipients,
	}
}
