package repository

import (
	"context"

	"boardflow/backend/pkg/models"
)

// ExecutionStore is the repository for workflow executions. Completed
// executions stay in the store and remain queryable after finalization.
//
// Executions returned by Get and ListByInitiator are owned by the caller:
// implementations hand out copies, never the stored object.
type ExecutionStore interface {
	// Put inserts or replaces an execution.
	Put(ctx context.Context, execution *models.WorkflowExecution) error
	// Get retrieves an execution by id, or models.ErrExecutionNotFound.
	Get(ctx context.Context, id string) (*models.WorkflowExecution, error)
	// Delete removes an execution by id.
	Delete(ctx context.Context, id string) error
	// ListByInitiator returns the executions started by a user, newest first.
	ListByInitiator(ctx context.Context, userID string) ([]*models.WorkflowExecution, error)
}

// TemplateStore is the repository for workflow templates.
type TemplateStore interface {
	// Put inserts or replaces a template.
	Put(ctx context.Context, template *models.WorkflowTemplate) error
	// Get retrieves a template by id, or models.ErrTemplateNotFound.
	Get(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	// List returns all templates.
	List(ctx context.Context) ([]*models.WorkflowTemplate, error)
}
