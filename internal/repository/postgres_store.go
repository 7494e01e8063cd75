package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"boardflow/backend/pkg/models"
)

// PostgresStore is a PostgreSQL implementation of ExecutionStore and
// TemplateStore. Execution and template bodies are stored as JSONB with
// a few indexed columns alongside.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Put inserts or replaces an execution.
func (s *PostgresStore) Put(ctx context.Context, execution *models.WorkflowExecution) error {
	body, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO workflow_executions (id, template_id, initiated_by, status, started_at, body)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET status = $4, body = $6`,
		execution.ID, execution.TemplateID, execution.InitiatedBy, string(execution.Status), execution.StartedAt, body)
	return err
}

// Get retrieves an execution by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	var body []byte
	err := s.db.QueryRow(ctx, "SELECT body FROM workflow_executions WHERE id = $1", id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrExecutionNotFound
	}
	if err != nil {
		return nil, err
	}
	var execution models.WorkflowExecution
	if err := json.Unmarshal(body, &execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
	}
	return &execution, nil
}

// Delete removes an execution by id.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM workflow_executions WHERE id = $1", id)
	return err
}

// ListByInitiator returns the executions started by a user, newest first.
func (s *PostgresStore) ListByInitiator(ctx context.Context, userID string) ([]*models.WorkflowExecution, error) {
	rows, err := s.db.Query(ctx,
		"SELECT body FROM workflow_executions WHERE initiated_by = $1 ORDER BY started_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var executions []*models.WorkflowExecution
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var execution models.WorkflowExecution
		if err := json.Unmarshal(body, &execution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
		}
		executions = append(executions, &execution)
	}
	return executions, rows.Err()
}

// PutTemplate inserts or replaces a template.
func (s *PostgresStore) PutTemplate(ctx context.Context, template *models.WorkflowTemplate) error {
	body, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO workflow_templates (id, name, category, body)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = $2, category = $3, body = $4`,
		template.ID, template.Name, template.Category, body)
	return err
}

// GetTemplate retrieves a template by id.
func (s *PostgresStore) GetTemplate(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	var body []byte
	err := s.db.QueryRow(ctx, "SELECT body FROM workflow_templates WHERE id = $1", id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	var template models.WorkflowTemplate
	if err := json.Unmarshal(body, &template); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template: %w", err)
	}
	return &template, nil
}

// ListTemplates returns all templates ordered by id.
func (s *PostgresStore) ListTemplates(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	rows, err := s.db.Query(ctx, "SELECT body FROM workflow_templates ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.WorkflowTemplate
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var template models.WorkflowTemplate
		if err := json.Unmarshal(body, &template); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template: %w", err)
		}
		templates = append(templates, &template)
	}
	return templates, rows.Err()
}

// TemplateView adapts the PostgresStore to the TemplateStore interface.
func (s *PostgresStore) TemplateView() TemplateStore {
	return postgresTemplateStore{s}
}

type postgresTemplateStore struct{ store *PostgresStore }

func (v postgresTemplateStore) Put(ctx context.Context, template *models.WorkflowTemplate) error {
	return v.store.PutTemplate(ctx, template)
}

func (v postgresTemplateStore) Get(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	return v.store.GetTemplate(ctx, id)
}

func (v postgresTemplateStore) List(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	return v.store.ListTemplates(ctx)
}

// Schema is the DDL for the tables used by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS workflow_templates (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	body JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS workflow_executions (
	id TEXT PRIMARY KEY,
	template_id TEXT NOT NULL,
	initiated_by TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	body JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workflow_executions_initiated_by
	ON workflow_executions (initiated_by, started_at DESC);
`
