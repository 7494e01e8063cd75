package repository

import (
	"context"
	"sort"
	"sync"

	"boardflow/backend/pkg/models"
)

// MemoryStore is an in-process implementation of ExecutionStore and
// TemplateStore. It backs tests and DB-less local runs; a process restart
// loses its contents.
//
// Executions are cloned on Put and Get, matching the encode/decode round
// trip of the Postgres store: a caller holding a returned execution never
// shares mutable state with the engine.
type MemoryStore struct {
	mu         sync.RWMutex
	executions map[string]*models.WorkflowExecution
	templates  map[string]*models.WorkflowTemplate
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		executions: make(map[string]*models.WorkflowExecution),
		templates:  make(map[string]*models.WorkflowTemplate),
	}
}

// Put inserts or replaces an execution.
func (s *MemoryStore) Put(ctx context.Context, execution *models.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[execution.ID] = execution.Clone()
	return nil
}

// Get retrieves an execution by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	execution, ok := s.executions[id]
	if !ok {
		return nil, models.ErrExecutionNotFound
	}
	return execution.Clone(), nil
}

// Delete removes an execution by id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.executions, id)
	return nil
}

// ListByInitiator returns the executions started by a user, newest first.
func (s *MemoryStore) ListByInitiator(ctx context.Context, userID string) ([]*models.WorkflowExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var executions []*models.WorkflowExecution
	for _, execution := range s.executions {
		if execution.InitiatedBy == userID {
			executions = append(executions, execution.Clone())
		}
	}
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})
	return executions, nil
}

// PutTemplate inserts or replaces a template. Satisfies TemplateStore via
// TemplateView.
func (s *MemoryStore) PutTemplate(ctx context.Context, template *models.WorkflowTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[template.ID] = template
	return nil
}

// GetTemplate retrieves a template by id.
func (s *MemoryStore) GetTemplate(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	template, ok := s.templates[id]
	if !ok {
		return nil, models.ErrTemplateNotFound
	}
	return template, nil
}

// ListTemplates returns all templates sorted by id.
func (s *MemoryStore) ListTemplates(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	templates := make([]*models.WorkflowTemplate, 0, len(s.templates))
	for _, template := range s.templates {
		templates = append(templates, template)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates, nil
}

// TemplateView adapts the MemoryStore to the TemplateStore interface.
func (s *MemoryStore) TemplateView() TemplateStore {
	return memoryTemplateStore{s}
}

type memoryTemplateStore struct{ store *MemoryStore }

func (v memoryTemplateStore) Put(ctx context.Context, template *models.WorkflowTemplate) error {
	return v.store.PutTemplate(ctx, template)
}

func (v memoryTemplateStore) Get(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	return v.store.GetTemplate(ctx, id)
}

func (v memoryTemplateStore) List(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	return v.store.ListTemplates(ctx)
}
