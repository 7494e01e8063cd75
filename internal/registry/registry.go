// Package registry provides lookup of workflow templates.
package registry

import (
	"context"

	"boardflow/backend/internal/repository"
	"boardflow/backend/pkg/models"
)

// Registry resolves workflow template ids to definitions. The engine depends
// on this interface so template bodies are never hard-coded into it.
type Registry interface {
	// Template returns the template for id, or models.ErrTemplateNotFound.
	Template(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	// List returns all known templates.
	List(ctx context.Context) ([]*models.WorkflowTemplate, error)
}

// StoreRegistry is a Registry backed by a repository.TemplateStore.
type StoreRegistry struct {
	store repository.TemplateStore
}

// NewStoreRegistry creates a Registry over the given template store.
func NewStoreRegistry(store repository.TemplateStore) *StoreRegistry {
	return &StoreRegistry{store: store}
}

// Template returns the template for id.
func (r *StoreRegistry) Template(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	return r.store.Get(ctx, id)
}

// List returns all known templates.
func (r *StoreRegistry) List(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	return r.store.List(ctx)
}

// NewBuiltinRegistry creates a Registry pre-loaded with the builtin template
// catalog. Used for DB-less runs and tests.
func NewBuiltinRegistry() *StoreRegistry {
	store := repository.NewMemoryStore().TemplateView()
	for _, template := range Builtin() {
		_ = store.Put(context.Background(), template)
	}
	return NewStoreRegistry(store)
}
