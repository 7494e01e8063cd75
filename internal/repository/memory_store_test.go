package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardflow/backend/pkg/models"
)

func TestMemoryStoreExecutions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	execution := &models.WorkflowExecution{
		ID:          "exec-1",
		TemplateID:  "budget-approval",
		InitiatedBy: "alice",
		Status:      models.ExecutionStatusInProgress,
		StartedAt:   time.Now(),
	}
	require.NoError(t, store.Put(ctx, execution))

	got, err := store.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, execution, got)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrExecutionNotFound)

	require.NoError(t, store.Delete(ctx, "exec-1"))
	_, err = store.Get(ctx, "exec-1")
	assert.ErrorIs(t, err, models.ErrExecutionNotFound)
}

func TestMemoryStoreCopiesExecutions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	execution := &models.WorkflowExecution{
		ID:          "exec-1",
		InitiatedBy: "alice",
		Status:      models.ExecutionStatusInProgress,
		Context:     map[string]any{"budget_amount": 250000.0},
		History: []*models.WorkflowStepExecution{
			{StepID: "analyze", Status: models.StepStatusInProgress},
		},
	}
	require.NoError(t, store.Put(ctx, execution))

	// mutating the caller's object after Put does not reach the store
	execution.Status = models.ExecutionStatusFailed
	execution.Context["budget_amount"] = 1.0
	execution.History[0].Status = models.StepStatusFailed

	got, err := store.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.NotSame(t, execution, got)
	assert.Equal(t, models.ExecutionStatusInProgress, got.Status)
	assert.Equal(t, 250000.0, got.Context["budget_amount"])
	assert.Equal(t, models.StepStatusInProgress, got.History[0].Status)

	// mutating a returned copy does not reach the store either
	got.Context["budget_amount"] = 2.0
	got.History[0].Status = models.StepStatusCompleted

	again, err := store.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, 250000.0, again.Context["budget_amount"])
	assert.Equal(t, models.StepStatusInProgress, again.History[0].Status)

	listed, err := store.ListByInitiator(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.NotSame(t, again, listed[0])
}

func TestMemoryStoreListByInitiator(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Now()

	require.NoError(t, store.Put(ctx, &models.WorkflowExecution{
		ID: "old", InitiatedBy: "alice", StartedAt: base.Add(-time.Hour),
	}))
	require.NoError(t, store.Put(ctx, &models.WorkflowExecution{
		ID: "new", InitiatedBy: "alice", StartedAt: base,
	}))
	require.NoError(t, store.Put(ctx, &models.WorkflowExecution{
		ID: "other", InitiatedBy: "bob", StartedAt: base,
	}))

	executions, err := store.ListByInitiator(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "new", executions[0].ID)
	assert.Equal(t, "old", executions[1].ID)
}

func TestMemoryStoreTemplates(t *testing.T) {
	ctx := context.Background()
	templates := NewMemoryStore().TemplateView()

	require.NoError(t, templates.Put(ctx, budgetTemplate()))

	got, err := templates.Get(ctx, "budget-approval")
	require.NoError(t, err)
	assert.Equal(t, "Budget Approval", got.Name)

	all, err := templates.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = templates.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrTemplateNotFound)
}
