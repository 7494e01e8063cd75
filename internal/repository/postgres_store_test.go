package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"boardflow/backend/pkg/models"
)

func budgetTemplate() *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		ID:          "budget-approval",
		Name:        "Budget Approval",
		Category:    "finance",
		Complexity:  models.ComplexityMedium,
		StartStepID: "analyze_request",
		Steps: []models.WorkflowStep{
			{
				ID:   "analyze_request",
				Name: "Analyze budget request",
				Type: models.StepTypeAIAnalysis,
				AIConfig: &models.AIConfig{
					Prompt:              "Analyze this budget request.",
					ConfidenceThreshold: 0.8,
				},
				NextSteps: []string{"executive_approval"},
			},
			{
				ID:   "executive_approval",
				Name: "Executive approval",
				Type: models.StepTypeApproval,
				ApprovalConfig: &models.ApprovalConfig{
					RequiredRoles:           []string{"CEO", "CFO"},
					Mode:                    models.ApprovalModeAll,
					EscalationDeadlineHours: 24,
				},
			},
		},
	}
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, Schema); err != nil {
		t.Fatal(err)
	}

	store := NewPostgresStore(pool)

	t.Run("Put and Get execution", func(t *testing.T) {
		id := uuid.New().String()
		now := time.Now().UTC().Truncate(time.Millisecond)
		execution := &models.WorkflowExecution{
			ID:             id,
			TemplateID:     "budget-approval",
			InitiatedBy:    "alice",
			Status:         models.ExecutionStatusInProgress,
			CurrentStepID:  "decision_point",
			CompletedSteps: []string{"analyze_request"},
			Context:        map[string]any{"budget_amount": 250000.0},
			StartedAt:      now,
			History: []*models.WorkflowStepExecution{
				{StepID: "analyze_request", Status: models.StepStatusCompleted, StartedAt: now},
			},
		}

		require.NoError(t, store.Put(ctx, execution))

		retrieved, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, execution.ID, retrieved.ID)
		assert.Equal(t, execution.Status, retrieved.Status)
		assert.Equal(t, execution.CurrentStepID, retrieved.CurrentStepID)
		assert.Equal(t, execution.CompletedSteps, retrieved.CompletedSteps)
		assert.Equal(t, 250000.0, retrieved.Context["budget_amount"])
		require.Len(t, retrieved.History, 1)
		assert.Equal(t, "analyze_request", retrieved.History[0].StepID)
	})

	t.Run("Put replaces on conflict", func(t *testing.T) {
		id := uuid.New().String()
		execution := &models.WorkflowExecution{
			ID:          id,
			TemplateID:  "budget-approval",
			InitiatedBy: "alice",
			Status:      models.ExecutionStatusInProgress,
			StartedAt:   time.Now(),
		}
		require.NoError(t, store.Put(ctx, execution))

		execution.Status = models.ExecutionStatusCompleted
		require.NoError(t, store.Put(ctx, execution))

		retrieved, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStatusCompleted, retrieved.Status)
	})

	t.Run("Get missing execution", func(t *testing.T) {
		_, err := store.Get(ctx, uuid.New().String())
		assert.ErrorIs(t, err, models.ErrExecutionNotFound)
	})

	t.Run("ListByInitiator orders newest first", func(t *testing.T) {
		base := time.Now().Add(-time.Hour)
		older := &models.WorkflowExecution{
			ID:          uuid.New().String(),
			TemplateID:  "budget-approval",
			InitiatedBy: "bob",
			Status:      models.ExecutionStatusCompleted,
			StartedAt:   base,
		}
		newer := &models.WorkflowExecution{
			ID:          uuid.New().String(),
			TemplateID:  "hiring-approval",
			InitiatedBy: "bob",
			Status:      models.ExecutionStatusInProgress,
			StartedAt:   base.Add(time.Minute),
		}
		require.NoError(t, store.Put(ctx, older))
		require.NoError(t, store.Put(ctx, newer))

		executions, err := store.ListByInitiator(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, executions, 2)
		assert.Equal(t, newer.ID, executions[0].ID)
		assert.Equal(t, older.ID, executions[1].ID)

		executions, err = store.ListByInitiator(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, executions)
	})

	t.Run("Delete execution", func(t *testing.T) {
		execution := &models.WorkflowExecution{
			ID:          uuid.New().String(),
			TemplateID:  "budget-approval",
			InitiatedBy: "carol",
			Status:      models.ExecutionStatusPending,
			StartedAt:   time.Now(),
		}
		require.NoError(t, store.Put(ctx, execution))
		require.NoError(t, store.Delete(ctx, execution.ID))

		_, err := store.Get(ctx, execution.ID)
		assert.ErrorIs(t, err, models.ErrExecutionNotFound)
	})

	t.Run("Template round trip", func(t *testing.T) {
		templates := store.TemplateView()
		require.NoError(t, templates.Put(ctx, budgetTemplate()))

		retrieved, err := templates.Get(ctx, "budget-approval")
		require.NoError(t, err)
		assert.Equal(t, "Budget Approval", retrieved.Name)
		assert.Equal(t, "analyze_request", retrieved.StartStepID)
		assert.Len(t, retrieved.Steps, 2)

		// the step configs survive the JSONB round trip
		step := retrieved.Step("executive_approval")
		require.NotNil(t, step)
		require.NotNil(t, step.ApprovalConfig)
		assert.Equal(t, models.ApprovalModeAll, step.ApprovalConfig.Mode)
		assert.Equal(t, []string{"CEO", "CFO"}, step.ApprovalConfig.RequiredRoles)

		all, err := templates.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		_, err = templates.Get(ctx, "nope")
		assert.ErrorIs(t, err, models.ErrTemplateNotFound)
	})
}
