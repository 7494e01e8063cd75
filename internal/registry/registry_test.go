package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardflow/backend/pkg/models"
)

func TestBuiltinTemplatesAreValid(t *testing.T) {
	for _, template := range Builtin() {
		t.Run(template.ID, func(t *testing.T) {
			assert.NoError(t, template.Validate())
		})
	}
}

func TestBuiltinRegistry(t *testing.T) {
	reg := NewBuiltinRegistry()
	ctx := context.Background()

	templates, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, templates, 3)

	template, err := reg.Template(ctx, "budget-approval")
	require.NoError(t, err)
	assert.Equal(t, "Budget Approval", template.Name)
	assert.Equal(t, "analyze_request", template.StartStepID)

	_, err = reg.Template(ctx, "unknown")
	assert.ErrorIs(t, err, models.ErrTemplateNotFound)
}
