package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecisionEngineAssess(t *testing.T) {
	engine := NewDecisionEngine()

	tests := []struct {
		name      string
		input     DecisionInput
		wantScore float64
		want      Recommendation
	}{
		{
			name: "small routine decision proceeds",
			input: DecisionInput{
				RiskTolerance:    "high",
				Timeline:         "next quarter",
				BudgetAmount:     10_000,
				ParticipantCount: 3,
				DocumentCount:    2,
			},
			wantScore: 0,
			want:      RecommendProceed,
		},
		{
			name: "medium tolerance with mid budget needs caution",
			input: DecisionInput{
				RiskTolerance:    "medium",
				Timeline:         "this quarter",
				BudgetAmount:     300_000,
				ParticipantCount: 4,
				DocumentCount:    1,
			},
			wantScore: 30,
			want:      RecommendWithCaution,
		},
		{
			name: "urgent large undocumented ask defers",
			input: DecisionInput{
				RiskTolerance:    "medium",
				Timeline:         "urgent, need sign-off today",
				BudgetAmount:     400_000,
				ParticipantCount: 5,
				DocumentCount:    0,
			},
			wantScore: 60,
			want:      RecommendDefer,
		},
		{
			name: "everything wrong at once rejects",
			input: DecisionInput{
				RiskTolerance:    "low",
				Timeline:         "asap",
				BudgetAmount:     2_000_000,
				ParticipantCount: 12,
				DocumentCount:    0,
			},
			wantScore: 95,
			want:      RecommendReject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Assess(tt.input)
			assert.Equal(t, tt.wantScore, got.RiskScore)
			assert.Equal(t, tt.want, got.Recommendation)
		})
	}
}

func TestDecisionEngineFactors(t *testing.T) {
	engine := NewDecisionEngine()

	got := engine.Assess(DecisionInput{
		RiskTolerance: "low",
		Timeline:      "immediately",
		BudgetAmount:  75_000,
		DocumentCount: 0,
	})

	assert.Contains(t, got.Factors, "low risk tolerance")
	assert.Contains(t, got.Factors, "compressed timeline")
	assert.Contains(t, got.Factors, "budget above 50k")
	assert.Contains(t, got.Factors, "no supporting documents")
}
