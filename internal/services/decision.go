package services

import (
	"strings"
)

// Recommendation is the outcome of a decision assessment
type Recommendation string

const (
	RecommendProceed     Recommendation = "proceed"
	RecommendWithCaution Recommendation = "proceed_with_caution"
	RecommendDefer       Recommendation = "defer"
	RecommendReject      Recommendation = "reject"
)

// DecisionInput describes a pending business decision.
type DecisionInput struct {
	RiskTolerance    string  `json:"risk_tolerance"` // low, medium, high
	Timeline         string  `json:"timeline"`
	BudgetAmount     float64 `json:"budget_amount"`
	ParticipantCount int     `json:"participant_count"`
	DocumentCount    int     `json:"document_count"`
}

// DecisionAssessment is the scored result of an assessment.
type DecisionAssessment struct {
	RiskScore      float64        `json:"risk_score"`
	Recommendation Recommendation `json:"recommendation"`
	Factors        []string       `json:"factors"`
}

// DecisionEngine computes a risk score and recommendation from a linear
// scoring formula over the decision attributes.
type DecisionEngine struct{}

// NewDecisionEngine creates a new DecisionEngine.
func NewDecisionEngine() *DecisionEngine {
	return &DecisionEngine{}
}

// Assess scores the input and maps the total to a recommendation.
func (e *DecisionEngine) Assess(input DecisionInput) DecisionAssessment {
	var score float64
	var factors []string

	switch strings.ToLower(input.RiskTolerance) {
	case "low":
		score += 30
		factors = append(factors, "low risk tolerance")
	case "medium":
		score += 15
		factors = append(factors, "medium risk tolerance")
	}

	timeline := strings.ToLower(input.Timeline)
	for _, keyword := range []string{"urgent", "asap", "immediately", "today"} {
		if strings.Contains(timeline, keyword) {
			score += 20
			factors = append(factors, "compressed timeline")
			break
		}
	}

	switch {
	case input.BudgetAmount > 1_000_000:
		score += 25
		factors = append(factors, "budget above 1M")
	case input.BudgetAmount > 250_000:
		score += 15
		factors = append(factors, "budget above 250k")
	case input.BudgetAmount > 50_000:
		score += 5
		factors = append(factors, "budget above 50k")
	}

	if input.ParticipantCount > 8 {
		score += 10
		factors = append(factors, "large participant group")
	}

	if input.DocumentCount == 0 {
		score += 10
		factors = append(factors, "no supporting documents")
	}

	return DecisionAssessment{
		RiskScore:      score,
		Recommendation: recommendation(score),
		Factors:        factors,
	}
}

func recommendation(score float64) Recommendation {
	switch {
	case score < 25:
		return RecommendProceed
	case score < 50:
		return RecommendWithCaution
	case score < 75:
		return RecommendDefer
	default:
		return RecommendReject
	}
}
