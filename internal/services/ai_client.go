package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"boardflow/backend/pkg/models"
)

// AnalysisRequest is the payload sent to the AI analysis provider.
type AnalysisRequest struct {
	Prompt         string         `json:"prompt"`
	RequiredAgents []string       `json:"required_agents"`
	Context        map[string]any `json:"context"`
}

// AIClient is an interface for the external AI analysis provider.
type AIClient interface {
	// Analyze runs a prompt against the provider with accumulated context.
	Analyze(ctx context.Context, req AnalysisRequest) (*models.AIAnalysis, error)
}

// HTTPAIClient is an HTTP implementation of the AIClient interface.
type HTTPAIClient struct {
	url    string
	client *http.Client
}

// NewHTTPAIClient creates a new HTTPAIClient.
func NewHTTPAIClient(url string, timeout time.Duration) *HTTPAIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAIClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Analyze runs a prompt against the provider.
func (c *HTTPAIClient) Analyze(ctx context.Context, req AnalysisRequest) (*models.AIAnalysis, error) {
	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url+"/analyze", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis request failed: status code %d", resp.StatusCode)
	}

	var analysis models.AIAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	return &analysis, nil
}

// StaticAIClient returns a fixed analysis for every request. For DB-less dev
// runs and tests.
type StaticAIClient struct {
	Result models.AIAnalysis
}

// Analyze returns the configured static result.
func (c *StaticAIClient) Analyze(ctx context.Context, req AnalysisRequest) (*models.AIAnalysis, error) {
	result := c.Result
	if result.Analysis == "" {
		result.Analysis = "No provider configured; returning neutral analysis."
		result.Confidence = 0.9
	}
	return &result, nil
}
