package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ActionRunner executes the side effect of an action step against the
// current execution context.
type ActionRunner interface {
	Run(ctx context.Context, actionType string, parameters map[string]any, execContext map[string]any) (map[string]any, error)
}

// HTTPActionRunner posts actions to an external automation endpoint.
type HTTPActionRunner struct {
	url    string
	client *http.Client
}

// NewHTTPActionRunner creates a new HTTPActionRunner.
func NewHTTPActionRunner(url string) *HTTPActionRunner {
	return &HTTPActionRunner{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Run posts the action and returns the endpoint's JSON response.
func (r *HTTPActionRunner) Run(ctx context.Context, actionType string, parameters map[string]any, execContext map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(map[string]any{
		"action_type": actionType,
		"parameters":  parameters,
		"context":     execContext,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.url+"/actions", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("action request failed: status code %d", resp.StatusCode)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return result, nil
}

// RecordingActionRunner records actions in memory without side effects.
// For DB-less dev runs and tests.
type RecordingActionRunner struct {
	mu      sync.Mutex
	actions []RecordedAction
}

// RecordedAction is one action captured by a RecordingActionRunner.
type RecordedAction struct {
	ActionType string
	Parameters map[string]any
}

// NewRecordingActionRunner creates a new RecordingActionRunner.
func NewRecordingActionRunner() *RecordingActionRunner {
	return &RecordingActionRunner{}
}

// Run records the action and echoes a completed result.
func (r *RecordingActionRunner) Run(ctx context.Context, actionType string, parameters map[string]any, execContext map[string]any) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, RecordedAction{ActionType: actionType, Parameters: parameters})
	return map[string]any{"action_type": actionType, "status": "completed"}, nil
}

// Actions returns a copy of the recorded actions.
func (r *RecordingActionRunner) Actions() []RecordedAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedAction, len(r.actions))
	copy(out, r.actions)
	return out
}
