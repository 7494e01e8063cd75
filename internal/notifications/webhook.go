package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"boardflow/backend/internal/logging"
)

// WebhookNotifier posts workflow events to a configured webhook URL.
// Delivery is fire-and-forget; failures are logged, never propagated.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(url string, logger *logging.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Notify posts the event to the webhook URL.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) {
	if err := n.send(ctx, event); err != nil {
		n.logger.Warn("webhook notification failed",
			"url", n.url,
			"execution_id", event.ExecutionID,
			"error", err,
		)
	}
}

func (n *WebhookNotifier) send(ctx context.Context, event Event) error {
	if n.url == "" {
		return fmt.Errorf("webhook URL is required")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook payload serialization failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "boardflow/1.0")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed: status_code=%d", resp.StatusCode)
	}
	return nil
}
