// Package notify posts pipeline notifications to a Slack incoming webhook.
// Notification failures are never fatal to the pipeline; callers log and
// continue.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackNotifier posts messages to a Slack incoming webhook URL.
// A nil or unconfigured notifier is disabled.
type SlackNotifier struct {
	WebhookURL string
	HTTPClient *http.Client
}

// NewSlackNotifier creates a notifier for the given webhook URL. An empty
// URL yields a disabled notifier.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether the notifier has a webhook to post to.
func (n *SlackNotifier) Enabled() bool {
	return n != nil && n.WebhookURL != ""
}

// Notify posts a plain-text message to the webhook.
func (n *SlackNotifier) Notify(ctx context.Context, text string) error {
	if !n.Enabled() {
		return fmt.Errorf("slack notifier not configured")
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
