package escalate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/apexcomponents/andon/pkg/types"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier POSTs triggers as JSON to a URL, the live dashboard
// update path.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier from config.
func NewWebhookNotifier(cfg types.WebhookConfig) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL required")
	}
	timeout := defaultWebhookTimeout
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook timeout %q: %w", cfg.Timeout, err)
		}
		timeout = d
	}
	return &WebhookNotifier{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the channel identifier.
func (n *WebhookNotifier) Name() string { return "dashboard" }

// Notify posts the trigger as JSON to the configured URL.
func (n *WebhookNotifier) Notify(ctx context.Context, t types.Trigger) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling trigger: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
