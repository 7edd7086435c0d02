package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-interview-analysis-service/internal/spec"
)

const defaultWebhookTimeout = 10 * time.Second

// Webhook POSTs payloads as JSON to a configured URL. Any non-2xx status,
// network failure, or timeout is a failed delivery.
type Webhook struct {
	id         string
	url        string
	headers    map[string]string
	httpClient *http.Client
}

// NewWebhook builds a webhook route from its spec declaration.
func NewWebhook(rc spec.Route) (*Webhook, error) {
	if strings.TrimSpace(rc.URL) == "" {
		return nil, fmt.Errorf("webhook route has no URL")
	}
	timeout := defaultWebhookTimeout
	if rc.TimeoutSeconds > 0 {
		timeout = time.Duration(rc.TimeoutSeconds * float64(time.Second))
	}
	return &Webhook{
		id:         rc.ID,
		url:        rc.URL,
		headers:    rc.Headers,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (w *Webhook) ID() string   { return w.id }
func (w *Webhook) Type() string { return spec.RouteWebhook }

// Deliver POSTs the payload. The response body is drained and discarded.
func (w *Webhook) Deliver(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (w *Webhook) Close() error { return nil }
