package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ashureev/daylog/internal/domain"
)

// maxErrorBody bounds how much of a failing response body is kept.
const maxErrorBody = 512

// WebhookClient posts records to an external HTTP endpoint.
type WebhookClient struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookClient creates a client with the given request timeout.
func NewWebhookClient(url, secret string, timeout time.Duration) *WebhookClient {
	return &WebhookClient{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
}

// Payload builds the JSON body for a record.
func (c *WebhookClient) Payload(rec domain.DailyRecord) map[string]any {
	body := rec.Fields()
	body["idempotency_key"] = rec.IdempotencyKey()
	body["idempotency_token"] = rec.IdempotencyToken()
	if c.secret != "" {
		body["secret"] = c.secret
	}
	return body
}

// Post sends the record. Any transport failure or non-2xx status is an error.
func (c *WebhookClient) Post(ctx context.Context, rec domain.DailyRecord) error {
	b, err := json.Marshal(c.Payload(rec))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", rec.IdempotencyKey())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("webhook returned %s: %s", resp.Status, bytes.TrimSpace(respBody))
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
