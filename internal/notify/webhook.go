// Package notify delivers station announcements to a chat channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Webhook posts messages to a Slack-compatible incoming webhook.
type Webhook struct {
	url     string
	client  *http.Client
	timeout time.Duration
	log     *slog.Logger
}

type webhookPayload struct {
	Text         string `json:"text"`
	ResponseType string `json:"response_type"`
}

func NewWebhook(url string, timeout time.Duration, log *slog.Logger) *Webhook {
	return &Webhook{
		url:     url,
		client:  &http.Client{},
		timeout: timeout,
		log:     log,
	}
}

// Notify sends text to the channel. There is no retry.
func (w *Webhook) Notify(ctx context.Context, text string) error {
	body, err := json.Marshal(webhookPayload{Text: text, ResponseType: "in_channel"})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post webhook: unexpected status %d", resp.StatusCode)
	}
	w.log.Debug("Notification delivered", "status", resp.StatusCode)
	return nil
}
