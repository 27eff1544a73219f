// Package notify posts short operational announcements (server started,
// server stopping) to a Discord-compatible webhook. Delivery is best
// effort; failures are logged and never block the caller.
package notify

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cyberinferno/resource-server/logger"
)

// Webhook sends messages to one webhook URL. A nil Webhook is valid and
// drops every message, so callers need no guard when notifications are
// disabled.
type Webhook struct {
	url    string
	client *http.Client
	logger logger.Logger
}

// NewWebhook creates a notifier for the given URL. Returns nil when url is
// empty, which disables notifications.
//
// Parameters:
//   - url: The webhook URL to POST to
//   - log: Destination for delivery failure logs
//
// Returns:
//   - A Webhook, or nil when url is empty
func NewWebhook(url string, log logger.Logger) *Webhook {
	if url == "" {
		return nil
	}

	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: log,
	}
}

// Send posts the message as the webhook "content" field. Errors are logged
// and swallowed.
//
// Parameters:
//   - content: The message text
func (w *Webhook) Send(content string) {
	if w == nil {
		return
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		w.logger.Warn("webhook payload encoding failed", logger.F("error", err))
		return
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		w.logger.Warn("webhook delivery failed", logger.F("error", err))
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		w.logger.Warn("webhook rejected message", logger.F("status", resp.StatusCode))
	}
}
