package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"pulsewatch/pkg/apperror"
	"time"

	"github.com/rs/zerolog"
)

type WebhookChannel struct {
	url    string
	client *http.Client
	logger *zerolog.Logger
}

func NewWebhookChannel(url string, timeout time.Duration, logger *zerolog.Logger) *WebhookChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) ValidateConfig() error {
	if c.url == "" {
		return &apperror.Error{Kind: apperror.InvalidInput, Op: "alerting.webhook", Message: "webhook url is empty"}
	}
	return nil
}

func (c *WebhookChannel) Send(ctx context.Context, p Payload) error {
	const op string = "alerting.webhook.send"

	if err := c.ValidateConfig(); err != nil {
		return err
	}

	body, err := json.Marshal(p)
	if err != nil {
		return &apperror.Error{Kind: apperror.Internal, Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &apperror.Error{Kind: apperror.Internal, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &apperror.Error{Kind: apperror.Dependency, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return &apperror.Error{
			Kind:    apperror.Dependency,
			Op:      op,
			Message: fmt.Sprintf("webhook returned HTTP %d", resp.StatusCode),
		}
	}

	c.logger.Info().Int64("alert_id", p.AlertID).Msg("webhook alert sent")
	return nil
}
