package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"pulsewatch/pkg/apperror"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type SlackChannel struct {
	webhookURL string
	client     *http.Client
	logger     *zerolog.Logger
}

func NewSlackChannel(webhookURL string, timeout time.Duration, logger *zerolog.Logger) *SlackChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) ValidateConfig() error {
	if c.webhookURL == "" {
		return &apperror.Error{Kind: apperror.InvalidInput, Op: "alerting.slack", Message: "slack webhook url is empty"}
	}
	return nil
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

func severityEmoji(severity string) string {
	switch severity {
	case "critical":
		return ":rotating_light:"
	case "error":
		return ":x:"
	case "warning":
		return ":warning:"
	case "info":
		return ":information_source:"
	}
	return ":bell:"
}

func (c *SlackChannel) Send(ctx context.Context, p Payload) error {
	const op string = "alerting.slack.send"

	if err := c.ValidateConfig(); err != nil {
		return err
	}

	fields := []slackField{
		{Title: "Monitor", Value: p.MonitorName, Short: true},
		{Title: "Severity", Value: strings.ToUpper(p.Severity), Short: true},
		{Title: "Message", Value: p.Message},
	}
	if p.MonitorURL != "" {
		fields = append(fields, slackField{Title: "Monitor URL", Value: p.MonitorURL})
	}

	msg := slackMessage{
		Text: fmt.Sprintf("%s *%s*", severityEmoji(p.Severity), p.Title),
		Attachments: []slackAttachment{{
			Color:  severityColor(p.Severity),
			Fields: fields,
			Footer: "Pulsewatch",
		}},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return &apperror.Error{Kind: apperror.Internal, Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
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
			Message: fmt.Sprintf("slack returned HTTP %d", resp.StatusCode),
		}
	}

	c.logger.Info().Int64("alert_id", p.AlertID).Msg("slack alert sent")
	return nil
}
