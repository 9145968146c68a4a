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

const telegramAPI = "https://api.telegram.org"

// TelegramChannel fans one alert out to every configured chat. Delivery
// succeeds if at least one chat receives the message.
type TelegramChannel struct {
	token   string
	chatIDs []string
	baseURL string
	client  *http.Client
	logger  *zerolog.Logger
}

func NewTelegramChannel(token string, chatIDs []string, timeout time.Duration, logger *zerolog.Logger) *TelegramChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelegramChannel{
		token:   token,
		chatIDs: chatIDs,
		baseURL: telegramAPI,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) ValidateConfig() error {
	const op string = "alerting.telegram"

	if c.token == "" {
		return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: "bot token is empty"}
	}
	if len(c.chatIDs) == 0 {
		return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: "no chat ids configured"}
	}
	return nil
}

func (c *TelegramChannel) Send(ctx context.Context, p Payload) error {
	const op string = "alerting.telegram.send"

	if err := c.ValidateConfig(); err != nil {
		return err
	}

	text := fmt.Sprintf("\U0001f6a8 *%s*\nMonitor: %s\nSeverity: %s\nTriggered: %s\n\n%s",
		p.Title, p.MonitorName, p.Severity, p.Timestamp, p.Message)
	keyboard := inlineKeyboard(p.AlertID)

	delivered := 0
	failures := make([]string, 0)
	for _, chatID := range c.chatIDs {
		if err := c.sendMessage(ctx, chatID, text, keyboard); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", chatID, err))
			c.logger.Error().Err(err).Str("chat_id", chatID).Msg("telegram delivery failed")
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return &apperror.Error{
			Kind:    apperror.Dependency,
			Op:      op,
			Message: "no recipients delivered: " + strings.Join(failures, "; "),
		}
	}

	c.logger.Info().
		Int64("alert_id", p.AlertID).
		Int("delivered", delivered).
		Int("failed", len(failures)).
		Msg("telegram alert delivered")
	return nil
}

// inlineKeyboard builds the ack/resolve buttons the webhook handler acts on.
func inlineKeyboard(alertID int64) map[string]any {
	if alertID <= 0 {
		return nil
	}
	return map[string]any{
		"inline_keyboard": [][]map[string]string{{
			{"text": "Acknowledge", "callback_data": fmt.Sprintf("ack:%d", alertID)},
			{"text": "Resolve", "callback_data": fmt.Sprintf("resolve:%d", alertID)},
		}},
	}
}

func (c *TelegramChannel) sendMessage(ctx context.Context, chatID, text string, replyMarkup map[string]any) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	if replyMarkup != nil {
		payload["reply_markup"] = replyMarkup
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram returned HTTP %d", resp.StatusCode)
	}
	return nil
}
