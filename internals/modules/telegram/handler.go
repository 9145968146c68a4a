package telegram

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"pulsewatch/config"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const telegramAPI = "https://api.telegram.org"

// secretHeader is echoed back by Telegram on every webhook delivery.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// AlertActor is the slice of the alert service the webhook acts through.
type AlertActor interface {
	Acknowledge(ctx context.Context, id int64) (alert.Alert, error)
	Resolve(ctx context.Context, id int64) (alert.Alert, error)
}

// Handler consumes Telegram webhook updates: the ack/resolve buttons the
// alert channel attaches, and the matching /ack and /resolve chat commands.
// Only chats on the configured list may act.
type Handler struct {
	alerts  AlertActor
	secret  string
	allowed map[string]struct{}

	token   string
	baseURL string
	client  *http.Client
	logger  *zerolog.Logger
}

func NewHandler(alerts AlertActor, cfg *config.TelegramChannelConfig, logger *zerolog.Logger) *Handler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	allowed := make(map[string]struct{}, len(cfg.ChatIDs))
	for _, id := range cfg.ChatIDs {
		allowed[strings.TrimSpace(id)] = struct{}{}
	}
	return &Handler{
		alerts:  alerts,
		secret:  cfg.WebhookSecret,
		allowed: allowed,
		token:   cfg.BotToken,
		baseURL: telegramAPI,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// POST /integrations/telegram/webhook
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	got := r.Header.Get(secretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		h.logger.Warn().Str("request_id", reqID).Msg("telegram webhook secret mismatch")
		utils.WriteError(w, http.StatusForbidden, reqID, apperror.Forbidden, "invalid secret token")
		return
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid update body")
		return
	}

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}

	// Telegram retries non-2xx deliveries, so handled updates always get 200
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCallback(ctx context.Context, cb *CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := strconv.FormatInt(cb.Message.Chat.ID, 10)
	if !h.authorized(chatID) {
		h.logger.Warn().Str("chat_id", chatID).Msg("telegram callback from unauthorized chat")
		return
	}

	action, rawID, ok := strings.Cut(cb.Data, ":")
	if !ok {
		h.answerCallback(ctx, cb.ID, "Invalid action")
		return
	}
	h.answerCallback(ctx, cb.ID, h.execute(ctx, action, rawID))
}

func (h *Handler) handleMessage(ctx context.Context, msg *Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	if !h.authorized(chatID) {
		h.logger.Warn().Str("chat_id", chatID).Msg("telegram command from unauthorized chat")
		return
	}

	parts := strings.Fields(msg.Text)
	if len(parts) == 0 {
		return
	}

	switch strings.ToLower(parts[0]) {
	case "/ack":
		if len(parts) < 2 {
			h.reply(ctx, chatID, "Usage: /ack <alert id>")
			return
		}
		h.reply(ctx, chatID, h.execute(ctx, "ack", parts[1]))
	case "/resolve":
		if len(parts) < 2 {
			h.reply(ctx, chatID, "Usage: /resolve <alert id>")
			return
		}
		h.reply(ctx, chatID, h.execute(ctx, "resolve", parts[1]))
	default:
		h.reply(ctx, chatID, "Commands: /ack <alert id>, /resolve <alert id>")
	}
}

// execute runs one ack/resolve action and returns the user-facing outcome.
func (h *Handler) execute(ctx context.Context, action, rawID string) string {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "Invalid alert id"
	}

	switch action {
	case "ack":
		if _, err := h.alerts.Acknowledge(ctx, id); err != nil {
			h.logger.Error().Err(err).Int64("alert_id", id).Msg("telegram ack failed")
			return fmt.Sprintf("Could not acknowledge alert %d", id)
		}
		return fmt.Sprintf("Alert %d acknowledged", id)
	case "resolve":
		if _, err := h.alerts.Resolve(ctx, id); err != nil {
			h.logger.Error().Err(err).Int64("alert_id", id).Msg("telegram resolve failed")
			return fmt.Sprintf("Could not resolve alert %d", id)
		}
		return fmt.Sprintf("Alert %d resolved", id)
	}
	return "Invalid action"
}

func (h *Handler) authorized(chatID string) bool {
	_, ok := h.allowed[chatID]
	return ok
}

// answerCallback dismisses the button spinner; failures only get logged.
func (h *Handler) answerCallback(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	err := h.post(ctx, "answerCallbackQuery", map[string]string{
		"callback_query_id": callbackID,
		"text":              text,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to answer telegram callback")
	}
}

func (h *Handler) reply(ctx context.Context, chatID, text string) {
	err := h.post(ctx, "sendMessage", map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("chat_id", chatID).Msg("failed to send telegram reply")
	}
}

func (h *Handler) post(ctx context.Context, method string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/%s", h.baseURL, h.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram returned HTTP %d", resp.StatusCode)
	}
	return nil
}
