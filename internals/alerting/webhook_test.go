package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testPayload() Payload {
	return Payload{
		AlertID:     42,
		MonitorName: "api",
		MonitorURL:  "https://api.example.com/health",
		Severity:    "error",
		Title:       "api is down",
		Message:     "api failed 3 consecutive checks",
		Timestamp:   "2026-03-01T12:00:00Z",
	}
}

func TestWebhookSend(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	ch := NewWebhookChannel(srv.URL, 5*time.Second, &logger)

	if err := ch.Send(context.Background(), testPayload()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.AlertID != 42 || got.MonitorName != "api" || got.Severity != "error" {
		t.Errorf("payload = %+v", got)
	}
}

func TestWebhookSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	ch := NewWebhookChannel(srv.URL, 5*time.Second, &logger)

	if err := ch.Send(context.Background(), testPayload()); err == nil {
		t.Fatal("expected an error on HTTP 500")
	}
}

func TestWebhookValidateConfig(t *testing.T) {
	logger := zerolog.Nop()
	ch := NewWebhookChannel("", 0, &logger)
	if err := ch.ValidateConfig(); err == nil {
		t.Fatal("expected an error for an empty url")
	}
	if err := ch.Send(context.Background(), testPayload()); err == nil {
		t.Fatal("Send must refuse an unconfigured channel")
	}
}

func TestSlackSendFormatsAttachment(t *testing.T) {
	var got slackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	ch := NewSlackChannel(srv.URL, 5*time.Second, &logger)

	if err := ch.Send(context.Background(), testPayload()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(got.Text, ":x:") || !strings.Contains(got.Text, "*api is down*") {
		t.Errorf("text = %q", got.Text)
	}
	if len(got.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(got.Attachments))
	}
	att := got.Attachments[0]
	if att.Color != "#ff0000" {
		t.Errorf("color = %q", att.Color)
	}
	// Monitor, Severity, Message plus the optional URL field
	if len(att.Fields) != 4 {
		t.Errorf("fields = %d, want 4", len(att.Fields))
	}
}

func TestTelegramSendFansOutToChats(t *testing.T) {
	var chats []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		chats = append(chats, body["chat_id"].(string))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	ch := NewTelegramChannel("token", []string{"111", "222"}, 5*time.Second, &logger)
	ch.baseURL = srv.URL

	if err := ch.Send(context.Background(), testPayload()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(chats) != 2 || chats[0] != "111" || chats[1] != "222" {
		t.Errorf("chats = %v", chats)
	}
}

func TestTelegramSendAttachesInlineKeyboard(t *testing.T) {
	var body struct {
		ReplyMarkup struct {
			InlineKeyboard [][]struct {
				Text         string `json:"text"`
				CallbackData string `json:"callback_data"`
			} `json:"inline_keyboard"`
		} `json:"reply_markup"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	ch := NewTelegramChannel("token", []string{"111"}, 5*time.Second, &logger)
	ch.baseURL = srv.URL

	if err := ch.Send(context.Background(), testPayload()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	rows := body.ReplyMarkup.InlineKeyboard
	if len(rows) != 1 || len(rows[0]) != 2 {
		t.Fatalf("keyboard = %+v, want one row with two buttons", rows)
	}
	if rows[0][0].CallbackData != "ack:42" {
		t.Errorf("first button data = %q, want ack:42", rows[0][0].CallbackData)
	}
	if rows[0][1].CallbackData != "resolve:42" {
		t.Errorf("second button data = %q, want resolve:42", rows[0][1].CallbackData)
	}
}

func TestTelegramSendAllChatsFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	ch := NewTelegramChannel("token", []string{"111"}, 5*time.Second, &logger)
	ch.baseURL = srv.URL

	if err := ch.Send(context.Background(), testPayload()); err == nil {
		t.Fatal("expected an error when every chat fails")
	}
}

func TestSeverityColor(t *testing.T) {
	if severityColor("critical") == severityColor("info") {
		t.Fatal("severity colors should differ")
	}
	if severityColor("unknown") != "#808080" {
		t.Errorf("unknown severity color = %q", severityColor("unknown"))
	}
}
