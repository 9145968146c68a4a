package alerting

import (
	"pulsewatch/config"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestEmailBuildMessageEscapesPayloadHTML(t *testing.T) {
	logger := zerolog.Nop()
	ch := NewEmailChannel(&config.EmailChannelConfig{
		SMTPHost:  "smtp.example.com",
		SMTPPort:  587,
		FromEmail: "alerts@example.com",
		ToEmails:  []string{"ops@example.com"},
	}, &logger)

	p := testPayload()
	p.MonitorName = `api <script>alert(1)</script>`
	p.Message = `failed with "<b>boom</b>"`
	p.MonitorURL = `https://api.example.com/health?a=1&b=2`

	msg := string(ch.buildMessage(p))
	if strings.Contains(msg, "<script>") {
		t.Error("monitor name reached the body unescaped")
	}
	if !strings.Contains(msg, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Error("expected escaped monitor name in the body")
	}
	if !strings.Contains(msg, "&lt;b&gt;boom&lt;/b&gt;") {
		t.Error("expected escaped message in the body")
	}
	if !strings.Contains(msg, `href="https://api.example.com/health?a=1&amp;b=2"`) {
		t.Error("expected escaped monitor url in the href")
	}
}
