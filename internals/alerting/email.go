package alerting

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"pulsewatch/config"
	"pulsewatch/pkg/apperror"
	"strings"

	"github.com/rs/zerolog"
)

// EmailChannel sends alert mail over SMTP with STARTTLS. Delivery runs in a
// goroutine so a slow mail server cannot stall the worker past the context
// deadline.
type EmailChannel struct {
	cfg    *config.EmailChannelConfig
	logger *zerolog.Logger
}

func NewEmailChannel(cfg *config.EmailChannelConfig, logger *zerolog.Logger) *EmailChannel {
	return &EmailChannel{cfg: cfg, logger: logger}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) ValidateConfig() error {
	const op string = "alerting.email"

	if c.cfg.SMTPHost == "" || c.cfg.SMTPPort == 0 {
		return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: "smtp host and port are required"}
	}
	if c.cfg.FromEmail == "" {
		return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: "from address is required"}
	}
	if len(c.cfg.ToEmails) == 0 {
		return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: "at least one recipient is required"}
	}
	return nil
}

func (c *EmailChannel) Send(ctx context.Context, p Payload) error {
	const op string = "alerting.email.send"

	if err := c.ValidateConfig(); err != nil {
		return err
	}

	msg := c.buildMessage(p)
	addr := fmt.Sprintf("%s:%d", c.cfg.SMTPHost, c.cfg.SMTPPort)

	var auth smtp.Auth
	if c.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", c.cfg.SMTPUser, c.cfg.SMTPPass, c.cfg.SMTPHost)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, c.cfg.FromEmail, c.cfg.ToEmails, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return &apperror.Error{Kind: apperror.Dependency, Op: op, Err: err}
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	c.logger.Info().
		Int64("alert_id", p.AlertID).
		Int("recipients", len(c.cfg.ToEmails)).
		Msg("email alert sent")
	return nil
}

func (c *EmailChannel) buildMessage(p Payload) []byte {
	color := severityColor(p.Severity)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.cfg.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(c.cfg.ToEmails, ", "))
	fmt.Fprintf(&b, "Subject: [%s] %s\r\n", strings.ToUpper(p.Severity), p.Title)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")

	fmt.Fprintf(&b, `<html><body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
<div style="border: 1px solid #dee2e6; border-radius: 8px; overflow: hidden;">
<div style="background-color: %s; color: white; padding: 20px; text-align: center;"><h1>Monitor Alert</h1></div>
<div style="padding: 30px;">
<p><b>Monitor:</b> %s</p>
<p><b>Severity:</b> <span style="background-color: %s; color: white; padding: 4px 12px; border-radius: 4px;">%s</span></p>
<p><b>Time:</b> %s</p>
<div style="background-color: #f8f9fa; border-left: 4px solid %s; padding: 15px;">%s</div>
`, color, html.EscapeString(p.MonitorName), color, strings.ToUpper(p.Severity), p.Timestamp, color, html.EscapeString(p.Message))

	if p.MonitorURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s">View Monitor</a></p>`, html.EscapeString(p.MonitorURL))
	}
	b.WriteString(`</div>
<div style="background-color: #f8f9fa; padding: 15px; font-size: 12px; color: #6c757d; text-align: center;">Automated alert from Pulsewatch.</div>
</div></body></html>`)

	return []byte(b.String())
}
