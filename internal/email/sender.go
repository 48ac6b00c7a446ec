// Package email renders and sends the pipeline's outbound mail. Every
// message has a plain-text body and an HTML alternative; which one the
// recipient sees is up to their client.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"
)

// Message is one outbound email, already rendered.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the transport settings for the SMTP sender.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
}

// SMTPSender delivers mail over plain SMTP with optional AUTH.
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender creates an SMTPSender from the given transport settings.
func NewSMTPSender(config SMTPConfig) (*SMTPSender, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if config.Port <= 0 {
		return nil, fmt.Errorf("smtp port is required")
	}
	if config.FromAddress == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	return &SMTPSender{config: config}, nil
}

// Send delivers the message as multipart/alternative with text and HTML
// parts. The context is honored up front; the SMTP exchange itself is
// bounded by the dispatcher's execution timeout at a higher level.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return fmt.Errorf("message has no recipient")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	body := buildMIMEMessage(s.config.FromAddress, msg)

	if err := smtp.SendMail(addr, auth, s.config.FromAddress, []string{msg.To}, body); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender logs messages instead of delivering them. Used when no SMTP
// transport is configured, so environments without a mail relay still
// exercise the full render path.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender by logging the message envelope.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("email delivery skipped, no SMTP transport configured",
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}

const mimeBoundary = "=_notification_boundary"

func buildMIMEMessage(from string, msg Message) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.TextBody)
	b.WriteString("\r\n")

	if msg.HTMLBody != "" {
		fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(msg.HTMLBody)
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)

	return []byte(b.String())
}
