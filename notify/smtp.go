// Package notify holds the outbound sinks the leave engine reports to:
// approval mail over SMTP, in-app notification events over Kafka, and a
// fan-out that feeds several notification sinks at once.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/warp/leave-engine/leave"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	UseTLS   bool
	Timeout  time.Duration // dial timeout; 10s when zero
}

// NoopMailer drops every mail. Used when SMTP is not configured.
type NoopMailer struct{}

func (NoopMailer) Send(context.Context, leave.Mail) error { return nil }

type SMTPMailer struct {
	cfg SMTPConfig
}

var (
	_ leave.MailSink = (*SMTPMailer)(nil)
	_ leave.MailSink = NoopMailer{}
)

// NewMailer returns an SMTP mailer, or a NoopMailer when no host is set.
func NewMailer(cfg SMTPConfig) leave.MailSink {
	if strings.TrimSpace(cfg.Host) == "" {
		return NoopMailer{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPMailer{cfg: cfg}
}

func (s *SMTPMailer) Send(ctx context.Context, m leave.Mail) error {
	rcpts := recipients(m)
	if len(rcpts) == 0 {
		return nil
	}
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return err
		}
	}
	if s.cfg.User != "" {
		auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(m.From); err != nil {
		return err
	}
	for _, r := range rcpts {
		if err := client.Rcpt(r); err != nil {
			return fmt.Errorf("rcpt %s: %w", r, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(BuildMessage(m)); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// BuildMessage renders m as an RFC 5322 HTML message.
func BuildMessage(m leave.Mail) []byte {
	from := m.From
	if m.FromName != "" {
		from = (&mail.Address{Name: m.FromName, Address: m.From}).String()
	}
	headers := []string{
		"From: " + from,
		"To: " + strings.Join(m.To, ", "),
	}
	if len(m.CC) > 0 {
		headers = append(headers, "Cc: "+strings.Join(m.CC, ", "))
	}
	headers = append(headers,
		"Subject: "+mime.QEncoding.Encode("utf-8", m.Subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
	)
	return []byte(strings.Join(headers, "\r\n") + "\r\n" + m.HTML)
}

func recipients(m leave.Mail) []string {
	var out []string
	for _, r := range append(append([]string{}, m.To...), m.CC...) {
		if strings.TrimSpace(r) != "" {
			out = append(out, r)
		}
	}
	return out
}
