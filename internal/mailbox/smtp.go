package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/oncallops/mailtriage/internal/config"
)

// SMTPNotifier sends acknowledgement mail via SMTP.
type SMTPNotifier struct {
	cfg config.SMTPConfig
}

// NewSMTPNotifier creates an SMTPNotifier from cfg.
func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier { return &SMTPNotifier{cfg: cfg} }

func (n *SMTPNotifier) IsConfigured() bool {
	return n.cfg.Server != "" && n.cfg.Sender != ""
}

// SendAcknowledgement sends one plain-text mail. When threadingID is set,
// In-Reply-To and References headers are added so mail clients thread the
// acknowledgement under the original report.
func (n *SMTPNotifier) SendAcknowledgement(_ context.Context, to, subject, body, threadingID string) error {
	if !n.IsConfigured() {
		return fmt.Errorf("smtp: server or sender address not configured")
	}
	if to == "" {
		return fmt.Errorf("smtp: no recipient address")
	}

	headers := []string{
		"Subject: " + subject,
		"From: " + n.cfg.Sender,
		"To: " + to,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
	}
	if threadingID != "" {
		headers = append(headers,
			"In-Reply-To: "+threadingID,
			"References: "+threadingID,
		)
	}
	// Bare LF is not valid inside SMTP DATA; normalise the body up front.
	crlfBody := strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n")
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + crlfBody

	port := n.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", n.cfg.Server, port)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Server)
	}

	if n.cfg.UseTLS {
		return n.sendImplicitTLS(addr, auth, to, msg)
	}
	// smtp.SendMail negotiates STARTTLS when the server advertises it.
	return smtp.SendMail(addr, auth, n.cfg.Sender, []string{to}, []byte(msg))
}

func (n *SMTPNotifier) sendImplicitTLS(addr string, auth smtp.Auth, to, msg string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: n.cfg.Server})
	if err != nil {
		return fmt.Errorf("smtp: TLS dial: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, n.cfg.Server)
	if err != nil {
		return err
	}
	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(n.cfg.Sender); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(wc, msg); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}
