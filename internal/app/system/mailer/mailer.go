// internal/app/system/mailer/mailer.go

// Package mailer sends application email over SMTP. The engine calls it only
// after the caller's membership has been verified; delivery failures are
// surfaced to the user and never retried automatically.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Email is a single outbound message. HTMLBody is optional; when present the
// message is sent as multipart/alternative with the text body as fallback.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string // From address, e.g. "noreply@sharedtasks.app"
	FromName string // From display name, e.g. "Shared Tasks"
}

// Mailer sends email through a single configured SMTP endpoint.
type Mailer struct {
	cfg Config
	log *zap.Logger
}

// New creates a Mailer. It does not dial; connections are made per send.
func New(cfg Config, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: logger}
}

// Send delivers one email. It blocks for the duration of the SMTP exchange.
func (m *Mailer) Send(e Email) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	msg := m.buildMessage(e)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{e.To}, msg); err != nil {
		m.log.Error("smtp send failed",
			zap.String("to", e.To),
			zap.String("subject", e.Subject),
			zap.Error(err))
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// SendInvite builds the invite email for the workspace and delivers it.
func (m *Mailer) SendInvite(recipient, inviteLink, workspaceName string) error {
	e := BuildInviteEmail(InviteEmailData{
		WorkspaceName: workspaceName,
		InviteLink:    inviteLink,
	})
	e.To = recipient
	return m.Send(e)
}

const boundary = "sharedtasks-alt-boundary"

func (m *Mailer) buildMessage(e Email) []byte {
	var b strings.Builder

	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + e.To + "\r\n")
	b.WriteString("Subject: " + e.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	if e.HTMLBody == "" {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(e.TextBody)
		return []byte(b.String())
	}

	b.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary))
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(e.TextBody + "\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(e.HTMLBody + "\r\n")
	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}
