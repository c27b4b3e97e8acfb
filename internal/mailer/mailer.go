package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

type Config struct {
	Host      string
	Port      string
	Username  string
	Password  string
	FromName  string
	PortalURL string
}

func (c Config) enabled() bool {
	return c.Host != "" && c.Port != "" && c.Username != "" && c.Password != ""
}

// Invite carries what an invited admin needs to sign in for the first time.
type Invite struct {
	To                string
	Name              string
	TemporaryPassword string
	InvitedBy         string
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends portal emails over SMTP. Without SMTP settings it only logs.
type SMTPMailer struct {
	cfg  Config
	send sendFunc
}

func New(cfg Config) *SMTPMailer {
	if cfg.FromName == "" {
		cfg.FromName = "Exam Portal"
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) SendInvite(_ context.Context, invite Invite) error {
	if !m.cfg.enabled() {
		slog.Warn("smtp not configured, invite email not sent", "to", invite.To)
		return nil
	}

	msg := buildInviteMessage(m.cfg, invite)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)

	if err := m.send(addr, auth, m.cfg.Username, []string{invite.To}, msg); err != nil {
		return fmt.Errorf("send invite email to %s: %w", invite.To, err)
	}

	slog.Info("invite email sent", "to", invite.To)
	return nil
}

func safe(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func buildInviteMessage(cfg Config, invite Invite) []byte {
	const boundary = "----=_EXAM_PORTAL_INVITE"

	name := safe(invite.Name)
	inviter := safe(invite.InvitedBy)
	loginURL := strings.TrimRight(safe(cfg.PortalURL), "/") + "/admin/login"

	plain := fmt.Sprintf(
		"Hi %s,\n\n"+
			"%s invited you to administer the exam portal.\n"+
			"Sign in at %s with this email address and the temporary password below,\n"+
			"then change it from your account settings.\n\n"+
			"Temporary password: %s\n",
		name, inviter, loginURL, invite.TemporaryPassword,
	)

	html := fmt.Sprintf(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Admin invitation</title></head>
<body style="font-family:Arial, Helvetica, sans-serif; color:#222;">
  <h2>You're invited</h2>
  <p>Hi %s,</p>
  <p>%s invited you to administer the exam portal.</p>
  <p>Temporary password: <code>%s</code></p>
  <p><a href="%s">Sign in</a> and change your password from your account settings.</p>
</body>
</html>`,
		name, inviter, invite.TemporaryPassword, loginURL,
	)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s <%s>\r\n", safe(cfg.FromName), cfg.Username))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", safe(invite.To)))
	sb.WriteString("Subject: Your exam portal admin account\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary))

	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(plain + "\r\n")

	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	sb.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	sb.WriteString(html + "\r\n")

	sb.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return []byte(sb.String())
}
