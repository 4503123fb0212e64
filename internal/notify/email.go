package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// MailerConfig holds SMTP settings for the email channel.
type MailerConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Mailer sends plain-text mail over SMTP.
type Mailer struct {
	config MailerConfig
	auth   smtp.Auth
}

func NewMailer(config MailerConfig) *Mailer {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Mailer{config: config, auth: auth}
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", m.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%s", m.config.Host, m.config.Port)
	if err := smtp.SendMail(addr, m.auth, m.config.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
