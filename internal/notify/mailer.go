// Package notify delivers e-mail and Telegram notifications.
package notify

import (
	"errors"
	"fmt"
	"io"

	"localhire/internal/config"
	"localhire/internal/domain"

	"gopkg.in/gomail.v2"
)

var ErrMailDisabled = errors.New("mail is not configured")

type Attachment struct {
	Name string
	Data []byte
}

type Mail struct {
	To          []string
	ReplyTo     string
	Subject     string
	Text        string
	Attachments []Attachment
}

// Mailer composes gomail messages and hands them to a sender.
type Mailer struct {
	sender domain.MailSender
	from   string
}

func NewDialer(cfg config.MailConfig) *gomail.Dialer {
	return gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
}

func NewMailer(sender domain.MailSender, from string) *Mailer {
	return &Mailer{sender: sender, from: from}
}

func (m *Mailer) Send(mail Mail) error {
	if m == nil || m.sender == nil {
		return ErrMailDisabled
	}
	if len(mail.To) == 0 {
		return errors.New("mail has no recipients")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", mail.To...)
	if mail.ReplyTo != "" {
		msg.SetHeader("Reply-To", mail.ReplyTo)
	}
	msg.SetHeader("Subject", mail.Subject)
	msg.SetBody("text/plain", mail.Text)

	for _, a := range mail.Attachments {
		data := a.Data
		msg.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail %q: %w", mail.Subject, err)
	}
	return nil
}
