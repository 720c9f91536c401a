package notifications

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier mails every recipient that has an address.
type EmailNotifier struct {
	sender mailSender
	from   string
}

func NewEmailNotifier(host string, port int, user, pass string) *EmailNotifier {
	return &EmailNotifier{sender: gomail.NewDialer(host, port, user, pass), from: user}
}

func (e *EmailNotifier) Notify(ctx context.Context, n Notification) error {
	var messages []*gomail.Message
	for _, r := range n.Recipients {
		if r.Email == "" {
			continue
		}
		m := gomail.NewMessage()
		m.SetHeader("From", e.from)
		m.SetHeader("To", r.Email)
		m.SetHeader("Subject", n.Subject())
		m.SetBody("text/plain", fmt.Sprintf("Dear %s,\n\n%s\n", r.Name, n.Message()))
		messages = append(messages, m)
	}
	if len(messages) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.sender.DialAndSend(messages...); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}
