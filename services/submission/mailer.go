package submission

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"gopkg.in/gomail.v2"
)

// Mailer sends the welcome email after a successful submission.
type Mailer interface {
	SendWelcome(ctx context.Context, to, businessName string) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	dialer dialer
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	if from == "" {
		from = username
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// SendWelcome ignores ctx; gomail has no cancellation.
func (m *SMTPMailer) SendWelcome(_ context.Context, to, businessName string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Welcome to Barrim")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello,\n\n%s is now registered on Barrim. You can sign in with %s.\n\nThe Barrim team",
		businessName, to))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return eris.Wrap(err, "failed to send welcome email")
	}
	return nil
}
