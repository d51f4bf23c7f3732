package mail

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const pinEmailPlain = `Your Slowpost sign-in code is {{.Pin}}.

It expires in 15 minutes. If you didn't request it, you can ignore this
email.
`

var pinEmailTemplate = template.Must(template.New("pin").Parse(pinEmailPlain))

// SendGridMailer sends PIN emails through SendGrid.
type SendGridMailer struct {
	client *sendgrid.Client
	from   string
}

var _ Mailer = (*SendGridMailer)(nil)

// NewSendGridMailer creates a mailer using the given API key and sender
// address.
func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   from,
	}
}

func (m *SendGridMailer) SendPinEmail(ctx context.Context, email, pin string) error {
	message := sgmail.NewV3Mail()
	message.From = sgmail.NewEmail("Slowpost", m.from)
	message.Subject = "Your Slowpost sign-in code"

	personalization := sgmail.NewPersonalization()
	personalization.To = append(personalization.To, sgmail.NewEmail("", email))
	message.Personalizations = append(message.Personalizations, personalization)

	textContent := &bytes.Buffer{}
	if err := pinEmailTemplate.Execute(textContent, struct{ Pin string }{Pin: pin}); err != nil {
		return fmt.Errorf("while templating pin email content: %w", err)
	}
	message.Content = append(message.Content, sgmail.NewContent("text/plain", textContent.String()))

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("while sending mail through SendGrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2XX response while sending mail through SendGrid: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}
