package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridProvider implements email sending via SendGrid
type SendGridProvider struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

// NewSendGridProvider creates a new SendGrid email provider
func NewSendGridProvider(cfg *ProviderConfig) *SendGridProvider {
	return &SendGridProvider{
		client:   sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:     cfg.FromAddress,
		fromName: cfg.FromName,
	}
}

// GetName returns the provider name
func (p *SendGridProvider) GetName() string {
	return "SendGrid"
}

// Send sends an email via SendGrid
func (p *SendGridProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	fromAddr := p.from
	fromName := p.fromName
	if message.From != "" {
		fromAddr = message.From
		fromName = message.FromName
	}

	from := mail.NewEmail(fromName, fromAddr)
	to := mail.NewEmail("", message.To)
	msg := mail.NewSingleEmail(from, message.Subject, to, "", message.BodyHTML)
	if message.ReplyTo != "" {
		msg.SetReplyTo(mail.NewEmail("", message.ReplyTo))
	}

	response, err := p.client.SendWithContext(ctx, msg)
	if err != nil {
		return &SendResult{
			ProviderName: p.GetName(),
			Success:      false,
			Error:        err,
		}, fmt.Errorf("SendGrid send failed: %w", err)
	}

	if response.StatusCode >= 400 {
		err := fmt.Errorf("SendGrid returned status %d: %s", response.StatusCode, response.Body)
		return &SendResult{
			ProviderName: p.GetName(),
			Success:      false,
			Error:        err,
		}, err
	}

	return &SendResult{
		ProviderName: p.GetName(),
		Success:      true,
	}, nil
}
