package email

import (
	"context"
)

// Provider represents an email delivery provider
type Provider interface {
	Send(ctx context.Context, message *Message) (*SendResult, error)
	GetName() string
}

// Message represents an email to be sent
type Message struct {
	To       string
	Subject  string
	BodyHTML string
	From     string
	FromName string
	ReplyTo  string
}

// SendResult represents the result of a send operation
type SendResult struct {
	ProviderID   string
	ProviderName string
	Success      bool
	Error        error
}

// Sender is the contract the subscription and notification services
// depend on. They only care about the error outcome: every send is
// best-effort and a failure never rolls back the primary operation.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// ProviderConfig holds provider credentials
type ProviderConfig struct {
	FromAddress string
	FromName    string

	// AWS SES (primary)
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// SendGrid (fallback)
	SendGridAPIKey string
}
