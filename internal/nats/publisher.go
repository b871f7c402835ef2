package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// SecurityEvent is published for checksum mismatches and other
// security-critical findings
type SecurityEvent struct {
	Type        string      `json:"type"` // "checksum_mismatch", "suspension", "device_auth_failure"
	TenantID    string      `json:"tenant_id,omitempty"`
	Severity    string      `json:"severity"`
	Description string      `json:"description"`
	Detail      interface{} `json:"detail,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// LifecycleEvent is published when a tenant changes subscription state
type LifecycleEvent struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher handles publishing platform events to NATS
type Publisher struct {
	client *Client
	logger *logrus.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(client *Client, logger *logrus.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// PublishSecurityEvent publishes a security event to platform.security.{type}
func (p *Publisher) PublishSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	if p == nil || p.client == nil || !p.client.IsConnected() {
		return nil // best-effort: events are advisory
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal security event: %w", err)
	}

	subject := fmt.Sprintf("platform.security.%s", event.Type)
	if _, err := p.client.JetStream().Publish(subject, data, nats.Context(ctx)); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish security event")
		return err
	}
	return nil
}

// PublishLifecycleEvent publishes a tenant lifecycle transition to
// platform.tenant.{to_status}
func (p *Publisher) PublishLifecycleEvent(ctx context.Context, event *LifecycleEvent) error {
	if p == nil || p.client == nil || !p.client.IsConnected() {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}

	subject := fmt.Sprintf("platform.tenant.%s", event.ToStatus)
	if _, err := p.client.JetStream().Publish(subject, data, nats.Context(ctx)); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish lifecycle event")
		return err
	}
	return nil
}
