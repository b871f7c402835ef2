package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// FailoverProvider tries each configured provider in order, with a
// circuit breaker per provider so a failing upstream is skipped quickly
// instead of adding its timeout to every send.
type FailoverProvider struct {
	providers []Provider
	breakers  []*gobreaker.CircuitBreaker
	logger    *logrus.Logger
}

// NewFailoverProvider creates a failover composite over the given
// providers. The first provider is primary, the rest are fallbacks.
func NewFailoverProvider(logger *logrus.Logger, providers ...Provider) *FailoverProvider {
	valid := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			valid = append(valid, p)
		}
	}

	breakers := make([]*gobreaker.CircuitBreaker, len(valid))
	for i, p := range valid {
		breakers[i] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        p.GetName(),
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"provider": name,
					"from":     from.String(),
					"to":       to.String(),
				}).Warn("Email provider circuit state changed")
			},
		})
	}

	return &FailoverProvider{providers: valid, breakers: breakers, logger: logger}
}

// GetName returns the provider name
func (f *FailoverProvider) GetName() string {
	return "Failover"
}

// Send tries each provider until one succeeds
func (f *FailoverProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	if len(f.providers) == 0 {
		err := fmt.Errorf("no email providers configured")
		return &SendResult{ProviderName: f.GetName(), Success: false, Error: err}, err
	}

	var errs []string
	for i, provider := range f.providers {
		if ctx.Err() != nil {
			return &SendResult{ProviderName: f.GetName(), Success: false, Error: ctx.Err()}, ctx.Err()
		}

		result, err := f.breakers[i].Execute(func() (interface{}, error) {
			return provider.Send(ctx, message)
		})
		if err == nil {
			sendResult := result.(*SendResult)
			if i > 0 {
				f.logger.WithFields(logrus.Fields{
					"provider": provider.GetName(),
					"to":       message.To,
				}).Info("Email delivered via fallback provider")
			}
			return sendResult, nil
		}

		errs = append(errs, fmt.Sprintf("%s: %v", provider.GetName(), err))
		f.logger.WithError(err).WithField("provider", provider.GetName()).Warn("Email provider failed, trying next")
	}

	err := fmt.Errorf("all email providers failed: %s", strings.Join(errs, "; "))
	return &SendResult{ProviderName: f.GetName(), Success: false, Error: err}, err
}

// Service adapts a Provider to the Sender contract consumed by the
// business services.
type Service struct {
	provider Provider
	from     string
	fromName string
	logger   *logrus.Logger
}

// NewService creates the email service facade
func NewService(provider Provider, from, fromName string, logger *logrus.Logger) *Service {
	return &Service{provider: provider, from: from, fromName: fromName, logger: logger}
}

// SendEmail sends a single HTML email
func (s *Service) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	_, err := s.provider.Send(ctx, &Message{
		To:       to,
		Subject:  subject,
		BodyHTML: htmlBody,
		From:     s.from,
		FromName: s.fromName,
	})
	return err
}
