package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hrms-hub/platform-service/internal/email"
	"github.com/hrms-hub/platform-service/internal/metrics"
	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/repository"
)

// reminderMilestones maps pre-expiry reminders to their day offset
var reminderMilestones = []struct {
	notificationType models.NotificationType
	days             int
}{
	{models.NotifyReminder30Days, 30},
	{models.NotifyReminder15Days, 15},
	{models.NotifyReminder7Days, 7},
	{models.NotifyReminder3Days, 3},
	{models.NotifyReminder1Day, 1},
}

// NotificationResult summarizes one scheduler run
type NotificationResult struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Deduped    int `json:"deduped"`
}

// NotificationService drives the milestone notification schedule.
// Delivery is at-most-once: every attempt is logged, and any prior
// attempt for a (tenant, milestone) pair, failed or not, blocks a
// re-send.
type NotificationService struct {
	tenants  repository.TenantRepositoryInterface
	payments repository.PaymentRepositoryInterface
	logs     repository.NotificationLogRepositoryInterface
	sender   email.Sender
	logger   *logrus.Logger

	gracePeriodDays      int
	batchSize            int
	renewalWindowMinDays int
	renewalWindowMaxDays int
}

// NewNotificationService creates the milestone notification service
func NewNotificationService(
	tenants repository.TenantRepositoryInterface,
	payments repository.PaymentRepositoryInterface,
	logs repository.NotificationLogRepositoryInterface,
	sender email.Sender,
	gracePeriodDays, batchSize, renewalWindowMinDays, renewalWindowMaxDays int,
	logger *logrus.Logger,
) *NotificationService {
	if gracePeriodDays <= 0 {
		gracePeriodDays = models.GracePeriodDays
	}
	if batchSize <= 0 || batchSize > 100 {
		batchSize = 100
	}
	if renewalWindowMinDays <= 0 {
		renewalWindowMinDays = 30
	}
	if renewalWindowMaxDays <= renewalWindowMinDays {
		renewalWindowMaxDays = renewalWindowMinDays + 30
	}
	return &NotificationService{
		tenants:              tenants,
		payments:             payments,
		logs:                 logs,
		sender:               sender,
		logger:               logger,
		gracePeriodDays:      gracePeriodDays,
		batchSize:            batchSize,
		renewalWindowMinDays: renewalWindowMinDays,
		renewalWindowMaxDays: renewalWindowMaxDays,
	}
}

// ProcessMilestones evaluates all nine milestones against the current
// tenant population and sends whatever is due and not yet attempted
func (s *NotificationService) ProcessMilestones(ctx context.Context) (*NotificationResult, error) {
	now := time.Now().UTC()
	result := &NotificationResult{}

	activeStatuses := []models.TenantStatus{models.StatusActive, models.StatusExpiringSoon}

	// Pre-expiry reminders. The window for each milestone runs from now
	// to now+N days: a tenant that slipped past an earlier milestone
	// still gets the later ones, and dedup keeps each one single-shot.
	for _, milestone := range reminderMilestones {
		to := now.AddDate(0, 0, milestone.days)
		candidates, err := s.tenants.FindByStatusWithExpiryBetween(ctx, activeStatuses, now, to, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to find %s candidates: %w", milestone.notificationType, err)
		}
		s.dispatch(ctx, candidates, milestone.notificationType, now, result)
	}

	// Expiry day: tenants that entered the grace period in the last day
	expired, err := s.tenants.FindExpiredWithGraceStartBetween(ctx, now.AddDate(0, 0, -1), now, s.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to find expiry-day candidates: %w", err)
	}
	s.dispatch(ctx, expired, models.NotifyExpiryDay, now, result)

	// Grace period warning: days 1 through 7 after expiry. Day 0 is
	// excluded so the expiry-day notice and the first warning never
	// land in the same run.
	warning, err := s.tenants.FindExpiredWithGraceStartBetween(ctx, now.AddDate(0, 0, -7), now.AddDate(0, 0, -1), s.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to find grace-warning candidates: %w", err)
	}
	s.dispatch(ctx, warning, models.NotifyGracePeriodWarning, now, result)

	// Grace period critical: days 8 through 14 after expiry
	critical, err := s.tenants.FindExpiredWithGraceStartBetween(ctx, now.AddDate(0, 0, -s.gracePeriodDays), now.AddDate(0, 0, -7), s.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to find grace-critical candidates: %w", err)
	}
	s.dispatch(ctx, critical, models.NotifyGracePeriodCritical, now, result)

	// Suspension notice
	suspended, err := s.tenants.FindByStatus(ctx, models.StatusSuspended, s.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to find suspension candidates: %w", err)
	}
	s.dispatch(ctx, suspended, models.NotifySuspension, now, result)

	s.logger.WithFields(logrus.Fields{
		"candidates": result.Candidates,
		"sent":       result.Sent,
		"failed":     result.Failed,
		"deduped":    result.Deduped,
	}).Info("Notification milestones processed")

	return result, nil
}

// dispatch sends one milestone to each candidate that has no prior
// attempt. Per-tenant failures are isolated.
func (s *NotificationService) dispatch(ctx context.Context, candidates []models.Tenant, notificationType models.NotificationType, now time.Time, result *NotificationResult) {
	for i := range candidates {
		tenant := &candidates[i]
		result.Candidates++

		attempted, err := s.logs.WasAttempted(ctx, tenant.ID, notificationType)
		if err != nil {
			result.Failed++
			s.logger.WithError(err).WithFields(logrus.Fields{
				"tenant_id": tenant.ID,
				"type":      notificationType,
			}).Error("Failed to check notification history")
			continue
		}
		if attempted {
			result.Deduped++
			continue
		}

		if s.sendMilestone(ctx, tenant, notificationType, now) {
			result.Sent++
		} else {
			result.Failed++
		}
	}
}

// sendMilestone renders and sends one milestone email and records the
// attempt regardless of outcome
func (s *NotificationService) sendMilestone(ctx context.Context, tenant *models.Tenant, notificationType models.NotificationType, now time.Time) bool {
	subject, body, sendErr := email.RenderNotification(notificationType, tenant, now)
	if sendErr == nil {
		sendErr = s.sender.SendEmail(ctx, tenant.ContactEmail, subject, body)
	}

	entry := &models.NotificationLog{
		TenantID:         tenant.ID,
		NotificationType: notificationType,
		RecipientEmail:   tenant.ContactEmail,
		Success:          sendErr == nil,
		SentAt:           now,
	}
	outcome := "success"
	if sendErr != nil {
		entry.ErrorMessage = sendErr.Error()
		outcome = "failure"
		s.logger.WithError(sendErr).WithFields(logrus.Fields{
			"tenant_id": tenant.ID,
			"type":      notificationType,
		}).Warn("Milestone notification failed")
	}
	metrics.NotificationsSentTotal.WithLabelValues(string(notificationType), outcome).Inc()

	if err := s.logs.Create(ctx, entry); err != nil {
		// Without the log row the dedup guard is gone, so this is louder
		// than the send failure itself
		s.logger.WithError(err).WithFields(logrus.Fields{
			"tenant_id": tenant.ID,
			"type":      notificationType,
		}).Error("Failed to record notification attempt")
	}

	return sendErr == nil
}

// PrepareRenewals creates one Pending renewal invoice for each tenant
// whose subscription ends inside the renewal window and has no invoice
// for that period yet
func (s *NotificationService) PrepareRenewals(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, s.renewalWindowMinDays)
	to := now.AddDate(0, 0, s.renewalWindowMaxDays)

	candidates, err := s.tenants.FindByStatusWithExpiryBetween(ctx,
		[]models.TenantStatus{models.StatusActive, models.StatusExpiringSoon}, from, to, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find renewal candidates: %w", err)
	}

	created := 0
	for i := range candidates {
		tenant := &candidates[i]
		if tenant.SubscriptionEndDate == nil {
			continue
		}

		periodStart := *tenant.SubscriptionEndDate
		exists, err := s.payments.ExistsForWindow(ctx, tenant.ID, periodStart)
		if err != nil {
			s.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("Failed to check renewal invoice")
			continue
		}
		if exists {
			continue
		}

		payment := &models.SubscriptionPayment{
			TenantID:        tenant.ID,
			Status:          models.PaymentPending,
			AmountMUR:       tenant.YearlyPriceMUR,
			PeriodStartDate: periodStart,
			PeriodEndDate:   periodStart.AddDate(1, 0, 0),
			DueDate:         periodStart,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			s.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("Failed to create renewal invoice")
			continue
		}
		created++
	}

	s.logger.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"created":    created,
	}).Info("Renewal invoices prepared")

	return created, nil
}

// SweepOverduePayments flags Pending invoices past their due date
func (s *NotificationService) SweepOverduePayments(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	flagged, err := s.payments.MarkOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep overdue payments: %w", err)
	}
	if flagged > 0 {
		s.logger.WithField("flagged", flagged).Info("Pending payments marked overdue")
	}
	return flagged, nil
}
