package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/hrms-hub/platform-service/internal/audit"
	"github.com/hrms-hub/platform-service/internal/email"
	"github.com/hrms-hub/platform-service/internal/metrics"
	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/nats"
	"github.com/hrms-hub/platform-service/internal/repository"
)

// BatchResult summarizes one expiry job run
type BatchResult struct {
	Processed    int `json:"processed"`
	Transitioned int `json:"transitioned"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
}

// SubscriptionService drives the tenant subscription state machine.
// Every transition uses a guarded update filtered on the current
// status, so concurrent or overlapping job runs settle each tenant
// exactly once.
type SubscriptionService struct {
	tenants   repository.TenantRepositoryInterface
	payments  repository.PaymentRepositoryInterface
	auditor   audit.Submitter
	sender    email.Sender
	publisher *nats.Publisher
	logger    *logrus.Logger

	expiringSoonDays int
	gracePeriodDays  int
	batchSize        int
}

// NewSubscriptionService creates the subscription lifecycle service
func NewSubscriptionService(
	tenants repository.TenantRepositoryInterface,
	payments repository.PaymentRepositoryInterface,
	auditor audit.Submitter,
	sender email.Sender,
	publisher *nats.Publisher,
	expiringSoonDays, gracePeriodDays, batchSize int,
	logger *logrus.Logger,
) *SubscriptionService {
	if expiringSoonDays <= 0 {
		expiringSoonDays = 7
	}
	if gracePeriodDays <= 0 {
		gracePeriodDays = models.GracePeriodDays
	}
	if batchSize <= 0 || batchSize > 100 {
		batchSize = 100
	}
	return &SubscriptionService{
		tenants:          tenants,
		payments:         payments,
		auditor:          auditor,
		sender:           sender,
		publisher:        publisher,
		logger:           logger,
		expiringSoonDays: expiringSoonDays,
		gracePeriodDays:  gracePeriodDays,
		batchSize:        batchSize,
	}
}

// MarkExpiringSoon moves Active tenants whose subscription ends within
// the warning window to ExpiringSoon. No email is sent here; the
// notification scheduler owns the reminder milestones.
func (s *SubscriptionService) MarkExpiringSoon(ctx context.Context) (*BatchResult, error) {
	now := time.Now().UTC()
	candidates, err := s.tenants.FindExpiringSoonCandidates(ctx, now, s.expiringSoonDays, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to find expiring-soon candidates: %w", err)
	}

	result := &BatchResult{}
	for i := range candidates {
		tenant := &candidates[i]
		result.Processed++

		transitioned, err := s.tenants.TransitionStatus(ctx, tenant.ID,
			[]models.TenantStatus{models.StatusActive},
			models.StatusExpiringSoon, nil)
		if err != nil {
			result.Failed++
			s.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("Failed to mark tenant expiring soon")
			continue
		}
		if !transitioned {
			result.Skipped++
			continue
		}
		result.Transitioned++

		s.recordTransition(ctx, tenant, models.StatusActive, models.StatusExpiringSoon,
			models.ActionTenantExpiringSoon,
			fmt.Sprintf("Subscription for %s expires within %d days", tenant.Subdomain, s.expiringSoonDays))
	}

	s.logBatch("expiring_soon", result)
	return result, nil
}

// ExpireTrials moves Trial tenants past their trial end date to Expired
// and opens the grace period
func (s *SubscriptionService) ExpireTrials(ctx context.Context) (*BatchResult, error) {
	now := time.Now().UTC()
	candidates, err := s.tenants.FindExpiredTrials(ctx, now, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired trials: %w", err)
	}

	result := &BatchResult{}
	for i := range candidates {
		tenant := &candidates[i]
		result.Processed++

		transitioned, err := s.tenants.TransitionStatus(ctx, tenant.ID,
			[]models.TenantStatus{models.StatusTrial},
			models.StatusExpired,
			map[string]interface{}{"grace_period_start_date": now})
		if err != nil {
			result.Failed++
			s.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("Failed to expire trial")
			continue
		}
		if !transitioned {
			result.Skipped++
			continue
		}
		result.Transitioned++

		s.recordTransition(ctx, tenant, models.StatusTrial, models.StatusExpired,
			models.ActionTrialExpired,
			fmt.Sprintf("Trial period ended for %s", tenant.Subdomain))

		tenant.GracePeriodStartDate = &now
		s.sendLifecycleEmail(ctx, tenant, models.NotifyExpiryDay)
	}

	s.logBatch("trial_expiry", result)
	return result, nil
}

// ExpireSubscriptions moves Active and ExpiringSoon tenants past their
// subscription end date to Expired and opens the grace period
func (s *SubscriptionService) ExpireSubscriptions(ctx context.Context) (*BatchResult, error) {
	now := time.Now().UTC()
	candidates, err := s.tenants.FindExpiredSubscriptions(ctx, now, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired subscriptions: %w", err)
	}

	result := &BatchResult{}
	for i := range candidates {
		tenant := &candidates[i]
		result.Processed++

		fromStatus := tenant.Status
		transitioned, err := s.tenants.TransitionStatus(ctx, tenant.ID,
			[]models.TenantStatus{models.StatusActive, models.StatusExpiringSoon},
			models.StatusExpired,
			map[string]interface{}{"grace_period_start_date": now})
		if err != nil {
			result.Failed++
			s.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("Failed to expire subscription")
			continue
		}
		if !transitioned {
			result.Skipped++
			continue
		}
		result.Transitioned++

		s.recordTransition(ctx, tenant, fromStatus, models.StatusExpired,
			models.ActionSubscriptionExpired,
			fmt.Sprintf("Subscription ended for %s, %d-day grace period started", tenant.Subdomain, s.gracePeriodDays))

		tenant.GracePeriodStartDate = &now
		s.sendLifecycleEmail(ctx, tenant, models.NotifyExpiryDay)
	}

	s.logBatch("subscription_expiry", result)
	return result, nil
}

// SuspendOverdueTenants suspends Expired tenants whose grace period has
// lapsed without a qualifying payment. A Paid payment dated on or after
// the grace period start cancels the suspension.
func (s *SubscriptionService) SuspendOverdueTenants(ctx context.Context) (*BatchResult, error) {
	now := time.Now().UTC()
	graceCutoff := now.AddDate(0, 0, -s.gracePeriodDays)

	candidates, err := s.tenants.FindSuspensionCandidates(ctx, graceCutoff, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to find suspension candidates: %w", err)
	}

	result := &BatchResult{}
	for i := range candidates {
		tenant := &candidates[i]
		result.Processed++

		if tenant.GracePeriodStartDate == nil {
			result.Skipped++
			continue
		}

		paid, err := s.payments.HasPaidPaymentSince(ctx, tenant.ID, *tenant.GracePeriodStartDate)
		if err != nil {
			result.Failed++
			s.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("Failed to check grace period payment")
			continue
		}
		if paid {
			result.Skipped++
			s.logger.WithField("tenant_id", tenant.ID).Info("Suspension skipped, payment received during grace period")
			continue
		}

		reason := fmt.Sprintf("Subscription payment not received within %d-day grace period", s.gracePeriodDays)
		transitioned, err := s.tenants.TransitionStatus(ctx, tenant.ID,
			[]models.TenantStatus{models.StatusExpired},
			models.StatusSuspended,
			map[string]interface{}{
				"suspension_date":   now,
				"suspension_reason": reason,
			})
		if err != nil {
			result.Failed++
			s.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("Failed to suspend tenant")
			continue
		}
		if !transitioned {
			result.Skipped++
			continue
		}
		result.Transitioned++

		s.recordTransition(ctx, tenant, models.StatusExpired, models.StatusSuspended,
			models.ActionTenantSuspended, reason)

		s.sendLifecycleEmail(ctx, tenant, models.NotifySuspension)
	}

	s.logBatch("suspension", result)
	return result, nil
}

// Suspend suspends a single tenant on an administrator's request
func (s *SubscriptionService) Suspend(ctx context.Context, tenant *models.Tenant, reason, actor string) (bool, error) {
	now := time.Now().UTC()
	transitioned, err := s.tenants.TransitionStatus(ctx, tenant.ID,
		[]models.TenantStatus{models.StatusTrial, models.StatusActive, models.StatusExpiringSoon, models.StatusExpired},
		models.StatusSuspended,
		map[string]interface{}{
			"suspension_date":   now,
			"suspension_reason": reason,
		})
	if err != nil || !transitioned {
		return transitioned, err
	}

	s.auditTransition(tenant, tenant.Status, models.StatusSuspended, models.ActionTenantSuspended, reason, actor)
	metrics.TenantTransitionsTotal.WithLabelValues(string(tenant.Status), string(models.StatusSuspended)).Inc()
	s.publishLifecycle(ctx, tenant, tenant.Status, models.StatusSuspended, reason)
	return true, nil
}

// Reactivate returns a suspended or expired tenant to Active after
// payment is settled, clearing expiry bookkeeping and extending the
// subscription one year from now.
func (s *SubscriptionService) Reactivate(ctx context.Context, tenant *models.Tenant, actor string) (bool, error) {
	now := time.Now().UTC()
	newEnd := now.AddDate(1, 0, 0)

	transitioned, err := s.tenants.TransitionStatus(ctx, tenant.ID,
		[]models.TenantStatus{models.StatusSuspended, models.StatusExpired, models.StatusExpiringSoon},
		models.StatusActive,
		map[string]interface{}{
			"subscription_end_date":   newEnd,
			"grace_period_start_date": nil,
			"suspension_date":         nil,
			"suspension_reason":       "",
		})
	if err != nil || !transitioned {
		return transitioned, err
	}

	s.auditTransition(tenant, tenant.Status, models.StatusActive, models.ActionTenantReactivated,
		fmt.Sprintf("Tenant %s reactivated, subscription extended to %s", tenant.Subdomain, newEnd.Format("2006-01-02")), actor)
	metrics.TenantTransitionsTotal.WithLabelValues(string(tenant.Status), string(models.StatusActive)).Inc()
	s.publishLifecycle(ctx, tenant, tenant.Status, models.StatusActive, "reactivated")
	return true, nil
}

func (s *SubscriptionService) recordTransition(ctx context.Context, tenant *models.Tenant, from, to models.TenantStatus, action models.AuditActionType, description string) {
	s.auditTransition(tenant, from, to, action, description, models.SystemActor)
	metrics.TenantTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	s.publishLifecycle(ctx, tenant, from, to, description)
}

func (s *SubscriptionService) auditTransition(tenant *models.Tenant, from, to models.TenantStatus, action models.AuditActionType, description, actor string) {
	meta, _ := json.Marshal(map[string]string{
		"subdomain":   tenant.Subdomain,
		"from_status": string(from),
		"to_status":   string(to),
	})
	s.auditor.Submit(&models.AuditLog{
		ActionType:  action,
		Category:    models.CategoryTenant,
		Severity:    models.SeverityWarning,
		UserID:      actor,
		TenantID:    tenant.ID,
		EntityType:  "tenant",
		EntityID:    tenant.ID.String(),
		Description: description,
		Metadata:    datatypes.JSON(meta),
	})
}

func (s *SubscriptionService) publishLifecycle(ctx context.Context, tenant *models.Tenant, from, to models.TenantStatus, reason string) {
	if err := s.publisher.PublishLifecycleEvent(ctx, &nats.LifecycleEvent{
		TenantID:   tenant.ID,
		FromStatus: string(from),
		ToStatus:   string(to),
		Reason:     reason,
	}); err != nil {
		s.logger.WithError(err).WithField("tenant_id", tenant.ID).Warn("Failed to publish lifecycle event")
	}
}

// sendLifecycleEmail delivers the transition email best-effort; a
// failure is logged and never fails the transition
func (s *SubscriptionService) sendLifecycleEmail(ctx context.Context, tenant *models.Tenant, notificationType models.NotificationType) {
	subject, body, err := email.RenderNotification(notificationType, tenant, time.Now().UTC())
	if err != nil {
		s.logger.WithError(err).WithField("tenant_id", tenant.ID).Warn("Failed to render lifecycle email")
		return
	}
	if err := s.sender.SendEmail(ctx, tenant.ContactEmail, subject, body); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"tenant_id": tenant.ID,
			"type":      notificationType,
		}).Warn("Failed to send lifecycle email")
	}
}

func (s *SubscriptionService) logBatch(job string, result *BatchResult) {
	s.logger.WithFields(logrus.Fields{
		"job":          job,
		"processed":    result.Processed,
		"transitioned": result.Transitioned,
		"skipped":      result.Skipped,
		"failed":       result.Failed,
	}).Info("Subscription batch completed")
}
