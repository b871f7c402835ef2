package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hrms-hub/platform-service/internal/models"
)

// TenantRepositoryInterface defines tenant persistence operations
type TenantRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]models.Tenant, int64, error)

	// Candidate queries for the expiry state machine. All predicates
	// filter on the current status so overlapping job runs are no-ops.
	FindExpiringSoonCandidates(ctx context.Context, now time.Time, withinDays, limit int) ([]models.Tenant, error)
	FindExpiredTrials(ctx context.Context, now time.Time, limit int) ([]models.Tenant, error)
	FindExpiredSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Tenant, error)
	FindSuspensionCandidates(ctx context.Context, graceCutoff time.Time, limit int) ([]models.Tenant, error)

	// Candidate queries for the notification scheduler
	FindByStatusWithExpiryBetween(ctx context.Context, statuses []models.TenantStatus, from, to time.Time, limit int) ([]models.Tenant, error)
	FindExpiredWithGraceStartBetween(ctx context.Context, from, to time.Time, limit int) ([]models.Tenant, error)
	FindByStatus(ctx context.Context, status models.TenantStatus, limit int) ([]models.Tenant, error)

	// TransitionStatus performs a guarded status update: the row is
	// only touched when its current status is one of fromStatuses.
	// Returns false when the guard did not match (already transitioned).
	TransitionStatus(ctx context.Context, tenantID uuid.UUID, fromStatuses []models.TenantStatus, to models.TenantStatus, updates map[string]interface{}) (bool, error)

	SoftDelete(ctx context.Context, tenantID uuid.UUID, deletedBy string) error
	HardDelete(ctx context.Context, tenantID uuid.UUID) error
}

// PaymentRepositoryInterface defines subscription payment operations
type PaymentRepositoryInterface interface {
	Create(ctx context.Context, payment *models.SubscriptionPayment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPayment, error)
	HasPaidPaymentSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (bool, error)
	ExistsForWindow(ctx context.Context, tenantID uuid.UUID, periodStart time.Time) (bool, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// NotificationLogRepositoryInterface defines notification dedup log operations
type NotificationLogRepositoryInterface interface {
	// WasAttempted reports whether any send attempt (successful or not)
	// exists for the (tenant, milestone) pair. Any attempt blocks a
	// re-send: delivery is at-most-once, not at-least-once.
	WasAttempted(ctx context.Context, tenantID uuid.UUID, notificationType models.NotificationType) (bool, error)
	Create(ctx context.Context, log *models.NotificationLog) error
}

// AuditRepositoryInterface defines audit log persistence operations
type AuditRepositoryInterface interface {
	Create(ctx context.Context, log *models.AuditLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)
	List(ctx context.Context, filter *models.AuditLogFilter) ([]models.AuditLog, int64, error)
	Export(ctx context.Context, filter *models.AuditLogFilter) ([]models.AuditLog, error)

	// FindForVerification loads records with a non-empty checksum
	// performed after the cutoff, for tamper re-verification.
	FindForVerification(ctx context.Context, since time.Time) ([]models.AuditLog, error)

	// ArchiveOlderThan flags (never deletes) records past the retention
	// horizon. Returns the number of rows flagged.
	ArchiveOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// DeviceKeyRepositoryInterface defines device API key lookups
type DeviceKeyRepositoryInterface interface {
	GetByPrefix(ctx context.Context, prefix string) (*models.DeviceAPIKey, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}
