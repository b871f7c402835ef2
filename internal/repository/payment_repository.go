package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrms-hub/platform-service/internal/models"
)

// PaymentRepository handles database operations for subscription payments
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create creates a new subscription payment
func (r *PaymentRepository) Create(ctx context.Context, payment *models.SubscriptionPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPayment, error) {
	var payment models.SubscriptionPayment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// HasPaidPaymentSince reports whether the tenant has a PAID payment with
// a paid date on or after the given time. Used by the suspension job: a
// payment received during the grace period cancels suspension.
func (r *PaymentRepository) HasPaidPaymentSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SubscriptionPayment{}).
		Where("tenant_id = ? AND status = ? AND paid_date IS NOT NULL AND paid_date >= ?",
			tenantID, models.PaymentPaid, since).
		Count(&count).Error
	return count > 0, err
}

// ExistsForWindow reports whether any payment already covers the renewal
// window starting at periodStart. Guards the at-most-one-pending-payment
// invariant for the renewal pre-creation job.
func (r *PaymentRepository) ExistsForWindow(ctx context.Context, tenantID uuid.UUID, periodStart time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SubscriptionPayment{}).
		Where("tenant_id = ? AND period_start_date = ?", tenantID, periodStart).
		Count(&count).Error
	return count > 0, err
}

// MarkOverdue flips PENDING payments whose due date has passed to
// OVERDUE. Returns the number of payments updated.
func (r *PaymentRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SubscriptionPayment{}).
		Where("status = ? AND due_date < ?", models.PaymentPending, now).
		Updates(map[string]interface{}{
			"status":     models.PaymentOverdue,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
