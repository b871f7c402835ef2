package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrms-hub/platform-service/internal/models"
)

// TenantRepository handles database operations for tenants
type TenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetBySubdomain retrieves a non-deleted tenant by subdomain
func (r *TenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).
		Where("subdomain = ? AND is_deleted = ?", subdomain, false).
		First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// List retrieves tenants with pagination
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]models.Tenant, int64, error) {
	var tenants []models.Tenant
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Tenant{}).Where("is_deleted = ?", false)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&tenants).Error; err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

// FindExpiringSoonCandidates returns ACTIVE tenants whose subscription
// ends within the given window
func (r *TenantRepository) FindExpiringSoonCandidates(ctx context.Context, now time.Time, withinDays, limit int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	cutoff := now.AddDate(0, 0, withinDays)
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_deleted = ?", models.StatusActive, false).
		Where("subscription_end_date IS NOT NULL AND subscription_end_date > ? AND subscription_end_date <= ?", now, cutoff).
		Limit(limit).
		Find(&tenants).Error
	return tenants, err
}

// FindExpiredTrials returns TRIAL tenants whose trial has ended
func (r *TenantRepository) FindExpiredTrials(ctx context.Context, now time.Time, limit int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_deleted = ?", models.StatusTrial, false).
		Where("trial_end_date IS NOT NULL AND trial_end_date <= ?", now).
		Limit(limit).
		Find(&tenants).Error
	return tenants, err
}

// FindExpiredSubscriptions returns ACTIVE or EXPIRING_SOON tenants whose
// subscription end date has passed
func (r *TenantRepository) FindExpiredSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.WithContext(ctx).
		Where("status IN ? AND is_deleted = ?", []models.TenantStatus{models.StatusActive, models.StatusExpiringSoon}, false).
		Where("subscription_end_date IS NOT NULL AND subscription_end_date <= ?", now).
		Limit(limit).
		Find(&tenants).Error
	return tenants, err
}

// FindSuspensionCandidates returns EXPIRED tenants whose grace period
// started on or before the cutoff
func (r *TenantRepository) FindSuspensionCandidates(ctx context.Context, graceCutoff time.Time, limit int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_deleted = ?", models.StatusExpired, false).
		Where("grace_period_start_date IS NOT NULL AND grace_period_start_date <= ?", graceCutoff).
		Limit(limit).
		Find(&tenants).Error
	return tenants, err
}

// FindByStatusWithExpiryBetween returns tenants in the given statuses
// whose subscription end date falls inside [from, to)
func (r *TenantRepository) FindByStatusWithExpiryBetween(ctx context.Context, statuses []models.TenantStatus, from, to time.Time, limit int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.WithContext(ctx).
		Where("status IN ? AND is_deleted = ?", statuses, false).
		Where("subscription_end_date >= ? AND subscription_end_date < ?", from, to).
		Limit(limit).
		Find(&tenants).Error
	return tenants, err
}

// FindExpiredWithGraceStartBetween returns EXPIRED tenants whose grace
// period began inside [from, to)
func (r *TenantRepository) FindExpiredWithGraceStartBetween(ctx context.Context, from, to time.Time, limit int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_deleted = ?", models.StatusExpired, false).
		Where("grace_period_start_date >= ? AND grace_period_start_date < ?", from, to).
		Limit(limit).
		Find(&tenants).Error
	return tenants, err
}

// FindByStatus returns tenants in the given status
func (r *TenantRepository) FindByStatus(ctx context.Context, status models.TenantStatus, limit int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_deleted = ?", status, false).
		Limit(limit).
		Find(&tenants).Error
	return tenants, err
}

// TransitionStatus performs a guarded status update. The WHERE clause
// on the current status is what makes overlapping job runs safe: a
// tenant already moved to the target state matches no rows.
func (r *TenantRepository) TransitionStatus(ctx context.Context, tenantID uuid.UUID, fromStatuses []models.TenantStatus, to models.TenantStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ? AND status IN ?", tenantID, fromStatuses).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SoftDelete marks a tenant deleted without removing the row
func (r *TenantRepository) SoftDelete(ctx context.Context, tenantID uuid.UUID, deletedBy string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ? AND is_deleted = ?", tenantID, false).
		Updates(map[string]interface{}{
			"status":     models.StatusSoftDeleted,
			"is_deleted": true,
			"deleted_at": now,
			"deleted_by": deletedBy,
		}).Error
}

// HardDelete permanently removes a tenant row. Callers must audit this
// through the dedicated hard-delete path before invoking it.
func (r *TenantRepository) HardDelete(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Tenant{}, "id = ?", tenantID).Error
}
