package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrms-hub/platform-service/internal/models"
)

// NotificationLogRepository handles the milestone notification dedup log
type NotificationLogRepository struct {
	db *gorm.DB
}

// NewNotificationLogRepository creates a new notification log repository
func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// WasAttempted reports whether any send attempt exists for the
// (tenant, milestone) pair. Failed attempts count: a milestone is never
// re-sent after a failed delivery.
func (r *NotificationLogRepository) WasAttempted(ctx context.Context, tenantID uuid.UUID, notificationType models.NotificationType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.NotificationLog{}).
		Where("tenant_id = ? AND notification_type = ?", tenantID, notificationType).
		Count(&count).Error
	return count > 0, err
}

// Create appends a send-attempt record. Rows are never updated or
// deleted afterwards.
func (r *NotificationLogRepository) Create(ctx context.Context, log *models.NotificationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
