package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrms-hub/platform-service/internal/models"
)

// DeviceKeyRepository handles database operations for device API keys
type DeviceKeyRepository struct {
	db *gorm.DB
}

// NewDeviceKeyRepository creates a new device key repository
func NewDeviceKeyRepository(db *gorm.DB) *DeviceKeyRepository {
	return &DeviceKeyRepository{db: db}
}

// GetByPrefix retrieves an active device key by its clear-text prefix
func (r *DeviceKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*models.DeviceAPIKey, error) {
	var key models.DeviceAPIKey
	err := r.db.WithContext(ctx).
		Where("key_prefix = ? AND is_active = ?", prefix, true).
		First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// TouchLastUsed records the last successful use of the key
func (r *DeviceKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.DeviceAPIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
