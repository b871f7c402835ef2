package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/redis"
	"github.com/hrms-hub/platform-service/internal/repository"
)

// Validation failures callers can distinguish from infrastructure
// errors. Anything else returned by ValidateAPIKey means the check
// itself could not run and the request must be failed closed.
var (
	ErrDeviceKeyInvalid   = errors.New("device api key invalid")
	ErrDeviceKeyExpired   = errors.New("device api key expired")
	ErrDeviceIPNotAllowed = errors.New("source ip not in device allow-list")
	ErrDeviceRateLimited  = errors.New("device rate limit exceeded")
)

const deviceKeyPrefixLen = 8

// DeviceKeyService validates biometric device API keys
type DeviceKeyService struct {
	keys    repository.DeviceKeyRepositoryInterface
	tenants repository.TenantRepositoryInterface
	cache   *redis.Client
	logger  *logrus.Logger
}

// NewDeviceKeyService creates a device key service
func NewDeviceKeyService(keys repository.DeviceKeyRepositoryInterface, tenants repository.TenantRepositoryInterface, cache *redis.Client, logger *logrus.Logger) *DeviceKeyService {
	return &DeviceKeyService{keys: keys, tenants: tenants, cache: cache, logger: logger}
}

// ValidateAPIKey validates a raw device API key presented by clientIP.
// On success it returns the key record and the schema name of the
// owning tenant. Validation failures return one of the sentinel errors
// above; any other error is an infrastructure failure.
func (s *DeviceKeyService) ValidateAPIKey(ctx context.Context, rawKey, clientIP string) (*models.DeviceAPIKey, string, error) {
	if len(rawKey) <= deviceKeyPrefixLen {
		return nil, "", ErrDeviceKeyInvalid
	}

	key, err := s.keys.GetByPrefix(ctx, rawKey[:deviceKeyPrefixLen])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrDeviceKeyInvalid
	}
	if err != nil {
		return nil, "", fmt.Errorf("device key lookup failed: %w", err)
	}
	if !key.IsActive {
		return nil, "", ErrDeviceKeyInvalid
	}

	if err := bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)); err != nil {
		return nil, "", ErrDeviceKeyInvalid
	}

	now := time.Now().UTC()
	if key.IsExpired(now) {
		return nil, "", ErrDeviceKeyExpired
	}
	if !key.AllowsIP(clientIP) {
		s.logger.WithFields(logrus.Fields{
			"device_id": key.DeviceID,
			"ip":        clientIP,
		}).Warn("Device request from disallowed IP")
		return nil, "", ErrDeviceIPNotAllowed
	}

	if key.RateLimitPerMinute > 0 {
		count, err := s.cache.IncrementRateCounter(ctx, key.DeviceID, time.Minute)
		if err != nil {
			return nil, "", fmt.Errorf("device rate counter failed: %w", err)
		}
		if count > int64(key.RateLimitPerMinute) {
			return nil, "", ErrDeviceRateLimited
		}
	}

	tenant, err := s.tenants.GetByID(ctx, key.TenantID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrDeviceKeyInvalid
	}
	if err != nil {
		return nil, "", fmt.Errorf("device tenant lookup failed: %w", err)
	}
	if !tenant.IsOperational() {
		return nil, "", ErrDeviceKeyInvalid
	}

	if err := s.keys.TouchLastUsed(ctx, key.ID, now); err != nil {
		// Usage tracking only, never blocks the sync
		s.logger.WithError(err).WithField("device_id", key.DeviceID).Warn("Failed to update device last-used timestamp")
	}

	return key, tenant.SchemaName, nil
}
