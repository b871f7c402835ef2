package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hrms-hub/platform-service/internal/models"
)

const rawDeviceKey = "dk_12345-rest-of-the-secret-key"

func newDeviceKey(t *testing.T) *models.DeviceAPIKey {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(rawDeviceKey), bcrypt.MinCost)
	require.NoError(t, err)

	return &models.DeviceAPIKey{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		DeviceID:  "clock-entrance-01",
		KeyPrefix: rawDeviceKey[:8],
		KeyHash:   string(hash),
		IsActive:  true,
	}
}

func operationalTenant(id uuid.UUID) *models.Tenant {
	return &models.Tenant{ID: id, Status: models.StatusActive, SchemaName: "tenant_acme"}
}

func TestValidateAPIKeySuccess(t *testing.T) {
	keys := &MockDeviceKeyRepository{}
	tenants := &MockTenantRepository{}
	key := newDeviceKey(t)

	keys.On("GetByPrefix", mock.Anything, key.KeyPrefix).Return(key, nil)
	keys.On("TouchLastUsed", mock.Anything, key.ID, mock.Anything).Return(nil)
	tenants.On("GetByID", mock.Anything, key.TenantID).Return(operationalTenant(key.TenantID), nil)

	svc := NewDeviceKeyService(keys, tenants, nil, testLogger())
	validated, schema, err := svc.ValidateAPIKey(context.Background(), rawDeviceKey, "10.0.0.5")

	require.NoError(t, err)
	assert.Equal(t, key.DeviceID, validated.DeviceID)
	assert.Equal(t, "tenant_acme", schema)
}

func TestValidateAPIKeyRejectsWrongSecret(t *testing.T) {
	keys := &MockDeviceKeyRepository{}
	key := newDeviceKey(t)
	keys.On("GetByPrefix", mock.Anything, key.KeyPrefix).Return(key, nil)

	svc := NewDeviceKeyService(keys, &MockTenantRepository{}, nil, testLogger())
	_, _, err := svc.ValidateAPIKey(context.Background(), key.KeyPrefix+"-wrong-secret-material", "10.0.0.5")

	assert.ErrorIs(t, err, ErrDeviceKeyInvalid)
}

func TestValidateAPIKeyRejectsUnknownPrefix(t *testing.T) {
	keys := &MockDeviceKeyRepository{}
	keys.On("GetByPrefix", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	svc := NewDeviceKeyService(keys, &MockTenantRepository{}, nil, testLogger())
	_, _, err := svc.ValidateAPIKey(context.Background(), rawDeviceKey, "10.0.0.5")

	assert.ErrorIs(t, err, ErrDeviceKeyInvalid)
}

func TestValidateAPIKeyRejectsExpired(t *testing.T) {
	keys := &MockDeviceKeyRepository{}
	key := newDeviceKey(t)
	expired := time.Now().UTC().Add(-time.Hour)
	key.ExpiresAt = &expired
	keys.On("GetByPrefix", mock.Anything, key.KeyPrefix).Return(key, nil)

	svc := NewDeviceKeyService(keys, &MockTenantRepository{}, nil, testLogger())
	_, _, err := svc.ValidateAPIKey(context.Background(), rawDeviceKey, "10.0.0.5")

	assert.ErrorIs(t, err, ErrDeviceKeyExpired)
}

func TestValidateAPIKeyEnforcesIPAllowList(t *testing.T) {
	keys := &MockDeviceKeyRepository{}
	key := newDeviceKey(t)
	key.AllowedIPs = "10.0.0.5, 10.0.0.6"
	keys.On("GetByPrefix", mock.Anything, key.KeyPrefix).Return(key, nil)

	svc := NewDeviceKeyService(keys, &MockTenantRepository{}, nil, testLogger())
	_, _, err := svc.ValidateAPIKey(context.Background(), rawDeviceKey, "192.0.2.1")

	assert.ErrorIs(t, err, ErrDeviceIPNotAllowed)
}

func TestValidateAPIKeyFailsClosedOnInfrastructureError(t *testing.T) {
	keys := &MockDeviceKeyRepository{}
	keys.On("GetByPrefix", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	svc := NewDeviceKeyService(keys, &MockTenantRepository{}, nil, testLogger())
	_, _, err := svc.ValidateAPIKey(context.Background(), rawDeviceKey, "10.0.0.5")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDeviceKeyInvalid)
	assert.NotErrorIs(t, err, ErrDeviceKeyExpired)
}

func TestValidateAPIKeyRejectsNonOperationalTenant(t *testing.T) {
	keys := &MockDeviceKeyRepository{}
	tenants := &MockTenantRepository{}
	key := newDeviceKey(t)

	keys.On("GetByPrefix", mock.Anything, key.KeyPrefix).Return(key, nil)
	tenants.On("GetByID", mock.Anything, key.TenantID).
		Return(&models.Tenant{ID: key.TenantID, Status: models.StatusSuspended}, nil)

	svc := NewDeviceKeyService(keys, tenants, nil, testLogger())
	_, _, err := svc.ValidateAPIKey(context.Background(), rawDeviceKey, "10.0.0.5")

	assert.ErrorIs(t, err, ErrDeviceKeyInvalid)
}
