package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/hrms-hub/platform-service/internal/models"
)

// MockTenantRepository is a mock implementation of TenantRepositoryInterface
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) List(ctx context.Context, limit, offset int) ([]models.Tenant, int64, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Tenant), args.Get(1).(int64), args.Error(2)
}

func (m *MockTenantRepository) FindExpiringSoonCandidates(ctx context.Context, now time.Time, withinDays, limit int) ([]models.Tenant, error) {
	args := m.Called(ctx, now, withinDays, limit)
	return args.Get(0).([]models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindExpiredTrials(ctx context.Context, now time.Time, limit int) ([]models.Tenant, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindExpiredSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Tenant, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindSuspensionCandidates(ctx context.Context, graceCutoff time.Time, limit int) ([]models.Tenant, error) {
	args := m.Called(ctx, graceCutoff, limit)
	return args.Get(0).([]models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByStatusWithExpiryBetween(ctx context.Context, statuses []models.TenantStatus, from, to time.Time, limit int) ([]models.Tenant, error) {
	args := m.Called(ctx, statuses, from, to, limit)
	return args.Get(0).([]models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindExpiredWithGraceStartBetween(ctx context.Context, from, to time.Time, limit int) ([]models.Tenant, error) {
	args := m.Called(ctx, from, to, limit)
	return args.Get(0).([]models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByStatus(ctx context.Context, status models.TenantStatus, limit int) ([]models.Tenant, error) {
	args := m.Called(ctx, status, limit)
	return args.Get(0).([]models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) TransitionStatus(ctx context.Context, tenantID uuid.UUID, fromStatuses []models.TenantStatus, to models.TenantStatus, updates map[string]interface{}) (bool, error) {
	args := m.Called(ctx, tenantID, fromStatuses, to, updates)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) SoftDelete(ctx context.Context, tenantID uuid.UUID, deletedBy string) error {
	args := m.Called(ctx, tenantID, deletedBy)
	return args.Error(0)
}

func (m *MockTenantRepository) HardDelete(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of PaymentRepositoryInterface
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *models.SubscriptionPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionPayment), args.Error(1)
}

func (m *MockPaymentRepository) HasPaidPaymentSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, since)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) ExistsForWindow(ctx context.Context, tenantID uuid.UUID, periodStart time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, periodStart)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockNotificationLogRepository is a mock implementation of NotificationLogRepositoryInterface
type MockNotificationLogRepository struct {
	mock.Mock
}

func (m *MockNotificationLogRepository) WasAttempted(ctx context.Context, tenantID uuid.UUID, notificationType models.NotificationType) (bool, error) {
	args := m.Called(ctx, tenantID, notificationType)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationLogRepository) Create(ctx context.Context, log *models.NotificationLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

// MockDeviceKeyRepository is a mock implementation of DeviceKeyRepositoryInterface
type MockDeviceKeyRepository struct {
	mock.Mock
}

func (m *MockDeviceKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*models.DeviceAPIKey, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeviceAPIKey), args.Error(1)
}

func (m *MockDeviceKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// recordingSubmitter captures audit entries synchronously
type recordingSubmitter struct {
	entries []*models.AuditLog
}

func (r *recordingSubmitter) Submit(entry *models.AuditLog) bool {
	r.entries = append(r.entries, entry)
	return true
}

// stubSender records sent emails and optionally fails
type stubSender struct {
	sent []sentEmail
	err  error
}

type sentEmail struct {
	To      string
	Subject string
}

func (s *stubSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEmail{To: to, Subject: subject})
	return nil
}
