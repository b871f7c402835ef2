package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/nats"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newSubscriptionFixture() (*SubscriptionService, *MockTenantRepository, *MockPaymentRepository, *recordingSubmitter, *stubSender) {
	tenants := &MockTenantRepository{}
	payments := &MockPaymentRepository{}
	auditor := &recordingSubmitter{}
	sender := &stubSender{}
	svc := NewSubscriptionService(tenants, payments, auditor, sender,
		nats.NewPublisher(nil, testLogger()), 7, 14, 100, testLogger())
	return svc, tenants, payments, auditor, sender
}

func expiredTenant(graceStart time.Time) models.Tenant {
	return models.Tenant{
		ID:                   uuid.New(),
		Subdomain:            "acme",
		CompanyName:          "Acme Ltd",
		ContactEmail:         "billing@acme.mu",
		Status:               models.StatusExpired,
		GracePeriodStartDate: &graceStart,
	}
}

func TestExpireSubscriptionsTransitionsAndAudits(t *testing.T) {
	svc, tenants, _, auditor, sender := newSubscriptionFixture()

	end := time.Now().UTC().AddDate(0, 0, -1)
	tenant := models.Tenant{
		ID:                  uuid.New(),
		Subdomain:           "acme",
		ContactEmail:        "billing@acme.mu",
		Status:              models.StatusExpiringSoon,
		SubscriptionEndDate: &end,
	}

	tenants.On("FindExpiredSubscriptions", mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{tenant}, nil)
	tenants.On("TransitionStatus", mock.Anything, tenant.ID,
		[]models.TenantStatus{models.StatusActive, models.StatusExpiringSoon},
		models.StatusExpired,
		mock.MatchedBy(func(updates map[string]interface{}) bool {
			_, ok := updates["grace_period_start_date"]
			return ok
		})).Return(true, nil)

	result, err := svc.ExpireSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Transitioned)

	require.Len(t, auditor.entries, 1)
	entry := auditor.entries[0]
	assert.Equal(t, models.ActionSubscriptionExpired, entry.ActionType)
	assert.Equal(t, models.SystemActor, entry.UserID)
	assert.Equal(t, tenant.ID, entry.TenantID)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "billing@acme.mu", sender.sent[0].To)
}

func TestExpireSubscriptionsIdempotentWhenGuardMisses(t *testing.T) {
	svc, tenants, _, auditor, sender := newSubscriptionFixture()

	end := time.Now().UTC().AddDate(0, 0, -1)
	tenant := models.Tenant{ID: uuid.New(), Status: models.StatusActive, SubscriptionEndDate: &end}

	tenants.On("FindExpiredSubscriptions", mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{tenant}, nil)
	// Another run already moved the tenant: the guarded update matches no rows
	tenants.On("TransitionStatus", mock.Anything, tenant.ID, mock.Anything, models.StatusExpired, mock.Anything).
		Return(false, nil)

	result, err := svc.ExpireSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Transitioned)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, auditor.entries)
	assert.Empty(t, sender.sent)
}

func TestSuspendOverdueTenants(t *testing.T) {
	svc, tenants, payments, auditor, sender := newSubscriptionFixture()

	// Grace period lapsed just past the 14-day boundary
	graceStart := time.Now().UTC().AddDate(0, 0, -14).Add(-time.Minute)
	tenant := expiredTenant(graceStart)

	tenants.On("FindSuspensionCandidates", mock.Anything,
		mock.MatchedBy(func(cutoff time.Time) bool {
			expected := time.Now().UTC().AddDate(0, 0, -14)
			return cutoff.Sub(expected).Abs() < time.Minute
		}), 100).Return([]models.Tenant{tenant}, nil)
	payments.On("HasPaidPaymentSince", mock.Anything, tenant.ID, graceStart).Return(false, nil)
	tenants.On("TransitionStatus", mock.Anything, tenant.ID,
		[]models.TenantStatus{models.StatusExpired}, models.StatusSuspended,
		mock.MatchedBy(func(updates map[string]interface{}) bool {
			_, hasDate := updates["suspension_date"]
			reason, hasReason := updates["suspension_reason"]
			return hasDate && hasReason && reason != ""
		})).Return(true, nil)

	result, err := svc.SuspendOverdueTenants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Transitioned)

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, models.ActionTenantSuspended, auditor.entries[0].ActionType)
	assert.Equal(t, models.SystemActor, auditor.entries[0].UserID)
	require.Len(t, sender.sent, 1)
}

func TestSuspensionSkippedWhenGracePaymentExists(t *testing.T) {
	svc, tenants, payments, auditor, _ := newSubscriptionFixture()

	graceStart := time.Now().UTC().AddDate(0, 0, -20)
	tenant := expiredTenant(graceStart)

	tenants.On("FindSuspensionCandidates", mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{tenant}, nil)
	payments.On("HasPaidPaymentSince", mock.Anything, tenant.ID, graceStart).Return(true, nil)

	result, err := svc.SuspendOverdueTenants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Transitioned)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, auditor.entries)
	tenants.AssertNotCalled(t, "TransitionStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSuspensionIsolatesPerTenantFailures(t *testing.T) {
	svc, tenants, payments, _, _ := newSubscriptionFixture()

	graceStart := time.Now().UTC().AddDate(0, 0, -20)
	broken := expiredTenant(graceStart)
	healthy := expiredTenant(graceStart)

	tenants.On("FindSuspensionCandidates", mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{broken, healthy}, nil)
	payments.On("HasPaidPaymentSince", mock.Anything, broken.ID, graceStart).
		Return(false, errors.New("connection reset"))
	payments.On("HasPaidPaymentSince", mock.Anything, healthy.ID, graceStart).Return(false, nil)
	tenants.On("TransitionStatus", mock.Anything, healthy.ID, mock.Anything, models.StatusSuspended, mock.Anything).
		Return(true, nil)

	result, err := svc.SuspendOverdueTenants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Transitioned)
}

func TestMarkExpiringSoonDoesNotEmail(t *testing.T) {
	svc, tenants, _, auditor, sender := newSubscriptionFixture()

	end := time.Now().UTC().AddDate(0, 0, 3)
	tenant := models.Tenant{ID: uuid.New(), Subdomain: "acme", Status: models.StatusActive, SubscriptionEndDate: &end}

	tenants.On("FindExpiringSoonCandidates", mock.Anything, mock.Anything, 7, 100).
		Return([]models.Tenant{tenant}, nil)
	tenants.On("TransitionStatus", mock.Anything, tenant.ID,
		[]models.TenantStatus{models.StatusActive}, models.StatusExpiringSoon,
		mock.Anything).Return(true, nil)

	result, err := svc.MarkExpiringSoon(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Transitioned)
	assert.Len(t, auditor.entries, 1)
	assert.Empty(t, sender.sent, "warning transition is audit-only")
}

func TestExpireTrialsSetsGracePeriod(t *testing.T) {
	svc, tenants, _, auditor, _ := newSubscriptionFixture()

	trialEnd := time.Now().UTC().AddDate(0, 0, -1)
	tenant := models.Tenant{
		ID:           uuid.New(),
		Subdomain:    "startup",
		ContactEmail: "founder@startup.mu",
		Status:       models.StatusTrial,
		TrialEndDate: &trialEnd,
	}

	tenants.On("FindExpiredTrials", mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{tenant}, nil)
	tenants.On("TransitionStatus", mock.Anything, tenant.ID,
		[]models.TenantStatus{models.StatusTrial}, models.StatusExpired,
		mock.MatchedBy(func(updates map[string]interface{}) bool {
			_, ok := updates["grace_period_start_date"]
			return ok
		})).Return(true, nil)

	result, err := svc.ExpireTrials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Transitioned)
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, models.ActionTrialExpired, auditor.entries[0].ActionType)
}

func TestBatchQueryFailurePropagates(t *testing.T) {
	svc, tenants, _, _, _ := newSubscriptionFixture()

	tenants.On("FindExpiredSubscriptions", mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{}, errors.New("db down"))

	_, err := svc.ExpireSubscriptions(context.Background())
	assert.Error(t, err)
}
