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

	"github.com/hrms-hub/platform-service/internal/models"
)

func newNotificationFixture() (*NotificationService, *MockTenantRepository, *MockPaymentRepository, *MockNotificationLogRepository, *stubSender) {
	tenants := &MockTenantRepository{}
	payments := &MockPaymentRepository{}
	logs := &MockNotificationLogRepository{}
	sender := &stubSender{}
	svc := NewNotificationService(tenants, payments, logs, sender, 14, 100, 30, 60, testLogger())
	return svc, tenants, payments, logs, sender
}

// windowEndingIn matches a window upper bound roughly the given number
// of days from now
func windowEndingIn(days int) interface{} {
	return mock.MatchedBy(func(to time.Time) bool {
		expected := time.Now().UTC().AddDate(0, 0, days)
		return to.Sub(expected).Abs() < time.Minute
	})
}

func activeTenantExpiringIn(days int) models.Tenant {
	end := time.Now().UTC().AddDate(0, 0, days)
	return models.Tenant{
		ID:                  uuid.New(),
		Subdomain:           "acme",
		CompanyName:         "Acme Ltd",
		ContactEmail:        "billing@acme.mu",
		Status:              models.StatusActive,
		SubscriptionEndDate: &end,
	}
}

// stubEmptyMilestones wires all milestone queries to return nothing so
// individual tests can override just the window they exercise
func stubEmptyMilestones(tenants *MockTenantRepository) {
	tenants.On("FindByStatusWithExpiryBetween", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{}, nil).Maybe()
	tenants.On("FindExpiredWithGraceStartBetween", mock.Anything, mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{}, nil).Maybe()
	tenants.On("FindByStatus", mock.Anything, models.StatusSuspended, 100).
		Return([]models.Tenant{}, nil).Maybe()
}

func TestThirtyDayReminderSentExactlyOnce(t *testing.T) {
	svc, tenants, _, logs, sender := newNotificationFixture()

	tenant := activeTenantExpiringIn(25)
	tenants.On("FindByStatusWithExpiryBetween", mock.Anything, mock.Anything, mock.Anything, windowEndingIn(30), 100).
		Return([]models.Tenant{tenant}, nil)
	stubEmptyMilestones(tenants)

	logs.On("WasAttempted", mock.Anything, tenant.ID, models.NotifyReminder30Days).Return(false, nil).Once()
	logs.On("Create", mock.Anything, mock.MatchedBy(func(l *models.NotificationLog) bool {
		return l.NotificationType == models.NotifyReminder30Days && l.Success
	})).Return(nil).Once()

	result, err := svc.ProcessMilestones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "billing@acme.mu", sender.sent[0].To)

	// Second run: the attempt is on record, nothing is re-sent
	logs.On("WasAttempted", mock.Anything, tenant.ID, models.NotifyReminder30Days).Return(true, nil).Once()

	result, err = svc.ProcessMilestones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 1, result.Deduped)
	assert.Len(t, sender.sent, 1)
}

func TestFailedAttemptStillBlocksResend(t *testing.T) {
	svc, tenants, _, logs, sender := newNotificationFixture()
	sender.err = errors.New("smtp unreachable")

	tenant := activeTenantExpiringIn(5)
	tenants.On("FindByStatusWithExpiryBetween", mock.Anything, mock.Anything, mock.Anything, windowEndingIn(7), 100).
		Return([]models.Tenant{tenant}, nil)
	stubEmptyMilestones(tenants)

	logs.On("WasAttempted", mock.Anything, tenant.ID, models.NotifyReminder7Days).Return(false, nil).Once()
	// The attempt is logged with the failure recorded
	logs.On("Create", mock.Anything, mock.MatchedBy(func(l *models.NotificationLog) bool {
		return l.NotificationType == models.NotifyReminder7Days && !l.Success && l.ErrorMessage != ""
	})).Return(nil).Once()

	result, err := svc.ProcessMilestones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, sender.sent)
	logs.AssertExpectations(t)
}

func TestGracePeriodMilestones(t *testing.T) {
	svc, tenants, _, logs, sender := newNotificationFixture()

	graceStart := time.Now().UTC().AddDate(0, 0, -10)
	tenant := models.Tenant{
		ID:                   uuid.New(),
		Subdomain:            "acme",
		ContactEmail:         "billing@acme.mu",
		Status:               models.StatusExpired,
		GracePeriodStartDate: &graceStart,
	}

	tenants.On("FindByStatusWithExpiryBetween", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{}, nil)
	// Day 10 of the grace period falls in the critical window only
	tenants.On("FindExpiredWithGraceStartBetween", mock.Anything, windowEndingIn(-14), windowEndingIn(-7), 100).
		Return([]models.Tenant{tenant}, nil)
	tenants.On("FindExpiredWithGraceStartBetween", mock.Anything, mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{}, nil)
	tenants.On("FindByStatus", mock.Anything, models.StatusSuspended, 100).
		Return([]models.Tenant{}, nil)

	logs.On("WasAttempted", mock.Anything, tenant.ID, models.NotifyGracePeriodCritical).Return(false, nil)
	logs.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ProcessMilestones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	require.Len(t, sender.sent, 1)
}

func TestExpiryDayAndGraceWarningWindowsDoNotOverlap(t *testing.T) {
	svc, tenants, _, logs, sender := newNotificationFixture()

	justExpired := time.Now().UTC().Add(-2 * time.Hour)
	tenant := models.Tenant{
		ID:                   uuid.New(),
		Subdomain:            "acme",
		CompanyName:          "Acme Ltd",
		ContactEmail:         "billing@acme.mu",
		Status:               models.StatusExpired,
		SubscriptionEndDate:  &justExpired,
		GracePeriodStartDate: &justExpired,
	}

	tenants.On("FindByStatusWithExpiryBetween", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{}, nil)
	// Day 0 falls in the expiry-day window
	tenants.On("FindExpiredWithGraceStartBetween", mock.Anything, windowEndingIn(-1), windowEndingIn(0), 100).
		Return([]models.Tenant{tenant}, nil).Once()
	// The warning window stops one day back, so the same tenant is not
	// a warning candidate in the same run
	tenants.On("FindExpiredWithGraceStartBetween", mock.Anything, windowEndingIn(-7), windowEndingIn(-1), 100).
		Return([]models.Tenant{}, nil).Once()
	tenants.On("FindExpiredWithGraceStartBetween", mock.Anything, mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{}, nil)
	tenants.On("FindByStatus", mock.Anything, models.StatusSuspended, 100).
		Return([]models.Tenant{}, nil)

	logs.On("WasAttempted", mock.Anything, tenant.ID, models.NotifyExpiryDay).Return(false, nil).Once()
	logs.On("Create", mock.Anything, mock.MatchedBy(func(l *models.NotificationLog) bool {
		return l.NotificationType == models.NotifyExpiryDay
	})).Return(nil).Once()

	result, err := svc.ProcessMilestones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	require.Len(t, sender.sent, 1)
	tenants.AssertExpectations(t)
	logs.AssertExpectations(t)
}

func TestPrepareRenewalsCreatesSingleInvoice(t *testing.T) {
	svc, tenants, payments, _, _ := newNotificationFixture()

	tenant := activeTenantExpiringIn(45)
	tenants.On("FindByStatusWithExpiryBetween", mock.Anything,
		[]models.TenantStatus{models.StatusActive, models.StatusExpiringSoon},
		mock.Anything, mock.Anything, 100).
		Return([]models.Tenant{tenant}, nil)

	payments.On("ExistsForWindow", mock.Anything, tenant.ID, *tenant.SubscriptionEndDate).
		Return(false, nil).Once()
	payments.On("Create", mock.Anything, mock.MatchedBy(func(p *models.SubscriptionPayment) bool {
		return p.Status == models.PaymentPending &&
			p.TenantID == tenant.ID &&
			p.PeriodStartDate.Equal(*tenant.SubscriptionEndDate) &&
			p.PeriodEndDate.Equal(tenant.SubscriptionEndDate.AddDate(1, 0, 0))
	})).Return(nil).Once()

	created, err := svc.PrepareRenewals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Second run finds the existing invoice and creates nothing
	payments.On("ExistsForWindow", mock.Anything, tenant.ID, *tenant.SubscriptionEndDate).
		Return(true, nil).Once()

	created, err = svc.PrepareRenewals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	payments.AssertExpectations(t)
}

func TestSweepOverduePayments(t *testing.T) {
	svc, _, payments, _, _ := newNotificationFixture()

	payments.On("MarkOverdue", mock.Anything, mock.Anything).Return(int64(3), nil)

	flagged, err := svc.SweepOverduePayments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), flagged)
}
