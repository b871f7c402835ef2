package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the state of a subscription payment
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "PENDING"
	PaymentPaid          PaymentStatus = "PAID"
	PaymentOverdue       PaymentStatus = "OVERDUE"
	PaymentFailed        PaymentStatus = "FAILED"
	PaymentRefunded      PaymentStatus = "REFUNDED"
	PaymentPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentWaived        PaymentStatus = "WAIVED"
)

// SubscriptionPayment represents one renewal invoice for a tenant.
// At most one PENDING payment exists per tenant per renewal window.
type SubscriptionPayment struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID uuid.UUID `json:"tenantId" gorm:"type:uuid;not null;index"`

	Status    PaymentStatus `json:"status" gorm:"type:varchar(20);not null;index;default:'PENDING'"`
	AmountMUR float64       `json:"amountMur" gorm:"type:numeric(12,2)"`

	// Renewal window covered by this payment
	PeriodStartDate time.Time  `json:"periodStartDate" gorm:"not null;index"`
	PeriodEndDate   time.Time  `json:"periodEndDate" gorm:"not null"`
	DueDate         time.Time  `json:"dueDate" gorm:"not null;index"`
	PaidDate        *time.Time `json:"paidDate"`

	PaymentMethod string `json:"paymentMethod" gorm:"type:varchar(50)"`
	Reference     string `json:"reference" gorm:"type:varchar(100)"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (SubscriptionPayment) TableName() string {
	return "subscription_payments"
}

// IsPaid returns true if the payment settled
func (p *SubscriptionPayment) IsPaid() bool {
	return p.Status == PaymentPaid
}

// CoversGracePeriod reports whether this payment was made during the
// grace period starting at graceStart, which cancels a pending suspension.
func (p *SubscriptionPayment) CoversGracePeriod(graceStart time.Time) bool {
	return p.Status == PaymentPaid && p.PaidDate != nil && !p.PaidDate.Before(graceStart)
}
