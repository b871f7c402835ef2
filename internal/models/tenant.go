package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantStatus represents the lifecycle state of a tenant subscription
type TenantStatus string

const (
	StatusPending      TenantStatus = "PENDING"
	StatusTrial        TenantStatus = "TRIAL"
	StatusActive       TenantStatus = "ACTIVE"
	StatusExpiringSoon TenantStatus = "EXPIRING_SOON"
	StatusExpired      TenantStatus = "EXPIRED"
	StatusSuspended    TenantStatus = "SUSPENDED"
	StatusSoftDeleted  TenantStatus = "SOFT_DELETED"
)

// EmployeeTier represents the pricing tier based on employee count
type EmployeeTier string

const (
	TierMicro      EmployeeTier = "MICRO"      // up to 10 employees
	TierSmall      EmployeeTier = "SMALL"      // up to 50 employees
	TierMedium     EmployeeTier = "MEDIUM"     // up to 200 employees
	TierEnterprise EmployeeTier = "ENTERPRISE" // unlimited
)

// GracePeriodDays is the number of days after expiry before suspension
const GracePeriodDays = 14

// Tenant represents an isolated customer organization, identified by
// subdomain and mapped to its own database schema
type Tenant struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`

	// Identity
	Subdomain    string `json:"subdomain" gorm:"type:varchar(63);uniqueIndex;not null"`
	SchemaName   string `json:"schemaName" gorm:"type:varchar(63);uniqueIndex;not null"`
	CompanyName  string `json:"companyName" gorm:"type:varchar(255);not null"`
	ContactEmail string `json:"contactEmail" gorm:"type:varchar(255);not null"`

	// Lifecycle
	Status TenantStatus `json:"status" gorm:"type:varchar(20);not null;index;default:'PENDING'"`

	// Billing
	YearlyPriceMUR float64      `json:"yearlyPriceMur" gorm:"type:numeric(12,2)"`
	EmployeeTier   EmployeeTier `json:"employeeTier" gorm:"type:varchar(20);default:'SMALL'"`

	// Subscription dates (all UTC)
	TrialEndDate         *time.Time `json:"trialEndDate" gorm:"index"`
	SubscriptionEndDate  *time.Time `json:"subscriptionEndDate" gorm:"index"`
	GracePeriodStartDate *time.Time `json:"gracePeriodStartDate" gorm:"index"`
	SuspensionDate       *time.Time `json:"suspensionDate"`
	SuspensionReason     string     `json:"suspensionReason" gorm:"type:text"`

	// Soft delete
	IsDeleted bool       `json:"isDeleted" gorm:"default:false;index"`
	DeletedAt *time.Time `json:"deletedAt"`
	DeletedBy string     `json:"deletedBy" gorm:"type:varchar(255)"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate hook to default a schema name derived from the subdomain
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.SchemaName == "" && t.Subdomain != "" {
		t.SchemaName = "tenant_" + t.Subdomain
	}
	return nil
}

// IsOperational returns true if the tenant can serve requests
func (t *Tenant) IsOperational() bool {
	switch t.Status {
	case StatusTrial, StatusActive, StatusExpiringSoon, StatusExpired:
		// Expired tenants keep access during the grace period
		return !t.IsDeleted
	default:
		return false
	}
}

// InGracePeriod returns true if the tenant is inside the post-expiry grace window
func (t *Tenant) InGracePeriod(now time.Time) bool {
	if t.Status != StatusExpired || t.GracePeriodStartDate == nil {
		return false
	}
	return now.Before(t.GracePeriodStartDate.AddDate(0, 0, GracePeriodDays))
}

// DaysUntilExpiry returns whole days until SubscriptionEndDate (negative if past)
func (t *Tenant) DaysUntilExpiry(now time.Time) int {
	if t.SubscriptionEndDate == nil {
		return 0
	}
	return int(t.SubscriptionEndDate.Sub(now).Hours() / 24)
}
