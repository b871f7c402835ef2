package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditActionType represents the type of action performed
type AuditActionType string

const (
	// Authentication actions
	ActionLogin       AuditActionType = "LOGIN"
	ActionLogout      AuditActionType = "LOGOUT"
	ActionLoginFailed AuditActionType = "LOGIN_FAILED"

	// Generic CRUD actions (mapped from HTTP verb)
	ActionCreate AuditActionType = "CREATE"
	ActionRead   AuditActionType = "READ"
	ActionUpdate AuditActionType = "UPDATE"
	ActionDelete AuditActionType = "DELETE"

	// Tenant lifecycle actions
	ActionTenantCreated       AuditActionType = "TENANT_CREATED"
	ActionTenantUpdated       AuditActionType = "TENANT_UPDATED"
	ActionTenantDeleted       AuditActionType = "TENANT_DELETED"
	ActionTenantHardDeleted   AuditActionType = "TENANT_HARD_DELETED"
	ActionTenantExpiringSoon  AuditActionType = "TENANT_EXPIRING_SOON"
	ActionTrialExpired        AuditActionType = "TRIAL_EXPIRED"
	ActionSubscriptionExpired AuditActionType = "SUBSCRIPTION_EXPIRED"
	ActionTenantSuspended     AuditActionType = "TENANT_SUSPENDED"
	ActionTenantReactivated   AuditActionType = "TENANT_REACTIVATED"

	// HR domain actions
	ActionEmployeeCreated  AuditActionType = "EMPLOYEE_CREATED"
	ActionEmployeeUpdated  AuditActionType = "EMPLOYEE_UPDATED"
	ActionEmployeeDeleted  AuditActionType = "EMPLOYEE_DELETED"
	ActionLeaveRequested   AuditActionType = "LEAVE_REQUESTED"
	ActionLeaveApproved    AuditActionType = "LEAVE_APPROVED"
	ActionPayrollProcessed AuditActionType = "PAYROLL_PROCESSED"
	ActionDeviceSync       AuditActionType = "DEVICE_SYNC"

	// Security actions
	ActionSecurityAlert    AuditActionType = "SECURITY_ALERT"
	ActionChecksumVerified AuditActionType = "AUDIT_CHECKSUM_VERIFIED"
	ActionChecksumMismatch AuditActionType = "AUDIT_CHECKSUM_MISMATCH"
)

// AuditCategory groups actions by functional area
type AuditCategory string

const (
	CategoryAuthentication AuditCategory = "AUTHENTICATION"
	CategoryTenant         AuditCategory = "TENANT_MANAGEMENT"
	CategoryEmployee       AuditCategory = "EMPLOYEE_MANAGEMENT"
	CategoryLeave          AuditCategory = "LEAVE_MANAGEMENT"
	CategoryPayroll        AuditCategory = "PAYROLL"
	CategoryAttendance     AuditCategory = "ATTENDANCE"
	CategoryBilling        AuditCategory = "BILLING"
	CategorySecurity       AuditCategory = "SECURITY"
	CategorySystem         AuditCategory = "SYSTEM"
)

// AuditSeverity represents the severity of the audit event
type AuditSeverity string

const (
	SeverityInfo      AuditSeverity = "INFO"
	SeverityWarning   AuditSeverity = "WARNING"
	SeverityCritical  AuditSeverity = "CRITICAL"
	SeverityEmergency AuditSeverity = "EMERGENCY"
)

// SystemActor is the identity recorded on audit entries written by
// background jobs rather than a human user
const SystemActor = "system@hrms.com"

// AuditLog is an immutable append-only record of one classified action.
// Rows are never updated after creation except for the archival flags,
// and never hard-deleted.
type AuditLog struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`

	// Classification
	ActionType AuditActionType `json:"actionType" gorm:"type:varchar(50);not null;index"`
	Category   AuditCategory   `json:"category" gorm:"type:varchar(30);not null;index"`
	Severity   AuditSeverity   `json:"severity" gorm:"type:varchar(20);not null;index;default:'INFO'"`

	// Actor and tenant
	UserID    string    `json:"userId" gorm:"type:varchar(255);index"`
	UserEmail string    `json:"userEmail" gorm:"type:varchar(255)"`
	TenantID  uuid.UUID `json:"tenantId" gorm:"type:uuid;index"`

	// Entity acted upon
	EntityType string `json:"entityType" gorm:"type:varchar(100)"`
	EntityID   string `json:"entityId" gorm:"type:varchar(255);index"`

	// Request details
	HTTPMethod    string `json:"httpMethod" gorm:"type:varchar(10)"`
	RequestPath   string `json:"requestPath" gorm:"type:varchar(500)"`
	QueryString   string `json:"queryString" gorm:"type:text"` // sanitized before persistence
	ResponseCode  int    `json:"responseCode" gorm:"index"`
	DurationMs    int64  `json:"durationMs"`
	IPAddress     string `json:"ipAddress" gorm:"type:varchar(45);index"`
	UserAgent     string `json:"userAgent" gorm:"type:text"`
	CorrelationID string `json:"correlationId" gorm:"type:varchar(100);index"`

	Description string         `json:"description" gorm:"type:text"`
	Metadata    datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	// Tamper evidence
	Checksum string `json:"checksum" gorm:"type:varchar(64);index"`

	// Archival (set by the archival job after 2 years, never reset)
	IsArchived bool       `json:"isArchived" gorm:"default:false;index"`
	ArchivedAt *time.Time `json:"archivedAt"`

	PerformedAt time.Time `json:"performedAt" gorm:"not null;index"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName specifies the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate hook sets defaults and stamps the checksum
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.PerformedAt.IsZero() {
		a.PerformedAt = time.Now().UTC()
	}
	if a.Checksum == "" {
		a.Checksum = a.GenerateChecksum()
	}
	return nil
}

// GenerateChecksum computes the tamper-evidence digest over the
// immutable identity fields of the record. PerformedAt is truncated to
// microsecond precision before hashing: PostgreSQL stores timestamps at
// microsecond precision, so hashing Go's nanosecond-precision value
// would flag every reloaded record as tampered.
func (a *AuditLog) GenerateChecksum() string {
	performedAt := a.PerformedAt.UTC().Truncate(time.Microsecond)
	payload := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		a.ID,
		a.ActionType,
		a.UserID,
		a.EntityType,
		a.EntityID,
		performedAt.Format("2006-01-02T15:04:05.000000Z"),
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum recomputes the digest and compares it to the stored value
func (a *AuditLog) VerifyChecksum() bool {
	return a.Checksum != "" && a.Checksum == a.GenerateChecksum()
}

// IsCritical checks if the event is critical or worse
func (a *AuditLog) IsCritical() bool {
	return a.Severity == SeverityCritical || a.Severity == SeverityEmergency
}

// AuditLogFilter represents filter criteria for searching audit logs
type AuditLogFilter struct {
	TenantID      *uuid.UUID      `json:"tenantId"`
	UserID        string          `json:"userId"`
	ActionType    AuditActionType `json:"actionType"`
	Category      AuditCategory   `json:"category"`
	Severity      AuditSeverity   `json:"severity"`
	IPAddress     string          `json:"ipAddress"`
	CorrelationID string          `json:"correlationId"`
	FromDate      *time.Time      `json:"fromDate"`
	ToDate        *time.Time      `json:"toDate"`
	SearchText    string          `json:"searchText"`
	Limit         int             `json:"limit"`
	Offset        int             `json:"offset"`
	SortBy        string          `json:"sortBy"`
	SortOrder     string          `json:"sortOrder"`
}
