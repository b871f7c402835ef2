package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies a subscription lifecycle milestone.
// Each milestone fires at most once per tenant per subscription cycle:
// the (TenantID, NotificationType) pair is the dedup key, not the
// calendar day of the send.
type NotificationType string

const (
	NotifyReminder30Days      NotificationType = "REMINDER_30_DAYS"
	NotifyReminder15Days      NotificationType = "REMINDER_15_DAYS"
	NotifyReminder7Days       NotificationType = "REMINDER_7_DAYS"
	NotifyReminder3Days       NotificationType = "REMINDER_3_DAYS"
	NotifyReminder1Day        NotificationType = "REMINDER_1_DAY"
	NotifyExpiryDay           NotificationType = "EXPIRY_DAY"
	NotifyGracePeriodWarning  NotificationType = "GRACE_PERIOD_WARNING"
	NotifyGracePeriodCritical NotificationType = "GRACE_PERIOD_CRITICAL"
	NotifySuspension          NotificationType = "SUSPENSION"
)

// AllNotificationTypes lists the nine milestones in lifecycle order
var AllNotificationTypes = []NotificationType{
	NotifyReminder30Days,
	NotifyReminder15Days,
	NotifyReminder7Days,
	NotifyReminder3Days,
	NotifyReminder1Day,
	NotifyExpiryDay,
	NotifyGracePeriodWarning,
	NotifyGracePeriodCritical,
	NotifySuspension,
}

// NotificationLog records every milestone send attempt, successful or
// not. Rows are append-only and retained indefinitely: a failed attempt
// still blocks a re-send (at-most-once delivery policy).
type NotificationLog struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID uuid.UUID `json:"tenantId" gorm:"type:uuid;not null;index:idx_notification_dedup"`

	NotificationType NotificationType `json:"notificationType" gorm:"type:varchar(30);not null;index:idx_notification_dedup"`
	RecipientEmail   string           `json:"recipientEmail" gorm:"type:varchar(255)"`
	Success          bool             `json:"success"`
	ErrorMessage     string           `json:"errorMessage" gorm:"type:text"`

	SentAt    time.Time `json:"sentAt" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name
func (NotificationLog) TableName() string {
	return "subscription_notification_logs"
}
