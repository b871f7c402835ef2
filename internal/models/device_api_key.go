package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceAPIKey authenticates a biometric attendance device against the
// device sync API. The raw key is never stored, only its bcrypt hash.
type DeviceAPIKey struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID uuid.UUID `json:"tenantId" gorm:"type:uuid;not null;index"`
	DeviceID string    `json:"deviceId" gorm:"type:varchar(100);not null;index"`

	// KeyPrefix is the first 8 characters of the raw key, stored in
	// clear for lookup; the full key is verified against KeyHash.
	KeyPrefix string `json:"keyPrefix" gorm:"type:varchar(8);uniqueIndex;not null"`
	KeyHash   string `json:"-" gorm:"type:varchar(100);not null"`

	// AllowedIPs is a comma-separated list; empty means any source IP
	AllowedIPs         string     `json:"allowedIps" gorm:"type:text"`
	RateLimitPerMinute int        `json:"rateLimitPerMinute" gorm:"default:60"`
	ExpiresAt          *time.Time `json:"expiresAt"`
	IsActive           bool       `json:"isActive" gorm:"default:true;index"`
	LastUsedAt         *time.Time `json:"lastUsedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (DeviceAPIKey) TableName() string {
	return "device_api_keys"
}

// IsExpired reports whether the key has passed its expiry date
func (k *DeviceAPIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// AllowsIP checks the source IP against the allow-list
func (k *DeviceAPIKey) AllowsIP(ip string) bool {
	if strings.TrimSpace(k.AllowedIPs) == "" {
		return true
	}
	for _, allowed := range strings.Split(k.AllowedIPs, ",") {
		if strings.TrimSpace(allowed) == ip {
			return true
		}
	}
	return false
}
