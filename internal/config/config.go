package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the platform service
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	NATS         NATSConfig
	Email        EmailConfig
	Subscription SubscriptionConfig
	Audit        AuditConfig
	Security     SecurityConfig
	App          AppConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration for tenant-resolution caching
// and device API key rate limiting
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// NATSConfig holds NATS configuration for security event streaming
type NATSConfig struct {
	URL           string
	Enabled       bool
	MaxReconnects int
	ReconnectWait int // seconds
}

// EmailConfig holds email provider configuration
type EmailConfig struct {
	Provider           string // "ses", "sendgrid", or "failover"
	FromAddress        string
	FromName           string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	SendGridAPIKey     string
}

// SubscriptionConfig holds subscription lifecycle tuning knobs
type SubscriptionConfig struct {
	GracePeriodDays      int    // days after expiry before suspension
	ExpiringSoonDays     int    // window for the EXPIRING_SOON transition
	BatchSize            int    // max tenants processed per job run
	ExpiringSoonCron     string // hourly
	ExpiryCron           string // every 6 hours
	SuspensionCron       string // every 6 hours
	NotificationCron     string // daily
	RenewalCron          string // daily
	RenewalWindowMinDays int
	RenewalWindowMaxDays int
}

// AuditConfig holds audit pipeline configuration
type AuditConfig struct {
	QueueSize        int    // background writer queue capacity
	VerifyCron       string // checksum verification schedule
	VerifyWindowDays int    // trailing window re-verified each run
	ArchiveCron      string // archival schedule
	ArchiveAfterDays int    // records older than this are flagged archived
	ArchiveBatchSize int
}

// SecurityConfig holds middleware configuration
type SecurityConfig struct {
	CSRFEnabled        bool
	CSRFCookieName     string
	CSRFHeaderName     string
	BaseDomain         string // e.g. "hrms.mu"; subdomain of the host resolves the tenant
	TenantCacheTTL     int    // seconds
	MaxLoggedBodyBytes int
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string
	LogLevel    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			DBName:       getEnv("DB_NAME", "hrms_platform"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled:       getEnvAsBool("NATS_ENABLED", true),
			MaxReconnects: getEnvAsInt("NATS_MAX_RECONNECTS", -1),
			ReconnectWait: getEnvAsInt("NATS_RECONNECT_WAIT", 2),
		},
		Email: EmailConfig{
			Provider:           getEnv("EMAIL_PROVIDER", "failover"),
			FromAddress:        getEnv("EMAIL_FROM", "no-reply@hrms.mu"),
			FromName:           getEnv("EMAIL_FROM_NAME", "MorisHR"),
			AWSRegion:          getEnv("AWS_REGION", "eu-west-1"),
			AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		},
		Subscription: SubscriptionConfig{
			GracePeriodDays:      getEnvAsInt("GRACE_PERIOD_DAYS", 14),
			ExpiringSoonDays:     getEnvAsInt("EXPIRING_SOON_DAYS", 7),
			BatchSize:            getEnvAsInt("SUBSCRIPTION_BATCH_SIZE", 100),
			ExpiringSoonCron:     getEnv("EXPIRING_SOON_CRON", "0 * * * *"),    // hourly
			ExpiryCron:           getEnv("EXPIRY_CRON", "0 */6 * * *"),         // every 6 hours
			SuspensionCron:       getEnv("SUSPENSION_CRON", "30 */6 * * *"),    // every 6 hours, offset
			NotificationCron:     getEnv("NOTIFICATION_CRON", "0 8 * * *"),     // 8 AM daily
			RenewalCron:          getEnv("RENEWAL_CRON", "0 6 * * *"),          // 6 AM daily
			RenewalWindowMinDays: getEnvAsInt("RENEWAL_WINDOW_MIN_DAYS", 30),
			RenewalWindowMaxDays: getEnvAsInt("RENEWAL_WINDOW_MAX_DAYS", 60),
		},
		Audit: AuditConfig{
			QueueSize:        getEnvAsInt("AUDIT_QUEUE_SIZE", 10000),
			VerifyCron:       getEnv("AUDIT_VERIFY_CRON", "0 3 * * *"),  // 3 AM daily
			VerifyWindowDays: getEnvAsInt("AUDIT_VERIFY_WINDOW_DAYS", 30),
			ArchiveCron:      getEnv("AUDIT_ARCHIVE_CRON", "0 4 * * *"), // 4 AM daily
			ArchiveAfterDays: getEnvAsInt("AUDIT_ARCHIVE_AFTER_DAYS", 730),
			ArchiveBatchSize: getEnvAsInt("AUDIT_ARCHIVE_BATCH_SIZE", 1000),
		},
		Security: SecurityConfig{
			CSRFEnabled:        getEnvAsBool("CSRF_ENABLED", true),
			CSRFCookieName:     getEnv("CSRF_COOKIE_NAME", "XSRF-TOKEN"),
			CSRFHeaderName:     getEnv("CSRF_HEADER_NAME", "X-XSRF-TOKEN"),
			BaseDomain:         getEnv("BASE_DOMAIN", "hrms.mu"),
			TenantCacheTTL:     getEnvAsInt("TENANT_CACHE_TTL", 300),
			MaxLoggedBodyBytes: getEnvAsInt("MAX_LOGGED_BODY_BYTES", 10*1024),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
	}

	return config, nil
}

// GetDatabaseDSN returns the PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.App.Environment) == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}
