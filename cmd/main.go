package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hrms-hub/platform-service/internal/audit"
	"github.com/hrms-hub/platform-service/internal/config"
	"github.com/hrms-hub/platform-service/internal/email"
	"github.com/hrms-hub/platform-service/internal/handlers"
	"github.com/hrms-hub/platform-service/internal/metrics"
	"github.com/hrms-hub/platform-service/internal/middleware"
	"github.com/hrms-hub/platform-service/internal/models"
	natsclient "github.com/hrms-hub/platform-service/internal/nats"
	"github.com/hrms-hub/platform-service/internal/redis"
	"github.com/hrms-hub/platform-service/internal/repository"
	"github.com/hrms-hub/platform-service/internal/scheduler"
	"github.com/hrms-hub/platform-service/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	if level, err := logrus.ParseLevel(cfg.App.LogLevel); err == nil {
		logger.SetLevel(level)
	} else if cfg.IsProduction() {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	db := initDatabase(cfg, logger)

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	var nc *natsclient.Client
	if cfg.NATS.Enabled {
		nc, err = natsclient.NewClient(cfg.NATS, logger)
		if err != nil {
			// Events are best-effort, the platform runs without them
			logger.WithError(err).Warn("NATS unavailable, events disabled")
		} else {
			defer nc.Close()
		}
	}
	publisher := natsclient.NewPublisher(nc, logger)

	// Repositories
	tenantRepo := repository.NewTenantRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationLogRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	deviceKeyRepo := repository.NewDeviceKeyRepository(db)

	// Audit pipeline
	auditWriter := audit.NewWriter(auditRepo, cfg.Audit.QueueSize, logger)
	auditWriter.Start()
	verifier := audit.NewVerifier(auditRepo, auditWriter, publisher, cfg.Audit.VerifyWindowDays, logger)

	// Email
	sender := initEmail(cfg, logger)

	// Services
	subscriptionService := services.NewSubscriptionService(
		tenantRepo, paymentRepo, auditWriter, sender, publisher,
		cfg.Subscription.ExpiringSoonDays, cfg.Subscription.GracePeriodDays, cfg.Subscription.BatchSize,
		logger,
	)
	notificationService := services.NewNotificationService(
		tenantRepo, paymentRepo, notificationRepo, sender,
		cfg.Subscription.GracePeriodDays, cfg.Subscription.BatchSize,
		cfg.Subscription.RenewalWindowMinDays, cfg.Subscription.RenewalWindowMaxDays,
		logger,
	)
	auditService := services.NewAuditService(auditRepo, auditWriter, cfg.Audit.ArchiveAfterDays, cfg.Audit.ArchiveBatchSize, logger)
	tenantAdminService := services.NewTenantAdminService(tenantRepo, subscriptionService, auditWriter, redisClient, logger)
	deviceKeyService := services.NewDeviceKeyService(deviceKeyRepo, tenantRepo, redisClient, logger)

	// Scheduler
	jobs, err := scheduler.New(subscriptionService, notificationService, auditService, verifier, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure scheduler")
	}
	jobs.Start()

	// HTTP surface
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := buildRouter(cfg, db, redisClient, nc, tenantRepo, auditWriter, deviceKeyService, tenantAdminService, auditService, logger)

	server := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("Platform service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	jobs.Stop()
	if err := auditWriter.Stop(ctx); err != nil {
		logger.WithError(err).Error("Audit writer drain failed")
	}
	logger.Info("Shutdown complete")
}

func initDatabase(cfg *config.Config, logger *logrus.Logger) *gorm.DB {
	gormLogLevel := gormlogger.Warn
	if !cfg.IsProduction() {
		gormLogLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.WithError(err).Fatal("Failed to access database pool")
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.SubscriptionPayment{},
		&models.NotificationLog{},
		&models.AuditLog{},
		&models.DeviceAPIKey{},
	); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	logger.Info("Database connected")
	return db
}

func initEmail(cfg *config.Config, logger *logrus.Logger) email.Sender {
	providerCfg := &email.ProviderConfig{
		FromAddress:        cfg.Email.FromAddress,
		FromName:           cfg.Email.FromName,
		AWSRegion:          cfg.Email.AWSRegion,
		AWSAccessKeyID:     cfg.Email.AWSAccessKeyID,
		AWSSecretAccessKey: cfg.Email.AWSSecretAccessKey,
		SendGridAPIKey:     cfg.Email.SendGridAPIKey,
	}

	var provider email.Provider
	switch cfg.Email.Provider {
	case "ses":
		ses, err := email.NewSESProvider(providerCfg)
		if err != nil {
			logger.WithError(err).Fatal("Failed to configure SES provider")
		}
		provider = ses
	case "sendgrid":
		provider = email.NewSendGridProvider(providerCfg)
	default:
		var providers []email.Provider
		if ses, err := email.NewSESProvider(providerCfg); err != nil {
			logger.WithError(err).Warn("SES unavailable, continuing without it")
		} else {
			providers = append(providers, ses)
		}
		if cfg.Email.SendGridAPIKey != "" {
			providers = append(providers, email.NewSendGridProvider(providerCfg))
		}
		provider = email.NewFailoverProvider(logger, providers...)
	}

	logger.WithField("provider", provider.GetName()).Info("Email provider configured")
	return email.NewService(provider, cfg.Email.FromAddress, cfg.Email.FromName, logger)
}

func buildRouter(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	nc *natsclient.Client,
	tenantRepo repository.TenantRepositoryInterface,
	auditWriter *audit.Writer,
	deviceKeys *services.DeviceKeyService,
	tenantAdmin *services.TenantAdminService,
	audits *services.AuditService,
	logger *logrus.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return strings.HasSuffix(origin, cfg.Security.BaseDomain)
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader, cfg.Security.CSRFHeaderName, middleware.DeviceKeyHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	resolver := middleware.NewSubdomainResolver(
		tenantRepo, redisClient, cfg.Security.BaseDomain,
		time.Duration(cfg.Security.TenantCacheTTL)*time.Second, logger,
	)

	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.StructuredLogger(logger))
	router.Use(metrics.GinMiddleware())
	router.Use(middleware.RequestResponseLogger(logger, cfg.Security.MaxLoggedBodyBytes))
	router.Use(middleware.CSRF(cfg.Security))
	router.Use(middleware.ResolveTenant(resolver, logger))
	router.Use(middleware.RequireTenant())
	router.Use(middleware.AuditTrail(auditWriter, logger))

	health := handlers.NewHealthHandler(db, redisClient, nc)
	router.GET("/health", health.Liveness)
	router.GET("/health/ready", health.Readiness)
	router.GET("/metrics", metrics.Handler())

	device := router.Group("/api/devices")
	device.Use(middleware.DeviceAuth(deviceKeys, logger))
	device.POST("/sync", func(c *gin.Context) {
		handlers.SuccessResponse(c, http.StatusOK, "Sync accepted", nil)
	})

	admin := router.Group("/api/admin")
	admin.Use(middleware.RequireSuperAdmin(logger))
	handlers.NewTenantHandler(tenantAdmin, logger).RegisterRoutes(admin)
	handlers.NewAuditHandler(audits, logger).RegisterRoutes(admin)

	return router
}
