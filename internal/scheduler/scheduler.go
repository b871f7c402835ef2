package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/hrms-hub/platform-service/internal/audit"
	"github.com/hrms-hub/platform-service/internal/config"
	"github.com/hrms-hub/platform-service/internal/resilience"
	"github.com/hrms-hub/platform-service/internal/services"
)

// Scheduler owns all recurring platform jobs. Each job takes a named
// mutex-backed slot so a slow run is skipped rather than stacked when
// the next tick arrives; the guarded status transitions make even an
// accidental overlap safe.
type Scheduler struct {
	cron          *cron.Cron
	subscriptions *services.SubscriptionService
	notifications *services.NotificationService
	auditService  *services.AuditService
	verifier      *audit.Verifier
	cfg           *config.Config
	logger        *logrus.Logger

	mu      sync.Mutex
	running map[string]bool
}

// New creates the scheduler with all jobs registered but not started
func New(
	subscriptions *services.SubscriptionService,
	notifications *services.NotificationService,
	auditService *services.AuditService,
	verifier *audit.Verifier,
	cfg *config.Config,
	logger *logrus.Logger,
) (*Scheduler, error) {
	s := &Scheduler{
		cron:          cron.New(),
		subscriptions: subscriptions,
		notifications: notifications,
		auditService:  auditService,
		verifier:      verifier,
		cfg:           cfg,
		logger:        logger,
		running:       make(map[string]bool),
	}

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"expiring_soon", cfg.Subscription.ExpiringSoonCron, func(ctx context.Context) error {
			_, err := subscriptions.MarkExpiringSoon(ctx)
			return err
		}},
		{"trial_expiry", cfg.Subscription.ExpiryCron, func(ctx context.Context) error {
			_, err := subscriptions.ExpireTrials(ctx)
			return err
		}},
		{"subscription_expiry", cfg.Subscription.ExpiryCron, func(ctx context.Context) error {
			_, err := subscriptions.ExpireSubscriptions(ctx)
			return err
		}},
		{"suspension", cfg.Subscription.SuspensionCron, func(ctx context.Context) error {
			_, err := subscriptions.SuspendOverdueTenants(ctx)
			return err
		}},
		{"notifications", cfg.Subscription.NotificationCron, func(ctx context.Context) error {
			if _, err := notifications.ProcessMilestones(ctx); err != nil {
				return err
			}
			_, err := notifications.SweepOverduePayments(ctx)
			return err
		}},
		{"renewal_invoices", cfg.Subscription.RenewalCron, func(ctx context.Context) error {
			_, err := notifications.PrepareRenewals(ctx)
			return err
		}},
		{"audit_verification", cfg.Audit.VerifyCron, func(ctx context.Context) error {
			return resilience.Retry(ctx, 3, 2*time.Second, func() error {
				_, err := verifier.Run(ctx)
				return err
			})
		}},
		{"audit_archival", cfg.Audit.ArchiveCron, func(ctx context.Context) error {
			return resilience.Retry(ctx, 3, 2*time.Second, func() error {
				_, err := auditService.ArchiveOldRecords(ctx)
				return err
			})
		}},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() { s.execute(job.name, job.run) }); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start begins running the registered jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop halts scheduling and waits for in-flight jobs to complete
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) execute(name string, run func(context.Context) error) {
	if !s.tryAcquire(name) {
		s.logger.WithField("job", name).Warn("Previous run still in progress, skipping tick")
		return
	}
	defer s.release(name)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	if err := run(ctx); err != nil {
		s.logger.WithError(err).WithField("job", name).Error("Scheduled job failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"duration": time.Since(start).String(),
	}).Info("Scheduled job completed")
}

func (s *Scheduler) tryAcquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
}
