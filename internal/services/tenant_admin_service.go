package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hrms-hub/platform-service/internal/audit"
	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/redis"
	"github.com/hrms-hub/platform-service/internal/repository"
)

// ErrTenantNotFound is returned when the target tenant does not exist
var ErrTenantNotFound = errors.New("tenant not found")

// ErrTenantConflict is returned when the tenant is not in a state the
// requested operation accepts
var ErrTenantConflict = errors.New("tenant state does not permit this operation")

// TenantAdminService implements the platform-administrator operations
// on tenants. Every mutation is audited and drops the resolver cache
// entry for the tenant's subdomain.
type TenantAdminService struct {
	tenants       repository.TenantRepositoryInterface
	subscriptions *SubscriptionService
	auditor       audit.Submitter
	cache         *redis.Client
	logger        *logrus.Logger
}

// NewTenantAdminService creates the tenant administration service
func NewTenantAdminService(tenants repository.TenantRepositoryInterface, subscriptions *SubscriptionService, auditor audit.Submitter, cache *redis.Client, logger *logrus.Logger) *TenantAdminService {
	return &TenantAdminService{
		tenants:       tenants,
		subscriptions: subscriptions,
		auditor:       auditor,
		cache:         cache,
		logger:        logger,
	}
}

// List returns a page of tenants with the total count
func (s *TenantAdminService) List(ctx context.Context, limit, offset int) ([]models.Tenant, int64, error) {
	return s.tenants.List(ctx, limit, offset)
}

// Get returns a single tenant
func (s *TenantAdminService) Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// Suspend suspends a tenant on an administrator's request
func (s *TenantAdminService) Suspend(ctx context.Context, id uuid.UUID, reason, actor string) (*models.Tenant, error) {
	tenant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "Suspended by platform administrator"
	}

	transitioned, err := s.subscriptions.Suspend(ctx, tenant, reason, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to suspend tenant: %w", err)
	}
	if !transitioned {
		return nil, ErrTenantConflict
	}

	s.invalidateCache(ctx, tenant.Subdomain)
	return s.Get(ctx, id)
}

// Reactivate returns a suspended or expired tenant to Active
func (s *TenantAdminService) Reactivate(ctx context.Context, id uuid.UUID, actor string) (*models.Tenant, error) {
	tenant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	transitioned, err := s.subscriptions.Reactivate(ctx, tenant, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to reactivate tenant: %w", err)
	}
	if !transitioned {
		return nil, ErrTenantConflict
	}

	s.invalidateCache(ctx, tenant.Subdomain)
	return s.Get(ctx, id)
}

// SoftDelete marks a tenant deleted while retaining all data
func (s *TenantAdminService) SoftDelete(ctx context.Context, id uuid.UUID, actor string) error {
	tenant, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if tenant.IsDeleted {
		return ErrTenantConflict
	}

	if err := s.tenants.SoftDelete(ctx, id, actor); err != nil {
		return fmt.Errorf("failed to soft delete tenant: %w", err)
	}

	s.auditor.Submit(&models.AuditLog{
		ActionType:  models.ActionTenantDeleted,
		Category:    models.CategoryTenant,
		Severity:    models.SeverityWarning,
		UserID:      actor,
		TenantID:    tenant.ID,
		EntityType:  "tenant",
		EntityID:    tenant.ID.String(),
		Description: fmt.Sprintf("Tenant %s soft deleted", tenant.Subdomain),
	})

	s.invalidateCache(ctx, tenant.Subdomain)
	return nil
}

// HardDelete permanently removes a tenant row. Only soft-deleted
// tenants can be hard deleted; this is the single irreversible tenant
// operation and is audited as such.
func (s *TenantAdminService) HardDelete(ctx context.Context, id uuid.UUID, actor string) error {
	tenant, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !tenant.IsDeleted {
		return ErrTenantConflict
	}

	if err := s.tenants.HardDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to hard delete tenant: %w", err)
	}

	s.auditor.Submit(&models.AuditLog{
		ActionType:  models.ActionTenantHardDeleted,
		Category:    models.CategoryTenant,
		Severity:    models.SeverityCritical,
		UserID:      actor,
		TenantID:    tenant.ID,
		EntityType:  "tenant",
		EntityID:    tenant.ID.String(),
		Description: fmt.Sprintf("Tenant %s permanently deleted", tenant.Subdomain),
	})

	s.invalidateCache(ctx, tenant.Subdomain)
	return nil
}

func (s *TenantAdminService) invalidateCache(ctx context.Context, subdomain string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTenant(ctx, subdomain); err != nil {
		s.logger.WithError(err).WithField("subdomain", subdomain).Warn("Failed to invalidate tenant cache")
	}
}
