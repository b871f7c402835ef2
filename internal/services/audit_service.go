package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/hrms-hub/platform-service/internal/audit"
	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/repository"
)

// AuditService exposes the audit trail: programmatic logging for
// domain events, the admin search surface, export and archival
type AuditService struct {
	repo             repository.AuditRepositoryInterface
	writer           audit.Submitter
	archiveAfterDays int
	archiveBatchSize int
	logger           *logrus.Logger
}

// NewAuditService creates the audit service
func NewAuditService(repo repository.AuditRepositoryInterface, writer audit.Submitter, archiveAfterDays, archiveBatchSize int, logger *logrus.Logger) *AuditService {
	if archiveAfterDays <= 0 {
		archiveAfterDays = 730
	}
	return &AuditService{
		repo:             repo,
		writer:           writer,
		archiveAfterDays: archiveAfterDays,
		archiveBatchSize: archiveBatchSize,
		logger:           logger,
	}
}

// LogAction submits a domain-level audit entry through the background
// writer. metadata may be nil.
func (s *AuditService) LogAction(actionType models.AuditActionType, category models.AuditCategory, severity models.AuditSeverity, userID string, tenantID uuid.UUID, entityType, entityID, description string, metadata map[string]interface{}) {
	entry := &models.AuditLog{
		ActionType:  actionType,
		Category:    category,
		Severity:    severity,
		UserID:      userID,
		TenantID:    tenantID,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		PerformedAt: time.Now().UTC(),
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = datatypes.JSON(raw)
		}
	}
	s.writer.Submit(entry)
}

// Search retrieves audit logs matching the filter with pagination
func (s *AuditService) Search(ctx context.Context, filter *models.AuditLogFilter) ([]models.AuditLog, int64, error) {
	return s.repo.List(ctx, filter)
}

// GetByID retrieves a single audit log entry
func (s *AuditService) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	return s.repo.GetByID(ctx, id)
}

// ExportJSON exports matching audit logs as a JSON document
func (s *AuditService) ExportJSON(ctx context.Context, filter *models.AuditLogFilter) ([]byte, error) {
	logs, err := s.repo.Export(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to export audit logs: %w", err)
	}
	return json.MarshalIndent(map[string]interface{}{
		"exportedAt": time.Now().UTC(),
		"count":      len(logs),
		"logs":       logs,
	}, "", "  ")
}

// ExportCSV exports matching audit logs as CSV
func (s *AuditService) ExportCSV(ctx context.Context, filter *models.AuditLogFilter) ([]byte, error) {
	logs, err := s.repo.Export(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to export audit logs: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "performed_at", "action_type", "category", "severity",
		"user_id", "user_email", "tenant_id", "entity_type", "entity_id",
		"http_method", "request_path", "response_code", "duration_ms",
		"ip_address", "correlation_id", "description"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range logs {
		l := &logs[i]
		record := []string{
			l.ID.String(),
			l.PerformedAt.UTC().Format(time.RFC3339),
			string(l.ActionType),
			string(l.Category),
			string(l.Severity),
			l.UserID,
			l.UserEmail,
			l.TenantID.String(),
			l.EntityType,
			l.EntityID,
			l.HTTPMethod,
			l.RequestPath,
			strconv.Itoa(l.ResponseCode),
			strconv.FormatInt(l.DurationMs, 10),
			l.IPAddress,
			l.CorrelationID,
			l.Description,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// ArchiveOldRecords flags records older than the retention horizon.
// Records are flagged, never deleted: the audit trail is permanent.
func (s *AuditService) ArchiveOldRecords(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.archiveAfterDays)

	flagged, err := s.repo.ArchiveOlderThan(ctx, cutoff, s.archiveBatchSize)
	if err != nil {
		return flagged, fmt.Errorf("failed to archive audit logs: %w", err)
	}

	if flagged > 0 {
		s.logger.WithFields(logrus.Fields{
			"flagged": flagged,
			"cutoff":  cutoff.Format("2006-01-02"),
		}).Info("Audit records archived")
	}
	return flagged, nil
}
