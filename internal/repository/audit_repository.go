package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hrms-hub/platform-service/internal/models"
)

// AuditRepository handles database operations for audit logs
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Columns callers may sort audit listings by. Sort input reaches the
// ORDER BY clause as raw SQL, so anything outside this set falls back
// to the default instead of being interpolated.
var auditSortColumns = map[string]bool{
	"performed_at":  true,
	"action_type":   true,
	"category":      true,
	"severity":      true,
	"user_id":       true,
	"user_email":    true,
	"tenant_id":     true,
	"response_code": true,
	"duration_ms":   true,
	"ip_address":    true,
}

// auditOrderClause resolves the caller-supplied sort request to a safe
// ORDER BY clause
func auditOrderClause(filter *models.AuditLogFilter) string {
	sortBy := "performed_at"
	sortOrder := "DESC"
	if filter != nil {
		if candidate := strings.ToLower(filter.SortBy); auditSortColumns[candidate] {
			sortBy = candidate
		}
		if strings.EqualFold(filter.SortOrder, "asc") {
			sortOrder = "ASC"
		}
	}
	return sortBy + " " + sortOrder
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// GetByID retrieves an audit log by ID
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	var log models.AuditLog
	if err := r.db.WithContext(ctx).First(&log, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

// List retrieves audit logs with filtering and pagination
func (r *AuditRepository) List(ctx context.Context, filter *models.AuditLogFilter) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.AuditLog{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(auditOrderClause(filter))

	limit := 50
	offset := 0
	if filter != nil {
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		if filter.Offset > 0 {
			offset = filter.Offset
		}
	}

	if err := query.Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Export retrieves audit logs for bulk export (no pagination, bounded)
func (r *AuditRepository) Export(ctx context.Context, filter *models.AuditLogFilter) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.AuditLog{}), filter)
	if err := query.Order("performed_at DESC").Limit(10000).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// FindForVerification loads checksummed records performed after the
// cutoff. The verification job is read-only: it never rewrites checksums.
func (r *AuditRepository) FindForVerification(ctx context.Context, since time.Time) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("checksum <> '' AND performed_at >= ?", since).
		Order("performed_at ASC").
		Find(&logs).Error
	return logs, err
}

// ArchiveOlderThan flags records past the retention horizon as archived.
// Rows are never deleted, only flagged.
func (r *AuditRepository) ArchiveOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	now := time.Now().UTC()

	// Flag in bounded batches so a multi-year backlog does not hold a
	// long transaction open.
	var total int64
	for {
		result := r.db.WithContext(ctx).Exec(
			`UPDATE audit_logs SET is_archived = true, archived_at = ?
			 WHERE id IN (
			   SELECT id FROM audit_logs
			   WHERE is_archived = false AND performed_at < ?
			   LIMIT ?
			 )`,
			now, cutoff, batchSize,
		)
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
		if result.RowsAffected < int64(batchSize) {
			return total, nil
		}
	}
}

// applyFilters applies filter criteria to the query
func (r *AuditRepository) applyFilters(query *gorm.DB, filter *models.AuditLogFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ActionType != "" {
		query = query.Where("action_type = ?", filter.ActionType)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.IPAddress != "" {
		query = query.Where("ip_address = ?", filter.IPAddress)
	}
	if filter.CorrelationID != "" {
		query = query.Where("correlation_id = ?", filter.CorrelationID)
	}
	if filter.FromDate != nil {
		query = query.Where("performed_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("performed_at <= ?", *filter.ToDate)
	}
	if filter.SearchText != "" {
		pattern := "%" + filter.SearchText + "%"
		query = query.Where(
			"description ILIKE ? OR request_path ILIKE ? OR user_email ILIKE ?",
			pattern, pattern, pattern,
		)
	}
	return query
}
