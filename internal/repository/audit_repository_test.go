package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrms-hub/platform-service/internal/models"
)

func TestAuditOrderClauseDefaults(t *testing.T) {
	assert.Equal(t, "performed_at DESC", auditOrderClause(nil))
	assert.Equal(t, "performed_at DESC", auditOrderClause(&models.AuditLogFilter{}))
}

func TestAuditOrderClauseAllowsKnownColumns(t *testing.T) {
	clause := auditOrderClause(&models.AuditLogFilter{SortBy: "severity", SortOrder: "asc"})
	assert.Equal(t, "severity ASC", clause)

	clause = auditOrderClause(&models.AuditLogFilter{SortBy: "RESPONSE_CODE", SortOrder: "desc"})
	assert.Equal(t, "response_code DESC", clause)
}

func TestAuditOrderClauseRejectsUnknownInput(t *testing.T) {
	// Sort input reaches ORDER BY as raw SQL, so anything outside the
	// column allow-list must collapse to the default
	for _, sortBy := range []string{
		"(SELECT CASE WHEN (SELECT password FROM users LIMIT 1)='x' THEN id END)",
		"performed_at; DROP TABLE audit_logs",
		"performed_at--",
		"nonexistent_column",
	} {
		clause := auditOrderClause(&models.AuditLogFilter{SortBy: sortBy, SortOrder: "asc"})
		assert.Equal(t, "performed_at ASC", clause, "sortBy %q", sortBy)
	}

	clause := auditOrderClause(&models.AuditLogFilter{SortBy: "severity", SortOrder: "asc; DROP TABLE audit_logs"})
	assert.Equal(t, "severity DESC", clause)
}
