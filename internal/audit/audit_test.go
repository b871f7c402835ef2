package audit

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/nats"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// memoryAuditRepo is an in-memory AuditRepositoryInterface for tests
type memoryAuditRepo struct {
	mu      sync.Mutex
	created []*models.AuditLog

	verification []models.AuditLog
}

func (m *memoryAuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, log)
	return nil
}

func (m *memoryAuditRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	return nil, nil
}

func (m *memoryAuditRepo) List(ctx context.Context, filter *models.AuditLogFilter) ([]models.AuditLog, int64, error) {
	return nil, 0, nil
}

func (m *memoryAuditRepo) Export(ctx context.Context, filter *models.AuditLogFilter) ([]models.AuditLog, error) {
	return nil, nil
}

func (m *memoryAuditRepo) FindForVerification(ctx context.Context, since time.Time) ([]models.AuditLog, error) {
	return m.verification, nil
}

func (m *memoryAuditRepo) ArchiveOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	return 0, nil
}

func (m *memoryAuditRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

func TestWriterPersistsSubmittedEntries(t *testing.T) {
	repo := &memoryAuditRepo{}
	writer := NewWriter(repo, 16, testLogger())
	writer.Start()

	for i := 0; i < 5; i++ {
		ok := writer.Submit(&models.AuditLog{
			ActionType:  models.ActionRead,
			PerformedAt: time.Now().UTC(),
		})
		assert.True(t, ok)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, writer.Stop(ctx))
	assert.Equal(t, 5, repo.count())
}

func TestWriterRejectsAfterStop(t *testing.T) {
	repo := &memoryAuditRepo{}
	writer := NewWriter(repo, 16, testLogger())
	writer.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, writer.Stop(ctx))

	assert.False(t, writer.Submit(&models.AuditLog{ActionType: models.ActionRead}))
}

func TestWriterSubmitDuringStopIsSafe(t *testing.T) {
	// Submit must never send on the closed queue, whatever order the
	// caller's shutdown runs in. A lost race here panics, failing the test.
	repo := &memoryAuditRepo{}
	writer := NewWriter(repo, 4, testLogger())
	writer.Start()

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				writer.Submit(&models.AuditLog{ActionType: models.ActionRead})
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, writer.Stop(ctx))
	}()

	close(start)
	wg.Wait()

	assert.False(t, writer.Submit(&models.AuditLog{ActionType: models.ActionRead}))
}

func auditRecord(tampered bool) models.AuditLog {
	log := models.AuditLog{
		ID:          uuid.New(),
		ActionType:  models.ActionLogin,
		UserID:      "user@acme.mu",
		EntityType:  "session",
		EntityID:    "s1",
		PerformedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	log.Checksum = log.GenerateChecksum()
	if tampered {
		log.UserID = "someone-else"
	}
	return log
}

type captureSubmitter struct {
	entries []*models.AuditLog
}

func (c *captureSubmitter) Submit(entry *models.AuditLog) bool {
	c.entries = append(c.entries, entry)
	return true
}

func TestVerifierFlagsTamperedRecords(t *testing.T) {
	repo := &memoryAuditRepo{
		verification: []models.AuditLog{auditRecord(false), auditRecord(true), auditRecord(true)},
	}
	sink := &captureSubmitter{}
	verifier := NewVerifier(repo, sink, nats.NewPublisher(nil, testLogger()), 30, testLogger())

	result, err := verifier.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 2, result.Mismatched)
	assert.Len(t, result.TamperedIDs, 2)

	require.Len(t, sink.entries, 1)
	entry := sink.entries[0]
	assert.Equal(t, models.ActionChecksumMismatch, entry.ActionType)
	assert.Equal(t, models.SeverityEmergency, entry.Severity)
	assert.Equal(t, models.SystemActor, entry.UserID)
}

func TestVerifierRecordsCleanRun(t *testing.T) {
	repo := &memoryAuditRepo{
		verification: []models.AuditLog{auditRecord(false), auditRecord(false)},
	}
	sink := &captureSubmitter{}
	verifier := NewVerifier(repo, sink, nats.NewPublisher(nil, testLogger()), 30, testLogger())

	result, err := verifier.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Mismatched)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, models.ActionChecksumVerified, sink.entries[0].ActionType)
	assert.Equal(t, models.SeverityInfo, sink.entries[0].Severity)
}

func TestVerifierDoesNotModifyInspectedRecords(t *testing.T) {
	original := auditRecord(false)
	repo := &memoryAuditRepo{verification: []models.AuditLog{original}}
	verifier := NewVerifier(repo, &captureSubmitter{}, nats.NewPublisher(nil, testLogger()), 30, testLogger())

	_, err := verifier.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, original.Checksum, repo.verification[0].Checksum)
	assert.Empty(t, repo.created, "verification must not write through the repository")
}
