package audit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hrms-hub/platform-service/internal/metrics"
	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/repository"
)

// Submitter accepts audit entries for asynchronous persistence
type Submitter interface {
	Submit(entry *models.AuditLog) bool
}

// Writer persists audit entries from a bounded queue on a dedicated
// worker goroutine. Request handling never blocks on the audit insert;
// when the queue is full the entry is dropped and counted, because a
// slow audit store must not take the API down with it.
type Writer struct {
	repo   repository.AuditRepositoryInterface
	logger *logrus.Logger

	queue chan *models.AuditLog
	done  chan struct{}

	// mu orders Submit against Stop: Stop takes the write lock before
	// closing the queue, so no Submit can be mid-send on a closed
	// channel. Submits hold only the read lock and stay concurrent.
	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
}

// NewWriter creates a writer with the given queue capacity
func NewWriter(repo repository.AuditRepositoryInterface, queueSize int, logger *logrus.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &Writer{
		repo:   repo,
		logger: logger,
		queue:  make(chan *models.AuditLog, queueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the background worker
func (w *Writer) Start() {
	go w.run()
}

// Submit enqueues an entry for persistence. Returns false when the
// entry was dropped (queue full or writer stopped).
func (w *Writer) Submit(entry *models.AuditLog) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		w.logger.WithField("action_type", entry.ActionType).Warn("Audit entry rejected, writer stopped")
		return false
	}

	select {
	case w.queue <- entry:
		metrics.AuditQueueDepth.Set(float64(len(w.queue)))
		return true
	default:
		metrics.AuditEntriesDroppedTotal.Inc()
		w.logger.WithFields(logrus.Fields{
			"action_type": entry.ActionType,
			"queue_size":  cap(w.queue),
		}).Error("Audit queue full, entry dropped")
		return false
	}
}

// Stop closes the queue and blocks until all buffered entries are
// persisted or the context expires.
func (w *Writer) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		close(w.queue)
		w.mu.Unlock()
	})

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.WithField("remaining", len(w.queue)).Warn("Audit writer drain timed out")
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.done)

	for entry := range w.queue {
		metrics.AuditQueueDepth.Set(float64(len(w.queue)))
		w.persist(entry)
	}
	metrics.AuditQueueDepth.Set(0)
}

func (w *Writer) persist(entry *models.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.repo.Create(ctx, entry); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"action_type": entry.ActionType,
			"user_id":     entry.UserID,
			"entity_type": entry.EntityType,
		}).Error("Failed to persist audit entry")
	}
}
