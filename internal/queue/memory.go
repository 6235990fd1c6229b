package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
	"gorm.io/gorm"
)

// MemoryQueue implements an in-memory run queue for single-process
// deployments. The channel carries run IDs; the row is re-read on dequeue so
// the worker always sees current state.
type MemoryQueue struct {
	runChan chan uint
	db      *gorm.DB
}

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue(db *gorm.DB, bufferSize int) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 100
	}

	q := &MemoryQueue{
		runChan: make(chan uint, bufferSize),
		db:      db,
	}

	slog.Info("Initialized in-memory run queue", "buffer_size", bufferSize)
	return q
}

// Enqueue adds a run to the queue
func (q *MemoryQueue) Enqueue(ctx context.Context, run *models.Run) error {
	if run.ID == 0 {
		return fmt.Errorf("run must have an ID")
	}

	// Send to channel (non-blocking with timeout)
	select {
	case q.runChan <- run.ID:
		slog.Debug("Run enqueued", "run_id", run.ID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("queue is full, could not enqueue run %d", run.ID)
	}
}

// Dequeue retrieves the next run from the queue
func (q *MemoryQueue) Dequeue(ctx context.Context) (*models.Run, error) {
	select {
	case runID := <-q.runChan:
		var run models.Run
		if err := q.db.WithContext(ctx).First(&run, runID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrRunNotFound
			}
			return nil, err
		}
		slog.Debug("Run dequeued", "run_id", run.ID)
		return &run, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the queue and releases resources
func (q *MemoryQueue) Close() error {
	close(q.runChan)
	slog.Info("Memory queue closed")
	return nil
}
