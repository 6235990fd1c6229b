package queue

import (
	"context"
	"errors"

	"github.com/axiom-eval/axiom/internal/models"
)

// ErrRunNotFound is returned when a queued run no longer exists
var ErrRunNotFound = errors.New("run not found")

// Queue transports pending benchmark runs from the API to the worker. The
// database row is the source of truth for run state; the queue only carries
// identity.
type Queue interface {
	// Enqueue adds a run to the queue
	Enqueue(ctx context.Context, run *models.Run) error

	// Dequeue retrieves the next run from the queue, blocking until one is
	// available or the context is done
	Dequeue(ctx context.Context) (*models.Run, error)

	// Close closes the queue and releases resources
	Close() error
}
