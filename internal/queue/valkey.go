package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
	"github.com/valkey-io/valkey-go"
	"gorm.io/gorm"
)

// ValkeyQueue implements a distributed run queue using Valkey.
// Valkey is used for transport (run IDs only), DB is source of truth.
type ValkeyQueue struct {
	client valkey.Client
	db     *gorm.DB
	key    string // Queue key: "axiom:runs"
}

// NewValkeyQueue creates a new Valkey-backed queue
func NewValkeyQueue(addr string, db *gorm.DB) (*ValkeyQueue, error) {
	if db == nil {
		return nil, fmt.Errorf("database instance is required for Valkey queue")
	}

	// Create Valkey client with connection pool
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pingCmd := client.B().Ping().Build()
	if err := client.Do(ctx, pingCmd).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	q := &ValkeyQueue{
		client: client,
		db:     db,
		key:    "axiom:runs",
	}

	slog.Info("Initialized Valkey run queue",
		"address", addr,
		"queue_key", q.key)
	return q, nil
}

// Enqueue pushes the run ID to the Valkey list (RPUSH for FIFO). The run row
// must already be persisted.
func (q *ValkeyQueue) Enqueue(ctx context.Context, run *models.Run) error {
	if run.ID == 0 {
		return fmt.Errorf("run must have an ID")
	}

	cmd := q.client.B().Rpush().Key(q.key).
		Element(strconv.FormatUint(uint64(run.ID), 10)).Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to push run to Valkey: %w", err)
	}

	slog.Debug("Run enqueued",
		"run_id", run.ID,
		"queue_key", q.key)
	return nil
}

// Dequeue retrieves the next run from the queue (blocking)
// 1. BLPOP from Valkey (blocking pop with timeout)
// 2. Parse run ID
// 3. Fetch full run from DB
func (q *ValkeyQueue) Dequeue(ctx context.Context) (*models.Run, error) {
	// BLPOP with 5 second timeout
	cmd := q.client.B().Blpop().Key(q.key).Timeout(5).Build()
	result := q.client.Do(ctx, cmd)

	// Parse BLPOP result [key, value]
	values, err := result.AsStrSlice()
	if err != nil {
		// AsStrSlice returns an error when BLPOP times out (valkey nil
		// message). This is expected behavior when the queue is empty.
		return nil, context.DeadlineExceeded
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("invalid BLPOP result: expected 2 values, got %d", len(values))
	}

	runID, err := strconv.ParseUint(values[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run ID: %w", err)
	}

	// Fetch full run from database
	var run models.Run
	if err := q.db.WithContext(ctx).First(&run, uint(runID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to fetch run from database: %w", err)
	}

	slog.Debug("Run dequeued", "run_id", run.ID)
	return &run, nil
}

// GetClient exposes the underlying Valkey client for log streaming
func (q *ValkeyQueue) GetClient() valkey.Client {
	return q.client
}

// Close closes the Valkey connection
func (q *ValkeyQueue) Close() error {
	q.client.Close()
	slog.Info("Valkey queue closed")
	return nil
}
