package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/axiom-eval/axiom/internal/executor"
	"github.com/axiom-eval/axiom/internal/logstream"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/queue"
	"github.com/valkey-io/valkey-go"
	"gorm.io/gorm"
)

// Worker processes benchmark runs from the queue
type Worker struct {
	db           *gorm.DB
	queue        queue.Queue
	executor     executor.Executor
	logger       *slog.Logger
	broker       *logstream.LogBroker
	valkeyClient valkey.Client // For distributed log streaming (optional, can be nil for local mode)
	maxWorkers   int
	semaphore    chan struct{}
	wg           sync.WaitGroup
}

// New creates a new worker instance
func New(db *gorm.DB, q queue.Queue, exec executor.Executor, logger *slog.Logger, valkeyClient valkey.Client, maxConcurrent int) *Worker {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Worker{
		db:           db,
		queue:        q,
		executor:     exec,
		logger:       logger,
		broker:       logstream.NewBroker(),
		valkeyClient: valkeyClient,
		maxWorkers:   maxConcurrent,
		semaphore:    make(chan struct{}, maxConcurrent),
	}
}

// GetBroker returns the log broker for external access (SSE endpoints)
func (w *Worker) GetBroker() *logstream.LogBroker {
	return w.broker
}

// Start begins processing runs from the queue
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Worker started", "max_concurrent_runs", w.maxWorkers)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker shutting down, waiting for runs to complete")
			w.wg.Wait() // Wait for all runs to complete
			w.logger.Info("All runs completed, worker stopped")
			return ctx.Err()
		default:
			run, err := w.queue.Dequeue(ctx)
			if err != nil {
				// DeadlineExceeded means no runs available (normal timeout), not an error
				if errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				if errors.Is(err, queue.ErrRunNotFound) {
					// Run deleted after enqueue; nothing to do
					continue
				}
				if errors.Is(err, context.Canceled) {
					continue
				}
				// Actual errors (connection issues, etc.)
				w.logger.Error("Failed to dequeue run", "error", err)
				time.Sleep(time.Second) // Backoff on real errors
				continue
			}

			if run == nil {
				time.Sleep(100 * time.Millisecond)
				continue
			}

			// Acquire semaphore slot (blocks if max workers reached)
			select {
			case w.semaphore <- struct{}{}:
				// Got a slot, process run asynchronously
				w.wg.Add(1)
				go func(r *models.Run) {
					defer w.wg.Done()
					defer func() { <-w.semaphore }() // Release slot when done

					w.processRun(ctx, r)
				}(run)
			case <-ctx.Done():
				w.logger.Info("Context cancelled while waiting for worker slot")
				return ctx.Err()
			}
		}
	}
}

func (w *Worker) processRun(ctx context.Context, run *models.Run) {
	// Add panic recovery to prevent pod crashes from panics in run processing
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Panic recovered in processRun", "run_id", run.ID, "panic", r)
			w.finishRun(run, models.RunStatusFailed, fmt.Sprintf("run panicked: %v", r))
		}
	}()

	// Cancellation may have landed between enqueue and dequeue
	if run.Status != models.RunStatusPending {
		w.logger.Info("Skipping run not in pending state", "run_id", run.ID, "status", run.Status)
		return
	}

	w.logger.Info("Processing run", "run_id", run.ID, "suite_id", run.SuiteID)

	now := time.Now().UTC()
	run.Status = models.RunStatusRunning
	run.StartedAt = &now
	w.db.Model(run).Updates(map[string]any{"status": run.Status, "started_at": run.StartedAt})

	// Close broker subscriptions when run finishes
	defer w.broker.Close(run.ID)

	var logBuf bytes.Buffer
	brokerWriter := logstream.NewStreamWriter(run.ID, w.broker, &logBuf)

	// Multi-writer: buffer + broker (in-memory) + Valkey (distributed, if available)
	var logWriter io.Writer
	if w.valkeyClient != nil {
		valkeyWriter := logstream.NewValkeyLogWriter(w.valkeyClient, strconv.FormatUint(uint64(run.ID), 10))
		logWriter = io.MultiWriter(brokerWriter, valkeyWriter)
	} else {
		logWriter = brokerWriter
	}

	err := w.executeRun(ctx, run, logWriter)

	if outputDir := run.OutputDir; outputDir != "" {
		if werr := os.WriteFile(filepath.Join(outputDir, "run.log"), logBuf.Bytes(), 0644); werr != nil {
			w.logger.Error("Failed to persist run log", "run_id", run.ID, "error", werr)
		}
	}

	if err != nil {
		if errors.Is(err, errRunCancelled) {
			w.logger.Info("Run cancelled", "run_id", run.ID)
			w.finishRun(run, models.RunStatusCancelled, "")
			w.broker.Publish(run.ID, "\n[CANCELLED] Run was cancelled\n")
			return
		}
		w.logger.Error("Run failed", "run_id", run.ID, "error", err)
		w.finishRun(run, models.RunStatusFailed, err.Error())
		w.broker.Publish(run.ID, fmt.Sprintf("\n[ERROR] Run failed: %v\n", err))
		return
	}

	w.logger.Info("Run completed", "run_id", run.ID)
	w.finishRun(run, models.RunStatusCompleted, "")
	w.broker.Publish(run.ID, "\n[COMPLETED] Run finished successfully\n")
	w.notifyCompletion(run)
}

var errRunCancelled = errors.New("run cancelled")

func (w *Worker) finishRun(run *models.Run, status models.RunStatus, errorMsg string) {
	completedAt := time.Now().UTC()
	updates := map[string]any{
		"status":       status,
		"completed_at": &completedAt,
	}
	if errorMsg != "" {
		updates["error_message"] = errorMsg
	}
	if run.OutputDir != "" {
		updates["output_dir"] = run.OutputDir
	}
	if err := w.db.Model(&models.Run{}).Where("id = ?", run.ID).Updates(updates).Error; err != nil {
		w.logger.Error("Failed to update run status", "run_id", run.ID, "error", err)
	}
	run.Status = status
	run.CompletedAt = &completedAt
}

// isCancelled re-reads the run row so API-side cancellations take effect
// between queries.
func (w *Worker) isCancelled(runID uint) bool {
	var status string
	err := w.db.Model(&models.Run{}).Select("status").Where("id = ?", runID).Scan(&status).Error
	if err != nil {
		return false
	}
	return models.RunStatus(status) == models.RunStatusCancelled
}

func (w *Worker) executeRun(ctx context.Context, run *models.Run, logWriter io.Writer) error {
	var agent models.AgentConfig
	if err := w.db.First(&agent, run.AgentConfigID).Error; err != nil {
		return fmt.Errorf("failed to load agent config: %w", err)
	}

	var queries []models.Query
	if err := w.db.Where("suite_id = ?", run.SuiteID).Order("id ASC").Find(&queries).Error; err != nil {
		return fmt.Errorf("failed to load suite queries: %w", err)
	}
	if len(queries) == 0 {
		return fmt.Errorf("suite %d has no queries", run.SuiteID)
	}

	outputDir, err := w.executor.PrepareRun(run)
	if err != nil {
		return err
	}
	run.OutputDir = outputDir
	w.db.Model(&models.Run{}).Where("id = ?", run.ID).
		Updates(map[string]any{"output_dir": outputDir, "progress_total": len(queries)})

	fmt.Fprintf(logWriter, "Run %d: %d queries, model %s\n", run.ID, len(queries), agent.Model)

	for i := range queries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if w.isCancelled(run.ID) {
			return errRunCancelled
		}

		query := &queries[i]
		startedAt := time.Now().UTC()
		response, score, err := w.executor.ExecuteQuery(ctx, &agent, query, logWriter)
		trace := w.recordTrace(run, &agent, query, startedAt, response, err)
		if err != nil {
			return fmt.Errorf("query %d: %w", query.ID, err)
		}

		// Results carry the run's tenancy verbatim so the tenancy filter
		// surfaces them alongside our run.
		result := models.Result{
			OrganizationID:  run.OrganizationID,
			ProjectID:       run.ProjectID,
			VisibilityScope: run.VisibilityScope,
			RunID:           run.ID,
			QueryID:         query.ID,
			TraceLogID:      trace,
			ResponseText:    response,
			Score:           score,
		}
		if err := w.db.Create(&result).Error; err != nil {
			return fmt.Errorf("failed to store result for query %d: %w", query.ID, err)
		}

		if err := w.db.Model(&models.Run{}).Where("id = ?", run.ID).
			Update("progress_current", i+1).Error; err != nil {
			w.logger.Error("Failed to update run progress", "run_id", run.ID, "error", err)
		}
	}

	return nil
}

// recordTrace stores a trace log for one query invocation and returns its ID
// for the result row. Trace write failures are logged, never fatal to the run.
func (w *Worker) recordTrace(run *models.Run, agent *models.AgentConfig, query *models.Query, startedAt time.Time, response string, execErr error) *uint {
	completedAt := time.Now().UTC()
	latency := completedAt.Sub(startedAt).Milliseconds()
	trace := models.TraceLog{
		OrganizationID:  run.OrganizationID,
		ProjectID:       run.ProjectID,
		CreatedByUserID: run.CreatedByUserID,
		RunID:           &run.ID,
		QueryID:         &query.ID,
		Provider:        "local",
		Endpoint:        "executor.execute_query",
		Model:           agent.Model,
		Status:          models.TraceStatusCompleted,
		Usage:           executor.EstimateUsage(query.Prompt, response),
		LatencyMS:       &latency,
		StartedAt:       startedAt,
		CompletedAt:     &completedAt,
	}
	if execErr != nil {
		trace.Status = models.TraceStatusFailed
		trace.Error = execErr.Error()
		trace.Usage = nil
	}
	if err := w.db.Create(&trace).Error; err != nil {
		w.logger.Error("Failed to store trace log", "run_id", run.ID, "query_id", query.ID, "error", err)
		return nil
	}
	return &trace.ID
}

// notifyCompletion writes an in-app notification for the run's creator.
func (w *Worker) notifyCompletion(run *models.Run) {
	if run.CreatedByUserID == nil {
		return
	}
	notification := models.AppNotification{
		OrganizationID: run.OrganizationID,
		UserID:         *run.CreatedByUserID,
		Title:          "Run completed",
		Body:           fmt.Sprintf("Run %q (#%d) finished successfully.", run.Label, run.ID),
	}
	if err := w.db.Create(&notification).Error; err != nil {
		w.logger.Error("Failed to create notification", "run_id", run.ID, "error", err)
	}
}
