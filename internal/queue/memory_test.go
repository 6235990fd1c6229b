package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/axiom-eval/axiom/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.BenchmarkSuite{}, &models.AgentConfig{}, &models.Run{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestMemoryQueue_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	q := NewMemoryQueue(db, 10)
	defer q.Close()

	run := models.Run{Label: "first", Status: models.RunStatusPending}
	if err := db.Create(&run).Error; err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	if err := q.Enqueue(context.Background(), &run); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// The status flips before dequeue; the worker must see current state.
	if err := db.Model(&run).Update("status", models.RunStatusCancelled).Error; err != nil {
		t.Fatalf("failed to update run: %v", err)
	}

	got, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got.ID != run.ID {
		t.Errorf("dequeued run %d, want %d", got.ID, run.ID)
	}
	if got.Status != models.RunStatusCancelled {
		t.Errorf("status = %q, want the re-read value", got.Status)
	}
}

func TestMemoryQueue_EnqueueRequiresID(t *testing.T) {
	q := NewMemoryQueue(setupTestDB(t), 10)
	defer q.Close()

	if err := q.Enqueue(context.Background(), &models.Run{}); err == nil {
		t.Fatal("expected error for run without ID")
	}
}

func TestMemoryQueue_DequeueHonorsContext(t *testing.T) {
	q := NewMemoryQueue(setupTestDB(t), 10)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestMemoryQueue_DeletedRun(t *testing.T) {
	db := setupTestDB(t)
	q := NewMemoryQueue(db, 10)
	defer q.Close()

	run := models.Run{Label: "doomed", Status: models.RunStatusPending}
	if err := db.Create(&run).Error; err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if err := q.Enqueue(context.Background(), &run); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := db.Delete(&run).Error; err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}

	_, err := q.Dequeue(context.Background())
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
