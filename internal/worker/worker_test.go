package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/axiom-eval/axiom/internal/config"
	"github.com/axiom-eval/axiom/internal/executor"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/queue"
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
	err = db.AutoMigrate(
		&models.BenchmarkSuite{},
		&models.Query{},
		&models.AgentConfig{},
		&models.Run{},
		&models.Result{},
		&models.TraceLog{},
		&models.AppNotification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testWorker(t *testing.T, db *gorm.DB) *Worker {
	t.Helper()
	exec, err := executor.NewLocalExecutor(&config.Config{
		Runs: config.RunsConfig{OutputDir: t.TempDir()},
	})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	q := queue.NewMemoryQueue(db, 10)
	t.Cleanup(func() { q.Close() })
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, q, exec, discard, nil, 1)
}

func TestExecuteRun_WritesResultsAndTraces(t *testing.T) {
	db := setupTestDB(t)
	w := testWorker(t, db)

	suite := models.BenchmarkSuite{OrganizationID: 7, ProjectID: 3, Name: "Smoke"}
	if err := db.Create(&suite).Error; err != nil {
		t.Fatalf("failed to create suite: %v", err)
	}
	prompts := []string{"What is 2+2?", "Name a prime number."}
	for _, prompt := range prompts {
		if err := db.Create(&models.Query{SuiteID: suite.ID, Prompt: prompt}).Error; err != nil {
			t.Fatalf("failed to create query: %v", err)
		}
	}
	agent := models.AgentConfig{OrganizationID: 7, ProjectID: 3, Name: "gpt", Model: "gpt-test"}
	if err := db.Create(&agent).Error; err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	creator := uint(11)
	run := models.Run{
		OrganizationID: 7, ProjectID: 3, CreatedByUserID: &creator,
		SuiteID: suite.ID, AgentConfigID: agent.ID,
		Label: "baseline", Status: models.RunStatusRunning,
		VisibilityScope: models.VisibilityProject,
	}
	if err := db.Create(&run).Error; err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	if err := w.executeRun(context.Background(), &run, io.Discard); err != nil {
		t.Fatalf("executeRun failed: %v", err)
	}

	var results []models.Result
	if err := db.Where("run_id = ?", run.ID).Order("id ASC").Find(&results).Error; err != nil {
		t.Fatalf("failed to load results: %v", err)
	}
	if len(results) != len(prompts) {
		t.Fatalf("results = %d, want %d", len(results), len(prompts))
	}

	var traces []models.TraceLog
	if err := db.Where("run_id = ?", run.ID).Order("id ASC").Find(&traces).Error; err != nil {
		t.Fatalf("failed to load traces: %v", err)
	}
	if len(traces) != len(prompts) {
		t.Fatalf("traces = %d, want %d", len(traces), len(prompts))
	}

	for i, result := range results {
		if result.TraceLogID == nil {
			t.Fatalf("result %d has no trace link", result.ID)
		}
		if *result.TraceLogID != traces[i].ID {
			t.Errorf("result %d links trace %d, want %d", result.ID, *result.TraceLogID, traces[i].ID)
		}
	}
	for _, trace := range traces {
		// Traces carry the run's tenancy, like results.
		if trace.OrganizationID != run.OrganizationID || trace.ProjectID != run.ProjectID {
			t.Errorf("trace %d tenancy = (%d, %d), want (%d, %d)",
				trace.ID, trace.OrganizationID, trace.ProjectID, run.OrganizationID, run.ProjectID)
		}
		if trace.Status != models.TraceStatusCompleted {
			t.Errorf("trace %d status = %s, want completed", trace.ID, trace.Status)
		}
		if trace.Model != agent.Model {
			t.Errorf("trace %d model = %s, want %s", trace.ID, trace.Model, agent.Model)
		}
		if trace.Usage["total_tokens"] == 0 {
			t.Errorf("trace %d has no usage", trace.ID)
		}
		if trace.LatencyMS == nil {
			t.Errorf("trace %d has no latency", trace.ID)
		}
	}
}
