package executor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/axiom-eval/axiom/internal/config"
	"github.com/axiom-eval/axiom/internal/models"
)

func testExecutor(t *testing.T) *LocalExecutor {
	t.Helper()
	cfg := &config.Config{
		Runs: config.RunsConfig{OutputDir: t.TempDir()},
	}
	exec, err := NewLocalExecutor(cfg)
	if err != nil {
		t.Fatalf("NewLocalExecutor: %v", err)
	}
	return exec
}

func TestPrepareRun_CreatesOutputDir(t *testing.T) {
	exec := testExecutor(t)

	run := &models.Run{ID: 7}
	dir, err := exec.PrepareRun(run)
	if err != nil {
		t.Fatalf("PrepareRun: %v", err)
	}
	if filepath.Base(dir) != "run-7" {
		t.Errorf("dir = %q, want basename run-7", dir)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("dir %q is not absolute", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("run directory not created: %v", err)
	}

	// Preparing the same run twice is fine.
	if _, err := exec.PrepareRun(run); err != nil {
		t.Errorf("second PrepareRun: %v", err)
	}
}

func TestExecuteQuery_Deterministic(t *testing.T) {
	exec := testExecutor(t)
	agent := &models.AgentConfig{Model: "gpt-test"}
	query := &models.Query{ID: 1, Prompt: "What is 2+2?\nShow your work."}

	var log bytes.Buffer
	resp1, score, err := exec.ExecuteQuery(context.Background(), agent, query, &log)
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if score != nil {
		t.Errorf("score = %v, want nil when no expected answer", *score)
	}
	if !strings.HasPrefix(resp1, "[gpt-test] What is 2+2?") {
		t.Errorf("unexpected response %q", resp1)
	}
	if !strings.Contains(log.String(), "model gpt-test") {
		t.Errorf("log missing model: %q", log.String())
	}

	resp2, _, err := exec.ExecuteQuery(context.Background(), agent, query, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if resp1 != resp2 {
		t.Errorf("responses differ for same input: %q vs %q", resp1, resp2)
	}

	// A different model changes the response.
	resp3, _, err := exec.ExecuteQuery(context.Background(), &models.AgentConfig{Model: "other"}, query, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if resp3 == resp1 {
		t.Error("response does not vary with model")
	}
}

func TestExecuteQuery_ExactMatchScoring(t *testing.T) {
	exec := testExecutor(t)
	agent := &models.AgentConfig{Model: "gpt-test"}
	query := &models.Query{ID: 2, Prompt: "ping"}

	// Run once to learn the deterministic response, then expect it.
	resp, _, err := exec.ExecuteQuery(context.Background(), agent, query, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}

	query.Expected = strings.ToUpper(resp)
	_, score, err := exec.ExecuteQuery(context.Background(), agent, query, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if score == nil || *score != 1.0 {
		t.Errorf("score = %v, want 1.0 for case-insensitive match", score)
	}

	query.Expected = "something else"
	_, score, err = exec.ExecuteQuery(context.Background(), agent, query, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if score == nil || *score != 0.0 {
		t.Errorf("score = %v, want 0.0 for mismatch", score)
	}
}

func TestExecuteQuery_Cancelled(t *testing.T) {
	exec := testExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := exec.ExecuteQuery(ctx, &models.AgentConfig{Model: "m"}, &models.Query{Prompt: "p"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
