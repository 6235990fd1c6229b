package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/axiom-eval/axiom/internal/config"
	"github.com/axiom-eval/axiom/internal/models"
)

// LocalExecutor simulates agent execution on the local machine. It produces a
// deterministic response per (model, prompt) pair and grades by exact match
// against the expected answer. Used for development and as the fallback when
// no real agent backend is configured.
type LocalExecutor struct {
	baseDir string // Base directory for run artifacts (e.g., /var/lib/axiom/runs)
}

// NewLocalExecutor creates a new local executor
func NewLocalExecutor(cfg *config.Config) (*LocalExecutor, error) {
	baseDir := cfg.Runs.OutputDir

	// Resolve to absolute path so stored paths work from any working directory
	if !filepath.IsAbs(baseDir) {
		abs, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve base directory: %w", err)
		}
		baseDir = abs
	}

	// Create base directory if it doesn't exist
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalExecutor{baseDir: baseDir}, nil
}

// PrepareRun creates the run's output directory: {baseDir}/run-{id}
func (e *LocalExecutor) PrepareRun(run *models.Run) (string, error) {
	dir := filepath.Join(e.baseDir, fmt.Sprintf("run-%d", run.ID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}
	return dir, nil
}

// ExecuteQuery runs the simulated agent on one query
func (e *LocalExecutor) ExecuteQuery(ctx context.Context, agent *models.AgentConfig, query *models.Query, logWriter io.Writer) (string, *float64, error) {
	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	default:
	}

	fmt.Fprintf(logWriter, "Executing query %d with model %s\n", query.ID, agent.Model)

	digest := sha256.Sum256([]byte(agent.Model + "\x00" + query.Prompt))
	response := fmt.Sprintf("[%s] %s (%s)", agent.Model, firstLine(query.Prompt), hex.EncodeToString(digest[:4]))

	var score *float64
	if query.Expected != "" {
		s := 0.0
		if strings.EqualFold(strings.TrimSpace(response), strings.TrimSpace(query.Expected)) {
			s = 1.0
		}
		score = &s
	}

	return response, score, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
