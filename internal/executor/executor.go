package executor

import (
	"context"
	"io"

	"github.com/axiom-eval/axiom/internal/models"
)

// Executor invokes an agent against benchmark queries
type Executor interface {
	// ExecuteQuery runs the agent on one query and returns the response text
	// and a score against the expected answer (nil when ungradable)
	ExecuteQuery(ctx context.Context, agent *models.AgentConfig, query *models.Query, logWriter io.Writer) (string, *float64, error)

	// PrepareRun sets up run-local storage and returns the output directory
	PrepareRun(run *models.Run) (string, error)
}
