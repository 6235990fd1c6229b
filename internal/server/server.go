// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axiom-eval/axiom/internal/api"
	"github.com/axiom-eval/axiom/internal/api/handlers"
	"github.com/axiom-eval/axiom/internal/config"
	"github.com/axiom-eval/axiom/internal/db"
	"github.com/axiom-eval/axiom/internal/executor"
	"github.com/axiom-eval/axiom/internal/logger"
	"github.com/axiom-eval/axiom/internal/logstream"
	"github.com/axiom-eval/axiom/internal/queue"
	"github.com/axiom-eval/axiom/internal/worker"

	"github.com/valkey-io/valkey-go"
	"gorm.io/gorm"
)

// Config holds the server configuration options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Mode    string // Run mode: server, worker, or both
	Version string // Version string to report
}

// Run starts the server with the given configuration and blocks until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	// Set version in handlers
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	// Load configuration
	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override port from CLI flag if provided
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	// Initialize logger
	logger.Init(appCfg.Log.Format, appCfg.Log.Level)
	slog.Info("Starting Axiom server", "version", cfg.Version, "mode", appCfg.Server.Mode)

	// Initialize database
	database, err := db.New(appCfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database initialized", "driver", appCfg.Database.Driver)

	// Run migrations (includes idempotent permission catalog and bootstrap
	// organization provisioning)
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	// Initialize server ID (generate if not exists)
	serverID, err := db.GetOrCreateServerID(database)
	if err != nil {
		return fmt.Errorf("failed to initialize server ID: %w", err)
	}
	slog.Info("Server ID initialized", "server_id", serverID)

	// Create default admin user if configured
	if err := db.CreateDefaultAdmin(database); err != nil {
		return fmt.Errorf("failed to create default admin user: %w", err)
	}

	// Initialize run queue based on configuration
	runQueue, err := createQueue(appCfg, database)
	if err != nil {
		return fmt.Errorf("failed to initialize run queue: %w", err)
	}
	defer runQueue.Close()
	slog.Info("Run queue initialized", "type", appCfg.Queue.Type)

	// Get Valkey client for log streaming (if using Valkey queue)
	var valkeyClient valkey.Client
	if vq, ok := runQueue.(*queue.ValkeyQueue); ok {
		valkeyClient = vq.GetClient()
		slog.Info("Valkey client available for log streaming")
	}

	// Initialize executor
	exec, err := executor.NewLocalExecutor(appCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize executor: %w", err)
	}
	slog.Info("Local executor initialized", "output_dir", appCfg.Runs.OutputDir)

	// Initialize components based on run mode
	var w *worker.Worker
	var srv *http.Server
	var workerCancel context.CancelFunc

	mode := cfg.Mode
	if mode == "" {
		mode = "both"
	}

	runServer := mode == "server" || mode == "both"
	runWorker := mode == "worker" || mode == "both"

	if !runServer && !runWorker {
		return fmt.Errorf("invalid mode %q: valid modes are server, worker, both", mode)
	}

	slog.Info("Starting Axiom", "mode", mode)

	// Initialize and start worker if needed
	if runWorker {
		w = worker.New(database, runQueue, exec, slog.Default(), valkeyClient, appCfg.Runs.MaxConcurrent)
		workerCtx, cancel := context.WithCancel(ctx)
		workerCancel = cancel

		go func() {
			if err := w.Start(workerCtx); err != nil && err != context.Canceled {
				slog.Error("Worker failed", "error", err)
			}
		}()
		slog.Info("Worker started", "max_concurrent", appCfg.Runs.MaxConcurrent)
	}

	// Initialize and start API server if needed
	if runServer {
		var broker *logstream.LogBroker
		if w != nil {
			broker = w.GetBroker()
		} else {
			// Server-only mode: the worker runs in another process, so local
			// subscriptions stay empty unless logs arrive through Valkey.
			broker = logstream.NewBroker()
		}

		router := api.NewRouter(appCfg, database, runQueue, broker)

		addr := fmt.Sprintf(":%d", appCfg.Server.Port)
		srv = &http.Server{
			Addr:    addr,
			Handler: router,
		}

		go func() {
			slog.Info("Server listening", "address", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Server failed", "error", err)
			}
		}()
	}

	// Wait for context cancellation
	<-ctx.Done()
	slog.Info("Shutting down...")

	// Stop worker if running
	if workerCancel != nil {
		workerCancel()
		slog.Info("Worker stopped")
	}

	// Shutdown server if running
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		slog.Info("Server stopped")
	}

	slog.Info("Axiom exited")
	return nil
}

// RunWithSignalHandling starts the server and handles OS signals for graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg)
	}()

	// Wait for signal or error
	select {
	case sig := <-quit:
		slog.Info("Received signal", "signal", sig)
		cancel()
		// Wait for server to finish
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// createQueue creates a queue based on configuration.
func createQueue(cfg *config.Config, database *gorm.DB) (queue.Queue, error) {
	switch cfg.Queue.Type {
	case "", "memory":
		return queue.NewMemoryQueue(database, 100), nil
	case "valkey":
		return queue.NewValkeyQueue(cfg.Queue.ValkeyAddr, database)
	default:
		return nil, fmt.Errorf("unknown queue type %q: valid types are memory, valkey", cfg.Queue.Type)
	}
}
