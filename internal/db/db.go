package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/config"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New creates a new database connection based on configuration
func New(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		// Configure SQLite with WAL mode, busy timeout and foreign key
		// enforcement (off by default in SQLite)
		dialector = sqlite.Open(cfg.DSN + "?_journal_mode=WAL&_busy_timeout=5000&_pragma=foreign_keys(1)")
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	// Configure GORM logger (silent in production, info in dev)
	gormLogger := logger.Default.LogMode(logger.Info)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite: Use single connection to avoid locking issues
		// WAL mode allows concurrent reads but only one writer
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		slog.Info("Configured SQLite with WAL mode and single connection")
	} else if cfg.Driver == "postgres" || cfg.Driver == "postgresql" {
		// PostgreSQL: Use connection pool
		maxIdleConns := cfg.MaxIdleConns
		if maxIdleConns <= 0 {
			maxIdleConns = 10
		}
		maxOpenConns := cfg.MaxOpenConns
		if maxOpenConns <= 0 {
			maxOpenConns = 100
		}
		connMaxLifetime := cfg.ConnMaxLifetime
		if connMaxLifetime <= 0 {
			connMaxLifetime = 60 // Default 60 minutes
		}

		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Minute)

		slog.Info("Configured PostgreSQL connection pool",
			"max_idle_conns", maxIdleConns,
			"max_open_conns", maxOpenConns,
			"conn_max_lifetime_min", connMaxLifetime)
	}

	return db, nil
}

// Migrate runs database migrations for all models, seeds the permission
// catalog, and adopts pre-tenancy data into a bootstrap organization when
// needed.
func Migrate(db *gorm.DB) error {
	slog.Info("Running database migrations...")

	// Auto-migrate all models
	err := db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Project{},
		&models.Permission{},
		&models.OrganizationRole{},
		&models.ProjectRole{},
		&models.OrganizationRolePermission{},
		&models.ProjectRolePermission{},
		&models.OrganizationMembership{},
		&models.ProjectMembership{},
		&models.UserPermissionGrant{},
		&models.Invitation{},
		&models.BenchmarkSuite{},
		&models.Query{},
		&models.AgentConfig{},
		&models.Run{},
		&models.Result{},
		&models.TraceLog{},
		&models.RunCostPreview{},
		&models.Comparison{},
		&models.AppNotification{},
		&models.AuditLog{},
		&models.ServerConfig{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := authz.SeedPermissionCatalog(db); err != nil {
		return fmt.Errorf("failed to seed permission catalog: %w", err)
	}

	if err := authz.EnsureBootstrapOrganization(db); err != nil {
		return fmt.Errorf("failed to ensure bootstrap organization: %w", err)
	}

	return nil
}
