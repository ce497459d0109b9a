package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opsdeck/opsdeck/pkg/vault"
)

// Pool defaults. Heartbeat ingest holds a connection per in-flight
// sample insert, so the ceiling is sized for a few hundred agents on
// a typical reporting interval rather than for web-scale traffic.
const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
)

// Config holds database connection configuration
type Config struct {
	// URL is the database connection URL (defaults to DATABASE_URL env var)
	URL string
	// Cipher is optional - if provided, it will be added to the context
	Cipher vault.SymmetricCipher
	// MaxOpenConns caps the pool; zero means the package default
	MaxOpenConns int
	// MaxIdleConns sets the idle pool size; zero means the package default
	MaxIdleConns int
	// ConnMaxLifetime recycles connections; zero means the package default
	ConnMaxLifetime time.Duration
}

// Connect establishes a database connection.
// If no URL is provided, it reads from DATABASE_URL environment variable.
func Connect(cfg Config) (*gorm.DB, error) {
	dbURL := cfg.URL
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// Default to silent logging unless OPSDECK_LOG_LEVEL=debug is set
	logMode := logger.Silent
	if os.Getenv("OPSDECK_LOG_LEVEL") == "debug" {
		logMode = logger.Info
	}

	// PreferSimpleProtocol avoids implicit prepared statements, which
	// break behind connection poolers like pgbouncer in transaction mode
	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			DSN:                  dbURL,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logMode),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := tunePool(gormDB, cfg); err != nil {
		return nil, err
	}

	if cfg.Cipher != nil {
		ctx := vault.WithCipher(context.Background(), cfg.Cipher)
		gormDB = gormDB.WithContext(ctx)
	}

	return gormDB, nil
}

func tunePool(gormDB *gorm.DB, cfg Config) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = defaultMaxIdleConns
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = defaultConnMaxLifetime
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)
	return nil
}

// URL returns the database URL from environment.
// Returns empty string if DATABASE_URL is not set.
func URL() string {
	return os.Getenv("DATABASE_URL")
}
