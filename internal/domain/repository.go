package domain

import (
	"context"
	"time"
)

// Repository defines the fraud-case store contract.
type Repository interface {
	// SaveCase inserts one classified case.
	SaveCase(ctx context.Context, c *FraudCase) error

	// GetCase retrieves a case by its surrogate id.
	GetCase(ctx context.Context, id string) (*FraudCase, error)

	// LatestCaseByClient retrieves the most recent case for a client.
	LatestCaseByClient(ctx context.Context, clientID string) (*FraudCase, error)

	// CasesInWindow retrieves all cases with detection_timestamp inside
	// the half-open window, newest first.
	CasesInWindow(ctx context.Context, w Window) ([]*FraudCase, error)

	// ListCases retrieves every stored case, newest first.
	ListCases(ctx context.Context) ([]*FraudCase, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
