// Package repository provides fraud-case persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

const caseColumns = `id, client_id, country, account_type, deposit_amount,
	withdrawal_amount, num_trades, avg_trade_amount, trade_duration,
	total_profit, fees_paid, payment_method, risk_level, detection_timestamp`

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveCase inserts one classified case.
func (r *SQLRepository) SaveCase(ctx context.Context, c *domain.FraudCase) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: case with id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO fraud_cases (` + caseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	// Timestamps are stored normalized to UTC. Both drivers compare
	// stored values without regard to offset (sqlite as text, postgres
	// as a zone-less wall clock), so mixed-offset rows would misorder.
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		c.ID, c.ClientID, c.Country, c.AccountType,
		c.DepositAmount, c.WithdrawalAmount,
		c.NumTrades, c.AvgTradeAmount, c.TradeDuration,
		c.TotalProfit, c.FeesPaid,
		c.PaymentMethod, string(c.RiskLevel),
		c.DetectionTimestamp.UTC(),
	)
	if err != nil {
		return &domain.StorageError{Op: "save case", Err: err}
	}
	return nil
}

// GetCase retrieves a case by its surrogate id.
func (r *SQLRepository) GetCase(ctx context.Context, id string) (*domain.FraudCase, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	query := `SELECT ` + caseColumns + ` FROM fraud_cases WHERE id = ?`
	c, err := scanCase(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get case", Err: err}
	}
	return c, nil
}

// LatestCaseByClient retrieves the most recent case for a client.
func (r *SQLRepository) LatestCaseByClient(ctx context.Context, clientID string) (*domain.FraudCase, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: clientID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + caseColumns + `
		FROM fraud_cases
		WHERE client_id = ?
		ORDER BY detection_timestamp DESC
		LIMIT 1
	`
	c, err := scanCase(r.db.QueryRowContext(ctx, r.rebind(query), clientID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "latest case by client", Err: err}
	}
	return c, nil
}

// CasesInWindow retrieves all cases inside the half-open window, newest
// first. The lower bound is inclusive, the upper bound exclusive. Bounds
// are converted to UTC to match the stored normalization; bounds in a
// different zone would drop rows near the window edges.
func (r *SQLRepository) CasesInWindow(ctx context.Context, w domain.Window) ([]*domain.FraudCase, error) {
	query := `
		SELECT ` + caseColumns + `
		FROM fraud_cases
		WHERE detection_timestamp >= ? AND detection_timestamp < ?
		ORDER BY detection_timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), w.Start.UTC(), w.End.UTC())
	if err != nil {
		return nil, &domain.StorageError{Op: "cases in window", Err: err}
	}
	defer rows.Close()

	return collectCases(rows)
}

// ListCases retrieves every stored case, newest first.
func (r *SQLRepository) ListCases(ctx context.Context) ([]*domain.FraudCase, error) {
	query := `SELECT ` + caseColumns + ` FROM fraud_cases ORDER BY detection_timestamp DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.StorageError{Op: "list cases", Err: err}
	}
	defer rows.Close()

	return collectCases(rows)
}

// Ping checks database health.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*domain.FraudCase, error) {
	var c domain.FraudCase
	var riskLevel string

	err := row.Scan(
		&c.ID, &c.ClientID, &c.Country, &c.AccountType,
		&c.DepositAmount, &c.WithdrawalAmount,
		&c.NumTrades, &c.AvgTradeAmount, &c.TradeDuration,
		&c.TotalProfit, &c.FeesPaid,
		&c.PaymentMethod, &riskLevel,
		&c.DetectionTimestamp,
	)
	if err != nil {
		return nil, err
	}

	// Stored levels pass through untouched; validation belongs to the
	// aggregation engine, which surfaces integrity faults explicitly.
	c.RiskLevel = domain.RiskLevel(riskLevel)
	return &c, nil
}

func collectCases(rows *sql.Rows) ([]*domain.FraudCase, error) {
	var cases []*domain.FraudCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "scan case", Err: err}
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "iterate cases", Err: err}
	}
	return cases, nil
}

// rebind converts ? placeholders to $n for postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
