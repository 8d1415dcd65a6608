// Package store provides the PostgreSQL-backed expense ledger and location store.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shahar080/discord-travel-budget-tracker/pkg/api"
	"github.com/shahar080/discord-travel-budget-tracker/pkg/currency"
)

//go:embed 001_create_tables.sql
var migrationSQL string

// ErrUnavailable wraps connection-level database failures. Constraint
// violations and other server-reported errors are left unwrapped; those
// indicate a bug, not an outage, and retrying them will not help.
var ErrUnavailable = errors.New("storage unavailable")

func wrapDBErr(op string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w (%v)", op, ErrUnavailable, err)
	}
}

// Config holds the store configuration.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string

	// BaseCurrency is the currency expenses are converted into.
	BaseCurrency string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
}

// Store records and reports expenses against PostgreSQL. All operations are
// single statements; AddExpense's location lookup, rate fetch, and insert are
// not wrapped in a transaction, so a concurrent location change may land
// between lookup and insert. The recorded expense keeps the looked-up snapshot.
type Store struct {
	pool         *pgxpool.Pool
	rates        api.RateSource
	directory    *currency.Directory
	baseCurrency string
	logger       *slog.Logger
}

// New connects to PostgreSQL, verifies the connection, and runs migrations.
func New(ctx context.Context, cfg Config, rates api.RateSource, directory *currency.Directory, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{
		pool:         pool,
		rates:        rates,
		directory:    directory,
		baseCurrency: cfg.BaseCurrency,
		logger:       logger,
	}

	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("connected to PostgreSQL", "max_pool_size", cfg.MaxPoolSize)
	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("closed PostgreSQL connection pool")
	}
}
