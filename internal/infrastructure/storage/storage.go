package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/pricelens/backend/internal/domain"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const baseRetryDelay = 500 * time.Millisecond

// Config describes how to reach the database
type Config struct {
	Driver string
	DSN    string
	// ConnectAttempts bounds the initial ping loop. Values below 1 mean one attempt.
	ConnectAttempts int
}

// Store implements the repositories of the domain over database/sql
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the configured database, retrying the initial ping with
// exponential backoff
func Open(ctx context.Context, cfg Config) (*Store, error) {
	const op = "storage.Open"
	log := slog.With("op", op, "driver", cfg.Driver)

	db, d, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	attempts := max(cfg.ConnectAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = db.PingContext(ctx); lastErr == nil {
			log.Info("database is available")
			return &Store{db: db, dialect: d}, nil
		}

		log.Warn("database ping failed", "attempt", attempt, "err", lastErr)
		if attempt == attempts {
			break
		}

		wait := baseRetryDelay << (attempt - 1)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("%s: %w: %w", op, ctx.Err(), lastErr)
		case <-time.After(wait):
		}
	}

	db.Close()
	return nil, fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, lastErr)
}

func openDB(cfg Config) (*sql.DB, dialect, error) {
	switch cfg.Driver {
	case DriverPostgres:
		connConfig, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, dialect{}, fmt.Errorf("parse dsn: %w", err)
		}
		db := stdlib.OpenDB(*connConfig)
		return db, postgresDialect, nil

	case DriverSQLite:
		db, err := sql.Open("sqlite", sqliteDSN(cfg.DSN))
		if err != nil {
			return nil, dialect{}, err
		}
		// one writer; in-memory databases also live per connection
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		return db, sqliteDialect, nil
	}

	return nil, dialect{}, fmt.Errorf("unsupported driver %q", cfg.Driver)
}

// DB exposes the underlying handle for migrations
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the driver name the store was opened with
func (s *Store) Driver() string {
	return s.dialect.name
}

// Ping reports whether the database answers a trivial query
func (s *Store) Ping(ctx context.Context) error {
	const op = "Store.Ping"

	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Close releases the connection pool
func (s *Store) Close() {
	const op = "Store.Close"
	log := slog.With("op", op)

	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		log.Error("failed to close", "err", err)
		return
	}
	log.Info("database is closed")
}
