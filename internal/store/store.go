// Package store persists subscriptions, budgets, expenses and rate snapshots in
// SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Backend names a supported database.
type Backend string

const (
	SQLite   Backend = "sqlite"
	Postgres Backend = "postgres"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnknownBackend is returned by Open for unsupported backends.
var ErrUnknownBackend = errors.New("unknown store backend")

// ErrMonthNotEmpty is returned when cloning budgets into a month that has some.
var ErrMonthNotEmpty = errors.New("month already has budgets")

// Storage is a migrated database connection.
type Storage struct {
	db      *sql.DB
	backend Backend
}

// Open connects to the database, waits for it to answer and applies pending
// migrations. For SQLite the dsn is a file path; its directory is created.
func Open(ctx context.Context, backend Backend, dsn string) (*Storage, error) {
	const op = "store.Open"

	switch backend {
	case SQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("%s: create db directory: %w", op, err)
		}
	case Postgres:
	default:
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownBackend, backend)
	}

	db, err := sql.Open(string(backend), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if backend == SQLite {
		// one writer at a time, avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	if err := RunMigrations(backend, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db, backend: backend}, nil
}

// Backend returns the database kind.
func (s *Storage) Backend() Backend {
	return s.backend
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func (s *Storage) rebind(query string) string {
	if s.backend != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx runs fn in a transaction, rolling back if fn fails.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func deleted(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
