// Package store implements fricon's persistence layer: a bounded connection
// pool over an embedded SQLite database, its startup migrations, and the
// typed repositories (datasets, tags, associations) built on top of it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/friconhq/fricon/internal/applog"
	"github.com/friconhq/fricon/internal/ferr"
)

const (
	defaultBusyTimeout = 5 * time.Second
	defaultMaxWorkers  = 8
	busyRetryAttempts  = 5
	busyRetryBaseDelay = 10 * time.Millisecond
)

// Pool owns the embedded relational store: a *sql.DB configured for
// concurrent readers plus a bounded blocking-worker slot count for the
// single-writer mutation path. Interact is the only suspension point for
// persistence, matching the core's concurrency model.
type Pool struct {
	db  *sql.DB
	sem chan struct{}
}

// Options configures pool construction.
type Options struct {
	// MaxWorkers bounds how many interact closures may run concurrently
	// against the store, standing in for a dedicated blocking-worker pool.
	MaxWorkers int
}

// Open opens (creating if necessary) the SQLite database at path, applies
// connection pragmas, and runs any pending embedded migrations.
func Open(path string, opts Options) (*Pool, error) {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = defaultMaxWorkers
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ferr.Wrapf(ferr.CodeStorage, err, "open store %s", path)
	}
	db.SetMaxOpenConns(opts.MaxWorkers + 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	p := &Pool{
		db:  db,
		sem: make(chan struct{}, opts.MaxWorkers),
	}

	if err := p.runMigrations(ctx, path); err != nil {
		db.Close()
		return nil, err
	}

	return p, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", defaultBusyTimeout.Milliseconds()),
	}
	for _, stmt := range pragmas {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return ferr.Wrapf(ferr.CodeStorage, err, "apply pragma %q", stmt)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (p *Pool) Close() error {
	if err := p.db.Close(); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "close store", err)
	}
	return nil
}

// acquire blocks until a worker slot is free or ctx is cancelled, the Go
// analogue of offloading onto a dedicated blocking-worker pool without
// blocking the caller's own concurrency model.
func (p *Pool) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ferr.Wrap(ferr.CodeStorage, "interact cancelled waiting for worker slot", ctx.Err())
	}
}

func (p *Pool) release() { <-p.sem }

// interact runs fn against the read pool, retrying on a busy/locked store
// with exponential backoff. Use for single-statement reads.
func (p *Pool) interact(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()

	var err error
	delay := busyRetryBaseDelay
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		err = fn(ctx, p.db)
		if err == nil || !isBusyErr(err) {
			return err
		}
		applog.WithComponent("store").Debug().Int("attempt", attempt).Msg("store busy, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ferr.Wrap(ferr.CodeStorage, "interact cancelled during busy retry", ctx.Err())
		}
		delay *= 2
	}
	return ferr.Wrap(ferr.CodeStorage, "store busy after retries", err)
}

// withImmediateTx runs fn inside a BEGIN IMMEDIATE transaction, acquiring
// the write lock up front so concurrent mutations fail fast against
// busy_timeout rather than deadlocking, per the core's single-writer model.
// fn receives the raw *sql.Conn backing the transaction; sql.Conn exposes
// the same ExecContext/QueryContext/QueryRowContext surface as *sql.Tx.
func (p *Pool) withImmediateTx(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()

	var err error
	delay := busyRetryBaseDelay
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		err = p.runImmediateTx(ctx, fn)
		if err == nil || !isBusyErr(err) {
			return err
		}
		applog.WithComponent("store").Debug().Int("attempt", attempt).Msg("write lock busy, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ferr.Wrap(ferr.CodeStorage, "interact cancelled during busy retry", ctx.Err())
		}
		delay *= 2
	}
	return ferr.Wrap(ferr.CodeStorage, "store busy after retries", err)
}

func (p *Pool) runImmediateTx(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return ferr.Wrap(ferr.CodeStorage, "acquire connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return err
	}

	if err := fn(ctx, conn); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "commit transaction", err)
	}
	return nil
}

// isBusyErr classifies a SQLite "database is locked"/"busy" error for
// retry. modernc.org/sqlite surfaces these as plain errors whose message
// contains the SQLite result code text, so string matching is the most
// portable classification available without depending on driver internals.
func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}
