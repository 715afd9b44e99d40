package store

import (
	"context"
	"embed"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/friconhq/fricon/internal/applog"
	"github.com/friconhq/fricon/internal/ferr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

func embeddedMigrationNames() ([]string, error) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	if err != nil {
		return nil, ferr.Wrap(ferr.CodeStorage, "read embedded migrations", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".sql" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// runMigrations applies every embedded migration not yet recorded in the
// store's migration log, verifying the already-applied log is a prefix of
// (or equal to) the embedded list first. dbPath is backed up before any new
// migration is applied so a downgrade remains possible.
func (p *Pool) runMigrations(ctx context.Context, dbPath string) error {
	log := applog.WithComponent("migrations")

	if _, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "create migrations table", err)
	}

	embedded, err := embeddedMigrationNames()
	if err != nil {
		return err
	}

	applied, err := p.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	if err := verifyPrefix(applied, embedded); err != nil {
		return err
	}

	pending := embedded[len(applied):]
	if len(pending) == 0 {
		log.Debug().Msg("no pending migrations")
		return nil
	}

	if err := backupStoreFile(dbPath); err != nil {
		return err
	}

	for _, name := range pending {
		if err := p.applyOneMigration(ctx, name); err != nil {
			return err
		}
		log.Info().Str("migration", name).Msg("applied migration")
	}
	return nil
}

func (p *Pool) appliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name FROM schema_migrations ORDER BY id ASC`)
	if err != nil {
		return nil, ferr.Wrap(ferr.CodeStorage, "list applied migrations", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, ferr.Wrap(ferr.CodeStorage, "scan applied migration", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// verifyPrefix ensures every already-applied migration name matches the
// embedded list at the same position. A divergence means the binary is
// older than the database it is opening, or the database was touched by an
// incompatible build.
func verifyPrefix(applied, embedded []string) error {
	if len(applied) > len(embedded) {
		return ferr.Newf(ferr.CodeMigrationMismatch,
			"store has %d applied migrations but only %d are compiled in", len(applied), len(embedded))
	}
	for i, name := range applied {
		if embedded[i] != name {
			return ferr.Newf(ferr.CodeMigrationMismatch,
				"applied migration %d is %q, expected %q", i, name, embedded[i])
		}
	}
	return nil
}

func (p *Pool) applyOneMigration(ctx context.Context, name string) error {
	content, err := migrationsFS.ReadFile(path.Join(migrationsDir, name))
	if err != nil {
		return ferr.Wrapf(ferr.CodeStorage, err, "read migration %s", name)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return ferr.Wrap(ferr.CodeStorage, "begin migration transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return ferr.Wrapf(ferr.CodeStorage, err, "execute migration %s", name)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES (?)`, name); err != nil {
		return ferr.Wrapf(ferr.CodeStorage, err, "record migration %s", name)
	}
	if err := tx.Commit(); err != nil {
		return ferr.Wrapf(ferr.CodeStorage, err, "commit migration %s", name)
	}
	return nil
}

// backupStoreFile copies the current store file to backup_<unix-ts>.sqlite3
// alongside it before any schema upgrade is applied, so a downgrade stays
// possible. Missing source file (brand-new store) is not an error.
func backupStoreFile(dbPath string) error {
	src, err := os.Open(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ferr.Wrap(ferr.CodeStorage, "open store for backup", err)
	}
	defer src.Close()

	backupPath := filepath.Join(filepath.Dir(dbPath), fmt.Sprintf("backup_%d.sqlite3", time.Now().Unix()))
	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return ferr.Wrap(ferr.CodeStorage, "create backup file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "copy store to backup", err)
	}
	return dst.Sync()
}
