package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/friconhq/fricon/internal/ferr"
)

// querier is satisfied by both *sql.DB and *sql.Conn, letting tag helpers
// run either standalone or inside an ongoing BEGIN IMMEDIATE transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ListTagUniverse returns every tag name known to the workspace.
func (s *Store) ListTagUniverse(ctx context.Context) ([]string, error) {
	var names []string
	err := s.pool.interact(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT name FROM tags ORDER BY name ASC`)
		if err != nil {
			return ferr.Wrap(ferr.CodeStorage, "list tag universe", err)
		}
		defer rows.Close()
		names = nil
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return ferr.Wrap(ferr.CodeStorage, "scan tag", err)
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	return names, err
}

// upsertTags inserts any names not already present, then returns the id for
// every requested name. Two concurrent creates naming the same new tag can
// both attempt the insert, but only one wins, and the subsequent select
// always finds a row either way.
func upsertTags(ctx context.Context, q querier, names []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := ids[name]; ok {
			continue
		}

		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
			return nil, ferr.Wrapf(ferr.CodeStorage, err, "insert tag %q", name)
		}

		var id int64
		if err := q.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id); err != nil {
			return nil, ferr.Wrapf(ferr.CodeStorage, err, "resolve tag %q", name)
		}
		ids[name] = id
	}
	return ids, nil
}

// replaceDatasetTags clears a dataset's tag associations and re-inserts the
// given set, implementing the "replace" semantics for metadata updates
// chosen in DESIGN.md over the source's inconsistent add-only behavior.
func replaceDatasetTags(ctx context.Context, q querier, datasetID int64, names []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM datasets_tags WHERE dataset_id = ?`, datasetID); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "clear dataset tags", err)
	}

	ids, err := upsertTags(ctx, q, names)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := q.ExecContext(ctx, `INSERT INTO datasets_tags (dataset_id, tag_id) VALUES (?, ?)`, datasetID, id); err != nil {
			return ferr.Wrap(ferr.CodeStorage, "associate dataset tag", err)
		}
	}
	return nil
}

// tagsForDataset loads the tag names currently associated with a dataset,
// sorted for stable comparisons.
func tagsForDataset(ctx context.Context, q querier, datasetID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN datasets_tags dt ON dt.tag_id = t.id
		WHERE dt.dataset_id = ?
		ORDER BY t.name ASC`, datasetID)
	if err != nil {
		return nil, ferr.Wrap(ferr.CodeStorage, "load dataset tags", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, ferr.Wrap(ferr.CodeStorage, "scan dataset tag", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
