package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/friconhq/fricon/internal/ferr"
	"github.com/friconhq/fricon/internal/model"
)

type datasetRow struct {
	ID                 int64
	UUID               string
	Name               string
	Description        string
	Favorite           bool
	Status             string
	IndexColumns       string
	CreatedAt          time.Time
	MetadataGeneration int64
}

func scanDataset(scan func(dest ...any) error) (datasetRow, error) {
	var r datasetRow
	err := scan(&r.ID, &r.UUID, &r.Name, &r.Description, &r.Favorite, &r.Status, &r.IndexColumns, &r.CreatedAt, &r.MetadataGeneration)
	return r, err
}

func (r datasetRow) toModel(tags []string) (*model.Dataset, error) {
	id, err := uuid.Parse(r.UUID)
	if err != nil {
		return nil, ferr.Wrap(ferr.CodeStorage, "parse dataset uuid", err)
	}
	var cols []string
	if err := json.Unmarshal([]byte(r.IndexColumns), &cols); err != nil {
		return nil, ferr.Wrap(ferr.CodeStorage, "parse index columns", err)
	}
	return &model.Dataset{
		ID:                 r.ID,
		UUID:               id,
		Name:               r.Name,
		Description:        r.Description,
		Favorite:           r.Favorite,
		Status:             model.Status(r.Status),
		IndexColumns:       cols,
		Tags:               tags,
		CreatedAt:          r.CreatedAt.UTC(),
		MetadataGeneration: r.MetadataGeneration,
	}, nil
}

const datasetColumns = `id, uuid, name, description, favorite, status, index_columns, created_at, metadata_generation`

// FindByID returns the dataset with the given monotonic id, or a NotFound
// error if none exists.
func (s *Store) FindByID(ctx context.Context, id int64) (*model.Dataset, error) {
	return s.findOne(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id)
}

// FindByUUID returns the dataset with the given UUID, or a NotFound error.
func (s *Store) FindByUUID(ctx context.Context, id uuid.UUID) (*model.Dataset, error) {
	return s.findOne(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE uuid = ?`, id.String())
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (*model.Dataset, error) {
	var out *model.Dataset
	err := s.pool.interact(ctx, func(ctx context.Context, db *sql.DB) error {
		row, err := scanDataset(db.QueryRowContext(ctx, query, arg).Scan)
		if err != nil {
			if err == sql.ErrNoRows {
				return ferr.New(ferr.CodeNotFound, "dataset not found")
			}
			return ferr.Wrap(ferr.CodeStorage, "query dataset", err)
		}
		tags, err := tagsForDataset(ctx, db, row.ID)
		if err != nil {
			return err
		}
		out, err = row.toModel(tags)
		return err
	})
	return out, err
}

// List returns datasets matching params.Filter, ordered and paginated per
// params.SortKey/SortDir/Limit/Offset. An unset Limit defaults to
// DefaultListLimit; an explicit Limit of zero yields an empty page (not an
// error); offset past the end also yields an empty page.
func (s *Store) List(ctx context.Context, params model.ListParams) ([]*model.Dataset, error) {
	limit := model.DefaultListLimit
	if params.Limit != nil {
		limit = *params.Limit
	}
	if limit < 0 {
		limit = 0
	}

	var out []*model.Dataset
	err := s.pool.interact(ctx, func(ctx context.Context, db *sql.DB) error {
		if limit == 0 {
			out = nil
			return nil
		}

		query, args := buildListQuery(params, limit)
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return ferr.Wrap(ferr.CodeStorage, "list datasets", err)
		}
		defer rows.Close()

		var result []*model.Dataset
		for rows.Next() {
			row, err := scanDataset(rows.Scan)
			if err != nil {
				return ferr.Wrap(ferr.CodeStorage, "scan dataset row", err)
			}
			tags, err := tagsForDataset(ctx, db, row.ID)
			if err != nil {
				return err
			}
			ds, err := row.toModel(tags)
			if err != nil {
				return err
			}
			result = append(result, ds)
		}
		if err := rows.Err(); err != nil {
			return ferr.Wrap(ferr.CodeStorage, "iterate dataset rows", err)
		}
		out = result
		return nil
	})
	return out, err
}

func buildListQuery(params model.ListParams, limit int) (string, []any) {
	var where []string
	var args []any

	if params.Filter.NameContains != "" {
		where = append(where, "d.name LIKE ?")
		args = append(args, "%"+params.Filter.NameContains+"%")
	}
	if params.Filter.FavoriteOnly {
		where = append(where, "d.favorite = 1")
	}
	if len(params.Filter.Statuses) > 0 {
		placeholders := make([]string, len(params.Filter.Statuses))
		for i, st := range params.Filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, fmt.Sprintf("d.status IN (%s)", strings.Join(placeholders, ", ")))
	}

	query := `SELECT d.id, d.uuid, d.name, d.description, d.favorite, d.status, d.index_columns, d.created_at, d.metadata_generation FROM datasets d`

	if len(params.Filter.Tags) > 0 {
		placeholders := make([]string, len(params.Filter.Tags))
		for i, t := range params.Filter.Tags {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(`
			JOIN (
				SELECT dt.dataset_id FROM datasets_tags dt
				JOIN tags t ON t.id = dt.tag_id
				WHERE t.name IN (%s)
				GROUP BY dt.dataset_id
				HAVING COUNT(DISTINCT t.name) = %d
			) matched ON matched.dataset_id = d.id`, strings.Join(placeholders, ", "), len(params.Filter.Tags))
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	column := "d.id"
	switch params.SortKey {
	case model.SortByName:
		column = "d.name"
	case model.SortByCreatedAt:
		column = "d.created_at"
	}
	dir := "DESC"
	if params.SortDir == model.SortAsc {
		dir = "ASC"
	} else if params.SortDir == "" && params.SortKey == "" {
		dir = "DESC" // default sort is id descending
	}
	query += fmt.Sprintf(" ORDER BY %s %s LIMIT ? OFFSET ?", column, dir)
	args = append(args, limit, params.Offset)

	return query, args
}

// CreateRequest is the input to CreateDataset.
type CreateRequest struct {
	Name         string
	Description  string
	Tags         []string
	IndexColumns []string
}

// CreateDataset inserts a new Pending dataset row, resolving/inserting its
// tags and associations, all inside one BEGIN IMMEDIATE transaction.
func (s *Store) CreateDataset(ctx context.Context, req CreateRequest, id uuid.UUID) (*model.Dataset, error) {
	var out *model.Dataset
	err := s.pool.withImmediateTx(ctx, func(ctx context.Context, conn *sql.Conn) error {
		colsJSON, err := json.Marshal(req.IndexColumns)
		if err != nil {
			return ferr.Wrap(ferr.CodeStorage, "marshal index columns", err)
		}

		res, err := conn.ExecContext(ctx, `
			INSERT INTO datasets (uuid, name, description, status, index_columns)
			VALUES (?, ?, ?, ?, ?)`,
			id.String(), req.Name, req.Description, string(model.StatusPending), string(colsJSON))
		if err != nil {
			if isUniqueConstraintErr(err) {
				return ferr.Wrap(ferr.CodeConflict, "dataset uuid already exists", err)
			}
			return ferr.Wrap(ferr.CodeStorage, "insert dataset", err)
		}

		datasetID, err := res.LastInsertId()
		if err != nil {
			return ferr.Wrap(ferr.CodeStorage, "read inserted dataset id", err)
		}

		if err := replaceDatasetTags(ctx, conn, datasetID, req.Tags); err != nil {
			return err
		}

		ds, err := s.loadDatasetTx(ctx, conn, datasetID)
		if err != nil {
			return err
		}
		out = ds
		return nil
	})
	return out, err
}

func (s *Store) loadDatasetTx(ctx context.Context, conn *sql.Conn, datasetID int64) (*model.Dataset, error) {
	row, err := scanDataset(conn.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, datasetID).Scan)
	if err != nil {
		return nil, ferr.Wrap(ferr.CodeStorage, "reload dataset", err)
	}
	tags, err := tagsForDataset(ctx, conn, datasetID)
	if err != nil {
		return nil, err
	}
	return row.toModel(tags)
}

// UpdateMetadata applies patch to the dataset's mutable fields, independent
// of its write-path status, bumping metadata_generation so a crash between
// commit and sidecar rewrite is detectable at startup.
func (s *Store) UpdateMetadata(ctx context.Context, id int64, patch model.MetadataPatch) (*model.Dataset, error) {
	var out *model.Dataset
	err := s.pool.withImmediateTx(ctx, func(ctx context.Context, conn *sql.Conn) error {
		var sets []string
		var args []any
		if patch.Name != nil {
			sets = append(sets, "name = ?")
			args = append(args, *patch.Name)
		}
		if patch.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, *patch.Description)
		}
		if patch.Favorite != nil {
			sets = append(sets, "favorite = ?")
			args = append(args, *patch.Favorite)
		}
		sets = append(sets, "metadata_generation = metadata_generation + 1")

		query := fmt.Sprintf("UPDATE datasets SET %s WHERE id = ?", strings.Join(sets, ", "))
		args = append(args, id)
		res, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			return ferr.Wrap(ferr.CodeStorage, "update dataset metadata", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ferr.New(ferr.CodeNotFound, "dataset not found")
		}

		if patch.TagsSet {
			if err := replaceDatasetTags(ctx, conn, id, patch.Tags); err != nil {
				return err
			}
		}

		ds, err := s.loadDatasetTx(ctx, conn, id)
		if err != nil {
			return err
		}
		out = ds
		return nil
	})
	return out, err
}

// SetStatus performs a conditional state transition: it succeeds only if
// the dataset's current status is one of from, failing with IllegalState
// otherwise.
func (s *Store) SetStatus(ctx context.Context, id int64, from []model.Status, to model.Status) error {
	return s.pool.withImmediateTx(ctx, func(ctx context.Context, conn *sql.Conn) error {
		var current string
		err := conn.QueryRowContext(ctx, `SELECT status FROM datasets WHERE id = ?`, id).Scan(&current)
		if err != nil {
			if err == sql.ErrNoRows {
				return ferr.New(ferr.CodeNotFound, "dataset not found")
			}
			return ferr.Wrap(ferr.CodeStorage, "read dataset status", err)
		}

		allowed := false
		for _, s := range from {
			if string(s) == current {
				allowed = true
				break
			}
		}
		if !allowed {
			return ferr.Newf(ferr.CodeIllegalState, "dataset %d is %s, cannot transition to %s", id, current, to)
		}

		if _, err := conn.ExecContext(ctx, `UPDATE datasets SET status = ? WHERE id = ?`, string(to), id); err != nil {
			return ferr.Wrap(ferr.CodeStorage, "update dataset status", err)
		}
		return nil
	})
}

// ForceStatus sets the status unconditionally, used only by the crash
// recovery pass where the prior status is already known to be stale.
func (s *Store) ForceStatus(ctx context.Context, id int64, to model.Status) error {
	return s.pool.withImmediateTx(ctx, func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `UPDATE datasets SET status = ? WHERE id = ?`, string(to), id)
		if err != nil {
			return ferr.Wrap(ferr.CodeStorage, "force dataset status", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ferr.New(ferr.CodeNotFound, "dataset not found")
		}
		return nil
	})
}

// Delete removes the dataset row; associations cascade via foreign keys.
// Filesystem cleanup is the dataset manager's responsibility.
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.pool.withImmediateTx(ctx, func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
		if err != nil {
			return ferr.Wrap(ferr.CodeStorage, "delete dataset", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ferr.New(ferr.CodeNotFound, "dataset not found")
		}
		return nil
	})
}

// ListByStatus is used by crash recovery to find every Pending/Writing row
// at startup.
func (s *Store) ListByStatus(ctx context.Context, status model.Status) ([]*model.Dataset, error) {
	var out []*model.Dataset
	err := s.pool.interact(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE status = ? ORDER BY id ASC`, string(status))
		if err != nil {
			return ferr.Wrap(ferr.CodeStorage, "list datasets by status", err)
		}
		defer rows.Close()

		var result []*model.Dataset
		for rows.Next() {
			row, err := scanDataset(rows.Scan)
			if err != nil {
				return ferr.Wrap(ferr.CodeStorage, "scan dataset row", err)
			}
			tags, err := tagsForDataset(ctx, db, row.ID)
			if err != nil {
				return err
			}
			ds, err := row.toModel(tags)
			if err != nil {
				return err
			}
			result = append(result, ds)
		}
		out = result
		return rows.Err()
	})
	return out, err
}

func isUniqueConstraintErr(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
