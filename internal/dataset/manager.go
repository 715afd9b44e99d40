// Package dataset implements the dataset lifecycle manager: the only
// component that coordinates the filesystem, the relational store, and the
// event bus across a dataset's create/write/complete-or-abort lifetime.
package dataset

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friconhq/fricon/internal/applog"
	"github.com/friconhq/fricon/internal/batch"
	"github.com/friconhq/fricon/internal/events"
	"github.com/friconhq/fricon/internal/ferr"
	"github.com/friconhq/fricon/internal/model"
	"github.com/friconhq/fricon/internal/store"
	"github.com/friconhq/fricon/internal/workspace"
)

// BatchSource is the write path's input: a finite, ordered sequence of
// batches terminated by io.EOF, satisfied directly by a gRPC client-stream
// receiver without any adaptation.
type BatchSource interface {
	Recv(ctx context.Context) (batch.Batch, error)
}

// CreateRequest is the manager-level input to Create.
type CreateRequest struct {
	Name         string
	Description  string
	Tags         []string
	IndexColumns []string
}

// Created is Create's result: the newly assigned row plus the single-use
// write token authorizing the Write call that follows it.
type Created struct {
	Dataset *model.Dataset
	Token   string
}

// Result pairs a dataset row with its resolved on-disk directory, the
// shape Get/List return so callers never recompute the fan-out path.
type Result struct {
	Dataset *model.Dataset
	Dir     string
}

// writerFactory/readerFactory are injected so tests can substitute fakes;
// production wiring supplies batch.NewChunkWriter/NewChunkReader.
type writerFactory func(dir string) (batch.Writer, error)
type readerFactory func(dir string) (batch.Reader, error)

const defaultChunkBudget = 0 // 0 selects batch's own default budget

// Manager owns the pending-write registry and is the sole writer of
// dataset directories; the relational store enforces the row-level state
// machine it drives.
type Manager struct {
	store  *store.Store
	ws     *workspace.Workspace
	broker *events.Broker
	tokens *tokenRegistry

	newWriter writerFactory
	newReader readerFactory

	log zerolog.Logger
}

// New wires a Manager over an already-open store and workspace.
func New(st *store.Store, ws *workspace.Workspace, broker *events.Broker) *Manager {
	return &Manager{
		store:  st,
		ws:     ws,
		broker: broker,
		tokens: newTokenRegistry(),
		newWriter: func(dir string) (batch.Writer, error) {
			return batch.NewChunkWriter(dir, defaultChunkBudget)
		},
		newReader: func(dir string) (batch.Reader, error) {
			return batch.NewChunkReader(dir)
		},
		log: applog.WithComponent("dataset"),
	}
}

// Create validates req, assigns a UUID, creates the dataset directory and
// its Pending row in one transaction, and mints a single-use write token.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (Created, error) {
	// The taxonomy has no dedicated validation code; a malformed Create
	// request is treated as IllegalState, the closest existing kind for a
	// precondition violation that is not a state-machine transition but is
	// just as much a "this operation cannot proceed from here" failure.
	if req.Name == "" {
		return Created{}, ferr.New(ferr.CodeIllegalState, "dataset name must not be empty")
	}
	if hasDuplicate(req.IndexColumns) {
		return Created{}, ferr.New(ferr.CodeIllegalState, "index_columns must not contain duplicates")
	}

	id := uuid.New()
	dir := m.ws.DatasetDir(id)
	if err := createDatasetDir(dir); err != nil {
		return Created{}, err
	}

	ds, err := m.store.CreateDataset(ctx, store.CreateRequest{
		Name:         req.Name,
		Description:  req.Description,
		Tags:         req.Tags,
		IndexColumns: req.IndexColumns,
	}, id)
	if err != nil {
		_ = os.RemoveAll(dir)
		return Created{}, err
	}

	token, err := m.tokens.issue(ds.ID)
	if err != nil {
		return Created{}, err
	}

	m.broker.Publish(events.Event{Kind: events.KindDatasetCreated, DatasetID: ds.ID, UUID: ds.UUID, Status: string(ds.Status)})
	m.log.Info().Int64("dataset_id", ds.ID).Str("uuid", ds.UUID.String()).Msg("dataset created")
	return Created{Dataset: ds, Token: token}, nil
}

func hasDuplicate(cols []string) bool {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, ok := seen[c]; ok {
			return true
		}
		seen[c] = struct{}{}
	}
	return false
}

func createDatasetDir(dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "create dataset fan-out directory", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return ferr.New(ferr.CodeConflict, "dataset directory already exists")
		}
		return ferr.Wrap(ferr.CodeStorage, "create dataset directory", err)
	}
	return nil
}

// Write consumes token exactly once, streams src into a batch writer rooted
// at the dataset's directory, and drives the Pending/Writing→Completed or
// Writing→Aborted transition depending on how the stream ends.
func (m *Manager) Write(ctx context.Context, token string, src BatchSource) (batch.Summary, error) {
	datasetID, err := m.tokens.consume(token)
	if err != nil {
		return batch.Summary{}, err
	}

	if err := m.store.SetStatus(ctx, datasetID, []model.Status{model.StatusPending}, model.StatusWriting); err != nil {
		return batch.Summary{}, err
	}

	ds, err := m.store.FindByID(ctx, datasetID)
	if err != nil {
		return batch.Summary{}, err
	}
	dir := m.ws.DatasetDir(ds.UUID)

	w, err := m.newWriter(dir)
	if err != nil {
		m.abortWrite(ctx, ds, dir, nil)
		return batch.Summary{}, err
	}

	for {
		b, recvErr := src.Recv(ctx)
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			m.abortWrite(ctx, ds, dir, w)
			return batch.Summary{}, ferr.Wrap(ferr.CodeTransport, "write stream receive failed", recvErr)
		}
		if appendErr := w.Append(ctx, b); appendErr != nil {
			m.abortWrite(ctx, ds, dir, w)
			return batch.Summary{}, appendErr
		}
	}

	summary, closeErr := w.Close(ctx)
	if closeErr != nil {
		m.abortWrite(ctx, ds, dir, nil)
		return batch.Summary{}, closeErr
	}

	sidecar := batch.Sidecar{
		UUID:               ds.UUID,
		Name:               ds.Name,
		Description:        ds.Description,
		Favorite:           ds.Favorite,
		Tags:               ds.Tags,
		IndexColumns:       ds.IndexColumns,
		Status:             string(model.StatusCompleted),
		CreatedAt:          ds.CreatedAt,
		Rows:               summary.Rows,
		Chunks:             summary.Chunks,
		MetadataGeneration: ds.MetadataGeneration,
	}
	if err := batch.WriteSidecar(dir, sidecar); err != nil {
		m.abortWrite(ctx, ds, dir, nil)
		return batch.Summary{}, err
	}

	if err := m.store.SetStatus(ctx, datasetID, []model.Status{model.StatusWriting}, model.StatusCompleted); err != nil {
		return batch.Summary{}, err
	}

	m.broker.Publish(events.Event{Kind: events.KindDatasetUpdated, DatasetID: ds.ID, UUID: ds.UUID, Status: string(model.StatusCompleted)})
	m.log.Info().Int64("dataset_id", ds.ID).Int64("rows", summary.Rows).Int64("chunks", summary.Chunks).Msg("write completed")
	return summary, nil
}

// abortWrite aborts the in-flight writer (if any), clears the dataset
// directory's contents, and transitions the row to Aborted, emitting
// DatasetUpdated. Errors from the cleanup itself are logged, not returned:
// the caller already has the original failure to report.
func (m *Manager) abortWrite(ctx context.Context, ds *model.Dataset, dir string, w batch.Writer) {
	if w != nil {
		if err := w.Abort(ctx); err != nil {
			m.log.Warn().Err(err).Int64("dataset_id", ds.ID).Msg("writer abort failed")
		}
	}
	if err := clearDirContents(dir); err != nil {
		m.log.Warn().Err(err).Str("dir", dir).Msg("failed to clear dataset directory after abort")
	}
	if err := m.store.SetStatus(ctx, ds.ID, []model.Status{model.StatusWriting}, model.StatusAborted); err != nil {
		m.log.Warn().Err(err).Int64("dataset_id", ds.ID).Msg("failed to transition dataset to aborted")
		return
	}
	m.broker.Publish(events.Event{Kind: events.KindDatasetUpdated, DatasetID: ds.ID, UUID: ds.UUID, Status: string(model.StatusAborted)})
}

// clearDirContents removes everything inside dir but keeps dir itself, so
// the row's directory reference stays valid for auditability.
func clearDirContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if rmErr := os.RemoveAll(filepath.Join(dir, e.Name())); rmErr != nil {
			return rmErr
		}
	}
	return nil
}

// GetByID resolves a dataset by its monotonic id.
func (m *Manager) GetByID(ctx context.Context, id int64) (Result, error) {
	ds, err := m.store.FindByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return Result{Dataset: ds, Dir: m.ws.DatasetDir(ds.UUID)}, nil
}

// GetByUUID resolves a dataset by its UUID.
func (m *Manager) GetByUUID(ctx context.Context, id uuid.UUID) (Result, error) {
	ds, err := m.store.FindByUUID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return Result{Dataset: ds, Dir: m.ws.DatasetDir(ds.UUID)}, nil
}

// List returns datasets matching params.
func (m *Manager) List(ctx context.Context, params model.ListParams) ([]*model.Dataset, error) {
	return m.store.List(ctx, params)
}

// ListTagUniverse returns every tag name known to the workspace.
func (m *Manager) ListTagUniverse(ctx context.Context) ([]string, error) {
	return m.store.ListTagUniverse(ctx)
}

// Subscribe registers a new event subscription on the manager's broker.
// The caller must Unsubscribe when done.
func (m *Manager) Subscribe() *events.Subscription {
	return m.broker.Subscribe()
}

// Unsubscribe releases a subscription obtained from Subscribe.
func (m *Manager) Unsubscribe(sub *events.Subscription) {
	m.broker.Unsubscribe(sub)
}

// OpenReader yields a lazy batch sequence over a Completed dataset's chunk
// files. Pending and Aborted (and Writing) datasets are not readable.
func (m *Manager) OpenReader(ctx context.Context, id int64) (batch.Reader, error) {
	ds, err := m.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ds.Status != model.StatusCompleted {
		return nil, ferr.Newf(ferr.CodeNotReadable, "dataset %d is %s, not readable", id, ds.Status)
	}
	return m.newReader(m.ws.DatasetDir(ds.UUID))
}

// Update applies a metadata patch, then rewrites the sidecar atomically.
// The DB commit happens first so a crash before the sidecar rewrite is
// detectable at startup by comparing metadata_generation.
func (m *Manager) Update(ctx context.Context, id int64, patch model.MetadataPatch) (*model.Dataset, error) {
	ds, err := m.store.UpdateMetadata(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if ds.Status != model.StatusPending && ds.Status != model.StatusWriting {
		// Completed and Aborted datasets get their sidecar (re)written here,
		// carrying rows/chunks over from an existing sidecar when there is
		// one; a Pending/Writing dataset's sidecar is written by Write itself.
		dir := m.ws.DatasetDir(ds.UUID)
		sidecar := batch.Sidecar{
			UUID:               ds.UUID,
			Name:               ds.Name,
			Description:        ds.Description,
			Favorite:           ds.Favorite,
			Tags:               ds.Tags,
			IndexColumns:       ds.IndexColumns,
			Status:             string(ds.Status),
			CreatedAt:          ds.CreatedAt,
			MetadataGeneration: ds.MetadataGeneration,
		}
		if existing, readErr := batch.ReadSidecar(dir); readErr == nil {
			sidecar.Rows = existing.Rows
			sidecar.Chunks = existing.Chunks
		}
		// Recovery removes a Pending dataset's directory before aborting it.
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ferr.Wrap(ferr.CodeStorage, "create dataset directory", err)
		}
		if err := batch.WriteSidecar(dir, sidecar); err != nil {
			return nil, err
		}
	}

	m.broker.Publish(events.Event{Kind: events.KindDatasetUpdated, DatasetID: ds.ID, UUID: ds.UUID, Status: string(ds.Status)})
	return ds, nil
}

// Delete removes the dataset's row transactionally, then its directory. A
// directory removal failure is logged and surfaced, but the row is already
// gone; a subsequent RecoverOnStartup pass cannot reclaim it since there is
// no row left to reconcile against, so the error is returned directly here
// instead of being swallowed.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	ds, err := m.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	dir := m.ws.DatasetDir(ds.UUID)

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}

	m.broker.Publish(events.Event{Kind: events.KindDatasetDeleted, DatasetID: ds.ID, UUID: ds.UUID})

	if err := os.RemoveAll(dir); err != nil {
		m.log.Error().Err(err).Int64("dataset_id", id).Str("dir", dir).Msg("failed to remove dataset directory after delete")
		return ferr.Wrap(ferr.CodeStorage, "remove dataset directory", err)
	}
	return nil
}
