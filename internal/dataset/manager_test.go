package dataset

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friconhq/fricon/internal/batch"
	"github.com/friconhq/fricon/internal/events"
	"github.com/friconhq/fricon/internal/ferr"
	"github.com/friconhq/fricon/internal/model"
	"github.com/friconhq/fricon/internal/store"
	"github.com/friconhq/fricon/internal/workspace"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()
	ws, err := workspace.Init(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	pool, err := store.Open(filepath.Join(root, "fricon.sqlite3"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	st := store.New(pool)
	broker := events.NewBroker(8)
	return New(st, ws, broker)
}

type sliceSource struct {
	batches []batch.Batch
	i       int
	failAt  int // -1 disables
}

func (s *sliceSource) Recv(ctx context.Context) (batch.Batch, error) {
	if s.failAt >= 0 && s.i == s.failAt {
		return batch.Batch{}, assertErr
	}
	if s.i >= len(s.batches) {
		return batch.Batch{}, io.EOF
	}
	b := s.batches[s.i]
	s.i++
	return b, nil
}

var assertErr = ferr.New(ferr.CodeTransport, "simulated transport failure")

func intBatch(col string, vals ...int64) batch.Batch {
	row := make([]any, len(vals))
	for i, v := range vals {
		row[i] = v
	}
	return batch.Batch{Columns: []string{col}, Values: [][]any{row}}
}

func TestCreateAssignsTokenAndPendingRow(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, CreateRequest{Name: "run-1", Tags: []string{"b", "a"}, IndexColumns: []string{"t"}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, model.StatusPending, created.Dataset.Status)
	assert.Equal(t, []string{"a", "b"}, created.Dataset.Tags)

	_, err = os.Stat(m.ws.DatasetDir(created.Dataset.UUID))
	require.NoError(t, err)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create(context.Background(), CreateRequest{Name: ""})
	require.Error(t, err)
}

func TestCreateRejectsDuplicateIndexColumns(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create(context.Background(), CreateRequest{Name: "x", IndexColumns: []string{"t", "t"}})
	require.Error(t, err)
	assert.Equal(t, ferr.CodeIllegalState, ferr.CodeOf(err))
}

func TestWriteHappyPath(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, CreateRequest{Name: "run-2", Tags: []string{"a"}})
	require.NoError(t, err)

	src := &sliceSource{failAt: -1, batches: []batch.Batch{intBatch("t", 0, 1), intBatch("t", 2)}}
	summary, err := m.Write(ctx, created.Token, src)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Rows)

	got, err := m.GetByID(ctx, created.Dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Dataset.Status)

	sidecar, err := batch.ReadSidecar(got.Dir)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sidecar.Rows)
	assert.Equal(t, "completed", sidecar.Status)
}

func TestWriteTokenIsSingleUse(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, CreateRequest{Name: "run-3"})
	require.NoError(t, err)

	_, err = m.Write(ctx, created.Token, &sliceSource{failAt: -1})
	require.NoError(t, err)

	_, err = m.Write(ctx, created.Token, &sliceSource{failAt: -1})
	require.Error(t, err)
	assert.Equal(t, ferr.CodeInvalidToken, ferr.CodeOf(err))
}

func TestWriteUnknownTokenIsInvalidToken(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Write(context.Background(), "does-not-exist", &sliceSource{failAt: -1})
	require.Error(t, err)
	assert.Equal(t, ferr.CodeInvalidToken, ferr.CodeOf(err))
}

func TestWriteSchemaMismatchAbortsAndClearsDirectory(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, CreateRequest{Name: "run-4"})
	require.NoError(t, err)

	src := &sliceSource{failAt: -1, batches: []batch.Batch{
		{Columns: []string{"a"}, Values: [][]any{{int64(1)}}},
		{Columns: []string{"a", "b"}, Values: [][]any{{int64(1)}, {int64(2)}}},
	}}
	_, err = m.Write(ctx, created.Token, src)
	require.Error(t, err)
	assert.Equal(t, ferr.CodeSchemaMismatch, ferr.CodeOf(err))

	got, err := m.GetByID(ctx, created.Dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAborted, got.Dataset.Status)

	entries, err := os.ReadDir(got.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteTransportFailureAborts(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, CreateRequest{Name: "run-5"})
	require.NoError(t, err)

	src := &sliceSource{failAt: 0, batches: []batch.Batch{intBatch("t", 1)}}
	_, err = m.Write(ctx, created.Token, src)
	require.Error(t, err)

	got, err := m.GetByID(ctx, created.Dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAborted, got.Dataset.Status)
}

func TestOpenReaderRejectsNonCompleted(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, CreateRequest{Name: "run-6"})
	require.NoError(t, err)

	_, err = m.OpenReader(ctx, created.Dataset.ID)
	require.Error(t, err)
	assert.Equal(t, ferr.CodeNotReadable, ferr.CodeOf(err))
}

func TestOpenReaderReplaysCompletedDataset(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, CreateRequest{Name: "run-7"})
	require.NoError(t, err)
	_, err = m.Write(ctx, created.Token, &sliceSource{failAt: -1, batches: []batch.Batch{intBatch("t", 5)}})
	require.NoError(t, err)

	r, err := m.OpenReader(ctx, created.Dataset.ID)
	require.NoError(t, err)
	defer r.Close()

	b, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, b.RowCount())
}

func TestUpdateRewritesSidecarForCompletedDataset(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, CreateRequest{Name: "run-8"})
	require.NoError(t, err)
	_, err = m.Write(ctx, created.Token, &sliceSource{failAt: -1})
	require.NoError(t, err)

	newName := "renamed"
	updated, err := m.Update(ctx, created.Dataset.ID, model.MetadataPatch{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	sidecar, err := batch.ReadSidecar(m.ws.DatasetDir(updated.UUID))
	require.NoError(t, err)
	assert.Equal(t, "renamed", sidecar.Name)
	assert.Equal(t, updated.MetadataGeneration, sidecar.MetadataGeneration)
}

func TestDeleteRemovesRowAndDirectory(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, CreateRequest{Name: "run-9"})
	require.NoError(t, err)
	dir := m.ws.DatasetDir(created.Dataset.UUID)

	require.NoError(t, m.Delete(ctx, created.Dataset.ID))

	_, err = m.GetByID(ctx, created.Dataset.ID)
	require.Error(t, err)
	assert.Equal(t, ferr.CodeNotFound, ferr.CodeOf(err))

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRecoverOnStartupAbortsPendingRows(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, CreateRequest{Name: "run-10"})
	require.NoError(t, err)

	require.NoError(t, m.RecoverOnStartup(ctx))

	got, err := m.GetByID(ctx, created.Dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAborted, got.Dataset.Status)
}

func TestRecoverOnStartupAbortsInterruptedWritingRows(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.Create(ctx, CreateRequest{Name: "run-11"})
	require.NoError(t, err)

	// Simulate a crash mid-write: consume the token and move to Writing, but
	// never close the writer or reach Completed.
	datasetID, err := m.tokens.consume(created.Token)
	require.NoError(t, err)
	require.NoError(t, m.store.SetStatus(ctx, datasetID, []model.Status{model.StatusPending}, model.StatusWriting))

	require.NoError(t, m.RecoverOnStartup(ctx))

	got, err := m.GetByID(ctx, created.Dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAborted, got.Dataset.Status)
}

func TestRecoverOnStartupIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, CreateRequest{Name: "run-12"})
	require.NoError(t, err)

	require.NoError(t, m.RecoverOnStartup(ctx))
	require.NoError(t, m.RecoverOnStartup(ctx))
}
