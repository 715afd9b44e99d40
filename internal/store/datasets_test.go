package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friconhq/fricon/internal/ferr"
	"github.com/friconhq/fricon/internal/model"
)

func createTestDataset(t *testing.T, s *Store, name string, tags []string) *model.Dataset {
	t.Helper()
	ds, err := s.CreateDataset(context.Background(), CreateRequest{
		Name:         name,
		Description:  "desc for " + name,
		Tags:         tags,
		IndexColumns: []string{"timestamp"},
	}, uuid.New())
	require.NoError(t, err)
	return ds
}

func TestCreateDatasetRoundTrip(t *testing.T) {
	s := New(openTestPool(t))
	ctx := context.Background()

	ds := createTestDataset(t, s, "run-1", []string{"beta", "alpha", "alpha"})

	assert.Equal(t, model.StatusPending, ds.Status)
	assert.Equal(t, []string{"alpha", "beta"}, ds.Tags)
	assert.Equal(t, []string{"timestamp"}, ds.IndexColumns)
	assert.Equal(t, int64(0), ds.MetadataGeneration)

	got, err := s.FindByUUID(ctx, ds.UUID)
	require.NoError(t, err)
	assert.Equal(t, ds.Name, got.Name)
	assert.Equal(t, ds.Tags, got.Tags)
}

func TestCreateDatasetDuplicateUUIDConflicts(t *testing.T) {
	s := New(openTestPool(t))
	id := uuid.New()

	_, err := s.CreateDataset(context.Background(), CreateRequest{Name: "a"}, id)
	require.NoError(t, err)

	_, err = s.CreateDataset(context.Background(), CreateRequest{Name: "b"}, id)
	require.Error(t, err)
	assert.Equal(t, ferr.CodeConflict, ferr.CodeOf(err))
}

func TestFindByIDNotFound(t *testing.T) {
	s := New(openTestPool(t))
	_, err := s.FindByID(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, ferr.CodeNotFound, ferr.CodeOf(err))
}

func TestUpdateMetadataReplacesTagsAndBumpsGeneration(t *testing.T) {
	s := New(openTestPool(t))
	ctx := context.Background()
	ds := createTestDataset(t, s, "run-2", []string{"old"})

	newName := "renamed"
	updated, err := s.UpdateMetadata(ctx, ds.ID, model.MetadataPatch{
		Name:    &newName,
		Tags:    []string{"new-a", "new-b"},
		TagsSet: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, []string{"new-a", "new-b"}, updated.Tags)
	assert.Equal(t, ds.MetadataGeneration+1, updated.MetadataGeneration)
}

func TestUpdateMetadataWithoutTagsSetLeavesTagsUnchanged(t *testing.T) {
	s := New(openTestPool(t))
	ctx := context.Background()
	ds := createTestDataset(t, s, "run-3", []string{"keep-me"})

	fav := true
	updated, err := s.UpdateMetadata(ctx, ds.ID, model.MetadataPatch{Favorite: &fav})
	require.NoError(t, err)

	assert.True(t, updated.Favorite)
	assert.Equal(t, []string{"keep-me"}, updated.Tags)
}

func TestSetStatusHappyPath(t *testing.T) {
	s := New(openTestPool(t))
	ctx := context.Background()
	ds := createTestDataset(t, s, "run-4", nil)

	err := s.SetStatus(ctx, ds.ID, []model.Status{model.StatusPending}, model.StatusWriting)
	require.NoError(t, err)

	got, err := s.FindByID(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWriting, got.Status)
}

func TestSetStatusRejectsIllegalTransition(t *testing.T) {
	s := New(openTestPool(t))
	ctx := context.Background()
	ds := createTestDataset(t, s, "run-5", nil)

	err := s.SetStatus(ctx, ds.ID, []model.Status{model.StatusCompleted}, model.StatusWriting)
	require.Error(t, err)
	assert.Equal(t, ferr.CodeIllegalState, ferr.CodeOf(err))

	got, err := s.FindByID(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestDeleteDataset(t *testing.T) {
	s := New(openTestPool(t))
	ctx := context.Background()
	ds := createTestDataset(t, s, "run-6", []string{"to-delete"})

	require.NoError(t, s.Delete(ctx, ds.ID))

	_, err := s.FindByID(ctx, ds.ID)
	require.Error(t, err)
	assert.Equal(t, ferr.CodeNotFound, ferr.CodeOf(err))

	// Tag universe survives deletion; only the association is dropped.
	names, err := s.ListTagUniverse(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "to-delete")
}

func TestDeleteMissingDatasetNotFound(t *testing.T) {
	s := New(openTestPool(t))
	err := s.Delete(context.Background(), 12345)
	require.Error(t, err)
	assert.Equal(t, ferr.CodeNotFound, ferr.CodeOf(err))
}

func TestListFiltersByNameTagsFavoriteAndStatus(t *testing.T) {
	s := New(openTestPool(t))
	ctx := context.Background()

	a := createTestDataset(t, s, "alpha-run", []string{"shared", "only-a"})
	b := createTestDataset(t, s, "beta-run", []string{"shared", "only-b"})
	fav := true
	_, err := s.UpdateMetadata(ctx, a.ID, model.MetadataPatch{Favorite: &fav})
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(ctx, b.ID, []model.Status{model.StatusPending}, model.StatusWriting))

	byName, err := s.List(ctx, model.ListParams{Filter: model.Filter{NameContains: "alpha"}})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, a.ID, byName[0].ID)

	byTag, err := s.List(ctx, model.ListParams{Filter: model.Filter{Tags: []string{"shared"}}})
	require.NoError(t, err)
	assert.Len(t, byTag, 2)

	byBothTags, err := s.List(ctx, model.ListParams{Filter: model.Filter{Tags: []string{"shared", "only-a"}}})
	require.NoError(t, err)
	require.Len(t, byBothTags, 1)
	assert.Equal(t, a.ID, byBothTags[0].ID)

	favOnly, err := s.List(ctx, model.ListParams{Filter: model.Filter{FavoriteOnly: true}})
	require.NoError(t, err)
	require.Len(t, favOnly, 1)
	assert.Equal(t, a.ID, favOnly[0].ID)

	writing, err := s.List(ctx, model.ListParams{Filter: model.Filter{Statuses: []model.Status{model.StatusWriting}}})
	require.NoError(t, err)
	require.Len(t, writing, 1)
	assert.Equal(t, b.ID, writing[0].ID)
}

func TestListZeroLimitYieldsEmptyPage(t *testing.T) {
	s := New(openTestPool(t))
	createTestDataset(t, s, "run-7", nil)

	out, err := s.List(context.Background(), model.ListParams{Limit: new(int)})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestListUnsetLimitUsesDefault(t *testing.T) {
	s := New(openTestPool(t))
	createTestDataset(t, s, "run-7b", nil)

	out, err := s.List(context.Background(), model.ListParams{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestListOffsetPastEndYieldsEmptyPage(t *testing.T) {
	s := New(openTestPool(t))
	createTestDataset(t, s, "run-8", nil)

	out, err := s.List(context.Background(), model.ListParams{Offset: 1000})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestListDefaultOrderIsIDDescending(t *testing.T) {
	s := New(openTestPool(t))
	ctx := context.Background()
	first := createTestDataset(t, s, "run-9a", nil)
	second := createTestDataset(t, s, "run-9b", nil)

	out, err := s.List(ctx, model.ListParams{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, second.ID, out[0].ID)
	assert.Equal(t, first.ID, out[1].ID)
}

func TestListByStatus(t *testing.T) {
	s := New(openTestPool(t))
	ctx := context.Background()
	a := createTestDataset(t, s, "run-10", nil)
	createTestDataset(t, s, "run-11", nil)
	require.NoError(t, s.SetStatus(ctx, a.ID, []model.Status{model.StatusPending}, model.StatusWriting))

	writing, err := s.ListByStatus(ctx, model.StatusWriting)
	require.NoError(t, err)
	require.Len(t, writing, 1)
	assert.Equal(t, a.ID, writing[0].ID)

	pending, err := s.ListByStatus(ctx, model.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestForceStatus(t *testing.T) {
	s := New(openTestPool(t))
	ctx := context.Background()
	ds := createTestDataset(t, s, "run-12", nil)

	require.NoError(t, s.ForceStatus(ctx, ds.ID, model.StatusAborted))

	got, err := s.FindByID(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAborted, got.Status)
}
