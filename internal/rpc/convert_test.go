package rpc

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friconhq/fricon/internal/events"
	"github.com/friconhq/fricon/internal/model"
)

func TestDatasetToWire(t *testing.T) {
	id := uuid.New()
	ds := &model.Dataset{
		ID:                 7,
		UUID:               id,
		Name:               "run-1",
		Description:        "first run",
		Favorite:           true,
		Status:             model.StatusCompleted,
		IndexColumns:       []string{"t"},
		Tags:               []string{"b", "a"},
		CreatedAt:          time.Unix(0, 0).UTC(),
		MetadataGeneration: 3,
	}

	wire := datasetToWire(ds)
	assert.Equal(t, ds.ID, wire.ID)
	assert.Equal(t, id.String(), wire.UUID)
	assert.Equal(t, "completed", wire.Status)
	assert.Equal(t, []string{"b", "a"}, wire.Tags)
	assert.Equal(t, int64(3), wire.MetadataGeneration)
}

func TestListParamsFromWire(t *testing.T) {
	limit := 10
	req := &ListDatasetsRequest{
		NameContains: "run",
		Tags:         []string{"x"},
		FavoriteOnly: true,
		Statuses:     []string{"completed", "aborted"},
		SortKey:      "name",
		SortDir:      "asc",
		Limit:        &limit,
		Offset:       5,
	}

	params := listParamsFromWire(req)
	assert.Equal(t, "run", params.Filter.NameContains)
	assert.True(t, params.Filter.FavoriteOnly)
	assert.Equal(t, []model.Status{model.StatusCompleted, model.StatusAborted}, params.Filter.Statuses)
	assert.Equal(t, model.SortKey("name"), params.SortKey)
	require.NotNil(t, params.Limit)
	assert.Equal(t, 10, *params.Limit)
	assert.Equal(t, 5, params.Offset)
}

func TestListParamsFromWireLeavesLimitUnsetWhenNil(t *testing.T) {
	req := &ListDatasetsRequest{NameContains: "run"}

	params := listParamsFromWire(req)
	assert.Nil(t, params.Limit)
}

func TestMetadataPatchFromWireOmitsUnsetTags(t *testing.T) {
	name := "renamed"
	req := &UpdateDatasetRequest{ID: 1, Name: &name}

	patch := metadataPatchFromWire(req)
	assert.Equal(t, &name, patch.Name)
	assert.False(t, patch.TagsSet)
	assert.Nil(t, patch.Tags)
}

func TestMetadataPatchFromWireSetsTags(t *testing.T) {
	tags := []string{"x", "y"}
	req := &UpdateDatasetRequest{ID: 1, Tags: &tags}

	patch := metadataPatchFromWire(req)
	assert.True(t, patch.TagsSet)
	assert.Equal(t, tags, patch.Tags)
}

func TestBatchFromWire(t *testing.T) {
	msg := &BatchMessage{Columns: []string{"a", "b"}, Values: [][]any{{int64(1), "x"}}}
	b := batchFromWire(msg)
	assert.Equal(t, msg.Columns, b.Columns)
	assert.Equal(t, msg.Values, b.Values)
}

func TestEventToWireGuardsNilUUID(t *testing.T) {
	ev := events.Event{Kind: events.KindDatasetCreated, DatasetID: 1}
	wire := eventToWire(ev)
	assert.Equal(t, "", wire.UUID)

	id := uuid.New()
	ev.UUID = id
	wire = eventToWire(ev)
	assert.Equal(t, id.String(), wire.UUID)
}
