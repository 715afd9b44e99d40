package rpc

import (
	"github.com/google/uuid"

	"github.com/friconhq/fricon/internal/batch"
	"github.com/friconhq/fricon/internal/events"
	"github.com/friconhq/fricon/internal/model"
)

func datasetToWire(d *model.Dataset) DatasetWire {
	return DatasetWire{
		ID:                 d.ID,
		UUID:               d.UUID.String(),
		Name:               d.Name,
		Description:        d.Description,
		Favorite:           d.Favorite,
		Status:             string(d.Status),
		IndexColumns:       d.IndexColumns,
		Tags:               d.Tags,
		CreatedAt:          d.CreatedAt,
		MetadataGeneration: d.MetadataGeneration,
	}
}

func listParamsFromWire(req *ListDatasetsRequest) model.ListParams {
	statuses := make([]model.Status, 0, len(req.Statuses))
	for _, s := range req.Statuses {
		statuses = append(statuses, model.Status(s))
	}
	return model.ListParams{
		Filter: model.Filter{
			NameContains: req.NameContains,
			Tags:         req.Tags,
			FavoriteOnly: req.FavoriteOnly,
			Statuses:     statuses,
		},
		SortKey: model.SortKey(req.SortKey),
		SortDir: model.SortDir(req.SortDir),
		Limit:   req.Limit,
		Offset:  req.Offset,
	}
}

func metadataPatchFromWire(req *UpdateDatasetRequest) model.MetadataPatch {
	patch := model.MetadataPatch{
		Name:        req.Name,
		Description: req.Description,
		Favorite:    req.Favorite,
	}
	if req.Tags != nil {
		patch.Tags = *req.Tags
		patch.TagsSet = true
	}
	return patch
}

func batchFromWire(msg *BatchMessage) batch.Batch {
	return batch.Batch{Columns: msg.Columns, Values: msg.Values}
}

func eventToWire(ev events.Event) EventWire {
	w := EventWire{
		Kind:      string(ev.Kind),
		DatasetID: ev.DatasetID,
		Status:    ev.Status,
		Timestamp: ev.Timestamp,
	}
	if ev.UUID != uuid.Nil {
		w.UUID = ev.UUID.String()
	}
	return w
}
