package rpc

import "time"

// This file defines the plain Go structs carried over the jsonCodec in
// place of protoc-generated message types (see codec.go and DESIGN.md).
// Field names are chosen to match the wire vocabulary a .proto file for
// this service would use.

// CreateDatasetRequest is Create's request.
type CreateDatasetRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	IndexColumns []string `json:"index_columns"`
}

// CreateDatasetResponse is Create's response.
type CreateDatasetResponse struct {
	Token   string      `json:"token"`
	Dataset DatasetWire `json:"dataset"`
}

// BatchMessage carries one record batch on the Write stream. Token is only
// meaningful on the first message of a stream, but grpc-go reuses one
// message type per stream direction, so every message carries the field.
type BatchMessage struct {
	Token   string   `json:"token"`
	Columns []string `json:"columns"`
	Values  [][]any  `json:"values"`
}

// WriteSummary is Write's response, sent once after the client half-closes.
type WriteSummary struct {
	Rows   int64 `json:"rows"`
	Chunks int64 `json:"chunks"`
}

// GetDatasetRequest identifies a dataset by id or uuid; exactly one of the
// two should be set.
type GetDatasetRequest struct {
	ID   int64  `json:"id,omitempty"`
	UUID string `json:"uuid,omitempty"`
}

// DatasetWire is the wire projection of model.Dataset.
type DatasetWire struct {
	ID                 int64     `json:"id"`
	UUID               string    `json:"uuid"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Favorite           bool      `json:"favorite"`
	Status             string    `json:"status"`
	IndexColumns       []string  `json:"index_columns"`
	Tags               []string  `json:"tags"`
	CreatedAt          time.Time `json:"created_at"`
	MetadataGeneration int64     `json:"metadata_generation"`
}

// ListDatasetsRequest mirrors model.ListParams over the wire.
type ListDatasetsRequest struct {
	NameContains string   `json:"name_contains"`
	Tags         []string `json:"tags"`
	FavoriteOnly bool     `json:"favorite_only"`
	Statuses     []string `json:"statuses"`
	SortKey      string   `json:"sort_key"`
	SortDir      string   `json:"sort_dir"`
	Limit        *int     `json:"limit,omitempty"`
	Offset       int      `json:"offset"`
}

// UpdateDatasetRequest is Update's request; a nil pointer field means
// "leave unchanged," matching model.MetadataPatch.
type UpdateDatasetRequest struct {
	ID          int64     `json:"id"`
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Favorite    *bool     `json:"favorite,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// DeleteDatasetRequest is Delete's request.
type DeleteDatasetRequest struct {
	ID int64 `json:"id"`
}

// Empty is returned by RPCs with nothing to say on success.
type Empty struct{}

// SubscribeRequest is Subscribe's request; it carries no filters, every
// subscriber receives every event.
type SubscribeRequest struct{}

// EventWire is the wire projection of events.Event.
type EventWire struct {
	Kind      string    `json:"kind"`
	DatasetID int64     `json:"dataset_id"`
	UUID      string    `json:"uuid"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
