// Package model defines the entities shared by the store, dataset manager
// and RPC layers: Dataset, Tag, and the filter/sort vocabulary used to list
// them.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is a dataset's position in the write-path state machine.
// Metadata mutations (name/description/favorite/tags) are independent of
// this state machine and remain legal in every status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusWriting   Status = "writing"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Dataset is the relational row plus its resolved tag set.
type Dataset struct {
	ID                 int64
	UUID               uuid.UUID
	Name               string
	Description        string
	Favorite           bool
	Status             Status
	IndexColumns       []string
	Tags               []string
	CreatedAt          time.Time
	MetadataGeneration int64
}

// Tag is a unique, case-sensitive, trimmed name.
type Tag struct {
	ID   int64
	Name string
}

// SortKey enumerates the columns List may order by.
type SortKey string

const (
	SortByID        SortKey = "id"
	SortByName      SortKey = "name"
	SortByCreatedAt SortKey = "created_at"
)

// SortDir is ascending or descending.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	NameContains string
	Tags         []string
	FavoriteOnly bool
	Statuses     []Status
}

// ListParams bundles Filter with pagination and ordering. Limit is a
// pointer so "not set" (defaults to DefaultListLimit) and "explicitly set
// to zero" (an empty page) are distinguishable — a plain int zero value
// can't carry that distinction.
type ListParams struct {
	Filter  Filter
	SortKey SortKey
	SortDir SortDir
	Limit   *int
	Offset  int
}

// DefaultListLimit is applied when ListParams.Limit is nil.
const DefaultListLimit = 200

// MetadataPatch is the set of mutable fields Update may change. A nil
// pointer means "leave unchanged". Tags is applied only when TagsSet is
// true, and then replaces the association set rather than adding to it
// (an empty Tags with TagsSet clears it; see DESIGN.md Open Question
// resolution).
type MetadataPatch struct {
	Name        *string
	Description *string
	Favorite    *bool
	Tags        []string
	TagsSet     bool
}
