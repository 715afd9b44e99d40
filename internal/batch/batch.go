// Package batch defines the chunked columnar writer/reader contract the
// dataset manager drives, plus one concrete reference implementation.
// The physical byte layout of a chunk is intentionally unspecified by the
// core: Writer and Reader are the only surface the manager depends on.
package batch

import "context"

// Schema is the column set inferred from the first batch of a write. Every
// subsequent batch in the same write must carry an identical Schema.
type Schema struct {
	Columns []string
}

// Equal reports whether two schemas name the same columns in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, c := range s.Columns {
		if other.Columns[i] != c {
			return false
		}
	}
	return true
}

// Batch is one record batch: a set of named columns, each holding RowCount()
// values in lockstep. Column order defines the Schema.
type Batch struct {
	Columns []string
	Values  [][]any
}

// Schema extracts this batch's column schema.
func (b Batch) Schema() Schema { return Schema{Columns: append([]string(nil), b.Columns...)} }

// RowCount returns the number of rows carried by the batch, i.e. the length
// of each column's value slice (all columns are equal length by construction).
func (b Batch) RowCount() int {
	if len(b.Values) == 0 {
		return 0
	}
	return len(b.Values[0])
}

// Summary is returned by Writer.Close: the totals a completed dataset
// records in its relational row and sidecar.
type Summary struct {
	Rows   int64
	Chunks int64
}

// Writer is the contract consumed by the dataset manager's write path. A
// Writer is exclusively owned by the single holder of a write token; it is
// not internally synchronized and must not be shared across goroutines.
type Writer interface {
	// Append writes one batch. The first call to Append fixes the writer's
	// schema; later calls with a mismatching schema return a ferr.CodeSchemaMismatch
	// error without writing anything.
	Append(ctx context.Context, b Batch) error

	// Close finalizes the current chunk, fsyncs it, and returns the total
	// row/chunk counts. After Close the writer must not be used again.
	Close(ctx context.Context) (Summary, error)

	// Abort deletes any partially-written chunk files and leaves the
	// writer unusable. Safe to call instead of Close at any point.
	Abort(ctx context.Context) error
}

// Reader is the contract consumed by the dataset manager's read path. It is
// only ever constructed over a Completed dataset's chunk files.
type Reader interface {
	// Next returns the next batch in chunk order, or io.EOF when exhausted.
	Next(ctx context.Context) (Batch, error)

	// Close releases any open file handles.
	Close() error
}
