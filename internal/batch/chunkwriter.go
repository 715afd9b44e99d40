package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"hash/crc32"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/friconhq/fricon/internal/applog"
	"github.com/friconhq/fricon/internal/ferr"
)

func init() {
	// Values carries column data as []any; gob needs every concrete type
	// that crosses the interface boundary registered up front.
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(string(""))
	gob.Register(false)
	gob.Register(time.Time{})
}

// chunkExt is the extension given to every chunk file: a marker for the
// gob framing used below, not a claim about column layout.
const chunkExt = ".fcgob"

const tempSuffix = ".tmp"

// defaultChunkBudget bounds how many bytes of framed payload a single chunk
// file accumulates before ChunkWriter rolls over to the next one.
const defaultChunkBudget = 64 * 1024 * 1024

// frame is one on-disk record: a batch plus a checksum over its encoded
// form, the same header-then-payload-then-checksum shape as a WAL entry.
type frame struct {
	Payload []byte
	CRC32   uint32
}

// ChunkWriter is the reference Writer implementation: it encodes batches
// with encoding/gob, frames each with a CRC32 checksum, and rolls over to a
// new chunk file once the configured byte budget is exceeded. Each chunk is
// written to a .tmp file and renamed into place only after it is fully
// flushed and fsynced, so a reader never observes a partial chunk.
type ChunkWriter struct {
	dir          string
	chunkBudget  int64
	schema       Schema
	schemaFrozen bool

	chunkIndex  int
	file        *os.File
	buf         *bufio.Writer
	enc         *gob.Encoder
	chunkBytes  int64
	totalRows   int64
	totalChunks int64

	closed bool
}

// NewChunkWriter opens a writer rooted at dir, which must already exist and
// be empty. chunkBudget <= 0 selects defaultChunkBudget.
func NewChunkWriter(dir string, chunkBudget int64) (*ChunkWriter, error) {
	if chunkBudget <= 0 {
		chunkBudget = defaultChunkBudget
	}
	w := &ChunkWriter{dir: dir, chunkBudget: chunkBudget}
	if err := w.openChunk(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *ChunkWriter) chunkPath(k int) string {
	return filepath.Join(w.dir, "data_chunk_"+strconv.Itoa(k)+chunkExt)
}

func (w *ChunkWriter) openChunk() error {
	tmpPath := w.chunkPath(w.chunkIndex) + tempSuffix
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return ferr.Wrapf(ferr.CodeStorage, err, "open chunk %d", w.chunkIndex)
	}
	w.file = f
	w.buf = bufio.NewWriterSize(f, 64*1024)
	w.enc = gob.NewEncoder(w.buf)
	w.chunkBytes = 0
	return nil
}

// Append implements Writer.
func (w *ChunkWriter) Append(ctx context.Context, b Batch) error {
	if w.closed {
		return ferr.New(ferr.CodeIllegalState, "append on closed chunk writer")
	}
	if ctx.Err() != nil {
		return ferr.Wrap(ferr.CodeTransport, "append cancelled", ctx.Err())
	}

	schema := b.Schema()
	if !w.schemaFrozen {
		w.schema = schema
		w.schemaFrozen = true
	} else if !w.schema.Equal(schema) {
		return ferr.New(ferr.CodeSchemaMismatch, "batch schema does not match the writer's frozen schema")
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(&b); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "encode batch", err)
	}
	fr := frame{Payload: payload.Bytes(), CRC32: crc32.ChecksumIEEE(payload.Bytes())}
	if err := w.enc.Encode(&fr); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "write batch frame", err)
	}

	w.chunkBytes += int64(payload.Len())
	w.totalRows += int64(b.RowCount())

	if w.chunkBytes >= w.chunkBudget {
		if err := w.rollover(); err != nil {
			return err
		}
	}
	return nil
}

// rollover fsyncs and finalizes the current chunk file, then opens the next.
func (w *ChunkWriter) rollover() error {
	if err := w.finalizeCurrentChunk(); err != nil {
		return err
	}
	w.totalChunks++
	w.chunkIndex++
	return w.openChunk()
}

func (w *ChunkWriter) finalizeCurrentChunk() error {
	if err := w.buf.Flush(); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "flush chunk buffer", err)
	}
	if err := w.file.Sync(); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "fsync chunk", err)
	}
	if err := w.file.Close(); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "close chunk file", err)
	}
	finalPath := w.chunkPath(w.chunkIndex)
	if err := os.Rename(finalPath+tempSuffix, finalPath); err != nil {
		return ferr.Wrap(ferr.CodeStorage, "rename chunk into place", err)
	}
	return nil
}

// Close implements Writer.
func (w *ChunkWriter) Close(ctx context.Context) (Summary, error) {
	if w.closed {
		return Summary{}, ferr.New(ferr.CodeIllegalState, "close on already-closed chunk writer")
	}
	w.closed = true

	// The final chunk is always finalized, even if empty, so the directory
	// is self-contained and readable without the DB once Close returns.
	if err := w.finalizeCurrentChunk(); err != nil {
		return Summary{}, err
	}
	w.totalChunks++

	applog.WithComponent("batch").Debug().
		Int64("rows", w.totalRows).Int64("chunks", w.totalChunks).Msg("chunk writer closed")
	return Summary{Rows: w.totalRows, Chunks: w.totalChunks}, nil
}

// Abort implements Writer: it deletes every chunk file written so far,
// including the in-flight temp file, leaving the directory empty.
func (w *ChunkWriter) Abort(ctx context.Context) error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.file != nil {
		_ = w.file.Close()
	}
	_ = os.Remove(w.chunkPath(w.chunkIndex) + tempSuffix)
	for k := 0; k < w.chunkIndex; k++ {
		_ = os.Remove(w.chunkPath(k))
	}
	return nil
}
