package batch

import (
	"context"
	"encoding/gob"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/friconhq/fricon/internal/ferr"
)

// ChunkReader replays the batches written by a ChunkWriter, in chunk and
// then in-chunk order. It is only ever opened over a Completed dataset's
// directory, which is immutable by the time a reader exists.
type ChunkReader struct {
	dir        string
	chunkPaths []string
	chunkIndex int
	file       *os.File
	dec        *gob.Decoder
}

// NewChunkReader opens a reader over every data_chunk_*.fcgob file in dir,
// in numeric order.
func NewChunkReader(dir string) (*ChunkReader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ferr.Wrap(ferr.CodeStorage, "list chunk directory", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "data_chunk_") && strings.HasSuffix(e.Name(), chunkExt) {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool { return chunkOrder(names[i]) < chunkOrder(names[j]) })

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}

	r := &ChunkReader{dir: dir, chunkPaths: paths, chunkIndex: -1}
	return r, nil
}

// chunkOrder extracts the numeric index k from "data_chunk_<k>.fcgob" so
// chunk 10 sorts after chunk 9 regardless of digit width.
func chunkOrder(name string) int {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, "data_chunk_"), chunkExt)
	n := 0
	for _, c := range trimmed {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func (r *ChunkReader) openNextChunk() (bool, error) {
	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
		r.dec = nil
	}
	r.chunkIndex++
	if r.chunkIndex >= len(r.chunkPaths) {
		return false, nil
	}
	f, err := os.Open(r.chunkPaths[r.chunkIndex])
	if err != nil {
		return false, ferr.Wrapf(ferr.CodeStorage, err, "open chunk %s", r.chunkPaths[r.chunkIndex])
	}
	r.file = f
	r.dec = gob.NewDecoder(f)
	return true, nil
}

// Next implements Reader.
func (r *ChunkReader) Next(ctx context.Context) (Batch, error) {
	if ctx.Err() != nil {
		return Batch{}, ferr.Wrap(ferr.CodeTransport, "read cancelled", ctx.Err())
	}

	for {
		if r.dec == nil {
			ok, err := r.openNextChunk()
			if err != nil {
				return Batch{}, err
			}
			if !ok {
				return Batch{}, io.EOF
			}
		}

		var fr frame
		err := r.dec.Decode(&fr)
		if err == io.EOF {
			// Exhausted this chunk; try the next one.
			r.dec = nil
			continue
		}
		if err != nil {
			return Batch{}, ferr.Wrap(ferr.CodeStorage, "decode batch frame", err)
		}
		if crc32.ChecksumIEEE(fr.Payload) != fr.CRC32 {
			return Batch{}, ferr.New(ferr.CodeStorage, "chunk frame checksum mismatch")
		}

		var b Batch
		if err := gob.NewDecoder(strings.NewReader(string(fr.Payload))).Decode(&b); err != nil {
			return Batch{}, ferr.Wrap(ferr.CodeStorage, "decode batch payload", err)
		}
		return b, nil
	}
}

// Close implements Reader.
func (r *ChunkReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.dec = nil
	if err != nil {
		return ferr.Wrap(ferr.CodeStorage, "close chunk file", err)
	}
	return nil
}
