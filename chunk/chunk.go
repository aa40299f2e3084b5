// Package chunk implements the immutable, on-disk unit of point storage:
// a fixed-schema point table addressed by tree Id, always compressed
// with zstd before it is handed to a storage endpoint.
package chunk

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/fgilic/entwine/schema"
	"github.com/fgilic/entwine/spatial"
)

// Chunk is a bucket of points belonging to one tree node (or, in the
// base region, one whole subtree). Once built, a Chunk's contents never
// change; edits produce a new Chunk with the same Id.
type Chunk struct {
	Id     spatial.Id
	Depth  uint64
	Bounds spatial.BBox
	Schema *schema.Schema
	Table  *schema.PointTable
}

// New wraps table as the Chunk for id/depth/bounds.
func New(id spatial.Id, depth uint64, bounds spatial.BBox, s *schema.Schema, table *schema.PointTable) *Chunk {
	return &Chunk{Id: id, Depth: depth, Bounds: bounds, Schema: s, Table: table}
}

// NumPoints returns the number of point records held by the chunk.
func (c *Chunk) NumPoints() uint64 {
	if c.Table == nil {
		return 0
	}
	return c.Table.NumPoints()
}

var (
	sharedEncoder     *zstd.Encoder
	sharedEncoderOnce sync.Once
	sharedEncoderErr  error
)

// encoder returns a process-wide zstd encoder, built once. EncodeAll is
// safe to call concurrently on the same *zstd.Encoder, which is what lets
// builder.flushNodes encode chunks from a pool of goroutines without
// contending on encoder setup.
func encoder() (*zstd.Encoder, error) {
	sharedEncoderOnce.Do(func() {
		sharedEncoder, sharedEncoderErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return sharedEncoder, sharedEncoderErr
}

// Encode serializes c into a self-describing byte stream: a small header
// (point count, point size) followed by the zstd-compressed point table.
// Compression uses klauspost/compress; storage endpoints store the
// resulting bytes as they are.
func Encode(c *Chunk) ([]byte, error) {
	enc, err := encoder()
	if err != nil {
		return nil, fmt.Errorf("chunk: acquire encoder: %w", err)
	}

	var header [16]byte
	putUint64(header[0:8], c.NumPoints())
	putUint64(header[8:16], uint64(c.Schema.PointSize()))

	compressed := enc.EncodeAll(c.Table.Bytes(), nil)

	out := make([]byte, 0, len(header)+len(compressed))
	out = append(out, header[:]...)
	out = append(out, compressed...)
	return out, nil
}

// Decode reconstructs a Chunk with the given identity from bytes
// produced by Encode.
func Decode(id spatial.Id, depth uint64, bounds spatial.BBox, s *schema.Schema, data []byte) (*Chunk, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("chunk: truncated header (%d bytes)", len(data))
	}
	numPoints := getUint64(data[0:8])
	pointSize := getUint64(data[8:16])
	if int(pointSize) != s.PointSize() {
		return nil, fmt.Errorf("chunk: schema point size %d does not match encoded size %d", s.PointSize(), pointSize)
	}

	dec, err := zstd.NewReader(bytes.NewReader(data[16:]))
	if err != nil {
		return nil, fmt.Errorf("chunk: create decoder: %w", err)
	}
	defer dec.Close()

	want := int(numPoints) * int(pointSize)
	raw := make([]byte, 0, want)
	buf := make([]byte, 32*1024)
	for {
		n, rerr := dec.Read(buf)
		if n > 0 {
			raw = append(raw, buf[:n]...)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("chunk: decompress: %w", rerr)
		}
	}

	table, err := schema.NewPointTable(s, raw)
	if err != nil {
		return nil, fmt.Errorf("chunk: rebuild point table: %w", err)
	}

	return New(id, depth, bounds, s, table), nil
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// Key returns the storage key under which the chunk is persisted. When
// prefixIds is set the depth is prepended so directory listings sort by
// LOD, matching some storage backends' conventions.
func Key(id spatial.Id, depth uint64, prefixIds bool) string {
	if prefixIds {
		return fmt.Sprintf("%d-%s", depth, id.String())
	}
	return id.String()
}
