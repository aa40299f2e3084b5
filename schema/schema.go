// Package schema describes the fixed-width binary layout of a point
// record and provides packing/unpacking into that layout. Point clouds
// carry a variable, user-defined set of dimensions (X, Y, Z, Intensity,
// Classification, ...); a Schema fixes their order, type, and byte
// offset once so every chunk can be treated as a flat array of
// identically shaped records.
package schema

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataType is the on-disk representation of one dimension's values.
type DataType uint8

const (
	Int8 DataType = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

// Size returns the width in bytes of a single value of type t.
func (t DataType) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

func (t DataType) String() string {
	names := [...]string{"int8", "uint8", "int16", "uint16", "int32", "uint32", "int64", "uint64", "float32", "float64"}
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

// Dimension is one named field of a point record. Scale and Offset let
// spatial dimensions (X/Y/Z) be stored as small scaled integers while
// still round-tripping to real-world double-precision coordinates.
type Dimension struct {
	Name   string   `json:"name"`
	Type   DataType `json:"type"`
	Scale  float64  `json:"scale,omitempty"` // 0 means unscaled (used as-is)
	Offset float64  `json:"offset,omitempty"`
}

// Schema is an ordered list of Dimensions with byte offsets computed
// once at construction.
type Schema struct {
	dims    []Dimension
	offsets []int
	size    int
	index   map[string]int
}

// New builds a Schema from an ordered dimension list.
func New(dims []Dimension) *Schema {
	s := &Schema{
		dims:    append([]Dimension(nil), dims...),
		offsets: make([]int, len(dims)),
		index:   make(map[string]int, len(dims)),
	}
	off := 0
	for i, d := range s.dims {
		s.offsets[i] = off
		s.index[d.Name] = i
		off += d.Type.Size()
	}
	s.size = off
	return s
}

// PointSize returns the fixed width of one record, in bytes.
func (s *Schema) PointSize() int { return s.size }

// Dimensions returns the ordered dimension list.
func (s *Schema) Dimensions() []Dimension { return s.dims }

// Find returns the index of the named dimension, or -1 if absent.
func (s *Schema) Find(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether the schema defines the named dimension.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Offset returns the byte offset of dimension index i within a record.
func (s *Schema) Offset(i int) int { return s.offsets[i] }

// PointTable is a flat buffer of fixed-width records described by a
// Schema. It never copies point data out of the buffer it wraps; Get
// and Set operate in place.
type PointTable struct {
	schema *Schema
	buf    []byte
}

// NewPointTable wraps buf, which must be a multiple of the schema's
// point size, as a table of len(buf)/PointSize() records.
func NewPointTable(s *Schema, buf []byte) (*PointTable, error) {
	if s.PointSize() == 0 {
		return nil, fmt.Errorf("schema: point size is zero")
	}
	if len(buf)%s.PointSize() != 0 {
		return nil, fmt.Errorf("schema: buffer length %d is not a multiple of point size %d", len(buf), s.PointSize())
	}
	return &PointTable{schema: s, buf: buf}, nil
}

// MakePointTable allocates a zeroed table for n points.
func MakePointTable(s *Schema, n uint64) *PointTable {
	return &PointTable{schema: s, buf: make([]byte, s.PointSize()*int(n))}
}

// NumPoints returns the number of records in the table.
func (t *PointTable) NumPoints() uint64 {
	return uint64(len(t.buf) / t.schema.PointSize())
}

// Bytes returns the raw backing buffer.
func (t *PointTable) Bytes() []byte { return t.buf }

// Schema returns the table's schema.
func (t *PointTable) Schema() *Schema { return t.schema }

func (t *PointTable) recordOffset(point uint64) int {
	return int(point) * t.schema.PointSize()
}

// Raw returns the raw byte value of dimension dim in record point,
// without applying scale/offset.
func (t *PointTable) Raw(point uint64, dim int) []byte {
	base := t.recordOffset(point) + t.schema.Offset(dim)
	size := t.schema.dims[dim].Type.Size()
	return t.buf[base : base+size]
}

// GetFloat64 reads dimension dim of record point as a float64, applying
// the dimension's scale/offset if set.
func (t *PointTable) GetFloat64(point uint64, dim int) float64 {
	d := t.schema.dims[dim]
	raw := t.Raw(point, dim)
	var v float64
	switch d.Type {
	case Int8:
		v = float64(int8(raw[0]))
	case Uint8:
		v = float64(raw[0])
	case Int16:
		v = float64(int16(binary.LittleEndian.Uint16(raw)))
	case Uint16:
		v = float64(binary.LittleEndian.Uint16(raw))
	case Int32:
		v = float64(int32(binary.LittleEndian.Uint32(raw)))
	case Uint32:
		v = float64(binary.LittleEndian.Uint32(raw))
	case Int64:
		v = float64(int64(binary.LittleEndian.Uint64(raw)))
	case Uint64:
		v = float64(binary.LittleEndian.Uint64(raw))
	case Float32:
		v = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))
	case Float64:
		v = math.Float64frombits(binary.LittleEndian.Uint64(raw))
	}
	if d.Scale != 0 {
		v = v*d.Scale + d.Offset
	}
	return v
}

// SetFloat64 writes v into dimension dim of record point, applying the
// inverse of the dimension's scale/offset if set. A scaled value bound for
// an integer type is rounded to the nearest integer.
func (t *PointTable) SetFloat64(point uint64, dim int, v float64) {
	d := t.schema.dims[dim]
	if d.Scale != 0 {
		v = (v - d.Offset) / d.Scale
		if d.Type != Float32 && d.Type != Float64 {
			v = math.Round(v)
		}
	}
	raw := t.Raw(point, dim)
	switch d.Type {
	case Int8:
		raw[0] = byte(int8(v))
	case Uint8:
		raw[0] = byte(uint8(v))
	case Int16:
		binary.LittleEndian.PutUint16(raw, uint16(int16(v)))
	case Uint16:
		binary.LittleEndian.PutUint16(raw, uint16(v))
	case Int32:
		binary.LittleEndian.PutUint32(raw, uint32(int32(v)))
	case Uint32:
		binary.LittleEndian.PutUint32(raw, uint32(v))
	case Int64:
		binary.LittleEndian.PutUint64(raw, uint64(int64(v)))
	case Uint64:
		binary.LittleEndian.PutUint64(raw, uint64(v))
	case Float32:
		binary.LittleEndian.PutUint32(raw, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(raw, math.Float64bits(v))
	}
}

// CopyRecord copies record src from t into record dst of dst table. Both
// tables must share the same schema.
func (t *PointTable) CopyRecord(dstTable *PointTable, dst, src uint64) {
	size := t.schema.PointSize()
	so := t.recordOffset(src)
	do := int(dst) * size
	copy(dstTable.buf[do:do+size], t.buf[so:so+size])
}
