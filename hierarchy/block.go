package hierarchy

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/fgilic/entwine/spatial"
)

// Writer is the minimal storage capability a Block needs to persist
// itself; satisfied by storage.Endpoint without hierarchy importing the
// storage package directly.
type Writer interface {
	Put(key string, data []byte) error
}

// Reader is the minimal storage capability a Block needs to rehydrate
// itself.
type Reader interface {
	Get(key string) ([]byte, error)
}

// Block is one shard of the hierarchy: a collection of Tubes, each
// belonging to one tree node inside the depth range the block covers.
// Corresponds to the original's abstract HierarchyBlock with two
// concrete shapes, ContiguousBlock and SparseBlock.
type Block interface {
	// Increment mutates the count of node id at tick and returns the
	// new value.
	Increment(id spatial.Id, tick uint64, delta int64) uint64
	// Get returns the count of node id at tick without mutating it.
	Get(id spatial.Id, tick uint64) uint64
	// Total returns the sum across every tick of node id, which for
	// non-tubular structures equals Get(id, 0).
	Total(id spatial.Id) uint64
	// Save persists the block under key via w.
	Save(w Writer, key string) error
}

// ContiguousBlock stores one Tube per node id, offset from a base id and
// keyed densely by that offset rather than by the full node id. It is
// used for the base region of the tree, where every possible node
// offset is a plausible key. The offset space itself can be enormous at
// deeper base depths, so tubes are created lazily on first touch behind
// a map rather than eagerly filling a slice of that size; what makes the
// block "contiguous" is the cheap uint64 offset key, not upfront
// allocation.
type ContiguousBlock struct {
	mu     sync.RWMutex
	baseId spatial.Id
	dims   int
	size   uint64
	tubes  map[uint64]*Tube
}

// NewContiguousBlock returns a block covering `size` consecutive node
// ids starting at baseId.
func NewContiguousBlock(baseId spatial.Id, dims int, size uint64) *ContiguousBlock {
	return &ContiguousBlock{baseId: baseId, dims: dims, size: size, tubes: make(map[uint64]*Tube)}
}

func (b *ContiguousBlock) offset(id spatial.Id) (uint64, bool) {
	// Ids in the base region fit comfortably in a uint64, so the
	// relative offset does too.
	if !id.FitsUint64() || !b.baseId.FitsUint64() {
		return 0, false
	}
	base := b.baseId.Uint64()
	idv := id.Uint64()
	if idv < base {
		return 0, false
	}
	off := idv - base
	if b.size != 0 && off >= b.size {
		return 0, false
	}
	return off, true
}

func (b *ContiguousBlock) tubeFor(off uint64, create bool) *Tube {
	b.mu.RLock()
	t, ok := b.tubes[off]
	b.mu.RUnlock()
	if ok || !create {
		return t
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok = b.tubes[off]; ok {
		return t
	}
	t = NewTube()
	b.tubes[off] = t
	return t
}

func (b *ContiguousBlock) Increment(id spatial.Id, tick uint64, delta int64) uint64 {
	off, ok := b.offset(id)
	if !ok {
		return 0
	}
	return b.tubeFor(off, true).Increment(tick, delta)
}

func (b *ContiguousBlock) Get(id spatial.Id, tick uint64) uint64 {
	off, ok := b.offset(id)
	if !ok {
		return 0
	}
	t := b.tubeFor(off, false)
	if t == nil {
		return 0
	}
	return t.Get(tick)
}

func (b *ContiguousBlock) Total(id spatial.Id) uint64 {
	off, ok := b.offset(id)
	if !ok {
		return 0
	}
	t := b.tubeFor(off, false)
	if t == nil {
		return 0
	}
	return t.Total()
}

// Save writes every (tube offset, tick, count) triple as fixed-width
// little-endian records, skipping empty tubes. This is the same wire
// shape ContiguousBlock uses in the original implementation.
func (b *ContiguousBlock) Save(w Writer, key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	buf := make([]byte, 0, 24*len(b.tubes))
	for off, t := range b.tubes {
		t.Each(func(tick, count uint64) {
			var rec [24]byte
			binary.LittleEndian.PutUint64(rec[0:8], off)
			binary.LittleEndian.PutUint64(rec[8:16], tick)
			binary.LittleEndian.PutUint64(rec[16:24], count)
			buf = append(buf, rec[:]...)
		})
	}
	return w.Put(key, buf)
}

// LoadContiguousBlock rehydrates a block saved by Save.
func LoadContiguousBlock(r Reader, key string, baseId spatial.Id, dims int, size uint64) (*ContiguousBlock, error) {
	b := NewContiguousBlock(baseId, dims, size)
	data, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	if len(data)%24 != 0 {
		return nil, fmt.Errorf("hierarchy: contiguous block %q has truncated record stream (%d bytes)", key, len(data))
	}
	for at := 0; at < len(data); at += 24 {
		off := binary.LittleEndian.Uint64(data[at : at+8])
		tick := binary.LittleEndian.Uint64(data[at+8 : at+16])
		count := binary.LittleEndian.Uint64(data[at+16 : at+24])
		if size != 0 && off >= size {
			return nil, fmt.Errorf("hierarchy: contiguous block %q record offset %d out of range", key, off)
		}
		b.tubeFor(off, true).Increment(tick, int64(count))
	}
	return b, nil
}

// SparseBlock stores one Tube per node id in a map keyed by the id's
// full byte representation, for depths past the point where a dense
// slice would be wasteful. Guarded by a single mutex, matching the
// original's SpinLock-protected map.
type SparseBlock struct {
	mu    sync.RWMutex
	dims  int
	tubes map[string]*Tube
}

// NewSparseBlock returns an empty sparse block.
func NewSparseBlock(dims int) *SparseBlock {
	return &SparseBlock{dims: dims, tubes: make(map[string]*Tube)}
}

func (b *SparseBlock) tubeFor(id spatial.Id, create bool) *Tube {
	key := string(id.Bytes())
	b.mu.RLock()
	t, ok := b.tubes[key]
	b.mu.RUnlock()
	if ok || !create {
		return t
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok = b.tubes[key]; ok {
		return t
	}
	t = NewTube()
	b.tubes[key] = t
	return t
}

func (b *SparseBlock) Increment(id spatial.Id, tick uint64, delta int64) uint64 {
	return b.tubeFor(id, true).Increment(tick, delta)
}

func (b *SparseBlock) Get(id spatial.Id, tick uint64) uint64 {
	t := b.tubeFor(id, false)
	if t == nil {
		return 0
	}
	return t.Get(tick)
}

func (b *SparseBlock) Total(id spatial.Id) uint64 {
	t := b.tubeFor(id, false)
	if t == nil {
		return 0
	}
	return t.Total()
}

// Save writes every (id, tick, count) triple. Unlike ContiguousBlock,
// the key is the node id's full variable-width byte representation
// rather than a fixed-width offset, since sparse ids can be arbitrarily
// large. This resolves the original implementation's unfinished sparse
// save path with an explicit, self-describing record format.
func (b *SparseBlock) Save(w Writer, key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	buf := make([]byte, 0, 1024)
	for idKey, t := range b.tubes {
		t.Each(func(tick, count uint64) {
			var lenBuf [2]byte
			binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(idKey)))
			buf = append(buf, lenBuf[:]...)
			buf = append(buf, idKey...)

			var rec [16]byte
			binary.LittleEndian.PutUint64(rec[0:8], tick)
			binary.LittleEndian.PutUint64(rec[8:16], count)
			buf = append(buf, rec[:]...)
		})
	}
	return w.Put(key, buf)
}

// LoadSparseBlock rehydrates a block saved by Save.
func LoadSparseBlock(r Reader, key string, dims int) (*SparseBlock, error) {
	b := NewSparseBlock(dims)
	data, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	off := 0
	for off < len(data) {
		if off+2 > len(data) {
			return nil, fmt.Errorf("hierarchy: sparse block %q truncated id length", key)
		}
		idLen := int(binary.LittleEndian.Uint16(data[off : off+2]))
		off += 2
		if off+idLen+16 > len(data) {
			return nil, fmt.Errorf("hierarchy: sparse block %q truncated record", key)
		}
		idKey := string(data[off : off+idLen])
		off += idLen
		tick := binary.LittleEndian.Uint64(data[off : off+8])
		count := binary.LittleEndian.Uint64(data[off+8 : off+16])
		off += 16

		b.mu.Lock()
		t, ok := b.tubes[idKey]
		if !ok {
			t = NewTube()
			b.tubes[idKey] = t
		}
		b.mu.Unlock()
		t.Increment(tick, int64(count))
	}
	return b, nil
}
