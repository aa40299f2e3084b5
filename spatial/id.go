package spatial

import (
	"fmt"
	"math/big"
)

// Id is the address of a node in the tree: a single integer that encodes
// both the depth of the node and the path taken to reach it from the
// root. Climbing to child `dir` maps id -> (id << k) + 1 + dir, with k = 2
// for a quadtree and 3 for an octree, so a node's depth can be recovered
// by repeatedly shifting until the value reaches zero. Because depth
// grows the value by k bits per level,
// a uint64 overflows well before the tree gets deep enough to resolve
// dense point clouds, so Id is backed by math/big.
type Id struct {
	v *big.Int
}

// RootId is the identifier of the tree root.
var RootId = Id{v: big.NewInt(0)}

// NewId wraps an existing integer value as an Id.
func NewId(v int64) Id {
	return Id{v: big.NewInt(v)}
}

// NewIdFromBig returns an Id holding a copy of b, so later changes to b
// do not affect it.
func NewIdFromBig(b *big.Int) Id {
	return Id{v: new(big.Int).Set(b)}
}

func (id Id) ensure() *big.Int {
	if id.v == nil {
		return big.NewInt(0)
	}
	return id.v
}

// Climb returns the identifier of the child reached by direction dir,
// where dims is 4 for a quadtree and 8 for an octree.
func (id Id) Climb(dir Dir, dims int) Id {
	shift := 2
	if dims > 4 {
		shift = 3
	}
	out := new(big.Int).Lsh(id.ensure(), uint(shift))
	out.Add(out, big.NewInt(1+int64(dir)))
	return Id{v: out}
}

// Depth returns the tree depth of id: the number of climbs from the root
// required to reach it.
func (id Id) Depth(dims int) uint64 {
	shift := uint(2)
	if dims > 4 {
		shift = 3
	}
	v := new(big.Int).Set(id.ensure())
	one := big.NewInt(1)
	var depth uint64
	for v.Sign() > 0 {
		v.Sub(v, one)
		v.Rsh(v, shift)
		depth++
	}
	return depth
}

// Cmp compares id to o the way big.Int.Cmp does.
func (id Id) Cmp(o Id) int {
	return id.ensure().Cmp(o.ensure())
}

// Equal reports whether id and o refer to the same node.
func (id Id) Equal(o Id) bool {
	return id.Cmp(o) == 0
}

// Uint64 returns id as a uint64. It does not panic when the value does
// not fit; the result is then undefined (see big.Int.Uint64), so check
// FitsUint64 first for ids that may be that deep.
func (id Id) Uint64() uint64 {
	return id.ensure().Uint64()
}

// FitsUint64 reports whether Uint64 is safe to call.
func (id Id) FitsUint64() bool {
	return id.ensure().IsUint64()
}

// Bytes returns the big-endian bytes of id's absolute value, suitable
// as a map key or on-disk identifier for sparse (unbounded-depth) blocks.
func (id Id) Bytes() []byte {
	return id.ensure().Bytes()
}

// String renders id in decimal, matching how chunk and hierarchy block
// keys are named on storage.
func (id Id) String() string {
	return id.ensure().String()
}

// Less reports id < o, for use as a map/sort ordering.
func (id Id) Less(o Id) bool {
	return id.Cmp(o) < 0
}

func (id Id) GoString() string {
	return fmt.Sprintf("Id(%s)", id.String())
}
