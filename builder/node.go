package builder

import (
	"sync"

	"github.com/fgilic/entwine/internal/pool"
	"github.com/fgilic/entwine/spatial"
)

// Node is one in-memory node of the write-side tree: the points that
// have landed here so far (as indices into whatever PointTable they
// were read from) plus lazily created children. Parents exclusively
// own their children; a Node is only ever reachable through its parent
// or the Builder's root, so no node outlives the build that created it.
type Node struct {
	mu       sync.Mutex
	Id       spatial.Id
	Depth    uint64
	Bounds   spatial.BBox
	Capacity uint64
	refs     []pointRef
	Children [8]*Node
}

type pointRef struct {
	source uint64 // source-table generation; flushNode looks the table up by it
	index  uint64
}

func newNode() *Node {
	return &Node{}
}

func resetNode(n *Node) {
	n.Id = spatial.Id{}
	n.Depth = 0
	n.Bounds = spatial.BBox{}
	n.Capacity = 0
	n.refs = n.refs[:0]
	for i := range n.Children {
		n.Children[i] = nil
	}
}

// nodePool recycles Node objects across a build, see package pool's
// doc comment for why sync.Pool is sufficient here.
var nodePool = pool.New(newNode, resetNode)

func acquireNode(id spatial.Id, depth uint64, bounds spatial.BBox, capacity uint64) *Node {
	n := nodePool.Get()
	n.Id = id
	n.Depth = depth
	n.Bounds = bounds
	n.Capacity = capacity
	return n
}

func releaseTree(n *Node) {
	if n == nil {
		return
	}
	for i, c := range n.Children {
		releaseTree(c)
		n.Children[i] = nil
	}
	nodePool.Put(n)
}

// full reports whether the node has reached its point budget and must
// push further inserts down to a child.
func (n *Node) full() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return uint64(len(n.refs)) >= n.Capacity
}

// addRef stores a reference to the point at index within the given
// source generation, returning false if the node was already full by
// the time the lock was acquired (a concurrent insert raced ahead).
func (n *Node) addRef(source, index uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if uint64(len(n.refs)) >= n.Capacity {
		return false
	}
	n.refs = append(n.refs, pointRef{source: source, index: index})
	return true
}

// numPoints reports how many points currently live directly on this
// node (not counting descendants).
func (n *Node) numPoints() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return uint64(len(n.refs))
}

func (n *Node) refsSnapshot() []pointRef {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]pointRef, len(n.refs))
	copy(out, n.refs)
	return out
}

// child returns the existing child at dir, or nil if none exists yet.
func (n *Node) child(dir spatial.Dir) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Children[dir]
}

// getOrCreateChild returns the existing child at dir, or atomically
// installs newChild if none exists yet. If another goroutine won the
// race, newChild is released back to the pool and the winner's child is
// returned instead.
func (n *Node) getOrCreateChild(dir spatial.Dir, newChild *Node) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Children[dir] != nil {
		nodePool.Put(newChild)
		return n.Children[dir]
	}
	n.Children[dir] = newChild
	return newChild
}
