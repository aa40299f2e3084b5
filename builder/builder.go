// Package builder implements the write path: descending the tree one
// point at a time ("climbing"), splitting a node into children once its
// point budget is exhausted, and finally flushing the in-memory tree out
// to chunks and a hierarchy on a storage.Endpoint. Grounded on entwine's
// builder climb/insert and the original's HierarchyClimber, adapted
// from a counting-only climb to one that also buffers the actual point
// data that will become chunk bodies.
package builder

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fgilic/entwine/chunk"
	"github.com/fgilic/entwine/config"
	"github.com/fgilic/entwine/hierarchy"
	"github.com/fgilic/entwine/resource"
	"github.com/fgilic/entwine/schema"
	"github.com/fgilic/entwine/spatial"
	"github.com/fgilic/entwine/structure"
)

// OverflowError reports that a point descended past the tree's covered
// depth without finding room, meaning the structure's depth bound is
// too shallow for the density of the data being inserted.
type OverflowError struct {
	Point spatial.Point
	Depth uint64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("builder: point %s still has no home at depth %d (covered depth exceeded)", e.Point, e.Depth)
}

// Endpoint is the storage capability Builder needs: Put for chunk and
// hierarchy bodies.
type Endpoint interface {
	Put(key string, data []byte) error
}

// Builder accumulates points into an in-memory tree and flushes it out
// as chunks plus a hierarchy once the caller is done inserting.
type Builder struct {
	st  structure.Structure
	sch *schema.Schema
	ep  Endpoint
	h   *hierarchy.Hierarchy
	rc  *resource.Controller

	mu       sync.RWMutex
	root     *Node
	sources  map[uint64]*schema.PointTable
	nextSrc  atomic.Uint64
	manifest []config.ManifestEntry

	numPoints atomic.Uint64
}

// New returns a Builder for structure st over schema sch, writing
// chunks and hierarchy data through ep. rc supplies the background-worker
// slots that bound Flush's concurrency; no memory is reserved through it.
func New(st structure.Structure, sch *schema.Schema, ep Endpoint, rc *resource.Controller) *Builder {
	return &Builder{
		st:      st,
		sch:     sch,
		ep:      ep,
		h:       hierarchy.New(st),
		rc:      rc,
		sources: make(map[uint64]*schema.PointTable),
	}
}

// Hierarchy exposes the in-progress hierarchy, mainly for tests.
func (b *Builder) Hierarchy() *hierarchy.Hierarchy { return b.h }

// NumPoints returns the total number of points inserted so far.
func (b *Builder) NumPoints() uint64 { return b.numPoints.Load() }

// Insert climbs every point in table into the tree. table must outlive
// the Builder until Flush is called, since nodes keep only a reference
// into it rather than copying eagerly. The source is recorded in the
// build manifest under an auto-generated label; use InsertNamed to give
// it a caller-meaningful one (e.g. an input file path).
func (b *Builder) Insert(table *schema.PointTable) error {
	return b.InsertNamed(fmt.Sprintf("source-%d", b.nextSrc.Load()+1), table)
}

// InsertNamed is Insert, but records the source's outcome in the build
// manifest (see Manifest) under name, so a caller assembling a tree from
// many source files can tell which ones made it in after a build that
// partially failed.
func (b *Builder) InsertNamed(name string, table *schema.PointTable) error {
	src := b.nextSrc.Add(1)
	b.mu.Lock()
	b.sources[src] = table
	b.mu.Unlock()

	xi, yi, zi := b.sch.Find("X"), b.sch.Find("Y"), b.sch.Find("Z")

	n := table.NumPoints()
	for i := uint64(0); i < n; i++ {
		p := spatial.Point{}
		if xi >= 0 {
			p.X = table.GetFloat64(i, xi)
		}
		if yi >= 0 {
			p.Y = table.GetFloat64(i, yi)
		}
		if zi >= 0 {
			p.Z = table.GetFloat64(i, zi)
		}
		if err := b.climb(p, src, i); err != nil {
			b.recordManifest(name, err)
			return err
		}
		b.numPoints.Add(1)
	}
	b.recordManifest(name, nil)
	return nil
}

func (b *Builder) recordManifest(name string, err error) {
	entry := config.ManifestEntry{Source: name, Status: config.ManifestStatusComplete}
	if err != nil {
		entry.Status = config.ManifestStatusFailed
		entry.Error = err.Error()
	}
	b.mu.Lock()
	b.manifest = append(b.manifest, entry)
	b.mu.Unlock()
}

// Manifest returns the outcome of every source inserted so far, for a
// caller to persist into config.Metadata.Manifest at Save time.
func (b *Builder) Manifest() []config.ManifestEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]config.ManifestEntry, len(b.manifest))
	copy(out, b.manifest)
	return out
}

func (b *Builder) climb(p spatial.Point, src, index uint64) error {
	b.mu.Lock()
	if b.root == nil {
		b.root = acquireNode(spatial.RootId, 0, b.st.Bounds, b.st.PointsPerChunk(0))
	}
	cur := b.root
	b.mu.Unlock()

	for {
		if b.st.CoveredDepthEnd != 0 && cur.Depth > b.st.CoveredDepthEnd {
			return &OverflowError{Point: p, Depth: cur.Depth}
		}

		if cur.addRef(src, index) {
			tick := uint64(0)
			if b.st.Tubular {
				tick = hierarchy.Tick(p.Z, cur.Depth, b.st.Bounds.Min.Z, b.st.Bounds.Max.Z)
			}
			b.h.Count(cur.Id, cur.Depth, tick)
			return nil
		}

		dir := spatial.GetDirection(p, cur.Bounds.Mid(), b.st.Dimensions)
		child := cur.child(dir)
		if child == nil {
			childDepth := cur.Depth + 1
			candidate := acquireNode(
				cur.Id.Climb(dir, b.st.NumDirs()),
				childDepth,
				cur.Bounds.Go(dir, b.st.Tubular),
				b.st.PointsPerChunk(childDepth),
			)
			child = cur.getOrCreateChild(dir, candidate)
		}
		cur = child
	}
}

// Flush encodes every populated node into a chunk, writes it and the
// hierarchy through the endpoint, and releases the in-memory tree back
// to the node pool. The Builder must not be reused for further inserts
// afterward.
func (b *Builder) Flush() error {
	b.mu.Lock()
	root := b.root
	b.mu.Unlock()

	if root == nil {
		return nil
	}

	var toFlush []*Node
	var collect func(n *Node)
	collect = func(n *Node) {
		if n == nil {
			return
		}
		if n.numPoints() > 0 {
			toFlush = append(toFlush, n)
		}
		for _, c := range n.Children {
			collect(c)
		}
	}
	collect(root)

	if err := b.flushNodes(toFlush); err != nil {
		return err
	}

	if err := b.h.Save(b.ep); err != nil {
		return fmt.Errorf("builder: save hierarchy: %w", err)
	}

	releaseTree(root)
	b.mu.Lock()
	b.root = nil
	b.mu.Unlock()
	return nil
}

// flushNodes writes every populated node's chunk concurrently: one
// goroutine per node, each started only after acquiring a slot of the
// resource controller's background-worker budget (config.Options.
// MaxBackgroundWorkers), so at most that many chunks are written at once.
func (b *Builder) flushNodes(nodes []*Node) error {
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, n := range nodes {
		if err := b.rc.AcquireBackground(ctx); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(n *Node) {
			defer wg.Done()
			defer b.rc.ReleaseBackground()
			if err := b.flushNode(n); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(n)
	}
	wg.Wait()
	return firstErr
}

func (b *Builder) flushNode(n *Node) error {
	refs := n.refsSnapshot()
	table := schema.MakePointTable(b.sch, uint64(len(refs)))

	b.mu.RLock()
	defer b.mu.RUnlock()
	for i, r := range refs {
		src := b.sources[r.source]
		if src == nil {
			return fmt.Errorf("builder: node %s references unknown source table %d", n.Id.String(), r.source)
		}
		src.CopyRecord(table, uint64(i), r.index)
	}

	c := chunk.New(n.Id, n.Depth, n.Bounds, b.sch, table)
	data, err := chunk.Encode(c)
	if err != nil {
		return fmt.Errorf("builder: encode chunk %s: %w", n.Id.String(), err)
	}

	key := chunk.Key(n.Id, n.Depth, b.st.PrefixIds)
	if err := b.ep.Put(key, data); err != nil {
		return fmt.Errorf("builder: write chunk %s: %w", n.Id.String(), err)
	}
	return nil
}
