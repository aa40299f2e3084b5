package query

import (
	"context"
	"fmt"

	"github.com/fgilic/entwine/chunk"
	"github.com/fgilic/entwine/hierarchy"
	"github.com/fgilic/entwine/schema"
	"github.com/fgilic/entwine/spatial"
	"github.com/fgilic/entwine/structure"
)

// FetchInfo names one chunk the query still needs to visit: its
// identity plus how many of its points the hierarchy says are actually
// relevant, used to size read-ahead and reservation decisions before the
// chunk bytes are fetched.
type FetchInfo struct {
	Id     spatial.Id
	Depth  uint64
	Bounds spatial.BBox
	Count  uint64
}

// FetchInfoSet is an ordered worklist of chunks still to be visited.
type FetchInfoSet []FetchInfo

// ChunkSource fetches and decodes chunk bytes by id; satisfied by a
// cache.Cache sitting in front of a storage endpoint.
type ChunkSource interface {
	Fetch(ctx context.Context, id spatial.Id, depth uint64, bounds spatial.BBox, s *schema.Schema) (*chunk.Chunk, error)
}

// Query is one read: a spatial box and a depth range, evaluated against
// a built tree's hierarchy to discover candidate chunks, then against
// each chunk's actual points to filter out false positives from the
// hierarchy's coarser, box-only pruning. Points are streamed out through
// successive calls to Next so a caller never needs the whole result
// materialized at once. Grounded on entwine's reader::Query.
type Query struct {
	source ChunkSource
	h      *hierarchy.Hierarchy
	st     structure.Structure
	schema *schema.Schema

	qbox       spatial.BBox
	depthBegin uint64
	depthEnd   uint64

	fetches FetchInfoSet
	fetchAt int

	cur       *chunk.Chunk
	curPoint  uint64
	numPoints uint64
	done      bool
}

// New builds a Query over the tree addressed by h/st/schema, bounded to
// qbox and [depthBegin, depthEnd). depthEnd of 0 means unbounded.
func New(source ChunkSource, h *hierarchy.Hierarchy, st structure.Structure, s *schema.Schema, qbox spatial.BBox, depthBegin, depthEnd uint64) *Query {
	results := h.Query(st.Bounds, qbox, depthBegin, depthEnd)
	fetches := make(FetchInfoSet, 0, len(results))
	var total uint64
	for _, r := range results {
		fetches = append(fetches, FetchInfo{Id: r.Id, Depth: r.Depth, Bounds: r.Bounds, Count: r.Count})
		total += r.Count
	}
	return &Query{
		source:     source,
		h:          h,
		st:         st,
		schema:     s,
		qbox:       qbox,
		depthBegin: depthBegin,
		depthEnd:   depthEnd,
		fetches:    fetches,
		numPoints:  total,
	}
}

// NumPoints returns the hierarchy's upper-bound estimate of how many
// points this query will yield; the true number may be smaller, since
// the hierarchy only prunes at chunk granularity.
func (q *Query) NumPoints() uint64 { return q.numPoints }

// Done reports whether every candidate chunk has been exhausted.
func (q *Query) Done() bool { return q.done }

// Next writes up to len(buffer) points into buffer (itself a
// *schema.PointTable slot range) and returns how many were written. It
// returns (0, nil) once Done is true. Grounded on Query::next, which
// alternates a "base" pass over the single base-region chunk tree and a
// "chunked" pass that fetches cold-region chunks one at a time.
func (q *Query) Next(ctx context.Context, buffer *schema.PointTable) (uint64, error) {
	if q.done {
		return 0, nil
	}

	var written uint64
	limit := buffer.NumPoints()

	for written < limit {
		if q.cur == nil {
			if !q.advance(ctx) {
				q.done = true
				break
			}
			if err := q.fetchCurrent(ctx); err != nil {
				return written, err
			}
		}

		for written < limit && q.curPoint < q.cur.NumPoints() {
			if q.pointInBounds(q.curPoint) {
				q.cur.Table.CopyRecord(buffer, written, q.curPoint)
				written++
			}
			q.curPoint++
		}

		if q.curPoint >= q.cur.NumPoints() {
			q.cur = nil
		}
	}

	return written, nil
}

func (q *Query) advance(ctx context.Context) bool {
	if q.fetchAt >= len(q.fetches) {
		return false
	}
	_ = ctx
	q.fetchAt++
	return true
}

func (q *Query) fetchCurrent(ctx context.Context) error {
	info := q.fetches[q.fetchAt-1]
	c, err := q.source.Fetch(ctx, info.Id, info.Depth, info.Bounds, q.schema)
	if err != nil {
		return fmt.Errorf("query: fetch chunk %s: %w", info.Id.String(), err)
	}
	q.cur = c
	q.curPoint = 0
	return nil
}

func (q *Query) pointInBounds(i uint64) bool {
	xi := q.schema.Find("X")
	yi := q.schema.Find("Y")
	if xi < 0 || yi < 0 {
		return true
	}
	p := spatial.Point{X: q.cur.Table.GetFloat64(i, xi), Y: q.cur.Table.GetFloat64(i, yi)}
	if zi := q.schema.Find("Z"); zi >= 0 {
		p.Z = q.cur.Table.GetFloat64(i, zi)
	}
	return q.qbox.Contains(p, q.st.Dimensions)
}
