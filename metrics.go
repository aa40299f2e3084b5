package entwine

import "sync/atomic"

// MetricsCollector accumulates simple counters for a Builder or Reader
// session. Grounded on the host application's own lightweight counter
// style (plain atomics, no external metrics library in the teacher's
// dependency set), kept here rather than wired to an external metrics
// SDK since no pack example pulls one in for this kind of counter.
type MetricsCollector struct {
	queries      atomic.Uint64
	chunksFetched atomic.Uint64
	cacheHits    atomic.Uint64
	cacheMisses  atomic.Uint64
	pointsRead   atomic.Uint64
	pointsWritten atomic.Uint64
	overflows    atomic.Uint64
}

// NewMetricsCollector returns a zeroed collector.
func NewMetricsCollector() *MetricsCollector { return &MetricsCollector{} }

func (m *MetricsCollector) IncQueries()            { m.queries.Add(1) }
func (m *MetricsCollector) IncChunksFetched()      { m.chunksFetched.Add(1) }
func (m *MetricsCollector) IncCacheHit()           { m.cacheHits.Add(1) }
func (m *MetricsCollector) IncCacheMiss()          { m.cacheMisses.Add(1) }
func (m *MetricsCollector) AddPointsRead(n uint64)    { m.pointsRead.Add(n) }
func (m *MetricsCollector) AddPointsWritten(n uint64) { m.pointsWritten.Add(n) }
func (m *MetricsCollector) IncOverflow()           { m.overflows.Add(1) }

// Snapshot is a point-in-time copy of a MetricsCollector's counters.
type Snapshot struct {
	Queries       uint64
	ChunksFetched uint64
	CacheHits     uint64
	CacheMisses   uint64
	PointsRead    uint64
	PointsWritten uint64
	Overflows     uint64
}

// Snapshot reads the current value of every counter.
func (m *MetricsCollector) Snapshot() Snapshot {
	return Snapshot{
		Queries:       m.queries.Load(),
		ChunksFetched: m.chunksFetched.Load(),
		CacheHits:     m.cacheHits.Load(),
		CacheMisses:   m.cacheMisses.Load(),
		PointsRead:    m.pointsRead.Load(),
		PointsWritten: m.pointsWritten.Load(),
		Overflows:     m.overflows.Load(),
	}
}
