// Package entwine ties together the spatial, structure, schema, chunk,
// hierarchy, cache, query, builder, storage and config packages into
// the two entry points a caller actually uses: NewBuilder to write a
// tree, NewReader to query one. Grounded on the host application's
// top-level vecgo.go/builder.go, whose fluent, value-receiver
// constructor chain this mirrors.
package entwine

import (
	"fmt"

	"github.com/fgilic/entwine/builder"
	"github.com/fgilic/entwine/cache"
	"github.com/fgilic/entwine/config"
	"github.com/fgilic/entwine/hierarchy"
	"github.com/fgilic/entwine/query"
	"github.com/fgilic/entwine/resource"
	"github.com/fgilic/entwine/schema"
	"github.com/fgilic/entwine/spatial"
	"github.com/fgilic/entwine/storage"
	"github.com/fgilic/entwine/structure"
)

// BuilderHandle is the fluent constructor for a write session, mirroring
// the host application's HNSWBuilder[T]: a small value type whose With*
// methods return a modified copy, terminated by Open.
type BuilderHandle struct {
	ep   storage.Endpoint
	opts []config.Option
	log  *Logger
}

// NewBuilder begins configuring a write session against ep.
func NewBuilder(ep storage.Endpoint) BuilderHandle {
	return BuilderHandle{ep: ep, log: NewNopLogger()}
}

// With appends configuration options.
func (h BuilderHandle) With(opts ...config.Option) BuilderHandle {
	h.opts = append(append([]config.Option(nil), h.opts...), opts...)
	return h
}

// WithLogger attaches a logger.
func (h BuilderHandle) WithLogger(l *Logger) BuilderHandle {
	h.log = l
	return h
}

// Open loads or creates the tree's metadata and returns a ready-to-use
// *builder.Builder plus the metadata store, so the caller can Save
// updated point counts after Flush.
func (h BuilderHandle) Open(sch *schema.Schema) (*builder.Builder, *config.Store, error) {
	opts := config.Apply(h.opts...)

	store := config.NewStore(h.ep)
	meta, err := store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("entwine: load metadata: %w", err)
	}

	st := meta.Structure
	if meta.SaveId == 0 {
		st = opts.NewStructure
		if err := st.Validate(); err != nil {
			return nil, nil, &ConfigError{Msg: err.Error()}
		}
		meta.Structure = st
		meta.Dimensions = sch.Dimensions()
		if err := store.Save(meta); err != nil {
			return nil, nil, fmt.Errorf("entwine: save metadata: %w", err)
		}
	}

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:     opts.MemoryLimitBytes,
		MaxBackgroundWorkers: opts.MaxBackgroundWorkers,
		IOLimitBytesPerSec:   opts.IOLimitBytesPerSec,
	})

	b := builder.New(st, sch, h.ep, rc)
	h.log.Info("builder opened", "save_id", meta.SaveId, "base_depth_end", st.BaseDepthEnd)
	return b, store, nil
}

// ReaderHandle is the fluent constructor for a read session.
type ReaderHandle struct {
	ep   storage.Endpoint
	opts []config.Option
	log  *Logger
}

// NewReader begins configuring a read session against ep.
func NewReader(ep storage.Endpoint) ReaderHandle {
	return ReaderHandle{ep: ep, log: NewNopLogger()}
}

// With appends configuration options.
func (h ReaderHandle) With(opts ...config.Option) ReaderHandle {
	h.opts = append(append([]config.Option(nil), h.opts...), opts...)
	return h
}

// WithLogger attaches a logger.
func (h ReaderHandle) WithLogger(l *Logger) ReaderHandle {
	h.log = l
	return h
}

// Open loads an existing tree's metadata and returns a Reader over it.
func (h ReaderHandle) Open() (*Reader, error) {
	opts := config.Apply(h.opts...)

	store := config.NewStore(h.ep)
	meta, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("entwine: load metadata: %w", err)
	}
	if meta.SaveId == 0 {
		return nil, &ConfigError{Msg: "no tree has been built at this location yet"}
	}

	rc := resource.NewController(resource.Config{MemoryLimitBytes: opts.MemoryLimitBytes})
	c := cache.New(h.ep, opts.CacheLimitBytes, rc, meta.Structure.PrefixIds)

	hier, err := hierarchy.Load(h.ep, meta.Structure)
	if err != nil {
		return nil, fmt.Errorf("entwine: load hierarchy: %w", err)
	}

	h.log.Info("reader opened", "num_points", meta.NumPoints)
	return &Reader{
		st:     meta.Structure,
		sch:    meta.Schema(),
		cache:  c,
		h:      hier,
		meta:   meta,
		metric: NewMetricsCollector(),
	}, nil
}

// Reader is an opened tree, ready to answer spatial queries against it.
type Reader struct {
	st     structure.Structure
	sch    *schema.Schema
	cache  *cache.Cache
	h      *hierarchy.Hierarchy
	meta   *config.Metadata
	metric *MetricsCollector
}

// Schema returns the tree's point schema.
func (r *Reader) Schema() *schema.Schema { return r.sch }

// Structure returns the tree's geometry.
func (r *Reader) Structure() structure.Structure { return r.st }

// NumPoints returns the total point count recorded at the last save.
func (r *Reader) NumPoints() uint64 { return r.meta.NumPoints }

// Query returns a query.Query bounded to qbox and [depthBegin,
// depthEnd). depthEnd of 0 means unbounded.
func (r *Reader) Query(qbox spatial.BBox, depthBegin, depthEnd uint64) *query.Query {
	r.metric.IncQueries()
	return query.New(r.cache, r.h, r.st, r.sch, qbox, depthBegin, depthEnd)
}

// Metrics returns the reader's metrics collector.
func (r *Reader) Metrics() *MetricsCollector { return r.metric }
