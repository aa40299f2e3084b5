package config

import "github.com/fgilic/entwine/structure"

// Options collects the tunables a caller supplies when opening a
// Builder or Reader, using the functional-options pattern so defaults
// stay sane as options accrete across releases.
type Options struct {
	CacheLimitBytes      int64
	MemoryLimitBytes     int64
	MaxBackgroundWorkers int64
	IOLimitBytesPerSec   int64
	NewStructure         structure.Structure
}

// Option mutates an Options value.
type Option func(*Options)

// DefaultOptions returns the baseline configuration: a modest cache, no
// hard memory ceiling, and a single background worker.
func DefaultOptions() Options {
	return Options{
		CacheLimitBytes:      256 << 20,
		MemoryLimitBytes:     0,
		MaxBackgroundWorkers: 1,
	}
}

// WithCacheLimitBytes bounds resident chunk-cache bytes.
func WithCacheLimitBytes(n int64) Option {
	return func(o *Options) { o.CacheLimitBytes = n }
}

// WithMemoryLimitBytes sets a hard ceiling on managed memory. Only cache
// entries are reserved against it; build buffers are not counted. Zero
// means unlimited.
func WithMemoryLimitBytes(n int64) Option {
	return func(o *Options) { o.MemoryLimitBytes = n }
}

// WithMaxBackgroundWorkers bounds concurrent background build/flush
// workers.
func WithMaxBackgroundWorkers(n int64) Option {
	return func(o *Options) { o.MaxBackgroundWorkers = n }
}

// WithIOLimitBytesPerSec sets the resource controller's IO rate limit.
// Zero means unlimited. No builder or reader path currently draws on
// that limiter, so chunk and hierarchy IO is not throttled by it.
func WithIOLimitBytesPerSec(n int64) Option {
	return func(o *Options) { o.IOLimitBytesPerSec = n }
}

// WithNewStructure supplies the Structure to use when creating a brand
// new tree; ignored when opening an existing one, whose Structure comes
// from its metadata file.
func WithNewStructure(st structure.Structure) Option {
	return func(o *Options) { o.NewStructure = st }
}

// Apply folds a list of Options functions into a base configuration.
func Apply(opts ...Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
