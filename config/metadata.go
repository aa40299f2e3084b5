// Package config holds the entwine metadata file -- the single JSON
// document that records a tree's Structure, Schema and build state --
// plus the Options a caller supplies when opening a Builder or Reader.
// Grounded on the host application's manifest.Store: a versioned file
// per save plus an atomically updated pointer to the current version,
// adapted here to go through a storage.Endpoint (whose Put is itself
// atomic per key) rather than raw *os.File handles.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fgilic/entwine/schema"
	"github.com/fgilic/entwine/storage"
	"github.com/fgilic/entwine/structure"
)

const (
	// MetadataFileName is the canonical pointer file naming the current
	// metadata version.
	MetadataFileName = "entwine-current"
	// CurrentVersion is the metadata document schema version this
	// package reads and writes.
	CurrentVersion = 1
)

// ManifestEntry records the outcome of inserting one source point table,
// so a caller assembling a tree from many source files can tell which
// ones actually made it in after a partial-failure build.
type ManifestEntry struct {
	Source string `json:"source"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Manifest entry statuses.
const (
	ManifestStatusComplete = "complete"
	ManifestStatusFailed   = "failed"
)

// Metadata is the full on-disk description of a tree.
type Metadata struct {
	Version    int                 `json:"version"`
	SaveId     uint64              `json:"save_id"`
	Structure  structure.Structure `json:"structure"`
	Dimensions []schema.Dimension  `json:"dimensions"`
	NumPoints  uint64              `json:"num_points"`
	Manifest   []ManifestEntry     `json:"manifest,omitempty"`
}

// Schema reconstructs the point schema described by the metadata.
func (m *Metadata) Schema() *schema.Schema {
	return schema.New(m.Dimensions)
}

// endpoint is the minimal storage capability Store needs; satisfied by
// storage.Endpoint without importing it and risking an import cycle
// with packages that themselves depend on config.
type endpoint interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
}

// Store manages the metadata file and its atomic updates.
type Store struct {
	ep endpoint
	mu sync.Mutex
}

// NewStore returns a Store persisting through ep.
func NewStore(ep endpoint) *Store {
	return &Store{ep: ep}
}

// Load reads the current metadata document. A tree with no metadata yet
// returns a fresh Metadata (Version set, SaveId zero, every other field
// empty) and a nil error, so callers creating a
// brand new tree do not need a special case.
func (s *Store) Load() (*Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ptr, err := s.ep.Get(MetadataFileName)
	if errors.Is(err, storage.ErrNotFound) {
		return &Metadata{Version: CurrentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read pointer file: %w", err)
	}

	data, err := s.ep.Get(string(ptr))
	if err != nil {
		return nil, fmt.Errorf("config: read metadata file %q: %w", string(ptr), err)
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parse metadata file %q: %w", string(ptr), err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("config: unsupported metadata version %d (expected %d)", m.Version, CurrentVersion)
	}
	return &m, nil
}

// Save writes a new metadata version and atomically advances the
// pointer file to it.
func (s *Store) Save(m *Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = CurrentVersion
	m.SaveId++

	filename := fmt.Sprintf("entwine-%06d.json", m.SaveId)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal metadata: %w", err)
	}

	if err := s.ep.Put(filename, data); err != nil {
		return fmt.Errorf("config: write metadata file %q: %w", filename, err)
	}
	if err := s.ep.Put(MetadataFileName, []byte(filename)); err != nil {
		return fmt.Errorf("config: update pointer file: %w", err)
	}
	return nil
}
