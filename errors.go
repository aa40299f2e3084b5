package entwine

import "fmt"

// ConfigError reports an invalid or self-contradictory Structure,
// Schema, or Options value -- anything that should have been caught
// before any IO happened.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "entwine: config: " + e.Msg }

// StorageError wraps a failure from the underlying storage.Endpoint,
// tagging it with the key that was being read or written.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("entwine: storage: %s: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// SchemaError reports a point table that does not match the schema it
// was supposed to conform to.
type SchemaError struct {
	Msg string
}

func (e *SchemaError) Error() string { return "entwine: schema: " + e.Msg }

// OverflowError reports a point that could not be placed anywhere in
// the tree within its configured depth bound. It is a separate type from
// builder.OverflowError; Builder.Insert returns the builder's own type
// and nothing converts it to this one.
type OverflowError struct {
	Msg string
}

func (e *OverflowError) Error() string { return "entwine: overflow: " + e.Msg }

// CorruptChunkError reports a chunk whose bytes could not be decoded
// into a valid point table -- a truncated write, bit rot, or a schema
// mismatch between what was written and what is being read.
type CorruptChunkError struct {
	Key string
	Err error
}

func (e *CorruptChunkError) Error() string {
	return fmt.Sprintf("entwine: corrupt chunk %s: %v", e.Key, e.Err)
}

func (e *CorruptChunkError) Unwrap() error { return e.Err }

// translateError wraps a raw error from a dependency (storage, codec)
// into the taxonomy above so callers can errors.As against a single
// small set of types regardless of which layer failed.
func translateError(key string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Key: key, Err: err}
}
