// Package store provides the generic key-value record store the marker and
// report stores persist into. Records are addressed by a composite
// (partition, range) key and carry an opaque JSON item; secondary lookups go
// through attribute indexes. The interface mirrors a hash/range document
// store, so backends only need partition queries, attribute queries and
// scans.
package store

import "context"

// Key is the composite storage key: the partition groups records into
// geohash cells, the range key (creation timestamp) disambiguates records
// within a cell.
type Key struct {
	Partition string
	Range     string
}

// Record is a stored item together with its key.
type Record struct {
	Key  Key
	Item []byte
}

// Filters narrows query and scan results by attribute equality.
type Filters struct {
	Equals map[string]string
}

// RecordStore is the durable store contract. Implementations map missing
// records to NOT_FOUND, version mismatches to CONFLICT and any backend
// failure to STORE_UNAVAILABLE domain errors.
type RecordStore interface {
	// Put writes the full item under key, replacing any previous value.
	Put(ctx context.Context, key Key, item []byte) error

	// Get fetches a single record by its full key.
	Get(ctx context.Context, key Key) (Record, error)

	// UpdateAttribute sets exactly one top-level attribute of the stored
	// item and bumps its version counter; no other field is touched. When
	// expectedVersion is non-nil the update only applies if the stored
	// version matches.
	UpdateAttribute(ctx context.Context, key Key, name string, value any, expectedVersion *int64) error

	// QueryByPartition returns all records in a partition ordered by range
	// key ascending.
	QueryByPartition(ctx context.Context, partition string, f Filters) ([]Record, error)

	// QueryByAttribute returns records whose item attribute equals value,
	// using a secondary index.
	QueryByAttribute(ctx context.Context, name, value string, f Filters) ([]Record, error)

	// ScanAll returns every record matching the filters. Reserved for
	// trusted internal callers.
	ScanAll(ctx context.Context, f Filters) ([]Record, error)
}
