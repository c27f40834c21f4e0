package btree

import "github.com/cockroachdb/errors"

// Sentinel errors the engine returns; internal/index maps these onto
// the spec's ReturnCode values.
var (
	// ErrKeyExists is returned by Insert when the exact (key, rid) pair
	// is already present (invariant 6 forbids duplicate entries, not
	// duplicate keys).
	ErrKeyExists = errors.New("btree: entry already exists")

	// ErrNotFound is returned by Delete when no entry matches (key, rid).
	ErrNotFound = errors.New("btree: entry not found")
)
