// Package page implements the on-disk layout of the index: the metadata
// page (page 0) and the fixed-width node page format described in
// spec §4.1. It is deliberately ignorant of the B+-tree algorithms —
// callers hand it fully-formed node contents and get bytes back, or
// vice versa.
package page

import (
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// Size is the fixed page size used throughout the index file.
const Size = 4096

// Page is one raw block as read from or written to the paged file
// manager.
type Page [Size]byte

// Kind distinguishes an internal node page from a leaf node page.
type Kind byte

const (
	KindInternal Kind = 0
	KindLeaf     Kind = 1
)

// KeyKind tags which of the two supported key types an index stores.
type KeyKind byte

const (
	KeyKindInt   KeyKind = 0
	KeyKindFloat KeyKind = 1

	// KeyKindVarchar is never a legal stored tag (the metadata page only
	// ever persists Int or Float). It exists so a caller asking to open
	// or create an index over a variable-length attribute gets an
	// explicit rejection at the boundary instead of a silent misread,
	// per the original header's documented-but-unsupported varchar
	// encoding (length-prefixed bytes).
	KeyKindVarchar KeyKind = 2
)

func (k KeyKind) String() string {
	switch k {
	case KeyKindFloat:
		return "float"
	case KeyKindVarchar:
		return "varchar"
	default:
		return "int"
	}
}

// Key is the constraint satisfied by the two supported key types. The
// engine is instantiated once per type (spec §9's "tagged variant...
// dispatching to monomorphic engine instances").
type Key interface {
	~int32 | ~float32
}

// Sentinel page-number values.
const (
	NoPage int64 = -1
)

const (
	keySize = 4
	ridSize = 8 // two uint32

	nodeHeaderSize = 13 // kind(1) + n(4) + left(4) + right(4)
	checksumSize   = 8
)

// Order derives the B+-tree order d from a page size and the fixed
// key/RID width, per the Design Notes' instruction not to hard-code a
// default. d is chosen so that a full leaf (2d keys + 2d RIDs) plus the
// node header and checksum footer fit in one page; internal pages need
// less room per entry than leaves, so they always fit if leaves do.
func Order(pageSize int) int {
	usable := pageSize - nodeHeaderSize - checksumSize
	if usable < 2*(keySize+ridSize) {
		panic(errors.Newf("page: page size %d too small to hold a single leaf entry pair", pageSize))
	}
	maxLeafKeys := usable / (keySize + ridSize)
	d := maxLeafKeys / 2
	if d < 1 {
		d = 1
	}
	return d
}

func checksum(buf []byte) uint64 {
	return xxhash.Sum64(buf)
}

// RIDSize and KeySize are exported for callers sizing buffers/tests.
const (
	RIDSize = ridSize
	KeySize = keySize
)
