package index

import (
	"github.com/cockroachdb/errors"

	"ixtree/internal/btree"
	"ixtree/internal/page"
	"ixtree/internal/rid"
)

// Scan wraps a btree.Cursor at the handle level: it decodes the
// caller's boundary value buffer once at open, then translates
// cursor exhaustion into ErrEOF (spec.md §4.5, §6).
type Scan struct {
	handle   *Handle
	intCur   *btree.Cursor[int32]
	floatCur *btree.Cursor[float32]
}

// OpenScan positions a new scan over h's current tree. valueBuf is
// ignored for btree.NoOp. The scan reads through its own cache and
// never mutates the tree, so it takes no flush action on Close; it is
// invalidated by any subsequent InsertEntry/DeleteEntry on h
// (spec.md §4.5).
func (h *Handle) OpenScan(op btree.CompOp, valueBuf []byte) (*Scan, error) {
	if h.poisoned {
		return nil, ErrInvalidOperation
	}

	switch h.keyKind {
	case page.KeyKindInt:
		var val int32
		if op != btree.NoOp {
			v, err := decodeIntKey(valueBuf)
			if err != nil {
				return nil, err
			}
			val = v
		}
		cur, err := openCursor[int32](h, op, val)
		if err != nil {
			return nil, err
		}
		return &Scan{handle: h, intCur: cur}, nil

	case page.KeyKindFloat:
		var val float32
		if op != btree.NoOp {
			v, err := decodeFloatKey(valueBuf)
			if err != nil {
				return nil, err
			}
			val = v
		}
		cur, err := openCursor[float32](h, op, val)
		if err != nil {
			return nil, err
		}
		return &Scan{handle: h, floatCur: cur}, nil

	default:
		return nil, ErrInvalidOperation
	}
}

func openCursor[K page.Key](h *Handle, op btree.CompOp, val K) (*btree.Cursor[K], error) {
	cache := btree.NewCache[K](loaderFor[K](h), allocatorFor(h))
	engine := btree.NewEngine[K](h.d, cache)
	root, err := cache.Get(h.root, rootKind(h.height))
	if err != nil {
		return nil, errors.Mark(err, ErrFileOpError)
	}
	cur, err := btree.NewCursor[K](engine, root, h.height, op, val)
	if err != nil {
		return nil, errors.Mark(err, ErrFileOpError)
	}
	return cur, nil
}

// GetNextEntry advances the scan and returns the next matching RID.
// It returns ErrEOF once the scan is exhausted.
func (s *Scan) GetNextEntry() (rid.RID, error) {
	switch {
	case s.intCur != nil:
		_, r, ok, err := s.intCur.Next()
		if err != nil {
			return rid.RID{}, errors.Mark(err, ErrFileOpError)
		}
		if !ok {
			return rid.RID{}, ErrEOF
		}
		return r, nil
	case s.floatCur != nil:
		_, r, ok, err := s.floatCur.Next()
		if err != nil {
			return rid.RID{}, errors.Mark(err, ErrFileOpError)
		}
		if !ok {
			return rid.RID{}, ErrEOF
		}
		return r, nil
	default:
		return rid.RID{}, ErrInvalidOperation
	}
}

// Close releases the scan. Scans hold no resources beyond their
// in-memory read cache, so this never fails.
func (s *Scan) Close() error { return nil }
