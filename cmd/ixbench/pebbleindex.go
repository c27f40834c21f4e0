package main

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"

	"ixtree/internal/rid"
)

// pebbleIndex wraps Pebble behind the Index interface, adapted from
// the teacher's dbms/index/lsm.LSM: big-endian keys preserve sort
// order for Range, same as there.
type pebbleIndex struct {
	db *pebble.DB
}

func openPebbleIndex(dir string) (*pebbleIndex, error) {
	opts := &pebble.Options{
		MemTableSize:                16 << 20,
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("ixbench: pebble open: %w", err)
	}
	return &pebbleIndex{db: db}, nil
}

func (p *pebbleIndex) Close() error { return p.db.Close() }

func (p *pebbleIndex) Insert(key int32, r rid.RID) error {
	return p.db.Set(encodeKey(key), encodeRID(r), pebble.NoSync)
}

func (p *pebbleIndex) Get(key int32) ([]rid.RID, error) {
	val, closer, err := p.db.Get(encodeKey(key))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ixbench: pebble get: %w", err)
	}
	r := decodeRID(val)
	closer.Close()
	return []rid.RID{r}, nil
}

func (p *pebbleIndex) Range(lo, hi int32) ([]rid.RID, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: encodeKey(lo),
		UpperBound: encodeKey(hi + 1),
	})
	if err != nil {
		return nil, fmt.Errorf("ixbench: pebble range: %w", err)
	}
	defer iter.Close()

	var out []rid.RID
	for iter.First(); iter.Valid(); iter.Next() {
		out = append(out, decodeRID(iter.Value()))
	}
	return out, nil
}

func encodeKey(k int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(k))
	return b
}

func encodeRID(r rid.RID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:4], r.PageNum)
	binary.BigEndian.PutUint32(b[4:8], r.SlotNum)
	return b
}

func decodeRID(b []byte) rid.RID {
	out := make([]byte, 8)
	copy(out, b)
	return rid.RID{
		PageNum: binary.BigEndian.Uint32(out[0:4]),
		SlotNum: binary.BigEndian.Uint32(out[4:8]),
	}
}
