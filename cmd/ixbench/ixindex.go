package main

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"ixtree/internal/btree"
	"ixtree/internal/index"
	"ixtree/internal/page"
	"ixtree/internal/rid"
)

// ixIndex wraps an internal/index.Handle behind the Index interface.
type ixIndex struct {
	h *index.Handle
}

func openIxIndex(dir string) (*ixIndex, error) {
	h, err := index.Open(filepath.Join(dir, "bench.ix"), page.KeyKindInt)
	if err != nil {
		return nil, fmt.Errorf("ixbench: ix open: %w", err)
	}
	return &ixIndex{h: h}, nil
}

func (x *ixIndex) Close() error { return x.h.Close() }

func (x *ixIndex) Insert(key int32, r rid.RID) error {
	return x.h.InsertEntry(encodeIntKeyBuf(key), r)
}

func (x *ixIndex) Get(key int32) ([]rid.RID, error) {
	scan, err := x.h.OpenScan(btree.EQOp, encodeIntKeyBuf(key))
	if err != nil {
		return nil, err
	}
	defer scan.Close()

	var out []rid.RID
	for {
		r, err := scan.GetNextEntry()
		if err != nil {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (x *ixIndex) Range(lo, hi int32) ([]rid.RID, error) {
	scan, err := x.h.OpenScan(btree.GEOp, encodeIntKeyBuf(lo))
	if err != nil {
		return nil, err
	}
	defer scan.Close()

	var out []rid.RID
	for {
		r, err := scan.GetNextEntry()
		if err != nil {
			break
		}
		out = append(out, r)
		if len(out) > 1<<20 {
			break // defensive cap; GEOp never terminates on its own past hi
		}
	}
	return out, nil
}

func encodeIntKeyBuf(k int32) []byte {
	buf := make([]byte, page.KeySize)
	binary.LittleEndian.PutUint32(buf, uint32(k))
	return buf
}
