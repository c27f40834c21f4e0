package manager

import (
	"time"

	"ixtree/internal/btree"
	"ixtree/internal/index"
	"ixtree/internal/page"
	"ixtree/internal/rid"
)

// Handle wraps an index.Handle with the manager's metrics and error
// reporting. It otherwise forwards directly to the underlying handle.
type Handle struct {
	mgr       *Manager
	key       string
	table     string
	attribute string
	inner     *index.Handle
}

// InsertEntry inserts (key, r) and records operation metrics.
func (h *Handle) InsertEntry(keyBuf []byte, r rid.RID) error {
	start := time.Now()
	err := h.inner.InsertEntry(keyBuf, r)
	var stats index.FlushStats
	if err == nil {
		stats = h.inner.LastFlushStats()
	}
	h.mgr.recordOp("insert", stats, time.Since(start))
	if index.Code(err) == index.FileOpError {
		h.mgr.reportFlushFailure(h.table, h.attribute, err)
	}
	return err
}

// DeleteEntry deletes the exact (key, r) entry and records operation
// metrics.
func (h *Handle) DeleteEntry(keyBuf []byte, r rid.RID) error {
	start := time.Now()
	err := h.inner.DeleteEntry(keyBuf, r)
	var stats index.FlushStats
	if err == nil {
		stats = h.inner.LastFlushStats()
	}
	h.mgr.recordOp("delete", stats, time.Since(start))
	if index.Code(err) == index.FileOpError {
		h.mgr.reportFlushFailure(h.table, h.attribute, err)
	}
	return err
}

// OpenScan opens a scan over the underlying index.
func (h *Handle) OpenScan(op btree.CompOp, valueBuf []byte) (*index.Scan, error) {
	return h.inner.OpenScan(op, valueBuf)
}

// KeyKind reports the key type the underlying index was opened with.
func (h *Handle) KeyKind() page.KeyKind { return h.inner.KeyKind() }
