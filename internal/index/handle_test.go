package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ixtree/internal/btree"
	"ixtree/internal/page"
	"ixtree/internal/rid"
)

func openTestHandle(t *testing.T, kind page.KeyKind) *Handle {
	t.Helper()
	dir := t.TempDir()
	h, err := Open(filepath.Join(dir, "attr.ix"), kind)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestOpenBootstrapsEmptyLeafRoot(t *testing.T) {
	h := openTestHandle(t, page.KeyKindInt)
	require.Equal(t, 0, h.Height())
	require.Equal(t, page.KeyKindInt, h.KeyKind())
}

func TestInsertThenScanEquality(t *testing.T) {
	h := openTestHandle(t, page.KeyKindInt)
	require.NoError(t, h.InsertEntry(encodeIntKey(7), rid.RID{PageNum: 2, SlotNum: 1}))
	require.NoError(t, h.InsertEntry(encodeIntKey(7), rid.RID{PageNum: 2, SlotNum: 2}))
	require.NoError(t, h.InsertEntry(encodeIntKey(3), rid.RID{PageNum: 1, SlotNum: 0}))

	scan, err := h.OpenScan(btree.EQOp, encodeIntKey(7))
	require.NoError(t, err)

	r1, err := scan.GetNextEntry()
	require.NoError(t, err)
	require.Equal(t, rid.RID{PageNum: 2, SlotNum: 1}, r1)

	r2, err := scan.GetNextEntry()
	require.NoError(t, err)
	require.Equal(t, rid.RID{PageNum: 2, SlotNum: 2}, r2)

	_, err = scan.GetNextEntry()
	require.ErrorIs(t, err, ErrEOF)
}

func TestInsertDuplicateExactPairFails(t *testing.T) {
	h := openTestHandle(t, page.KeyKindInt)
	r := rid.RID{PageNum: 1, SlotNum: 0}
	require.NoError(t, h.InsertEntry(encodeIntKey(5), r))
	err := h.InsertEntry(encodeIntKey(5), r)
	require.ErrorIs(t, err, ErrKeyExists)
	require.Equal(t, KeyExists, Code(err))
}

func TestDeleteMissingReturnsRecordNotFound(t *testing.T) {
	h := openTestHandle(t, page.KeyKindInt)
	err := h.DeleteEntry(encodeIntKey(9), rid.RID{PageNum: 1, SlotNum: 0})
	require.ErrorIs(t, err, ErrRecordNotFound)
	require.Equal(t, RecordNotFound, Code(err))
}

func TestInsertDeleteRoundTrip(t *testing.T) {
	h := openTestHandle(t, page.KeyKindInt)
	r := rid.RID{PageNum: 1, SlotNum: 1}
	require.NoError(t, h.InsertEntry(encodeIntKey(42), r))
	require.NoError(t, h.DeleteEntry(encodeIntKey(42), r))

	scan, err := h.OpenScan(btree.EQOp, encodeIntKey(42))
	require.NoError(t, err)
	_, err = scan.GetNextEntry()
	require.ErrorIs(t, err, ErrEOF)
}

func TestReopenDurability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attr.ix")

	h1, err := Open(path, page.KeyKindFloat)
	require.NoError(t, err)
	for i, k := range []float32{1.5, 2.5, 3.5, 4.5, 5.5} {
		require.NoError(t, h1.InsertEntry(encodeFloatKey(k), rid.RID{PageNum: 1, SlotNum: uint32(i)}))
	}
	require.NoError(t, h1.Close())

	h2, err := Open(path, page.KeyKindFloat)
	require.NoError(t, err)
	defer h2.Close()

	scan, err := h2.OpenScan(btree.NoOp, nil)
	require.NoError(t, err)
	var got []rid.RID
	for {
		r, err := scan.GetNextEntry()
		if err != nil {
			require.ErrorIs(t, err, ErrEOF)
			break
		}
		got = append(got, r)
	}
	require.Len(t, got, 5)
}

func TestOpenRejectsKeyKindMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attr.ix")

	h, err := Open(path, page.KeyKindInt)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	_, err = Open(path, page.KeyKindFloat)
	require.Error(t, err)
}

func TestFlushStatsPopulatedAfterInsert(t *testing.T) {
	h := openTestHandle(t, page.KeyKindInt)
	// default order derives d from a 4096-byte page, far larger than 5;
	// force a split cheaply isn't possible without a tiny page size, so
	// this just exercises that stats are populated and non-negative.
	require.NoError(t, h.InsertEntry(encodeIntKey(1), rid.RID{PageNum: 1, SlotNum: 0}))
	stats := h.LastFlushStats()
	require.GreaterOrEqual(t, stats.PagesWritten, 1)
	require.GreaterOrEqual(t, stats.Splits, 0)
}
