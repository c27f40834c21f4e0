package manager

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"ixtree/internal/btree"
	"ixtree/internal/page"
	"ixtree/internal/rid"
)

func encodeIntKey(k int32) []byte {
	buf := make([]byte, page.KeySize)
	binary.LittleEndian.PutUint32(buf, uint32(k))
	return buf
}

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(t.TempDir(), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	return m
}

func TestCreateIndexRegistersCatalogEntry(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.CreateIndex("students", "gpa", page.KeyKindInt))

	entry, err := m.cat.Lookup("students", "gpa")
	require.NoError(t, err)
	require.Equal(t, page.KeyKindInt, entry.KeyKind)
}

func TestCreateIndexTwiceFails(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.CreateIndex("students", "gpa", page.KeyKindInt))
	err := m.CreateIndex("students", "gpa", page.KeyKindInt)
	require.ErrorIs(t, err, ErrIndexExists)
}

func TestOpenInsertCloseRoundTrip(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.CreateIndex("students", "gpa", page.KeyKindInt))

	h, err := m.OpenIndex("students", "gpa")
	require.NoError(t, err)

	buf := encodeIntKey(7)
	require.NoError(t, h.InsertEntry(buf, rid.RID{PageNum: 1, SlotNum: 0}))

	scan, err := h.OpenScan(btree.EQOp, buf)
	require.NoError(t, err)
	r, err := scan.GetNextEntry()
	require.NoError(t, err)
	require.Equal(t, rid.RID{PageNum: 1, SlotNum: 0}, r)

	require.NoError(t, m.CloseIndex(h))
}

func TestDestroyOpenIndexFails(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.CreateIndex("students", "gpa", page.KeyKindInt))
	h, err := m.OpenIndex("students", "gpa")
	require.NoError(t, err)

	err = m.DestroyIndex("students", "gpa")
	require.ErrorIs(t, err, ErrIndexOpen)

	require.NoError(t, m.CloseIndex(h))
}

func TestDestroyIndexRemovesFileAndCatalogEntry(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	require.NoError(t, m.CreateIndex("students", "gpa", page.KeyKindInt))

	require.NoError(t, m.DestroyIndex("students", "gpa"))

	_, err = m.cat.Lookup("students", "gpa")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "students.gpa.ix"))
	require.True(t, os.IsNotExist(statErr))

	_, err = m.OpenIndex("students", "gpa")
	require.Error(t, err)
}

func TestOpenUnknownIndexFails(t *testing.T) {
	m := openTestManager(t)
	_, err := m.OpenIndex("ghost", "attr")
	require.Error(t, err)
}

func TestInsertEntryIncrementsOpsCounter(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.CreateIndex("students", "gpa", page.KeyKindInt))
	h, err := m.OpenIndex("students", "gpa")
	require.NoError(t, err)
	defer m.CloseIndex(h)

	require.NoError(t, h.InsertEntry(encodeIntKey(1), rid.RID{PageNum: 1, SlotNum: 0}))
	require.NoError(t, h.InsertEntry(encodeIntKey(2), rid.RID{PageNum: 1, SlotNum: 1}))

	count := testutil.ToFloat64(m.metrics.Ops.WithLabelValues("insert"))
	require.Equal(t, float64(2), count)
}
