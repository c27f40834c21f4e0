package btree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ixtree/internal/page"
	"ixtree/internal/rid"
)

var (
	errNotFoundPage = errors.New("memStore: no such page")
	errKindMismatch = errors.New("memStore: node kind mismatch")
)

// memStore is an in-memory stand-in for the pager, just enough to
// exercise Cache's Loader/Allocator contract without touching disk.
type memStore[K page.Key] struct {
	pages  map[int64]*Node[K]
	nextID int64
}

func newMemStore[K page.Key]() *memStore[K] {
	return &memStore[K]{pages: make(map[int64]*Node[K])}
}

func (s *memStore[K]) loader(pageNum int64, expectedKind page.Kind) (*Node[K], error) {
	n, ok := s.pages[pageNum]
	if !ok {
		return nil, errNotFoundPage
	}
	if n.Kind != expectedKind {
		return nil, errKindMismatch
	}
	return n, nil
}

func (s *memStore[K]) allocator() (int64, error) {
	id := s.nextID
	s.nextID++
	return id, nil
}

func (s *memStore[K]) commit(c *Cache[K]) {
	for _, n := range c.Updated() {
		s.pages[n.PageNum] = n
	}
	for _, n := range c.Deleted() {
		delete(s.pages, n.PageNum)
	}
}

type harness[K page.Key] struct {
	store  *memStore[K]
	d      int
	root   *Node[K]
	height int
}

func newHarness[K page.Key](t *testing.T, d int) *harness[K] {
	t.Helper()
	store := newMemStore[K]()
	cache := NewCache[K](store.loader, store.allocator)
	root, err := cache.New(page.KindLeaf)
	require.NoError(t, err)
	store.commit(cache)
	return &harness[K]{store: store, d: d, root: root, height: 0}
}

func (h *harness[K]) insert(t *testing.T, key K, r rid.RID) error {
	t.Helper()
	cache := NewCache[K](h.store.loader, h.store.allocator)
	e := NewEngine[K](h.d, cache)
	newRoot, newHeight, err := e.Insert(h.root, h.height, key, r)
	if err != nil {
		return err
	}
	h.store.commit(cache)
	h.root, h.height = newRoot, newHeight
	return nil
}

func (h *harness[K]) delete(t *testing.T, key K, r rid.RID) error {
	t.Helper()
	cache := NewCache[K](h.store.loader, h.store.allocator)
	e := NewEngine[K](h.d, cache)
	newRoot, newHeight, err := e.Delete(h.root, h.height, key, r)
	if err != nil {
		return err
	}
	h.store.commit(cache)
	h.root, h.height = newRoot, newHeight
	return nil
}

func (h *harness[K]) scan(t *testing.T, op CompOp, value K) []K {
	t.Helper()
	cache := NewCache[K](h.store.loader, h.store.allocator)
	e := NewEngine[K](h.d, cache)
	cur, err := NewCursor[K](e, h.root, h.height, op, value)
	require.NoError(t, err)
	var got []K
	for {
		k, _, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, k)
	}
	return got
}

func TestInsertSearchSingleLevel(t *testing.T) {
	h := newHarness[int32](t, 2)
	for i := int32(1); i <= 4; i++ {
		require.NoError(t, h.insert(t, i, rid.RID{PageNum: 1, SlotNum: uint32(i)}))
	}
	require.Equal(t, 0, h.height)
	require.Equal(t, []int32{1, 2, 3, 4}, h.scan(t, NoOp, 0))
}

func TestInsertGrowsRootOnOverflow(t *testing.T) {
	h := newHarness[int32](t, 2)
	for i := int32(1); i <= 5; i++ {
		require.NoError(t, h.insert(t, i, rid.RID{PageNum: 1, SlotNum: uint32(i)}))
	}
	require.Equal(t, 1, h.height, "inserting a 5th key into an order-2 leaf must split and grow the root")
	require.Equal(t, []int32{1, 2, 3, 4, 5}, h.scan(t, NoOp, 0))
}

func TestInsertDuplicateKeyDistinctRidAccepted(t *testing.T) {
	h := newHarness[int32](t, 2)
	require.NoError(t, h.insert(t, 7, rid.RID{PageNum: 1, SlotNum: 0}))
	require.NoError(t, h.insert(t, 7, rid.RID{PageNum: 1, SlotNum: 1}))
	require.Equal(t, []int32{7, 7}, h.scan(t, EQOp, 7))
}

func TestInsertExactDuplicateRejected(t *testing.T) {
	h := newHarness[int32](t, 2)
	r := rid.RID{PageNum: 1, SlotNum: 0}
	require.NoError(t, h.insert(t, 7, r))
	err := h.insert(t, 7, r)
	require.ErrorIs(t, err, ErrKeyExists)
}

func TestDeleteMissingEntryFails(t *testing.T) {
	h := newHarness[int32](t, 2)
	require.NoError(t, h.insert(t, 1, rid.RID{PageNum: 1, SlotNum: 0}))
	err := h.delete(t, 1, rid.RID{PageNum: 9, SlotNum: 9})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInsertDeleteSequenceMaintainsOrder(t *testing.T) {
	h := newHarness[int32](t, 2)
	keys := []int32{10, 20, 5, 15, 25, 1, 30, 12, 8, 22}
	for _, k := range keys {
		require.NoError(t, h.insert(t, k, rid.RID{PageNum: 1, SlotNum: uint32(k)}))
	}

	toDelete := []int32{20, 1, 25}
	for _, k := range toDelete {
		require.NoError(t, h.delete(t, k, rid.RID{PageNum: 1, SlotNum: uint32(k)}))
	}

	want := []int32{5, 8, 10, 12, 15, 22, 30}
	require.Equal(t, want, h.scan(t, NoOp, 0))
}

func TestLargeRandomizedInsertDeleteKeepsInvariants(t *testing.T) {
	h := newHarness[int32](t, 4)
	const n = 500

	// 7919 and 4999 are coprime (both prime), so i -> key is injective
	// over i in [0, n): every key below is distinct.
	type entry struct {
		key int32
		rid rid.RID
	}
	var entries []entry
	for i := int32(0); i < n; i++ {
		key := (i * 7919) % 4999
		r := rid.RID{PageNum: 1, SlotNum: uint32(i)}
		require.NoError(t, h.insert(t, key, r))
		entries = append(entries, entry{key: key, rid: r})
	}

	got := h.scan(t, NoOp, 0)
	require.Len(t, got, n)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1], got[i], "scan must yield keys in ascending order")
	}

	for _, e := range entries[:n/2] {
		require.NoError(t, h.delete(t, e.key, e.rid), "key %d inserted but not deletable", e.key)
	}

	got = h.scan(t, NoOp, 0)
	require.Len(t, got, n-n/2)
}

func TestFloatRangeScanGreaterThan(t *testing.T) {
	h := newHarness[float32](t, 2)
	for _, k := range []float32{1.5, 2.5, 3.5, 4.5, 5.5} {
		require.NoError(t, h.insert(t, k, rid.RID{PageNum: 1, SlotNum: uint32(k * 10)}))
	}
	require.Equal(t, []float32{3.5, 4.5, 5.5}, h.scan(t, GTOp, 2.5))
}

func TestNotEqualScanSkipsValue(t *testing.T) {
	h := newHarness[int32](t, 2)
	for i := int32(1); i <= 5; i++ {
		require.NoError(t, h.insert(t, i, rid.RID{PageNum: 1, SlotNum: uint32(i)}))
	}
	require.Equal(t, []int32{1, 2, 4, 5}, h.scan(t, NEOp, 3))
}
