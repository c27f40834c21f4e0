package btree

import "ixtree/internal/page"

// Loader fetches the node stored at pageNum. expectedKind is derived
// by the engine from tree height (an internal node's children are
// leaves exactly when that node sits one level above the leaves) and
// lets the loader's page decode validate against the caller's
// expectation instead of trusting the page blindly.
type Loader[K page.Key] func(pageNum int64, expectedKind page.Kind) (*Node[K], error)

// Allocator reserves a fresh page number for a brand-new node. The
// cache calls it eagerly at node creation time (rather than waiting
// for flush) so that a parent can record a child's page number in its
// Children slice the moment the child is split off, without a second
// pass to patch references up once pages are assigned.
type Allocator func() (int64, error)

// Cache is the node cache spec.md §4.2 describes: a per-operation
// map from page number to decoded node, populated lazily through
// Loader, plus identity-keyed sets of nodes the operation touched.
// A Cache is built fresh for each InsertEntry/DeleteEntry call and
// discarded once its caller has flushed Updated/Deleted.
type Cache[K page.Key] struct {
	loaded map[int64]*Node[K]
	load   Loader[K]
	alloc  Allocator

	updatedOrder []*Node[K]
	updatedSet   map[*Node[K]]bool

	deletedOrder []*Node[K]
	deletedSet   map[*Node[K]]bool
}

// NewCache builds an empty cache around the given loader and allocator.
func NewCache[K page.Key](load Loader[K], alloc Allocator) *Cache[K] {
	return &Cache[K]{
		loaded:     make(map[int64]*Node[K]),
		load:       load,
		alloc:      alloc,
		updatedSet: make(map[*Node[K]]bool),
		deletedSet: make(map[*Node[K]]bool),
	}
}

// Get returns the node at pageNum, loading it through Loader on first
// access and memoizing it for the rest of the operation.
func (c *Cache[K]) Get(pageNum int64, expectedKind page.Kind) (*Node[K], error) {
	if n, ok := c.loaded[pageNum]; ok {
		return n, nil
	}
	n, err := c.load(pageNum, expectedKind)
	if err != nil {
		return nil, err
	}
	c.loaded[pageNum] = n
	return n, nil
}

// New creates a brand-new node with a freshly allocated page number,
// tracked as updated (every newly-created node needs to be flushed).
func (c *Cache[K]) New(kind page.Kind) (*Node[K], error) {
	pageNum, err := c.alloc()
	if err != nil {
		return nil, err
	}
	n := newNode[K](kind)
	n.PageNum = pageNum
	c.loaded[pageNum] = n
	c.MarkUpdated(n)
	return n, nil
}

// MarkUpdated records that n was created or mutated by the current
// operation and must be written back at flush time.
func (c *Cache[K]) MarkUpdated(n *Node[K]) {
	if c.updatedSet[n] {
		return
	}
	c.updatedSet[n] = true
	c.updatedOrder = append(c.updatedOrder, n)
}

// MarkDeleted records that n was folded away by a merge and must be
// freed at flush time; it is removed from the updated set since a
// deleted node is never also written back.
func (c *Cache[K]) MarkDeleted(n *Node[K]) {
	if c.updatedSet[n] {
		delete(c.updatedSet, n)
		c.updatedOrder = removeNode(c.updatedOrder, n)
	}
	if c.deletedSet[n] {
		return
	}
	c.deletedSet[n] = true
	c.deletedOrder = append(c.deletedOrder, n)
	if n.PageNum != page.NoPage {
		delete(c.loaded, n.PageNum)
	}
}

// Updated returns the nodes that need flushing, in the order they
// were first touched (so that a node freshly allocated to satisfy a
// split is flushed after the split that created it was recorded).
func (c *Cache[K]) Updated() []*Node[K] { return c.updatedOrder }

// Deleted returns the nodes whose pages should be freed.
func (c *Cache[K]) Deleted() []*Node[K] { return c.deletedOrder }

// ClearPendingNodes resets the updated/deleted bookkeeping, mirroring
// IX_BTree::ClearPendingNodes. Cache instances are normally
// one-per-operation and simply discarded, but this is exposed for a
// caller that chooses to reuse one across several operations.
func (c *Cache[K]) ClearPendingNodes() {
	c.updatedOrder = nil
	c.updatedSet = make(map[*Node[K]]bool)
	c.deletedOrder = nil
	c.deletedSet = make(map[*Node[K]]bool)
}

func removeNode[K page.Key](nodes []*Node[K], target *Node[K]) []*Node[K] {
	out := nodes[:0]
	for _, n := range nodes {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}
