package btree

import (
	"github.com/cockroachdb/errors"

	"ixtree/internal/page"
	"ixtree/internal/rid"
)

// Engine runs the B+-tree algorithms (search, insert, delete, and the
// split/redistribute/merge rebalancing they trigger) against nodes
// fetched through a Cache. It holds no tree state of its own — the
// root node and tree height are owned by the caller (internal/index's
// Handle, per spec.md §5's "index handle exclusively owns the root
// pointer") and threaded through every call.
type Engine[K page.Key] struct {
	D     int
	Cache *Cache[K]

	// Splits/Merges/Redistributes count rebalancing events this engine
	// instance has performed, for the handle to surface as flush
	// statistics (spec.md §4.4 [EXPANSION]). A fresh Engine is built
	// per operation, so these are always per-operation counts.
	Splits        int
	Merges        int
	Redistributes int
}

// NewEngine builds an engine for order d, operating through cache.
func NewEngine[K page.Key](d int, cache *Cache[K]) *Engine[K] {
	return &Engine[K]{D: d, Cache: cache}
}

func (e *Engine[K]) childKind(parentHeight int) page.Kind {
	if parentHeight-1 == 0 {
		return page.KindLeaf
	}
	return page.KindInternal
}

// FindLeaf descends from root to the leaf that would contain key,
// following the right-leaning convention (invariant 4): equal
// separators route to the right subtree.
func (e *Engine[K]) FindLeaf(root *Node[K], height int, key K) (*Node[K], error) {
	cur := root
	h := height
	for cur.Kind == page.KindInternal {
		i := cur.childIdx(key)
		child, err := e.Cache.Get(cur.Children[i], e.childKind(h))
		if err != nil {
			return nil, err
		}
		cur = child
		h--
	}
	return cur, nil
}

// Insert adds (key, r) to the tree rooted at root, returning the
// (possibly new) root and tree height. It fails with ErrKeyExists if
// the exact (key, rid) pair is already present; duplicate keys with
// distinct rids are accepted (invariant 6).
func (e *Engine[K]) Insert(root *Node[K], height int, key K, r rid.RID) (*Node[K], int, error) {
	promotedKey, promotedChild, err := e.insertRec(root, height, key, r)
	if err != nil {
		return root, height, err
	}
	if promotedChild == nil {
		return root, height, nil
	}

	newRoot, err := e.Cache.New(page.KindInternal)
	if err != nil {
		return root, height, err
	}
	newRoot.Keys = []K{*promotedKey}
	newRoot.Children = []int64{root.PageNum, promotedChild.PageNum}
	e.Cache.MarkUpdated(newRoot)
	return newRoot, height + 1, nil
}

// insertRec inserts into the subtree rooted at node (at height h) and
// reports a promoted separator key plus its new right sibling if node
// split under the insertion.
func (e *Engine[K]) insertRec(node *Node[K], h int, key K, r rid.RID) (*K, *Node[K], error) {
	if node.isLeaf() {
		idx := node.findEntry(key, r)
		if idx < len(node.Keys) && node.Keys[idx] == key && node.RIDs[idx].Equal(r) {
			return nil, nil, ErrKeyExists
		}
		node.Keys = insertAt(node.Keys, idx, key)
		node.RIDs = insertRIDAt(node.RIDs, idx, r)
		e.Cache.MarkUpdated(node)

		if len(node.Keys) <= 2*e.D {
			return nil, nil, nil
		}
		return e.splitLeaf(node)
	}

	i := node.childIdx(key)
	child, err := e.Cache.Get(node.Children[i], e.childKind(h))
	if err != nil {
		return nil, nil, err
	}
	promotedKey, promotedChild, err := e.insertRec(child, h-1, key, r)
	if err != nil {
		return nil, nil, err
	}
	if promotedChild == nil {
		return nil, nil, nil
	}

	node.Keys = insertAt(node.Keys, i, *promotedKey)
	node.Children = insertAt(node.Children, i+1, promotedChild.PageNum)
	e.Cache.MarkUpdated(node)

	if len(node.Keys) <= 2*e.D {
		return nil, nil, nil
	}
	return e.splitInternal(node)
}

// splitLeaf splits an overfull leaf in two and splices the new
// sibling into the leaf chain (invariant 5). The separator promoted
// to the parent is a copy of the right half's first key, per B+-tree
// convention — leaf keys are never discarded on split.
func (e *Engine[K]) splitLeaf(node *Node[K]) (*K, *Node[K], error) {
	e.Splits++
	sibling, err := e.Cache.New(page.KindLeaf)
	if err != nil {
		return nil, nil, err
	}

	at := (len(node.Keys) + 1) / 2
	sibling.Keys = append([]K{}, node.Keys[at:]...)
	sibling.RIDs = append([]rid.RID{}, node.RIDs[at:]...)
	node.Keys = node.Keys[:at]
	node.RIDs = node.RIDs[:at]

	sibling.RightPageNum = node.RightPageNum
	sibling.LeftPageNum = node.PageNum
	if node.RightPageNum != page.NoPage {
		oldRight, err := e.Cache.Get(node.RightPageNum, page.KindLeaf)
		if err != nil {
			return nil, nil, err
		}
		oldRight.LeftPageNum = sibling.PageNum
		e.Cache.MarkUpdated(oldRight)
	}
	node.RightPageNum = sibling.PageNum

	e.Cache.MarkUpdated(node)
	e.Cache.MarkUpdated(sibling)

	promoted := sibling.Keys[0]
	return &promoted, sibling, nil
}

// splitInternal splits an overfull internal node, discarding the
// middle key from both halves (it is promoted to the parent, not
// duplicated — internal separators are routing keys, not data).
func (e *Engine[K]) splitInternal(node *Node[K]) (*K, *Node[K], error) {
	e.Splits++
	sibling, err := e.Cache.New(page.KindInternal)
	if err != nil {
		return nil, nil, err
	}

	mid := len(node.Keys) / 2
	promoted := node.Keys[mid]

	sibling.Keys = append([]K{}, node.Keys[mid+1:]...)
	sibling.Children = append([]int64{}, node.Children[mid+1:]...)
	node.Keys = node.Keys[:mid]
	node.Children = node.Children[:mid+1]

	e.Cache.MarkUpdated(node)
	e.Cache.MarkUpdated(sibling)

	return &promoted, sibling, nil
}

// Delete removes the exact (key, r) entry from the tree rooted at
// root, returning the (possibly new, if the root collapsed) root and
// height. It fails with ErrNotFound if no such entry exists.
func (e *Engine[K]) Delete(root *Node[K], height int, key K, r rid.RID) (*Node[K], int, error) {
	underflow, _, err := e.deleteRec(root, height, key, r)
	if err != nil {
		return root, height, err
	}
	if underflow && !root.isLeaf() && len(root.Keys) == 0 {
		newRoot, err := e.Cache.Get(root.Children[0], e.childKind(height))
		if err != nil {
			return root, height, err
		}
		e.Cache.MarkDeleted(root)
		return newRoot, height - 1, nil
	}
	return root, height, nil
}

// deleteRec removes (key, r) from the subtree rooted at node (height
// h) and reports whether node is now under the minimum occupancy d,
// requiring its parent to redistribute or merge it with a sibling. The
// second return value is non-nil when the deletion changed the
// subtree's minimum key (the deleted entry was the leaf's first), per
// spec.md §4.3 step 4: the caller must then replace the separator that
// routes to this subtree with the new minimum. A node is only ever
// the "first key" of its parent when it sits at child index 0, so
// newFirst keeps bubbling up unresolved past every such ancestor until
// it reaches one where the subtree hangs off a non-zero index, which
// holds the separator that actually needs updating.
func (e *Engine[K]) deleteRec(node *Node[K], h int, key K, r rid.RID) (bool, *K, error) {
	if node.isLeaf() {
		idx := node.findEntry(key, r)
		if idx >= len(node.Keys) || node.Keys[idx] != key || !node.RIDs[idx].Equal(r) {
			return false, nil, ErrNotFound
		}
		node.Keys = removeAt(node.Keys, idx)
		node.RIDs = removeRIDAt(node.RIDs, idx)
		e.Cache.MarkUpdated(node)
		var newFirst *K
		if idx == 0 && len(node.Keys) > 0 {
			nf := node.Keys[0]
			newFirst = &nf
		}
		return len(node.Keys) < e.D, newFirst, nil
	}

	i := node.childIdx(key)
	childKind := e.childKind(h)
	child, err := e.Cache.Get(node.Children[i], childKind)
	if err != nil {
		return false, nil, err
	}

	underflow, newFirst, err := e.deleteRec(child, h-1, key, r)
	if err != nil {
		return false, nil, err
	}
	if newFirst != nil && i > 0 {
		node.Keys[i-1] = *newFirst
		e.Cache.MarkUpdated(node)
		newFirst = nil
	}
	if !underflow {
		return false, newFirst, nil
	}
	parentUnderflow, err := e.fixUnderflow(node, i, child, childKind)
	return parentUnderflow, newFirst, err
}

// canBorrow reports whether n has more than the minimum occupancy and
// can lend an entry to a neighboring underflowed sibling.
func (e *Engine[K]) canBorrow(n *Node[K]) bool {
	return len(n.Keys) > e.D
}

// fixUnderflow repairs parent's child at index i, which has dropped
// below minimum occupancy, preferring redistribution from the right
// sibling, then the left, then merging with the right sibling, then
// the left (spec.md §4.3's stated preference order). It reports
// whether parent itself is now under minimum occupancy.
func (e *Engine[K]) fixUnderflow(parent *Node[K], i int, child *Node[K], childKind page.Kind) (bool, error) {
	if i+1 < len(parent.Children) {
		right, err := e.Cache.Get(parent.Children[i+1], childKind)
		if err != nil {
			return false, err
		}
		if e.canBorrow(right) {
			e.borrowFromRight(parent, i, child, right, childKind)
			return false, nil
		}
	}
	if i > 0 {
		left, err := e.Cache.Get(parent.Children[i-1], childKind)
		if err != nil {
			return false, err
		}
		if e.canBorrow(left) {
			e.borrowFromLeft(parent, i, left, child, childKind)
			return false, nil
		}
	}

	if i+1 < len(parent.Children) {
		right, err := e.Cache.Get(parent.Children[i+1], childKind)
		if err != nil {
			return false, err
		}
		e.mergeNodes(parent, i, child, right, childKind)
	} else if i > 0 {
		left, err := e.Cache.Get(parent.Children[i-1], childKind)
		if err != nil {
			return false, err
		}
		e.mergeNodes(parent, i-1, left, child, childKind)
	} else {
		return false, errors.AssertionFailedf("btree: underflowed child has no sibling to merge with")
	}
	return len(parent.Keys) < e.D, nil
}

// borrowFromRight moves one entry from right into child, child sitting
// immediately to right's left under parent at separator index i.
func (e *Engine[K]) borrowFromRight(parent *Node[K], i int, child, right *Node[K], kind page.Kind) {
	e.Redistributes++
	if kind == page.KindLeaf {
		child.Keys = append(child.Keys, right.Keys[0])
		child.RIDs = append(child.RIDs, right.RIDs[0])
		right.Keys = removeAt(right.Keys, 0)
		right.RIDs = removeRIDAt(right.RIDs, 0)
		parent.Keys[i] = right.Keys[0]
	} else {
		child.Keys = append(child.Keys, parent.Keys[i])
		child.Children = append(child.Children, right.Children[0])
		parent.Keys[i] = right.Keys[0]
		right.Keys = removeAt(right.Keys, 0)
		right.Children = removeAt(right.Children, 0)
	}
	e.Cache.MarkUpdated(parent)
	e.Cache.MarkUpdated(child)
	e.Cache.MarkUpdated(right)
}

// borrowFromLeft moves one entry from left into child, child sitting
// immediately to left's right under parent at separator index i-1.
func (e *Engine[K]) borrowFromLeft(parent *Node[K], i int, left, child *Node[K], kind page.Kind) {
	e.Redistributes++
	if kind == page.KindLeaf {
		lastIdx := len(left.Keys) - 1
		child.Keys = insertAt(child.Keys, 0, left.Keys[lastIdx])
		child.RIDs = insertRIDAt(child.RIDs, 0, left.RIDs[lastIdx])
		left.Keys = left.Keys[:lastIdx]
		left.RIDs = left.RIDs[:lastIdx]
		parent.Keys[i-1] = child.Keys[0]
	} else {
		lastKeyIdx := len(left.Keys) - 1
		lastChildIdx := len(left.Children) - 1
		child.Keys = insertAt(child.Keys, 0, parent.Keys[i-1])
		child.Children = insertAt(child.Children, 0, left.Children[lastChildIdx])
		parent.Keys[i-1] = left.Keys[lastKeyIdx]
		left.Keys = left.Keys[:lastKeyIdx]
		left.Children = left.Children[:lastChildIdx]
	}
	e.Cache.MarkUpdated(parent)
	e.Cache.MarkUpdated(child)
	e.Cache.MarkUpdated(left)
}

// mergeNodes folds right into left (left is parent.Children[leftIdx],
// right is parent.Children[leftIdx+1]) and removes the separator
// between them from parent, marking right for deletion.
func (e *Engine[K]) mergeNodes(parent *Node[K], leftIdx int, left, right *Node[K], kind page.Kind) {
	e.Merges++
	if kind == page.KindLeaf {
		left.Keys = append(left.Keys, right.Keys...)
		left.RIDs = append(left.RIDs, right.RIDs...)
		left.RightPageNum = right.RightPageNum
		if right.RightPageNum != page.NoPage {
			if farRight, err := e.Cache.Get(right.RightPageNum, page.KindLeaf); err == nil {
				farRight.LeftPageNum = left.PageNum
				e.Cache.MarkUpdated(farRight)
			}
		}
	} else {
		left.Keys = append(left.Keys, parent.Keys[leftIdx])
		left.Keys = append(left.Keys, right.Keys...)
		left.Children = append(left.Children, right.Children...)
	}
	parent.Keys = removeAt(parent.Keys, leftIdx)
	parent.Children = removeAt(parent.Children, leftIdx+1)

	e.Cache.MarkUpdated(left)
	e.Cache.MarkUpdated(parent)
	e.Cache.MarkDeleted(right)
}
