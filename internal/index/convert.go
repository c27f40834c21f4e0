package index

import (
	"ixtree/internal/btree"
	"ixtree/internal/page"
)

// toNodeData flattens an in-memory btree.Node into the page package's
// wire representation, narrowing page numbers to uint32/int64 sentinel
// form as the codec expects.
func toNodeData[K page.Key](n *btree.Node[K]) *page.NodeData[K] {
	nd := &page.NodeData[K]{
		Kind:         n.Kind,
		Keys:         n.Keys,
		LeftPageNum:  n.LeftPageNum,
		RightPageNum: n.RightPageNum,
	}
	if n.Kind == page.KindLeaf {
		nd.RIDs = n.RIDs
	} else {
		nd.Children = make([]uint32, len(n.Children))
		for i, c := range n.Children {
			nd.Children[i] = uint32(c)
		}
	}
	return nd
}

// fromNodeData rebuilds an in-memory btree.Node from decoded page
// contents, assigning the page number it was read from.
func fromNodeData[K page.Key](pageNum int64, nd *page.NodeData[K]) *btree.Node[K] {
	n := &btree.Node[K]{
		Kind:         nd.Kind,
		PageNum:      pageNum,
		Keys:         nd.Keys,
		RIDs:         nd.RIDs,
		LeftPageNum:  nd.LeftPageNum,
		RightPageNum: nd.RightPageNum,
	}
	if nd.Kind == page.KindInternal {
		n.Children = make([]int64, len(nd.Children))
		for i, c := range nd.Children {
			n.Children[i] = int64(c)
		}
	}
	return n
}
