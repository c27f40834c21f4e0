package page

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"

	"ixtree/internal/rid"
)

// Metadata is the decoded form of page 0: key type, root page number,
// tree height, and the free-page reuse hint.
type Metadata struct {
	KeyKind      KeyKind
	RootPageNum  uint32
	Height       uint32
	FreePageHint uint32
}

const (
	metaOffKeyKind      = 0
	metaOffRootPageNum  = 1
	metaOffHeight       = 5
	metaOffFreePageHint = 9
)

// EncodeMetadata writes m into a fresh metadata page, zero-padding the
// remainder per spec §4.1.
func EncodeMetadata(m Metadata) *Page {
	var p Page
	p[metaOffKeyKind] = byte(m.KeyKind)
	binary.LittleEndian.PutUint32(p[metaOffRootPageNum:], m.RootPageNum)
	binary.LittleEndian.PutUint32(p[metaOffHeight:], m.Height)
	binary.LittleEndian.PutUint32(p[metaOffFreePageHint:], m.FreePageHint)
	return &p
}

// DecodeMetadata reads the metadata page.
func DecodeMetadata(p *Page) (Metadata, error) {
	kk := KeyKind(p[metaOffKeyKind])
	if kk != KeyKindInt && kk != KeyKindFloat {
		return Metadata{}, errors.Newf("page: invalid key type tag %d in metadata page", p[metaOffKeyKind])
	}
	return Metadata{
		KeyKind:      kk,
		RootPageNum:  binary.LittleEndian.Uint32(p[metaOffRootPageNum:]),
		Height:       binary.LittleEndian.Uint32(p[metaOffHeight:]),
		FreePageHint: binary.LittleEndian.Uint32(p[metaOffFreePageHint:]),
	}, nil
}

// NodeData is the fully-decoded content of a node page: enough to
// rebuild a btree.Node without the engine needing to know anything
// about byte layout.
type NodeData[K Key] struct {
	Kind         Kind
	Keys         []K
	RIDs         []rid.RID // leaf only, len(RIDs) == len(Keys)
	Children     []uint32  // internal only, len(Children) == len(Keys)+1
	LeftPageNum  int64     // leaf only, NoPage sentinel
	RightPageNum int64     // leaf only, NoPage sentinel
}

func encodeKey[K Key](buf []byte, k K) {
	switch v := any(k).(type) {
	case int32:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case float32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	default:
		panic(errors.AssertionFailedf("page: unsupported key type %T", k))
	}
}

func decodeKey[K Key](buf []byte) K {
	var zero K
	switch any(zero).(type) {
	case int32:
		return any(int32(binary.LittleEndian.Uint32(buf))).(K)
	case float32:
		return any(math.Float32frombits(binary.LittleEndian.Uint32(buf))).(K)
	default:
		panic(errors.AssertionFailedf("page: unsupported key type %T", zero))
	}
}

// EncodeNode serializes nd into a page. d is the configured order; n
// must not exceed 2d (enforced by the engine, re-checked here).
func EncodeNode[K Key](nd *NodeData[K], d int) (*Page, error) {
	n := len(nd.Keys)
	if n > 2*d {
		return nil, errors.Newf("page: node has %d keys, exceeds 2*d=%d for configured order", n, 2*d)
	}

	var p Page
	if nd.Kind == KindLeaf {
		p[0] = byte(KindLeaf)
	} else {
		p[0] = byte(KindInternal)
	}
	binary.LittleEndian.PutUint32(p[1:], uint32(n))

	left, right := int32(NoPage), int32(NoPage)
	if nd.Kind == KindLeaf {
		if nd.LeftPageNum != NoPage {
			left = int32(nd.LeftPageNum)
		}
		if nd.RightPageNum != NoPage {
			right = int32(nd.RightPageNum)
		}
	}
	binary.LittleEndian.PutUint32(p[5:], uint32(left))
	binary.LittleEndian.PutUint32(p[9:], uint32(right))

	off := nodeHeaderSize
	for _, k := range nd.Keys {
		encodeKey(p[off:off+keySize], k)
		off += keySize
	}

	if nd.Kind == KindLeaf {
		if len(nd.RIDs) != n {
			return nil, errors.Newf("page: leaf has %d keys but %d rids", n, len(nd.RIDs))
		}
		for _, r := range nd.RIDs {
			binary.LittleEndian.PutUint32(p[off:], r.PageNum)
			binary.LittleEndian.PutUint32(p[off+4:], r.SlotNum)
			off += ridSize
		}
	} else {
		if len(nd.Children) != n+1 {
			return nil, errors.Newf("page: internal node has %d keys but %d children", n, len(nd.Children))
		}
		for _, c := range nd.Children {
			binary.LittleEndian.PutUint32(p[off:], c)
			off += 4
		}
	}

	sum := checksum(p[:Size-checksumSize])
	binary.LittleEndian.PutUint64(p[Size-checksumSize:], sum)
	return &p, nil
}

// DecodeNode deserializes a page, verifying the checksum footer and
// that n does not exceed 2d for the configured order.
func DecodeNode[K Key](p *Page, d int) (*NodeData[K], error) {
	got := binary.LittleEndian.Uint64(p[Size-checksumSize:])
	want := checksum(p[:Size-checksumSize])
	if got != want {
		return nil, errors.Newf("page: checksum mismatch (corrupt page)")
	}

	kind := Kind(p[0])
	if kind != KindInternal && kind != KindLeaf {
		return nil, errors.Newf("page: invalid node kind byte %d", p[0])
	}
	n := int(binary.LittleEndian.Uint32(p[1:]))
	if n > 2*d {
		return nil, errors.Newf("page: decoded key count %d exceeds 2*d=%d for configured order", n, 2*d)
	}

	nd := &NodeData[K]{Kind: kind}
	if kind == KindLeaf {
		l := int32(binary.LittleEndian.Uint32(p[5:]))
		r := int32(binary.LittleEndian.Uint32(p[9:]))
		nd.LeftPageNum, nd.RightPageNum = int64(l), int64(r)
	} else {
		nd.LeftPageNum, nd.RightPageNum = NoPage, NoPage
	}

	off := nodeHeaderSize
	nd.Keys = make([]K, n)
	for i := 0; i < n; i++ {
		nd.Keys[i] = decodeKey[K](p[off : off+keySize])
		off += keySize
	}

	if kind == KindLeaf {
		nd.RIDs = make([]rid.RID, n)
		for i := 0; i < n; i++ {
			nd.RIDs[i] = rid.RID{
				PageNum: binary.LittleEndian.Uint32(p[off:]),
				SlotNum: binary.LittleEndian.Uint32(p[off+4:]),
			}
			off += ridSize
		}
	} else {
		nd.Children = make([]uint32, n+1)
		for i := 0; i < n+1; i++ {
			nd.Children[i] = binary.LittleEndian.Uint32(p[off:])
			off += 4
		}
	}

	return nd, nil
}
