package page

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ixtree/internal/rid"
)

func TestEncodeDecodeMetadataRoundTrip(t *testing.T) {
	m := Metadata{KeyKind: KeyKindFloat, RootPageNum: 7, Height: 3, FreePageHint: 12}
	p := EncodeMetadata(m)
	got, err := DecodeMetadata(p)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestDecodeMetadataRejectsBadTag(t *testing.T) {
	var p Page
	p[0] = 0xFF
	_, err := DecodeMetadata(&p)
	require.Error(t, err)
}

func TestEncodeDecodeLeafRoundTripInt(t *testing.T) {
	d := 2
	nd := &NodeData[int32]{
		Kind:         KindLeaf,
		Keys:         []int32{5, 10, 15},
		RIDs:         []rid.RID{{PageNum: 1, SlotNum: 0}, {PageNum: 1, SlotNum: 1}, {PageNum: 2, SlotNum: 0}},
		LeftPageNum:  NoPage,
		RightPageNum: 9,
	}
	p, err := EncodeNode(nd, d)
	require.NoError(t, err)

	got, err := DecodeNode[int32](p, d)
	require.NoError(t, err)
	require.Equal(t, nd.Keys, got.Keys)
	require.Equal(t, nd.RIDs, got.RIDs)
	require.Equal(t, nd.LeftPageNum, got.LeftPageNum)
	require.Equal(t, nd.RightPageNum, got.RightPageNum)
	require.Equal(t, KindLeaf, got.Kind)
}

func TestEncodeDecodeInternalRoundTripFloat(t *testing.T) {
	d := 2
	nd := &NodeData[float32]{
		Kind:     KindInternal,
		Keys:     []float32{1.5, 2.5},
		Children: []uint32{10, 11, 12},
	}
	p, err := EncodeNode(nd, d)
	require.NoError(t, err)

	got, err := DecodeNode[float32](p, d)
	require.NoError(t, err)
	require.Equal(t, nd.Keys, got.Keys)
	require.Equal(t, nd.Children, got.Children)
	require.Equal(t, NoPage, got.LeftPageNum)
	require.Equal(t, NoPage, got.RightPageNum)
}

func TestEncodeNodeRejectsTooManyKeys(t *testing.T) {
	d := 2
	nd := &NodeData[int32]{
		Kind: KindLeaf,
		Keys: []int32{1, 2, 3, 4, 5},
		RIDs: make([]rid.RID, 5),
	}
	_, err := EncodeNode(nd, d)
	require.Error(t, err)
}

func TestDecodeNodeRejectsCorruption(t *testing.T) {
	d := 2
	nd := &NodeData[int32]{
		Kind: KindLeaf,
		Keys: []int32{1},
		RIDs: []rid.RID{{PageNum: 1, SlotNum: 1}},
	}
	p, err := EncodeNode(nd, d)
	require.NoError(t, err)
	p[20] ^= 0xFF // flip a byte inside the RID area

	_, err = DecodeNode[int32](p, d)
	require.Error(t, err)
}

func TestOrderDerivation(t *testing.T) {
	d := Order(4096)
	require.Greater(t, d, 1)
	// A full leaf (2d keys, 2d rids) plus header and checksum must fit.
	require.LessOrEqual(t, nodeHeaderSize+2*d*(keySize+ridSize)+checksumSize, Size)
}
