package index

import (
	"encoding/binary"
	"math"

	"ixtree/internal/page"
)

// decodeIntKey reads the 4-byte native int32 encoding spec.md §6
// describes for the boundary key buffer. A varchar-shaped buffer
// (length-prefixed, spec.md §6/§9) is never legal here since the
// handle's keyKind is fixed at Open/Create time to Int or Float; any
// buffer shorter than 4 bytes is rejected as invalid.
func decodeIntKey(buf []byte) (int32, error) {
	if len(buf) < page.KeySize {
		return 0, ErrInvalidOperation
	}
	return int32(binary.LittleEndian.Uint32(buf)), nil
}

func decodeFloatKey(buf []byte) (float32, error) {
	if len(buf) < page.KeySize {
		return 0, ErrInvalidOperation
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf)), nil
}

func encodeIntKey(k int32) []byte {
	buf := make([]byte, page.KeySize)
	binary.LittleEndian.PutUint32(buf, uint32(k))
	return buf
}

func encodeFloatKey(k float32) []byte {
	buf := make([]byte, page.KeySize)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(k))
	return buf
}
