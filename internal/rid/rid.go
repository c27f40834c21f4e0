// Package rid defines the record identifier the index maps keys to.
//
// A RID is opaque to the index: it is never dereferenced, only stored,
// compared, and returned to the caller.
package rid

import "fmt"

// RID identifies a tuple in a base relation by page and slot.
type RID struct {
	PageNum uint32
	SlotNum uint32
}

// Equal reports componentwise equality.
func (r RID) Equal(o RID) bool {
	return r.PageNum == o.PageNum && r.SlotNum == o.SlotNum
}

// Less orders RIDs componentwise: PageNum first, then SlotNum. This is
// the tie-break used within a leaf when two entries share a key.
func (r RID) Less(o RID) bool {
	if r.PageNum != o.PageNum {
		return r.PageNum < o.PageNum
	}
	return r.SlotNum < o.SlotNum
}

func (r RID) String() string {
	return fmt.Sprintf("(%d,%d)", r.PageNum, r.SlotNum)
}
