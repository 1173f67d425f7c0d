package cursor

import (
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/schema"
)

// A list is a head record plus a doubly-linked chain of body records
//: the head tracks the first/last body address and a live
// count for O(1) Length, and each body record carries prev/next
// pointers, its own position, and a pointer to its value's bytes. The
// chain is always kept in ascending stored-index order, so navigation
// can stop as soon as it passes the target index.
const (
	ListHeadSize = 6 // first(2) + last(2) + count(2)
	ListBodySize = 8 // prev(2) + next(2) + index(2) + value(2)
)

func listHeadFirst(mem *bufmem.Memory, headAddr int) (int, error) {
	v, err := mem.ReadU16(headAddr)
	return int(v), err
}

func listHeadLast(mem *bufmem.Memory, headAddr int) (int, error) {
	v, err := mem.ReadU16(headAddr + 2)
	return int(v), err
}

func listHeadCount(mem *bufmem.Memory, headAddr int) (int, error) {
	v, err := mem.ReadU16(headAddr + 4)
	return int(v), err
}

func setListHead(mem *bufmem.Memory, headAddr, first, last, count int) error {
	if err := mem.WriteU16(headAddr, uint16(first)); err != nil {
		return err
	}
	if err := mem.WriteU16(headAddr+2, uint16(last)); err != nil {
		return err
	}
	return mem.WriteU16(headAddr+4, uint16(count))
}

func listBodyIndex(mem *bufmem.Memory, bodyAddr int) (int, error) {
	v, err := mem.ReadU16(bodyAddr + 4)
	return int(v), err
}

// EnsureListHead allocates an empty list head if addr is vacant.
func EnsureListHead(mem *bufmem.Memory, addr int, parentSlotAddr int) (int, error) {
	if addr != 0 {
		return addr, nil
	}
	headAddr, err := mem.Allocate(ListHeadSize)
	if err != nil {
		return 0, err
	}
	if err := mem.WriteU16(parentSlotAddr, uint16(headAddr)); err != nil {
		return 0, err
	}
	return headAddr, nil
}

// listBodyAt finds the body record whose own stored index equals idx:
// lists preserve order by index, not by link position, so the record's
// own index field is what counts. The
// chain is kept sorted ascending by index, so the walk stops as soon as
// it passes idx. Returns 0 if idx currently has no body record (an
// unlinked hole left by a prior delete, or never grown that far).
func listBodyAt(mem *bufmem.Memory, headAddr int, idx int) (bodyAddr int, err error) {
	cur, err := listHeadFirst(mem, headAddr)
	if err != nil {
		return 0, err
	}
	for i := 0; cur != 0; i++ {
		if i > MaxHops {
			return 0, errTooManyHops()
		}
		curIdx, err := listBodyIndex(mem, cur)
		if err != nil {
			return 0, err
		}
		if curIdx == idx {
			return cur, nil
		}
		if curIdx > idx {
			return 0, nil
		}
		next, err := mem.ReadU16(cur + 2)
		if err != nil {
			return 0, err
		}
		cur = int(next)
	}
	return 0, nil
}

// listInsertionPoint walks the ascending chain and returns the address
// of the first body record whose stored index exceeds idx (0 if none),
// along with that record's predecessor (0 if it would become the new
// head). Used to splice a fresh body record back into a hole.
func listInsertionPoint(mem *bufmem.Memory, headAddr int, idx int) (prev, next int, err error) {
	cur, err := listHeadFirst(mem, headAddr)
	if err != nil {
		return 0, 0, err
	}
	prevAddr := 0
	for i := 0; cur != 0; i++ {
		if i > MaxHops {
			return 0, 0, errTooManyHops()
		}
		curIdx, err := listBodyIndex(mem, cur)
		if err != nil {
			return 0, 0, err
		}
		if curIdx > idx {
			return prevAddr, cur, nil
		}
		prevAddr = cur
		next, err := mem.ReadU16(cur + 2)
		if err != nil {
			return 0, 0, err
		}
		cur = int(next)
	}
	return prevAddr, 0, nil
}

func stepList(mem *bufmem.Memory, node *schema.Node, headAddr int, sel schema.Selector) (int, *schema.Node, error) {
	if sel.Kind != schema.SelIndex {
		return 0, nil, xerrors.Errorf("cursor: list requires an index selector: %w", nperrors.TypeMismatch)
	}
	count, err := listHeadCount(mem, headAddr)
	if err != nil {
		return 0, nil, err
	}
	if int(sel.Idx) >= count {
		return 0, nil, xerrors.Errorf("cursor: list index %d out of range (length %d): %w", sel.Idx, count, nperrors.OutOfRange)
	}
	bodyAddr, err := listBodyAt(mem, headAddr, int(sel.Idx))
	if err != nil {
		return 0, nil, err
	}
	if bodyAddr == 0 {
		return 0, node.Children[0], nil
	}
	v, err := mem.ReadU16(bodyAddr + 6)
	if err != nil {
		return 0, nil, err
	}
	return int(v), node.Children[0], nil
}

// ListLength returns a list's logical length in O(1): one past the
// highest index ever assigned a value that hasn't since been trimmed
// off the tail.
func ListLength(mem *bufmem.Memory, headAddr int) (int, error) {
	return listHeadCount(mem, headAddr)
}

// ListValueSlot returns the address of index idx's value pointer,
// requiring a body record already exist there (no growth, no
// hole-filling). An index with no body record is OutOfRange.
func ListValueSlot(mem *bufmem.Memory, headAddr int, idx int) (slotAddr int, err error) {
	bodyAddr, err := listBodyAt(mem, headAddr, idx)
	if err != nil {
		return 0, err
	}
	if bodyAddr == 0 {
		return 0, xerrors.Errorf("cursor: list index %d out of range: %w", idx, nperrors.OutOfRange)
	}
	return bodyAddr + 6, nil
}

// ListAppend grows a list by one element, linking a new body record
// after the current tail, and returns the new element's value-slot
// address for the caller to fill in. The new record's stored index is
// always the list's current count, so it sorts after every live record.
func ListAppend(mem *bufmem.Memory, headAddr int) (slotAddr int, err error) {
	first, err := listHeadFirst(mem, headAddr)
	if err != nil {
		return 0, err
	}
	last, err := listHeadLast(mem, headAddr)
	if err != nil {
		return 0, err
	}
	count, err := listHeadCount(mem, headAddr)
	if err != nil {
		return 0, err
	}
	bodyAddr, err := mem.Allocate(ListBodySize)
	if err != nil {
		return 0, err
	}
	if err := mem.WriteU16(bodyAddr, uint16(last)); err != nil { // prev
		return 0, err
	}
	if err := mem.WriteU16(bodyAddr+2, 0); err != nil { // next
		return 0, err
	}
	if err := mem.WriteU16(bodyAddr+4, uint16(count)); err != nil { // index
		return 0, err
	}
	if err := mem.WriteU16(bodyAddr+6, 0); err != nil { // value, vacant until caller writes
		return 0, err
	}
	if last != 0 {
		if err := mem.WriteU16(last+2, uint16(bodyAddr)); err != nil {
			return 0, err
		}
	}
	newFirst := first
	if newFirst == 0 {
		newFirst = bodyAddr
	}
	if err := setListHead(mem, headAddr, newFirst, bodyAddr, count+1); err != nil {
		return 0, err
	}
	return bodyAddr + 6, nil
}

// listInsertHole splices a fresh body record at idx back into the
// chain without touching count: idx is already < count (the logical
// length already accounts for it), but a prior delete unlinked it, so a
// plain append would land it in the wrong position.
func listInsertHole(mem *bufmem.Memory, headAddr int, idx int) (slotAddr int, err error) {
	prev, next, err := listInsertionPoint(mem, headAddr, idx)
	if err != nil {
		return 0, err
	}
	bodyAddr, err := mem.Allocate(ListBodySize)
	if err != nil {
		return 0, err
	}
	if err := mem.WriteU16(bodyAddr, uint16(prev)); err != nil {
		return 0, err
	}
	if err := mem.WriteU16(bodyAddr+2, uint16(next)); err != nil {
		return 0, err
	}
	if err := mem.WriteU16(bodyAddr+4, uint16(idx)); err != nil {
		return 0, err
	}
	if err := mem.WriteU16(bodyAddr+6, 0); err != nil {
		return 0, err
	}
	if prev != 0 {
		if err := mem.WriteU16(prev+2, uint16(bodyAddr)); err != nil {
			return 0, err
		}
	}
	if next != 0 {
		if err := mem.WriteU16(next, uint16(bodyAddr)); err != nil {
			return 0, err
		}
	}
	first, err := listHeadFirst(mem, headAddr)
	if err != nil {
		return 0, err
	}
	last, err := listHeadLast(mem, headAddr)
	if err != nil {
		return 0, err
	}
	count, err := listHeadCount(mem, headAddr)
	if err != nil {
		return 0, err
	}
	if prev == 0 {
		first = bodyAddr
	}
	if next == 0 {
		last = bodyAddr
	}
	if err := setListHead(mem, headAddr, first, last, count); err != nil {
		return 0, err
	}
	return bodyAddr + 6, nil
}

// ListGrowTo returns the value-slot address for idx, appending however
// many vacant body records are needed to reach it first, or splicing a
// fresh record into a hole left by a prior delete if idx already falls
// within the current length. Setting past the current length grows the
// list to idx+1, leaving every intermediate position vacant rather than
// failing.
func ListGrowTo(mem *bufmem.Memory, headAddr int, idx int) (slotAddr int, err error) {
	if idx >= schema.MaxItems {
		return 0, xerrors.Errorf("cursor: list index %d exceeds capacity %d: %w", idx, schema.MaxItems, nperrors.CapacityExceeded)
	}
	count, err := listHeadCount(mem, headAddr)
	if err != nil {
		return 0, err
	}
	if idx < count {
		bodyAddr, err := listBodyAt(mem, headAddr, idx)
		if err != nil {
			return 0, err
		}
		if bodyAddr != 0 {
			return bodyAddr + 6, nil
		}
		return listInsertHole(mem, headAddr, idx)
	}
	for count <= idx {
		slotAddr, err = ListAppend(mem, headAddr)
		if err != nil {
			return 0, err
		}
		count++
	}
	return slotAddr, nil
}

// ListDelete unlinks the body record at idx, leaving a hole: only a
// trailing run of holes actually shrinks the chain's reported length,
// since every surviving element's reported index must stay
// stable. Deleting an index with no body record
// (already a hole, or never grown that far) is a no-op.
func ListDelete(mem *bufmem.Memory, headAddr int, idx int) error {
	bodyAddr, err := listBodyAt(mem, headAddr, idx)
	if err != nil {
		return err
	}
	if bodyAddr == 0 {
		return nil
	}
	prevU, err := mem.ReadU16(bodyAddr)
	if err != nil {
		return err
	}
	nextU, err := mem.ReadU16(bodyAddr + 2)
	if err != nil {
		return err
	}
	prev, next := int(prevU), int(nextU)
	first, err := listHeadFirst(mem, headAddr)
	if err != nil {
		return err
	}
	last, err := listHeadLast(mem, headAddr)
	if err != nil {
		return err
	}
	count, err := listHeadCount(mem, headAddr)
	if err != nil {
		return err
	}
	if prev != 0 {
		if err := mem.WriteU16(prev+2, uint16(next)); err != nil {
			return err
		}
	} else {
		first = next
	}
	if next != 0 {
		if err := mem.WriteU16(next, uint16(prev)); err != nil {
			return err
		}
	} else {
		last = prev
	}
	newCount := count
	if next == 0 {
		// idx was the trailing element: shrink the reported length down
		// to one past whatever is now the new tail (which may itself
		// already be several trailing holes short of the old count).
		if last == 0 {
			newCount = 0
		} else {
			lastIdx, err := listBodyIndex(mem, last)
			if err != nil {
				return err
			}
			newCount = lastIdx + 1
		}
	}
	return setListHead(mem, headAddr, first, last, newCount)
}

// ListIterate walks every present element in ascending index order,
// calling fn(index, valueAddr) until fn returns false or the chain ends.
func ListIterate(mem *bufmem.Memory, headAddr int, fn func(index int, valueAddr int) (bool, error)) error {
	cur, err := listHeadFirst(mem, headAddr)
	if err != nil {
		return err
	}
	for i := 0; cur != 0; i++ {
		if i > MaxHops {
			return errTooManyHops()
		}
		idx, err := mem.ReadU16(cur + 4)
		if err != nil {
			return err
		}
		val, err := mem.ReadU16(cur + 6)
		if err != nil {
			return err
		}
		cont, err := fn(int(idx), int(val))
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		next, err := mem.ReadU16(cur + 2)
		if err != nil {
			return err
		}
		cur = int(next)
	}
	return nil
}
