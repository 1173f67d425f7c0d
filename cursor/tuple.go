package cursor

import (
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/schema"
)

// TupleHeadSize returns the on-wire size of a tuple's own record. A
// sorted tuple is packed inline: the sum of every
// value's fixed width, with no pointer indirection, so the whole tuple
// is one contiguous byte-sortable run. An unsorted tuple instead gets a
// struct-shaped pointer array, one u16 slot per value.
func TupleHeadSize(node *schema.Node) (int, error) {
	if node.Sorted {
		w, ok := node.FixedWidth()
		if !ok {
			return 0, xerrors.Errorf("cursor: sorted tuple value is not fixed-width: %w", nperrors.SchemaInvalid)
		}
		return w, nil
	}
	return 2 * len(node.Children), nil
}

// tupleInlineOffset returns the byte offset, within a sorted tuple's
// record, of value index idx.
func tupleInlineOffset(node *schema.Node, idx int) (int, error) {
	off := 0
	for i := 0; i < idx; i++ {
		w, ok := node.Children[i].FixedWidth()
		if !ok {
			return 0, xerrors.Errorf("cursor: sorted tuple value is not fixed-width: %w", nperrors.SchemaInvalid)
		}
		off += w
	}
	return off, nil
}

func stepTuple(mem *bufmem.Memory, node *schema.Node, addr int, sel schema.Selector) (int, *schema.Node, error) {
	if sel.Kind != schema.SelIndex {
		return 0, nil, xerrors.Errorf("cursor: tuple requires an index selector: %w", nperrors.TypeMismatch)
	}
	idx := int(sel.Idx)
	if idx >= len(node.Children) {
		return 0, nil, xerrors.Errorf("cursor: tuple index %d out of range: %w", idx, nperrors.OutOfRange)
	}
	if node.Sorted {
		off, err := tupleInlineOffset(node, idx)
		if err != nil {
			return 0, nil, err
		}
		return addr + off, node.Children[idx], nil
	}
	v, err := mem.ReadU16(structSlotAddr(node, addr, idx))
	if err != nil {
		return 0, nil, err
	}
	return int(v), node.Children[idx], nil
}

// EnsureTupleHead allocates a tuple's record if addr is vacant. A sorted
// tuple's fresh record is pre-filled with every value's declared default
// (or its kind's zero bytes, if undeclared), since a sorted tuple has no
// notion of a vacant slot: every position must hold concrete bytes for
// lexicographic comparison to mean anything.
func EnsureTupleHead(mem *bufmem.Memory, node *schema.Node, addr int, parentSlotAddr int) (int, error) {
	if addr != 0 {
		return addr, nil
	}
	size, err := TupleHeadSize(node)
	if err != nil {
		return 0, err
	}
	headAddr, err := mem.Allocate(size)
	if err != nil {
		return 0, err
	}
	if node.Sorted {
		def, err := SortedTupleDefaultBytes(node)
		if err != nil {
			return 0, err
		}
		if err := mem.WriteBytes(headAddr, def); err != nil {
			return 0, err
		}
	}
	if err := mem.WriteU16(parentSlotAddr, uint16(headAddr)); err != nil {
		return 0, err
	}
	return headAddr, nil
}

// SortedTupleDefaultBytes computes the full pre-filled byte pattern for
// a freshly-allocated sorted tuple: each leaf's declared default (or
// zero bytes if undeclared), recursing into any nested sorted tuple. It
// is also what a never-materialized sorted tuple reads back as.
func SortedTupleDefaultBytes(node *schema.Node) ([]byte, error) {
	size, err := TupleHeadSize(node)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	off := 0
	for _, c := range node.Children {
		w, ok := c.FixedWidth()
		if !ok {
			return nil, xerrors.Errorf("cursor: sorted tuple value is not fixed-width: %w", nperrors.SchemaInvalid)
		}
		switch {
		case c.Kind == schema.KindTuple && c.Sorted:
			sub, err := SortedTupleDefaultBytes(c)
			if err != nil {
				return nil, err
			}
			copy(out[off:off+w], sub)
		case c.Default != nil:
			copy(out[off:off+w], c.Default)
		}
		off += w
	}
	return out, nil
}

// TupleValueSlot resolves where value idx's pointer lives in an
// unsorted tuple's already-materialized record, or its inline offset in
// a sorted one.
func TupleValueSlot(node *schema.Node, headAddr int, idx int) (slotAddr int, inline bool, child *schema.Node, err error) {
	if idx >= len(node.Children) {
		return 0, false, nil, xerrors.Errorf("cursor: tuple index %d out of range: %w", idx, nperrors.OutOfRange)
	}
	if node.Sorted {
		off, err := tupleInlineOffset(node, idx)
		if err != nil {
			return 0, false, nil, err
		}
		return headAddr + off, true, node.Children[idx], nil
	}
	return structSlotAddr(node, headAddr, idx), false, node.Children[idx], nil
}
