package cursor

import (
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/schema"
)

// StructHeadSize returns the size, in bytes, of a struct's head record:
// one u16 pointer slot per declared field.
func StructHeadSize(node *schema.Node) int {
	return 2 * len(node.Children)
}

func structSlotAddr(node *schema.Node, headAddr int, idx int) int {
	return headAddr + 2*idx
}

func stepStruct(mem *bufmem.Memory, node *schema.Node, headAddr int, sel schema.Selector) (int, *schema.Node, error) {
	if sel.Kind != schema.SelField {
		return 0, nil, xerrors.Errorf("cursor: struct requires a field selector: %w", nperrors.TypeMismatch)
	}
	idx := node.FieldIndex(sel.Name)
	if idx < 0 {
		return 0, nil, xerrors.Errorf("cursor: unknown field %q: %w", sel.Name, nperrors.TypeMismatch)
	}
	v, err := mem.ReadU16(structSlotAddr(node, headAddr, idx))
	if err != nil {
		return 0, nil, err
	}
	return int(v), node.Children[idx], nil
}

// EnsureStructHead allocates a struct's head record if addr is vacant,
// wiring slot's new address into parentSlotAddr. It returns the head's
// address either way.
func EnsureStructHead(mem *bufmem.Memory, node *schema.Node, addr int, parentSlotAddr int) (int, error) {
	if addr != 0 {
		return addr, nil
	}
	headAddr, err := mem.Allocate(StructHeadSize(node))
	if err != nil {
		return 0, err
	}
	if err := mem.WriteU16(parentSlotAddr, uint16(headAddr)); err != nil {
		return 0, err
	}
	return headAddr, nil
}

// StructFieldSlot resolves the field slot address for a write: it does
// not allocate the field's value, only identifies where its pointer
// lives within an already-materialized struct head.
func StructFieldSlot(node *schema.Node, headAddr int, name string) (slotAddr int, child *schema.Node, err error) {
	idx := node.FieldIndex(name)
	if idx < 0 {
		return 0, nil, xerrors.Errorf("cursor: unknown field %q: %w", name, nperrors.TypeMismatch)
	}
	return structSlotAddr(node, headAddr, idx), node.Children[idx], nil
}
