package cursor

import (
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/schema"
)

// Slot is where a value's bytes are (or will be) written. Inline means
// Addr holds the value directly (the root value itself, or a sorted
// tuple's member): a write there must be exactly node.FixedWidth() bytes,
// in place, never reallocated. A non-inline slot holds a u16 pointer:
// the caller allocates the value's bytes wherever it likes and writes
// that address into Addr.
type Slot struct {
	Addr   int
	Inline bool
}

// CurrentAddr returns the value address presently referenced by slot:
// for an inline slot that is simply its own address (a sorted tuple
// member always holds concrete bytes), for a pointer slot it is
// whatever mem.ReadU16(slot.Addr) returns (0 if nothing written yet).
func (s Slot) CurrentAddr(mem *bufmem.Memory) (int, error) {
	if s.Inline {
		return s.Addr, nil
	}
	v, err := mem.ReadU16(s.Addr)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Write points a non-inline slot at a new value address. It is an error
// to call this on an inline slot: the caller should instead overwrite
// the bytes at s.Addr directly.
func (s Slot) Write(mem *bufmem.Memory, valueAddr int) error {
	if s.Inline {
		return xerrors.Errorf("cursor: cannot repoint an inline slot: %w", nperrors.TypeMismatch)
	}
	return mem.WriteU16(s.Addr, uint16(valueAddr))
}

// Ensure walks path from rootAddr (which must already be materialized:
// the caller is responsible for the root container itself, since its
// address lives in the buffer's reserved root pointer rather than a
// generic parent slot), lazily allocating every intermediate collection
// head it passes through, and returns the Slot for path's final
// selector along with its resolved (non-portal) schema node.
//
// Ensure never allocates the final value's own bytes: that is left to
// the caller, which knows how to encode the scalar (or pre-fill a fresh
// nested collection) being written.
func Ensure(mem *bufmem.Memory, tree *schema.Tree, rootAddr int, path schema.Path) (Slot, *schema.Node, error) {
	if len(path) == 0 {
		node, err := schema.ResolvePortal(tree.Root)
		if err != nil {
			return Slot{}, nil, err
		}
		return Slot{Addr: rootAddr, Inline: true}, node, nil
	}
	node, err := schema.ResolvePortal(tree.Root)
	if err != nil {
		return Slot{}, nil, err
	}
	addr := rootAddr
	for i, sel := range path {
		slot, childNode, err := ensureSlot(mem, node, addr, sel)
		if err != nil {
			return Slot{}, nil, err
		}
		// A portal child substitutes its target schema node with zero
		// byte overhead: resolve it before deciding what
		// kind of record, if any, to materialize behind the slot.
		childNode, err = schema.ResolvePortal(childNode)
		if err != nil {
			return Slot{}, nil, err
		}
		if i == len(path)-1 {
			return slot, childNode, nil
		}
		childAddr, err := slot.CurrentAddr(mem)
		if err != nil {
			return Slot{}, nil, err
		}
		addr, err = ensureCollection(mem, childNode, childAddr, slot)
		if err != nil {
			return Slot{}, nil, err
		}
		node = childNode
	}
	panic("cursor: unreachable")
}

// ensureSlot locates sel's slot within the collection at addr (which
// must already exist) without allocating the child's own value.
func ensureSlot(mem *bufmem.Memory, node *schema.Node, addr int, sel schema.Selector) (Slot, *schema.Node, error) {
	switch node.Kind {
	case schema.KindStruct:
		if sel.Kind != schema.SelField {
			return Slot{}, nil, xerrors.Errorf("cursor: struct requires a field selector: %w", nperrors.TypeMismatch)
		}
		slotAddr, child, err := StructFieldSlot(node, addr, sel.Name)
		if err != nil {
			return Slot{}, nil, err
		}
		return Slot{Addr: slotAddr}, child, nil
	case schema.KindTuple:
		if sel.Kind != schema.SelIndex {
			return Slot{}, nil, xerrors.Errorf("cursor: tuple requires an index selector: %w", nperrors.TypeMismatch)
		}
		slotAddr, inline, child, err := TupleValueSlot(node, addr, int(sel.Idx))
		if err != nil {
			return Slot{}, nil, err
		}
		return Slot{Addr: slotAddr, Inline: inline}, child, nil
	case schema.KindList:
		if sel.Kind != schema.SelIndex {
			return Slot{}, nil, xerrors.Errorf("cursor: list requires an index selector: %w", nperrors.TypeMismatch)
		}
		slotAddr, err := ListGrowTo(mem, addr, int(sel.Idx))
		if err != nil {
			return Slot{}, nil, err
		}
		return Slot{Addr: slotAddr}, node.Children[0], nil
	case schema.KindMap:
		if sel.Kind != schema.SelKey {
			return Slot{}, nil, xerrors.Errorf("cursor: map requires a key selector: %w", nperrors.TypeMismatch)
		}
		slotAddr, err := MapEnsureSlot(mem, addr, sel.Name)
		if err != nil {
			return Slot{}, nil, err
		}
		return Slot{Addr: slotAddr}, node.Children[0], nil
	default:
		return Slot{}, nil, xerrors.Errorf("cursor: %s has no children: %w", node.Kind, nperrors.TypeMismatch)
	}
}

// ensureCollection materializes node's own record at childAddr if it is
// vacant, wiring the fresh address back into slot, and returns the
// now-guaranteed-valid address to keep descending from.
func ensureCollection(mem *bufmem.Memory, node *schema.Node, childAddr int, slot Slot) (int, error) {
	if slot.Inline {
		return childAddr, nil
	}
	switch node.Kind {
	case schema.KindStruct:
		return EnsureStructHead(mem, node, childAddr, slot.Addr)
	case schema.KindTuple:
		return EnsureTupleHead(mem, node, childAddr, slot.Addr)
	case schema.KindList:
		return EnsureListHead(mem, childAddr, slot.Addr)
	case schema.KindMap:
		return EnsureMapHead(mem, childAddr, slot.Addr)
	default:
		return 0, xerrors.Errorf("cursor: %s cannot be descended into: %w", node.Kind, nperrors.TypeMismatch)
	}
}
