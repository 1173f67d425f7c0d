package noproto

import (
	"github.com/noproto-io/noproto/cursor"
	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/schema"
)

// Compact builds a fresh buffer holding only the current live value
// tree, copied in each collection's canonical order (struct fields and
// tuple positions declared order, list indices ascending, map keys in
// original insertion order), and returns it as a new handle sharing this
// buffer's schema.
func (b *Buffer) Compact() (*Buffer, error) {
	dst := bufmem.New(b.mem.Length())
	if _, err := dst.Allocate(reservedHeaderSize); err != nil {
		return nil, err
	}
	if err := dst.WriteByte(reservedTagOffset, formatTag); err != nil {
		return nil, err
	}
	rootAddr, err := b.rootPtr()
	if err != nil {
		return nil, err
	}
	if rootAddr == 0 {
		return &Buffer{tree: b.tree, mem: dst}, nil
	}
	node, err := schema.ResolvePortal(b.tree.Root)
	if err != nil {
		return nil, err
	}
	newRootAddr, err := copyValue(b.mem, dst, node, rootAddr)
	if err != nil {
		return nil, err
	}
	if err := dst.WriteU16(rootPtrOffset, uint16(newRootAddr)); err != nil {
		return nil, err
	}
	return &Buffer{tree: b.tree, mem: dst}, nil
}

// WastedBytes reports how many bytes a Compact would reclaim.
func (b *Buffer) WastedBytes() (int, error) {
	compacted, err := b.Compact()
	if err != nil {
		return 0, err
	}
	return b.mem.Length() - compacted.mem.Length(), nil
}

// MaybeCompact compacts only if the current dead space meets threshold,
// returning the original buffer unchanged (and compacted=false) otherwise.
func (b *Buffer) MaybeCompact(threshold int) (result *Buffer, compacted bool, err error) {
	fresh, err := b.Compact()
	if err != nil {
		return b, false, err
	}
	wasted := b.mem.Length() - fresh.mem.Length()
	if wasted < threshold {
		return b, false, nil
	}
	return fresh, true, nil
}

func copyValue(src, dst *bufmem.Memory, node *schema.Node, addr int) (int, error) {
	node, err := schema.ResolvePortal(node)
	if err != nil {
		return 0, err
	}
	switch node.Kind {
	case schema.KindStruct:
		return copyStruct(src, dst, node, addr)
	case schema.KindTuple:
		return copyTuple(src, dst, node, addr)
	case schema.KindList:
		return copyList(src, dst, node, addr)
	case schema.KindMap:
		return copyMap(src, dst, node, addr)
	default:
		raw, err := readScalarBytes(src, node, addr)
		if err != nil {
			return 0, err
		}
		return dst.AllocateWrite(raw)
	}
}

func copyStruct(src, dst *bufmem.Memory, node *schema.Node, addr int) (int, error) {
	headAddr, err := dst.Allocate(cursor.StructHeadSize(node))
	if err != nil {
		return 0, err
	}
	for i, name := range node.FieldNames {
		slotAddr, child, err := cursor.StructFieldSlot(node, addr, name)
		if err != nil {
			return 0, err
		}
		childAddr, err := src.ReadU16(slotAddr)
		if err != nil {
			return 0, err
		}
		if childAddr == 0 {
			continue
		}
		newChildAddr, err := copyValue(src, dst, child, int(childAddr))
		if err != nil {
			return 0, err
		}
		if err := dst.WriteU16(headAddr+2*i, uint16(newChildAddr)); err != nil {
			return 0, err
		}
	}
	return headAddr, nil
}

func copyTuple(src, dst *bufmem.Memory, node *schema.Node, addr int) (int, error) {
	size, err := cursor.TupleHeadSize(node)
	if err != nil {
		return 0, err
	}
	if node.Sorted {
		raw, err := src.ReadBytes(addr, size)
		if err != nil {
			return 0, err
		}
		return dst.AllocateWrite(raw)
	}
	headAddr, err := dst.Allocate(size)
	if err != nil {
		return 0, err
	}
	for i, child := range node.Children {
		slotAddr, inline, _, err := cursor.TupleValueSlot(node, addr, i)
		if err != nil {
			return 0, err
		}
		if inline {
			continue // unreachable for an unsorted tuple
		}
		childAddr, err := src.ReadU16(slotAddr)
		if err != nil {
			return 0, err
		}
		if childAddr == 0 {
			continue
		}
		newChildAddr, err := copyValue(src, dst, child, int(childAddr))
		if err != nil {
			return 0, err
		}
		if err := dst.WriteU16(headAddr+2*i, uint16(newChildAddr)); err != nil {
			return 0, err
		}
	}
	return headAddr, nil
}

// copyList rebuilds the list by re-growing the destination to each
// live source index in turn rather than blindly re-appending: the
// source may have interior holes (an unlinked delete) interleaved with
// live records, and re-appending sequentially would silently renumber
// the surviving indices, so the copy would no longer observe the same
// values. Growing to the same index in the fresh buffer reproduces
// any interior gap as a vacant-but-present body record instead, which
// observes identically (get() still yields the default) while never
// shifting a surviving element's index.
func copyList(src, dst *bufmem.Memory, node *schema.Node, addr int) (int, error) {
	newHeadAddr, err := dst.Allocate(cursor.ListHeadSize)
	if err != nil {
		return 0, err
	}
	child := node.Children[0]
	err = cursor.ListIterate(src, addr, func(index int, valAddr int) (bool, error) {
		slotAddr, aerr := cursor.ListGrowTo(dst, newHeadAddr, index)
		if aerr != nil {
			return false, aerr
		}
		if valAddr == 0 {
			return true, nil
		}
		newValAddr, cerr := copyValue(src, dst, child, valAddr)
		if cerr != nil {
			return false, cerr
		}
		return true, dst.WriteU16(slotAddr, uint16(newValAddr))
	})
	return newHeadAddr, err
}

// copyMap rebuilds the map by reinserting entries in their original
// insertion order: MapIterate visits newest-first, so reversing that
// walk and reinserting (which itself prepends) reproduces the identical
// newest-first chain in the fresh buffer, while the copy as a whole
// satisfies compact's "insertion order" canonical form.
func copyMap(src, dst *bufmem.Memory, node *schema.Node, addr int) (int, error) {
	newHeadAddr, err := dst.Allocate(cursor.MapHeadSize)
	if err != nil {
		return 0, err
	}
	type entry struct {
		key     string
		valAddr int
	}
	var entries []entry
	err = cursor.MapIterate(src, addr, func(key string, valAddr int) (bool, error) {
		entries = append(entries, entry{key, valAddr})
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	child := node.Children[0]
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		slotAddr, err := cursor.MapEnsureSlot(dst, newHeadAddr, e.key)
		if err != nil {
			return 0, err
		}
		if e.valAddr == 0 {
			continue
		}
		newValAddr, err := copyValue(src, dst, child, e.valAddr)
		if err != nil {
			return 0, err
		}
		if err := dst.WriteU16(slotAddr, uint16(newValAddr)); err != nil {
			return 0, err
		}
	}
	return newHeadAddr, nil
}
