package noproto

import (
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/cursor"
	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/primitive"
	"github.com/noproto-io/noproto/schema"
	"github.com/noproto-io/noproto/sortable"
)

// Buffer is a handle on one buffer's bytes, sharing its schema tree with
// the Factory that opened it. A Buffer is not safe for
// concurrent writers; concurrent readers of the same already-closed
// bytes are fine.
type Buffer struct {
	tree *schema.Tree
	mem  *bufmem.Memory
}

// Tree returns the schema this buffer is interpreted under.
func (b *Buffer) Tree() *schema.Tree { return b.tree }

// Close yields the buffer's current bytes.
func (b *Buffer) Close() []byte { return closeBytes(b.mem) }

func (b *Buffer) rootPtr() (int, error) {
	v, err := b.mem.ReadU16(rootPtrOffset)
	return int(v), err
}

func (b *Buffer) setRootPtr(addr int) error {
	return b.mem.WriteU16(rootPtrOffset, uint16(addr))
}

// Get traverses path and returns its value: the decoded scalar, whether
// a value was available (true for a stored value and for a declared
// schema default standing in for a vacant one; false, with a nil value,
// when nothing is stored and no default is declared), and an error. Getting a collection path directly is a TypeMismatch;
// use Length/Iterate for those.
func (b *Buffer) Get(path schema.Path) (any, bool, error) {
	rootAddr, err := b.rootPtr()
	if err != nil {
		return nil, false, err
	}
	res, err := cursor.Resolve(b.mem, b.tree, rootAddr, path)
	if err != nil {
		return nil, false, err
	}
	if res.Node.Kind.IsCollection() {
		return nil, false, xerrors.Errorf("noproto: %s is a collection, use Length/Iterate: %w", res.Node.Kind, nperrors.TypeMismatch)
	}
	if res.Addr == 0 {
		if res.Node.Default == nil {
			return nil, false, nil
		}
		v, err := DecodeScalar(res.Node, res.Node.Default)
		return v, err == nil, err
	}
	raw, err := readScalarBytes(b.mem, res.Node, res.Addr)
	if err != nil {
		return nil, false, err
	}
	v, err := DecodeScalar(res.Node, raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set traverses path, lazily materializing every intermediate collection
// head, and assigns value at the terminal selector. Setting
// a collection path directly (rather than one of its scalar leaves) is
// a TypeMismatch.
func (b *Buffer) Set(path schema.Path, value any) error {
	if len(path) == 0 {
		return b.setRoot(value)
	}
	rootAddr, err := b.ensureRootCollection()
	if err != nil {
		return err
	}
	slot, node, err := cursor.Ensure(b.mem, b.tree, rootAddr, path)
	if err != nil {
		return err
	}
	if node.Kind.IsCollection() {
		return xerrors.Errorf("noproto: %s is a collection, cannot Set directly: %w", node.Kind, nperrors.TypeMismatch)
	}
	encoded, err := EncodeScalar(node, value)
	if err != nil {
		return err
	}
	return b.writeSlot(slot, node, encoded)
}

// SetMin assigns path's terminal node the smallest value its sortable
// encoding can represent: the all-zero byte pattern.
func (b *Buffer) SetMin(path schema.Path) error { return b.setExtreme(path, extremeMin) }

// SetMax assigns path's terminal node the largest value its sortable
// encoding can represent: the all-ones byte pattern.
func (b *Buffer) SetMax(path schema.Path) error { return b.setExtreme(path, extremeMax) }

const (
	extremeMin = false
	extremeMax = true
)

func (b *Buffer) setExtreme(path schema.Path, max bool) error {
	extremeBytes := func(node *schema.Node) ([]byte, error) {
		width, ok := node.FixedWidth()
		if !ok {
			return nil, xerrors.Errorf("noproto: %s has no fixed-width sortable encoding: %w", node.Kind, nperrors.SchemaInvalid)
		}
		if max {
			return primitive.MaxBytes(width), nil
		}
		return primitive.MinBytes(width), nil
	}
	if len(path) == 0 {
		node, err := schema.ResolvePortal(b.tree.Root)
		if err != nil {
			return err
		}
		if node.Kind.IsCollection() {
			return xerrors.Errorf("noproto: root %s is a collection, set its fields individually: %w", node.Kind, nperrors.TypeMismatch)
		}
		encoded, err := extremeBytes(node)
		if err != nil {
			return err
		}
		return b.writeRoot(node, encoded)
	}
	rootAddr, err := b.ensureRootCollection()
	if err != nil {
		return err
	}
	slot, node, err := cursor.Ensure(b.mem, b.tree, rootAddr, path)
	if err != nil {
		return err
	}
	if node.Kind.IsCollection() {
		return xerrors.Errorf("noproto: %s is a collection, cannot Set directly: %w", node.Kind, nperrors.TypeMismatch)
	}
	encoded, err := extremeBytes(node)
	if err != nil {
		return err
	}
	return b.writeSlot(slot, node, encoded)
}

func (b *Buffer) writeSlot(slot cursor.Slot, node *schema.Node, encoded []byte) error {
	if slot.Inline {
		return b.mem.WriteBytes(slot.Addr, encoded)
	}
	curAddr, err := slot.CurrentAddr(b.mem)
	if err != nil {
		return err
	}
	if curAddr != 0 {
		if width, ok := node.FixedWidth(); ok && len(encoded) == width {
			return b.mem.WriteBytes(curAddr, encoded)
		}
	}
	newAddr, err := b.mem.AllocateWrite(encoded)
	if err != nil {
		return err
	}
	return slot.Write(b.mem, newAddr)
}

func (b *Buffer) setRoot(value any) error {
	node, err := schema.ResolvePortal(b.tree.Root)
	if err != nil {
		return err
	}
	if node.Kind.IsCollection() {
		return xerrors.Errorf("noproto: root %s is a collection, set its fields individually: %w", node.Kind, nperrors.TypeMismatch)
	}
	encoded, err := EncodeScalar(node, value)
	if err != nil {
		return err
	}
	return b.writeRoot(node, encoded)
}

func (b *Buffer) writeRoot(node *schema.Node, encoded []byte) error {
	rootAddr, err := b.rootPtr()
	if err != nil {
		return err
	}
	if rootAddr != 0 {
		if width, ok := node.FixedWidth(); ok && len(encoded) == width {
			return b.mem.WriteBytes(rootAddr, encoded)
		}
	}
	newAddr, err := b.mem.AllocateWrite(encoded)
	if err != nil {
		return err
	}
	return b.setRootPtr(newAddr)
}

// ensureRootCollection materializes the root collection record if it is
// not yet present, since the root has no generic parent slot of its own:
// its address lives in the buffer's reserved header.
func (b *Buffer) ensureRootCollection() (int, error) {
	node, err := schema.ResolvePortal(b.tree.Root)
	if err != nil {
		return 0, err
	}
	rootAddr, err := b.rootPtr()
	if err != nil {
		return 0, err
	}
	if rootAddr != 0 {
		return rootAddr, nil
	}
	switch node.Kind {
	case schema.KindStruct:
		return cursor.EnsureStructHead(b.mem, node, 0, rootPtrOffset)
	case schema.KindTuple:
		return cursor.EnsureTupleHead(b.mem, node, 0, rootPtrOffset)
	case schema.KindList:
		return cursor.EnsureListHead(b.mem, 0, rootPtrOffset)
	case schema.KindMap:
		return cursor.EnsureMapHead(b.mem, 0, rootPtrOffset)
	default:
		return 0, xerrors.Errorf("noproto: root %s is not a collection: %w", node.Kind, nperrors.TypeMismatch)
	}
}

// SortableBytes renders this buffer's root sorted tuple as a standalone
// byte-comparable key. A buffer whose tuple was never
// materialized yields the schema's default pattern, the same bytes a
// fresh Set of any one member would have started from.
func (b *Buffer) SortableBytes() ([]byte, error) {
	root, err := schema.ResolvePortal(b.tree.Root)
	if err != nil {
		return nil, err
	}
	rootAddr, err := b.rootPtr()
	if err != nil {
		return nil, err
	}
	if rootAddr == 0 {
		if root.Kind != schema.KindTuple || !root.Sorted {
			return nil, xerrors.Errorf("noproto: schema root is not a sorted tuple: %w", nperrors.TypeMismatch)
		}
		return cursor.SortedTupleDefaultBytes(root)
	}
	return sortable.ToBytes(b.tree, b.mem, rootAddr)
}

// Del traverses to path's parent and removes the terminal selector, if
// present. Deleting an absent value is a no-op, not an error.
func (b *Buffer) Del(path schema.Path) error {
	if len(path) == 0 {
		return b.setRootPtr(0)
	}
	rootAddr, err := b.rootPtr()
	if err != nil {
		return err
	}
	if rootAddr == 0 {
		return nil
	}
	parentPath, last := path[:len(path)-1], path[len(path)-1]
	parentRes, err := cursor.Resolve(b.mem, b.tree, rootAddr, parentPath)
	if err != nil {
		return err
	}
	if parentRes.Addr == 0 {
		return nil
	}
	node := parentRes.Node
	switch node.Kind {
	case schema.KindStruct:
		if last.Kind != schema.SelField {
			return xerrors.Errorf("noproto: struct requires a field selector: %w", nperrors.TypeMismatch)
		}
		slotAddr, _, err := cursor.StructFieldSlot(node, parentRes.Addr, last.Name)
		if err != nil {
			return err
		}
		return b.mem.WriteU16(slotAddr, 0)
	case schema.KindTuple:
		if last.Kind != schema.SelIndex {
			return xerrors.Errorf("noproto: tuple requires an index selector: %w", nperrors.TypeMismatch)
		}
		slotAddr, inline, _, err := cursor.TupleValueSlot(node, parentRes.Addr, int(last.Idx))
		if err != nil {
			return err
		}
		if inline {
			return xerrors.Errorf("noproto: cannot delete a sorted tuple member: %w", nperrors.TypeMismatch)
		}
		return b.mem.WriteU16(slotAddr, 0)
	case schema.KindList:
		if last.Kind != schema.SelIndex {
			return xerrors.Errorf("noproto: list requires an index selector: %w", nperrors.TypeMismatch)
		}
		count, err := cursor.ListLength(b.mem, parentRes.Addr)
		if err != nil {
			return err
		}
		if int(last.Idx) >= count {
			return nil
		}
		return cursor.ListDelete(b.mem, parentRes.Addr, int(last.Idx))
	case schema.KindMap:
		if last.Kind != schema.SelKey {
			return xerrors.Errorf("noproto: map requires a key selector: %w", nperrors.TypeMismatch)
		}
		_, err := cursor.MapDelete(b.mem, parentRes.Addr, last.Name)
		return err
	default:
		return xerrors.Errorf("noproto: %s has no children to delete: %w", node.Kind, nperrors.TypeMismatch)
	}
}

// Length returns a list or map's element count, or a struct/tuple's
// declared field count.
func (b *Buffer) Length(path schema.Path) (int, error) {
	rootAddr, err := b.rootPtr()
	if err != nil {
		return 0, err
	}
	res, err := cursor.Resolve(b.mem, b.tree, rootAddr, path)
	if err != nil {
		return 0, err
	}
	switch res.Node.Kind {
	case schema.KindList:
		if res.Addr == 0 {
			return 0, nil
		}
		return cursor.ListLength(b.mem, res.Addr)
	case schema.KindMap:
		if res.Addr == 0 {
			return 0, nil
		}
		return cursor.MapLength(b.mem, res.Addr)
	case schema.KindStruct, schema.KindTuple:
		return len(res.Node.Children), nil
	default:
		return 0, xerrors.Errorf("noproto: %s has no length: %w", res.Node.Kind, nperrors.TypeMismatch)
	}
}

// IterFunc is called once per present child of an iterated collection,
// with the selector that reaches it from the collection's own path.
// Returning false stops iteration early.
type IterFunc func(sel schema.Selector) (cont bool, err error)

// Iterate walks path's collection in its kind's canonical order (struct
// fields and tuple positions in declared order, skipping vacant ones;
// list indices by link order, which is ascending since the chain is kept
// sorted by stored index; map keys newest-insert-first), restartable since it
// never consumes anything but the buffer's own bytes.
func (b *Buffer) Iterate(path schema.Path, fn IterFunc) error {
	rootAddr, err := b.rootPtr()
	if err != nil {
		return err
	}
	res, err := cursor.Resolve(b.mem, b.tree, rootAddr, path)
	if err != nil {
		return err
	}
	if res.Addr == 0 {
		return nil
	}
	switch res.Node.Kind {
	case schema.KindStruct:
		for _, name := range res.Node.FieldNames {
			slotAddr, _, err := cursor.StructFieldSlot(res.Node, res.Addr, name)
			if err != nil {
				return err
			}
			v, err := b.mem.ReadU16(slotAddr)
			if err != nil {
				return err
			}
			if v == 0 {
				continue
			}
			cont, err := fn(schema.Field(name))
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	case schema.KindTuple:
		for i := range res.Node.Children {
			slotAddr, inline, _, err := cursor.TupleValueSlot(res.Node, res.Addr, i)
			if err != nil {
				return err
			}
			present := inline
			if !inline {
				v, err := b.mem.ReadU16(slotAddr)
				if err != nil {
					return err
				}
				present = v != 0
			}
			if !present {
				continue
			}
			cont, err := fn(schema.Index(uint8(i)))
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	case schema.KindList:
		return cursor.ListIterate(b.mem, res.Addr, func(idx, valAddr int) (bool, error) {
			if valAddr == 0 {
				return true, nil
			}
			return fn(schema.Index(uint8(idx)))
		})
	case schema.KindMap:
		return cursor.MapIterate(b.mem, res.Addr, func(key string, _ int) (bool, error) {
			return fn(schema.Key(key))
		})
	default:
		return xerrors.Errorf("noproto: %s cannot be iterated: %w", res.Node.Kind, nperrors.TypeMismatch)
	}
}
