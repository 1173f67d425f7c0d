package schema

import (
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/nperrors"
)

// MaxPortalDepth bounds a chain of consecutive portal-to-portal
// resolutions, the schema-level counterpart of the cursor engine's
// MaxHops bound on link walks.
const MaxPortalDepth = 255

// ResolvePortal follows n if it is a portal, returning the first
// non-portal node it reaches. Non-portal nodes are returned unchanged.
func ResolvePortal(n *Node) (*Node, error) {
	cur := n
	for i := 0; i < MaxPortalDepth; i++ {
		if cur.Kind != KindPortal {
			return cur, nil
		}
		if cur.portalTarget == nil {
			return nil, nperrors.PortalUnresolved
		}
		cur = cur.portalTarget
	}
	return nil, xerrors.Errorf("schema: portal chain exceeds %d hops: %w", MaxPortalDepth, nperrors.Malformed)
}

// IsSortableSubtree reports whether n, recursively, is byte-sortable: a
// sortable scalar, or a tuple explicitly declared sorted whose every
// value is itself sortable.
func IsSortableSubtree(n *Node) bool {
	if n.Kind == KindTuple {
		if !n.Sorted {
			return false
		}
		for _, c := range n.Children {
			if !IsSortableSubtree(c) {
				return false
			}
		}
		return true
	}
	return n.IsSortableScalar()
}

// SelectorKind distinguishes the three ways a Path step can address a
// child: by struct field name, by list/tuple index, or by map key.
type SelectorKind uint8

const (
	SelField SelectorKind = iota
	SelIndex
	SelKey
)

// Selector is one step of a Path.
type Selector struct {
	Kind SelectorKind
	Name string // SelField, SelKey
	Idx  uint8  // SelIndex
}

// Field builds a struct-field selector.
func Field(name string) Selector { return Selector{Kind: SelField, Name: name} }

// Index builds a list/tuple positional selector.
func Index(i uint8) Selector { return Selector{Kind: SelIndex, Idx: i} }

// Key builds a map-key selector.
func Key(k string) Selector { return Selector{Kind: SelKey, Name: k} }

// Path is an ordered sequence of selectors from a buffer's root value
// down to the value being addressed.
type Path []Selector

// TypeAt resolves the schema node reachable by path from the tree
// root, transparently following any portal encountered along the way
// (including at path's end). It never touches buffer bytes: it only
// walks the schema.
func (t *Tree) TypeAt(path Path) (*Node, error) {
	return Descend(t.Root, path)
}

// Descend resolves path against n the same way TypeAt does from the
// tree root. The cursor engine uses it to keep walking the schema once
// a traversal hits a vacant address: the buffer has nothing further to
// say, but the terminal node still determines the default the caller
// falls back to.
func Descend(n *Node, path Path) (*Node, error) {
	cur, err := ResolvePortal(n)
	if err != nil {
		return nil, err
	}
	for _, sel := range path {
		switch cur.Kind {
		case KindStruct:
			if sel.Kind != SelField {
				return nil, xerrors.Errorf("schema: struct requires a field selector: %w", nperrors.TypeMismatch)
			}
			idx := cur.FieldIndex(sel.Name)
			if idx < 0 {
				return nil, xerrors.Errorf("schema: unknown field %q: %w", sel.Name, nperrors.TypeMismatch)
			}
			cur = cur.Children[idx]
		case KindTuple:
			if sel.Kind != SelIndex {
				return nil, xerrors.Errorf("schema: tuple requires an index selector: %w", nperrors.TypeMismatch)
			}
			if int(sel.Idx) >= len(cur.Children) {
				return nil, xerrors.Errorf("schema: tuple index %d out of range: %w", sel.Idx, nperrors.TypeMismatch)
			}
			cur = cur.Children[sel.Idx]
		case KindList:
			if sel.Kind != SelIndex {
				return nil, xerrors.Errorf("schema: list requires an index selector: %w", nperrors.TypeMismatch)
			}
			cur = cur.Children[0]
		case KindMap:
			if sel.Kind != SelKey {
				return nil, xerrors.Errorf("schema: map requires a key selector: %w", nperrors.TypeMismatch)
			}
			cur = cur.Children[0]
		default:
			return nil, xerrors.Errorf("schema: %s has no children: %w", cur.Kind, nperrors.TypeMismatch)
		}
		var err error
		cur, err = ResolvePortal(cur)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// DefaultBytesAt returns the pre-encoded default bytes declared for the
// node at path, if any.
func (t *Tree) DefaultBytesAt(path Path) ([]byte, bool, error) {
	n, err := t.TypeAt(path)
	if err != nil {
		return nil, false, err
	}
	return n.Default, n.Default != nil, nil
}
