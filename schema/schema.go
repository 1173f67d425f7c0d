// Package schema implements the typed schema tree and its two
// equivalent encodings: the textual (JSON) form parsed in parse.go and
// the compiled byte form handled in compile.go.
//
// A Tree is immutable once built: the cursor engine (package cursor)
// only ever reads from it, mirroring how a Factory in the root noproto
// package owns one Tree and hands out buffer handles that share it.
package schema

import (
	"github.com/noproto-io/noproto/primitive"
)

// Kind is the closed set of schema node kinds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindDec
	KindString
	KindBytes
	KindUUID
	KindULID
	KindDate
	KindGeo
	KindOption
	KindStruct
	KindTuple
	KindList
	KindMap
	KindPortal
)

// String renders a Kind the way it appears in the textual schema form.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindDec:
		return "dec"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindUUID:
		return "uuid"
	case KindULID:
		return "ulid"
	case KindDate:
		return "date"
	case KindGeo:
		return "geo"
	case KindOption:
		return "option"
	case KindStruct:
		return "struct"
	case KindTuple:
		return "tuple"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindPortal:
		return "portal"
	default:
		return "invalid"
	}
}

// IsCollection reports whether a kind descends into children by
// selector rather than decoding directly to a scalar value.
func (k Kind) IsCollection() bool {
	switch k {
	case KindStruct, KindTuple, KindList, KindMap, KindPortal:
		return true
	default:
		return false
	}
}

// MaxItems is the cap on struct fields, option choices, tuple values,
// list items and map entries.
const MaxItems = 255

// MaxNameLen is the cap, in UTF-8 bytes, on struct field names, option
// choice strings and map keys.
const MaxNameLen = 255

// Node is one node of the schema tree. Not every field is meaningful for
// every Kind; see the per-kind comments below.
type Node struct {
	ID   int
	Kind Kind

	// Struct: Children[i] is the type of FieldNames[i].
	// Tuple: Children[i] is the type of positional value i.
	// List: Children[0] is the "of" element type.
	// Map: Children[0] is the "value" type.
	Children   []*Node
	FieldNames []string // struct only

	// Option only.
	Choices []string

	// String/Bytes only: 0 means variable width.
	FixedSize int
	Uppercase bool
	Lowercase bool

	// Dec only.
	Exp int8

	// Geo only: 4, 8, or 16.
	GeoSize int

	// Tuple only: explicit sortable flag.
	Sorted bool

	// Default holds the pre-encoded wire bytes for this node's default
	// value, or nil if none was declared.
	Default []byte

	// Portal only.
	PortalTo     string
	portalTarget *Node

	// declPath is this node's JSON-pointer-like position from the tree
	// root, recorded as the tree is built. Portal resolution does not
	// read it: it checks the target against the portal's ancestor nodes.
	declPath string
}

// FieldIndex returns the declared index of a struct field, or -1.
func (n *Node) FieldIndex(name string) int {
	for i, f := range n.FieldNames {
		if f == name {
			return i
		}
	}
	return -1
}

// ChoiceIndex returns the 1-indexed choice number for an option value,
// or 0 if name is not a declared choice.
func (n *Node) ChoiceIndex(name string) uint8 {
	for i, c := range n.Choices {
		if c == name {
			return uint8(i + 1)
		}
	}
	return 0
}

// FixedWidth returns the on-wire width of a fixed-width scalar kind, and
// false for anything variable-width or for a collection other than a
// sorted tuple, whose width is the sum of its values' widths. Sorted
// tuples use this to compute each child's inline offset.
func (n *Node) FixedWidth() (int, bool) {
	switch n.Kind {
	case KindBool:
		return primitive.WidthBool, true
	case KindI8, KindU8:
		return 1, true
	case KindI16, KindU16:
		return 2, true
	case KindI32, KindU32, KindF32:
		return 4, true
	case KindI64, KindU64, KindF64, KindDec, KindDate:
		return 8, true
	case KindUUID, KindULID:
		return 16, true
	case KindGeo:
		return n.GeoSize, true
	case KindOption:
		return primitive.WidthOption, true
	case KindString, KindBytes:
		if n.FixedSize > 0 {
			return n.FixedSize, true
		}
		return 0, false
	case KindTuple:
		if !n.Sorted {
			return 0, false
		}
		total := 0
		for _, c := range n.Children {
			w, ok := c.FixedWidth()
			if !ok {
				return 0, false
			}
			total += w
		}
		return total, true
	default:
		return 0, false
	}
}

// IsSortableScalar reports whether this scalar kind, on its own, is
// byte-sortable. Variable-width string/bytes and geo16 are
// the only scalar exceptions.
func (n *Node) IsSortableScalar() bool {
	switch n.Kind {
	case KindString, KindBytes:
		return n.FixedSize > 0
	case KindGeo:
		return n.GeoSize == primitive.Geo4 || n.GeoSize == primitive.Geo8
	case KindBool, KindI8, KindI16, KindI32, KindI64, KindU8, KindU16, KindU32, KindU64,
		KindF32, KindF64, KindDec, KindUUID, KindULID, KindDate, KindOption:
		return true
	default:
		return false
	}
}

// Tree is an immutable, fully-resolved schema tree.
type Tree struct {
	Root   *Node
	nodes  []*Node
	hasRPC bool
	api    APIDef
}

func (t *Tree) nextID() int {
	id := len(t.nodes)
	return id
}

func (t *Tree) register(n *Node) {
	n.ID = t.nextID()
	t.nodes = append(t.nodes, n)
}

// NodeCount returns the number of nodes in the tree's arena.
func (t *Tree) NodeCount() int { return len(t.nodes) }
