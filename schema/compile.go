package schema

import (
	"github.com/valyala/bytebufferpool"
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/nperrors"
)

// Compile renders t as the compact binary schema form: for every node,
// a 1-byte kind tag, a kind-specific header (folding in the optional
// default block), a 1-byte child count, then the children themselves,
// recursively. bytebufferpool keeps the scratch buffer off the
// allocator on the hot schema-load path.
func Compile(t *Tree) []byte {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	writeNode(bb, t.Root)
	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())
	return out
}

func writeNode(bb *bytebufferpool.ByteBuffer, n *Node) {
	bb.WriteByte(byte(n.Kind))

	if n.Default != nil {
		bb.WriteByte(1)
		writeU16(bb, uint16(len(n.Default)))
		bb.Write(n.Default)
	} else {
		bb.WriteByte(0)
	}

	switch n.Kind {
	case KindDec:
		bb.WriteByte(byte(n.Exp))
	case KindString, KindBytes:
		var flags byte
		if n.Uppercase {
			flags |= 0x01
		}
		if n.Lowercase {
			flags |= 0x02
		}
		bb.WriteByte(flags)
		writeU16(bb, uint16(n.FixedSize))
	case KindGeo:
		bb.WriteByte(byte(n.GeoSize))
	case KindOption:
		bb.WriteByte(byte(len(n.Choices)))
		for _, c := range n.Choices {
			bb.WriteByte(byte(len(c)))
			bb.WriteString(c)
		}
	case KindTuple:
		if n.Sorted {
			bb.WriteByte(1)
		} else {
			bb.WriteByte(0)
		}
	case KindPortal:
		writeU16(bb, uint16(len(n.PortalTo)))
		bb.WriteString(n.PortalTo)
	}

	switch n.Kind {
	case KindStruct:
		bb.WriteByte(byte(len(n.Children)))
		for i, c := range n.Children {
			name := n.FieldNames[i]
			bb.WriteByte(byte(len(name)))
			bb.WriteString(name)
			writeNode(bb, c)
		}
	case KindTuple, KindList, KindMap:
		bb.WriteByte(byte(len(n.Children)))
		for _, c := range n.Children {
			writeNode(bb, c)
		}
	default:
		bb.WriteByte(0)
	}
}

func writeU16(bb *bytebufferpool.ByteBuffer, v uint16) {
	bb.WriteByte(byte(v >> 8))
	bb.WriteByte(byte(v))
}

// byteCursor is a minimal bounds-checked reader over a compiled schema's
// bytes, kept separate from package cursor's traversal: this one walks the fixed,
// trusted-at-parse-time schema description, not the mutable data buffer.
type byteCursor struct {
	b   []byte
	pos int
}

func (c *byteCursor) u8() (byte, error) {
	if c.pos+1 > len(c.b) {
		return 0, xerrors.Errorf("schema: truncated compiled schema: %w", nperrors.Malformed)
	}
	v := c.b[c.pos]
	c.pos++
	return v, nil
}

func (c *byteCursor) u16() (uint16, error) {
	if c.pos+2 > len(c.b) {
		return 0, xerrors.Errorf("schema: truncated compiled schema: %w", nperrors.Malformed)
	}
	v := uint16(c.b[c.pos])<<8 | uint16(c.b[c.pos+1])
	c.pos += 2
	return v, nil
}

func (c *byteCursor) bytes(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.b) {
		return nil, xerrors.Errorf("schema: truncated compiled schema: %w", nperrors.Malformed)
	}
	v := c.b[c.pos : c.pos+n]
	c.pos += n
	return v, nil
}

// Decompile reverses Compile. Like Parse, it finishes with a
// portal-resolution pass over the whole tree.
func Decompile(data []byte) (*Tree, error) {
	t := &Tree{}
	c := &byteCursor{b: data}
	pending := &pendingPortals{}
	root, err := readNode(t, c, "", nil, pending)
	if err != nil {
		return nil, err
	}
	t.Root = root
	if err := pending.resolve(); err != nil {
		return nil, err
	}
	return t, nil
}

func readNode(t *Tree, c *byteCursor, declPath string, ancestors []*Node, pending *pendingPortals) (*Node, error) {
	kindByte, err := c.u8()
	if err != nil {
		return nil, err
	}
	n := &Node{Kind: Kind(kindByte), declPath: declPath}
	if n.Kind < KindBool || n.Kind > KindPortal {
		return nil, xerrors.Errorf("schema: unknown compiled kind %d: %w", kindByte, nperrors.Malformed)
	}

	hasDefault, err := c.u8()
	if err != nil {
		return nil, err
	}
	if hasDefault != 0 {
		length, err := c.u16()
		if err != nil {
			return nil, err
		}
		def, err := c.bytes(int(length))
		if err != nil {
			return nil, err
		}
		n.Default = append([]byte(nil), def...)
	}

	switch n.Kind {
	case KindDec:
		v, err := c.u8()
		if err != nil {
			return nil, err
		}
		n.Exp = int8(v)
	case KindString, KindBytes:
		flags, err := c.u8()
		if err != nil {
			return nil, err
		}
		n.Uppercase = flags&0x01 != 0
		n.Lowercase = flags&0x02 != 0
		size, err := c.u16()
		if err != nil {
			return nil, err
		}
		n.FixedSize = int(size)
	case KindGeo:
		size, err := c.u8()
		if err != nil {
			return nil, err
		}
		n.GeoSize = int(size)
	case KindOption:
		count, err := c.u8()
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(count); i++ {
			l, err := c.u8()
			if err != nil {
				return nil, err
			}
			cb, err := c.bytes(int(l))
			if err != nil {
				return nil, err
			}
			n.Choices = append(n.Choices, string(cb))
		}
	case KindTuple:
		v, err := c.u8()
		if err != nil {
			return nil, err
		}
		n.Sorted = v != 0
	case KindPortal:
		l, err := c.u16()
		if err != nil {
			return nil, err
		}
		pb, err := c.bytes(int(l))
		if err != nil {
			return nil, err
		}
		n.PortalTo = string(pb)
	}

	t.register(n)

	childCount, err := c.u8()
	if err != nil {
		return nil, err
	}

	switch n.Kind {
	case KindStruct:
		childAncestors := append(append([]*Node{}, ancestors...), n)
		for i := 0; i < int(childCount); i++ {
			l, err := c.u8()
			if err != nil {
				return nil, err
			}
			nameb, err := c.bytes(int(l))
			if err != nil {
				return nil, err
			}
			child, err := readNode(t, c, declPath+"/"+string(nameb), childAncestors, pending)
			if err != nil {
				return nil, err
			}
			n.FieldNames = append(n.FieldNames, string(nameb))
			n.Children = append(n.Children, child)
		}
	case KindTuple:
		childAncestors := append(append([]*Node{}, ancestors...), n)
		for i := 0; i < int(childCount); i++ {
			child, err := readNode(t, c, declPath, childAncestors, pending)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	case KindList, KindMap:
		childAncestors := append(append([]*Node{}, ancestors...), n)
		for i := 0; i < int(childCount); i++ {
			child, err := readNode(t, c, declPath, childAncestors, pending)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	case KindPortal:
		pending.add(n, ancestors)
	}

	return n, nil
}
