// Package noproto is the public buffer façade: the
// get/set/delete/length/iterate/close/compact surface built on top of
// the cursor engine, plus the dynamic value boundary (EncodeScalar and
// DecodeScalar) that lets callers hand in and read back plain Go values
// without the core depending on any particular value representation for
// navigation.
package noproto

import (
	"github.com/valyala/bytebufferpool"
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/schema"
	"github.com/noproto-io/noproto/sortable"
)

const (
	reservedTagOffset  = 0
	rootPtrOffset      = 1
	reservedHeaderSize = 3 // tag(1) + root pointer(2)
	formatTag          = 1
)

// Factory owns one immutable, parsed schema tree and hands out buffer
// handles that share it, mirroring how a parsed CAR index is shared
// read-only across every reader opened against it.
type Factory struct {
	tree *schema.Tree
}

// NewFactory parses a textual (JSON) schema and returns a Factory for it.
func NewFactory(jsonSchema []byte) (*Factory, error) {
	tree, err := schema.Parse(jsonSchema)
	if err != nil {
		return nil, err
	}
	return &Factory{tree: tree}, nil
}

// NewFactoryFromCompiled decompiles a schema previously produced by
// Factory.Compile.
func NewFactoryFromCompiled(compiled []byte) (*Factory, error) {
	tree, err := schema.Decompile(compiled)
	if err != nil {
		return nil, err
	}
	return &Factory{tree: tree}, nil
}

// NewFactoryFromTree wraps an already-built tree, used to open a buffer
// under an RPC message's request or response schema without
// round-tripping it through text or compiled bytes.
func NewFactoryFromTree(tree *schema.Tree) *Factory {
	return &Factory{tree: tree}
}

// Tree returns the schema tree this factory was built from.
func (f *Factory) Tree() *schema.Tree { return f.tree }

// Compile renders this factory's schema as the compact binary form.
func (f *Factory) Compile() []byte { return schema.Compile(f.tree) }

// Marshal renders this factory's schema back to its textual (JSON) form.
func (f *Factory) Marshal() ([]byte, error) { return schema.Marshal(f.tree) }

// Empty returns a fresh buffer with nothing but the reserved header
// written: an absent root pointer, ready for Set calls to materialize
// whatever it needs.
func (f *Factory) Empty() *Buffer {
	mem := bufmem.New(64)
	_, _ = mem.Allocate(reservedHeaderSize) // 3 bytes on a fresh Memory never fails
	_ = mem.WriteByte(reservedTagOffset, formatTag)
	return &Buffer{tree: f.tree, mem: mem}
}

// Open wraps previously-closed bytes as a buffer under this factory's
// schema, without copying them onto the heap a second time beyond the
// one defensive copy every opened buffer keeps of its own bytes.
func (f *Factory) Open(data []byte) (*Buffer, error) {
	if len(data) < reservedHeaderSize {
		return nil, xerrors.Errorf("noproto: buffer shorter than %d-byte header: %w", reservedHeaderSize, nperrors.Malformed)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return &Buffer{tree: f.tree, mem: bufmem.Wrap(cp)}, nil
}

// FromSortableBytes builds a fresh buffer whose root sorted tuple holds
// exactly the values key encodes, reversing Buffer.SortableBytes. key
// must be exactly the tuple's fixed width.
func (f *Factory) FromSortableBytes(key []byte) (*Buffer, error) {
	b := f.Empty()
	addr, err := sortable.FromBytes(f.tree, b.mem, key)
	if err != nil {
		return nil, err
	}
	if err := b.setRootPtr(addr); err != nil {
		return nil, err
	}
	return b, nil
}

// closeBytes copies mem's contents out through a pooled scratch buffer,
// the same staging pattern package schema's compiler uses for its own
// byte-buffer output.
func closeBytes(mem *bufmem.Memory) []byte {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	_, _ = bb.Write(mem.Bytes())
	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())
	return out
}
