// Package cursor implements the bounded traversal engine: resolving a
// Path against a schema.Tree and a bufmem.Memory down to a concrete
// value address, lazily materializing collection records along the way
// when writing, and never looping or panicking on untrusted bytes no
// matter how they are corrupted.
package cursor

import (
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/schema"
)

// MaxHops bounds how many selector steps a single Path may take before
// traversal gives up; it is what makes opening arbitrary, possibly
// cyclic-through-portals bytes safe.
const MaxHops = 1 << 16

// Result pinpoints one resolved position in a buffer: the schema node
// (already portal-resolved) describing it, and the address holding its
// encoded bytes. Addr == 0 means vacant: nothing has been written there
// yet, and the caller should fall back to Node.Default.
type Result struct {
	Node *schema.Node
	Addr int
}

func errTooManyHops() error {
	return xerrors.Errorf("cursor: path exceeds %d hops: %w", MaxHops, nperrors.Malformed)
}

// step resolves one selector against the collection at addr, returning
// the child's value address (0 if vacant/absent) and its schema node.
// addr must be non-zero: callers check for vacancy before calling step.
func step(mem *bufmem.Memory, node *schema.Node, addr int, sel schema.Selector) (int, *schema.Node, error) {
	switch node.Kind {
	case schema.KindStruct:
		return stepStruct(mem, node, addr, sel)
	case schema.KindTuple:
		return stepTuple(mem, node, addr, sel)
	case schema.KindList:
		return stepList(mem, node, addr, sel)
	case schema.KindMap:
		return stepMap(mem, node, addr, sel)
	default:
		return 0, nil, xerrors.Errorf("cursor: %s has no children: %w", node.Kind, nperrors.TypeMismatch)
	}
}
