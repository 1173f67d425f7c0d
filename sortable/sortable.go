// Package sortable implements the key operations a root-level sorted
// tuple supports: rendering it to and from a standalone,
// byte-comparable key, and producing its schema's absolute min/max
// bounds without touching a buffer at all.
package sortable

import (
	"bytes"

	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/cursor"
	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/primitive"
	"github.com/noproto-io/noproto/schema"
)

func requireSortedTuple(tree *schema.Tree) (*schema.Node, error) {
	root, err := schema.ResolvePortal(tree.Root)
	if err != nil {
		return nil, err
	}
	if root.Kind != schema.KindTuple || !root.Sorted {
		return nil, xerrors.Errorf("sortable: schema root is not a sorted tuple: %w", nperrors.TypeMismatch)
	}
	return root, nil
}

// ToBytes renders a sorted tuple's current contents as a standalone
// byte-comparable key: exactly the tuple's inline record, copied out of
// the buffer. Two buffers holding the same tuple values always produce
// identical keys, and bytes.Compare on two such keys agrees with
// comparing the tuples value-by-value in declared order.
func ToBytes(tree *schema.Tree, mem *bufmem.Memory, tupleAddr int) ([]byte, error) {
	root, err := requireSortedTuple(tree)
	if err != nil {
		return nil, err
	}
	size, err := cursor.TupleHeadSize(root)
	if err != nil {
		return nil, err
	}
	return mem.ReadBytes(tupleAddr, size)
}

// FromBytes writes a previously-rendered key back into a fresh
// standalone buffer and returns the address of its tuple record.
func FromBytes(tree *schema.Tree, mem *bufmem.Memory, key []byte) (int, error) {
	root, err := requireSortedTuple(tree)
	if err != nil {
		return 0, err
	}
	size, err := cursor.TupleHeadSize(root)
	if err != nil {
		return 0, err
	}
	if len(key) != size {
		return 0, xerrors.Errorf("sortable: key is %d bytes, schema tuple is %d: %w", len(key), size, nperrors.Malformed)
	}
	return mem.AllocateWrite(key)
}

// MinBytes returns the absolute smallest key this tree's sorted tuple
// schema can produce: the all-zero byte pattern, since every
// byte-sortable encoding in package primitive maps its minimum value to
// the all-zero representation.
func MinBytes(tree *schema.Tree) ([]byte, error) {
	root, err := requireSortedTuple(tree)
	if err != nil {
		return nil, err
	}
	size, err := cursor.TupleHeadSize(root)
	if err != nil {
		return nil, err
	}
	return primitive.MinBytes(size), nil
}

// MaxBytes returns the absolute largest key: the all-ones byte pattern.
func MaxBytes(tree *schema.Tree) ([]byte, error) {
	root, err := requireSortedTuple(tree)
	if err != nil {
		return nil, err
	}
	size, err := cursor.TupleHeadSize(root)
	if err != nil {
		return nil, err
	}
	return primitive.MaxBytes(size), nil
}

// Compare orders two keys produced by ToBytes/MinBytes/MaxBytes for the
// same schema. It is just bytes.Compare, exported here so callers never
// need to reach past this package for tuple ordering.
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}
