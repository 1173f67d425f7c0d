package sortable_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noproto-io/noproto/cursor"
	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/primitive"
	"github.com/noproto-io/noproto/schema"
	"github.com/noproto-io/noproto/sortable"
)

func tupleTree(t *testing.T) *schema.Tree {
	t.Helper()
	tree, err := schema.Parse([]byte(`{"type": "tuple", "sorted": true, "values": [{"type": "u16"}, {"type": "u8"}]}`))
	require.NoError(t, err)
	return tree
}

func TestMinMaxBytesWidth(t *testing.T) {
	tree := tupleTree(t)
	lo, err := sortable.MinBytes(tree)
	require.NoError(t, err)
	hi, err := sortable.MaxBytes(tree)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0}, lo)
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF}, hi)
	require.Equal(t, -1, sortable.Compare(lo, hi))
}

func TestToBytesOrderingMatchesValueOrdering(t *testing.T) {
	tree := tupleTree(t)
	mem := bufmem.New(64)

	write := func(a, b uint16) []byte {
		size, err := cursor.TupleHeadSize(tree.Root)
		require.NoError(t, err)
		addr, err := mem.Allocate(size)
		require.NoError(t, err)
		slot, _, err := cursor.Ensure(mem, tree, addr, schema.Path{schema.Index(0)})
		require.NoError(t, err)
		require.NoError(t, mem.WriteBytes(slot.Addr, primitive.EncodeU16(a)))
		slot, _, err = cursor.Ensure(mem, tree, addr, schema.Path{schema.Index(1)})
		require.NoError(t, err)
		require.NoError(t, mem.WriteBytes(slot.Addr, primitive.EncodeU8(uint8(b))))
		key, err := sortable.ToBytes(tree, mem, addr)
		require.NoError(t, err)
		return key
	}

	small := write(1, 0)
	big := write(2, 0)
	require.Equal(t, -1, sortable.Compare(small, big))
}

func TestFromBytesRoundTrip(t *testing.T) {
	tree := tupleTree(t)
	mem := bufmem.New(64)
	key, err := sortable.MaxBytes(tree)
	require.NoError(t, err)
	addr, err := sortable.FromBytes(tree, mem, key)
	require.NoError(t, err)
	got, err := sortable.ToBytes(tree, mem, addr)
	require.NoError(t, err)
	require.Equal(t, key, got)
}
