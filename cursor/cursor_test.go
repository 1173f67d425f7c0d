package cursor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noproto-io/noproto/cursor"
	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/primitive"
	"github.com/noproto-io/noproto/schema"
)

func mustParse(t *testing.T, doc string) *schema.Tree {
	t.Helper()
	tree, err := schema.Parse([]byte(doc))
	require.NoError(t, err)
	return tree
}

// newRoot allocates a struct head at the schema root and returns its
// address, standing in for what the Buffer façade's root-pointer
// bookkeeping would otherwise do. Like the façade it first reserves the
// 3-byte header, so the head never lands on address 0, which Resolve
// reads as vacant.
func newRoot(t *testing.T, mem *bufmem.Memory, tree *schema.Tree) int {
	t.Helper()
	_, err := mem.Allocate(3)
	require.NoError(t, err)
	addr, err := mem.Allocate(cursor.StructHeadSize(tree.Root))
	require.NoError(t, err)
	return addr
}

func TestStructSetGetRoundTrip(t *testing.T) {
	tree := mustParse(t, `{
      "type": "struct",
      "fields": [
        ["name", {"type": "string"}],
        ["age", {"type": "u8"}]
      ]
    }`)
	mem := bufmem.New(64)
	root := newRoot(t, mem, tree)

	slot, node, err := cursor.Ensure(mem, tree, root, schema.Path{schema.Field("age")})
	require.NoError(t, err)
	require.Equal(t, schema.KindU8, node.Kind)
	valAddr, err := mem.AllocateWrite(primitive.EncodeU8(42))
	require.NoError(t, err)
	require.NoError(t, slot.Write(mem, valAddr))

	res, err := cursor.Resolve(mem, tree, root, schema.Path{schema.Field("age")})
	require.NoError(t, err)
	require.NotZero(t, res.Addr)
	b, err := mem.ReadBytes(res.Addr, 1)
	require.NoError(t, err)
	v, err := primitive.DecodeU8(b)
	require.NoError(t, err)
	require.EqualValues(t, 42, v)

	// name was never set: vacant.
	res, err = cursor.Resolve(mem, tree, root, schema.Path{schema.Field("name")})
	require.NoError(t, err)
	require.Zero(t, res.Addr)
}

func TestListAppendAndIterate(t *testing.T) {
	tree := mustParse(t, `{"type": "list", "of": {"type": "u16"}}`)
	mem := bufmem.New(64)
	headAddr, err := mem.Allocate(cursor.ListHeadSize)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		slot, _, err := cursor.Ensure(mem, tree, headAddr, schema.Path{schema.Index(uint8(i))})
		require.NoError(t, err)
		valAddr, err := mem.AllocateWrite(primitive.EncodeU16(uint16(i * 10)))
		require.NoError(t, err)
		require.NoError(t, slot.Write(mem, valAddr))
	}

	n, err := cursor.ListLength(mem, headAddr)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	var got []int
	err = cursor.ListIterate(mem, headAddr, func(index, addr int) (bool, error) {
		b, err := mem.ReadBytes(addr, 2)
		if err != nil {
			return false, err
		}
		v, _ := primitive.DecodeU16(b)
		got = append(got, int(v))
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 10, 20, 30, 40}, got)
}

func TestListDeleteLeavesHole(t *testing.T) {
	tree := mustParse(t, `{"type": "list", "of": {"type": "u8"}}`)
	mem := bufmem.New(64)
	headAddr, err := mem.Allocate(cursor.ListHeadSize)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		slot, _, err := cursor.Ensure(mem, tree, headAddr, schema.Path{schema.Index(uint8(i))})
		require.NoError(t, err)
		valAddr, err := mem.AllocateWrite([]byte{byte(i)})
		require.NoError(t, err)
		require.NoError(t, slot.Write(mem, valAddr))
	}
	require.NoError(t, cursor.ListDelete(mem, headAddr, 1))
	n, err := cursor.ListLength(mem, headAddr)
	require.NoError(t, err)
	require.Equal(t, 3, n, "deleting an interior element leaves the trailing index's length intact")

	var got []int
	require.NoError(t, cursor.ListIterate(mem, headAddr, func(index, addr int) (bool, error) {
		got = append(got, index)
		return true, nil
	}))
	require.Equal(t, []int{0, 2}, got, "deleting the middle leaves a hole, not a renumbering")

	slot, err := cursor.ListValueSlot(mem, headAddr, 2)
	require.NoError(t, err, "the surviving trailing index must still be addressable")
	valAddr, err := mem.ReadU16(slot)
	require.NoError(t, err)
	b, err := mem.ReadBytes(int(valAddr), 1)
	require.NoError(t, err)
	require.Equal(t, byte(2), b[0])
}

func TestMapUpsertAndDelete(t *testing.T) {
	tree := mustParse(t, `{"type": "map", "value": {"type": "u32"}}`)
	mem := bufmem.New(64)
	headAddr, err := mem.Allocate(cursor.MapHeadSize)
	require.NoError(t, err)

	slot, _, err := cursor.Ensure(mem, tree, headAddr, schema.Path{schema.Key("x")})
	require.NoError(t, err)
	addr, err := mem.AllocateWrite(primitive.EncodeU32(7))
	require.NoError(t, err)
	require.NoError(t, slot.Write(mem, addr))

	// Upsert: setting the same key again must reuse the existing slot.
	slot2, _, err := cursor.Ensure(mem, tree, headAddr, schema.Path{schema.Key("x")})
	require.NoError(t, err)
	require.Equal(t, slot.Addr, slot2.Addr)

	n, err := cursor.MapLength(mem, headAddr)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	deleted, err := cursor.MapDelete(mem, headAddr, "x")
	require.NoError(t, err)
	require.True(t, deleted)
	n, err = cursor.MapLength(mem, headAddr)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSortedTupleIsInlineAndContiguous(t *testing.T) {
	tree := mustParse(t, `{"type": "tuple", "sorted": true, "values": [{"type": "u32"}, {"type": "i16"}]}`)
	mem := bufmem.New(64)

	slot, node, err := cursor.Ensure(mem, tree, 0, schema.Path{})
	require.NoError(t, err)
	require.True(t, slot.Inline)
	require.Equal(t, schema.KindTuple, node.Kind)

	headSize, err := cursor.TupleHeadSize(tree.Root)
	require.NoError(t, err)
	require.Equal(t, 6, headSize)

	addr, err := mem.Allocate(headSize)
	require.NoError(t, err)

	field0, _, err := cursor.Ensure(mem, tree, addr, schema.Path{schema.Index(0)})
	require.NoError(t, err)
	require.True(t, field0.Inline)
	require.Equal(t, addr, field0.Addr)

	field1, _, err := cursor.Ensure(mem, tree, addr, schema.Path{schema.Index(1)})
	require.NoError(t, err)
	require.Equal(t, addr+4, field1.Addr, "u32 then i16: second value starts 4 bytes in")
}
