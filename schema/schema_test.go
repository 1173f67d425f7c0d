package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noproto-io/noproto/schema"
)

const personSchema = `{
  "type": "struct",
  "fields": [
    ["name", {"type": "string"}],
    ["age", {"type": "u8", "default": 0}],
    ["tags", {"type": "list", "of": {"type": "string", "size": 16}}],
    ["status", {"type": "option", "choices": ["active", "inactive"], "default": "active"}],
    ["self", {"type": "portal", "to": ""}]
  ]
}`

func TestParseStructSchema(t *testing.T) {
	tree, err := schema.Parse([]byte(personSchema))
	require.NoError(t, err)
	require.Equal(t, schema.KindStruct, tree.Root.Kind)
	require.Equal(t, []string{"name", "age", "tags", "status", "self"}, tree.Root.FieldNames)

	age, err := tree.TypeAt(schema.Path{schema.Field("age")})
	require.NoError(t, err)
	require.Equal(t, schema.KindU8, age.Kind)
	require.NotNil(t, age.Default)

	status, err := tree.TypeAt(schema.Path{schema.Field("status")})
	require.NoError(t, err)
	require.Equal(t, uint8(1), status.ChoiceIndex("active"))

	self, err := tree.TypeAt(schema.Path{schema.Field("self")})
	require.NoError(t, err)
	require.Equal(t, schema.KindStruct, self.Kind, "portal to root resolves transparently")
}

func TestParsePortalMustResolveToAncestor(t *testing.T) {
	bad := `{
      "type": "struct",
      "fields": [
        ["a", {"type": "portal", "to": "/b"}],
        ["b", {"type": "u8"}]
      ]
    }`
	_, err := schema.Parse([]byte(bad))
	require.Error(t, err, "b is a sibling of a, not an ancestor")
}

func TestSortedTupleRequiresSortableValues(t *testing.T) {
	good := `{"type": "tuple", "sorted": true, "values": [{"type": "u32"}, {"type": "i16"}]}`
	_, err := schema.Parse([]byte(good))
	require.NoError(t, err)

	bad := `{"type": "tuple", "sorted": true, "values": [{"type": "string"}]}`
	_, err = schema.Parse([]byte(bad))
	require.Error(t, err, "variable-width string is not sortable")
}

func TestCompileDecompileRoundTrip(t *testing.T) {
	tree, err := schema.Parse([]byte(personSchema))
	require.NoError(t, err)

	compiled := schema.Compile(tree)
	got, err := schema.Decompile(compiled)
	require.NoError(t, err)

	require.Equal(t, tree.Root.FieldNames, got.Root.FieldNames)
	age, err := got.TypeAt(schema.Path{schema.Field("age")})
	require.NoError(t, err)
	require.Equal(t, schema.KindU8, age.Kind)
	require.NotNil(t, age.Default)
}

func TestAPISchema(t *testing.T) {
	doc := `{
      "type": "struct",
      "fields": [["x", {"type": "u32"}]],
      "api": {
        "name": "demo",
        "messages": {
          "ping": {"id": 1, "request": {"type": "bool"}, "response": {"type": "bool"}}
        }
      }
    }`
	tree, err := schema.Parse([]byte(doc))
	require.NoError(t, err)
	require.True(t, tree.HasAPI())
	msg, ok := tree.API().MessageByName("ping")
	require.True(t, ok)
	require.EqualValues(t, 1, msg.ID)
	require.Equal(t, schema.KindBool, msg.Request.Kind)
}
