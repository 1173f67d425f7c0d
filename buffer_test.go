package noproto_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noproto-io/noproto"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/schema"
)

func mustFactory(t *testing.T, jsonSchema string) *noproto.Factory {
	t.Helper()
	f, err := noproto.NewFactory([]byte(jsonSchema))
	require.NoError(t, err)
	return f
}

const personSchema = `{
  "type": "struct",
  "fields": [
    ["name", {"type": "string"}],
    ["age", {"type": "u16", "default": 0}],
    ["tags", {"type": "list", "of": {"type": "string"}}]
  ]
}`

func TestStructDefaultsAndRoundTrip(t *testing.T) {
	f := mustFactory(t, personSchema)

	buf := f.Empty()
	age, present, err := buf.Get(schema.Path{schema.Field("age")})
	require.NoError(t, err)
	require.True(t, present, "declared default is always present")
	require.Equal(t, uint16(0), age)
	require.Len(t, buf.Close(), 3, "an untouched struct buffer is just the 3-byte header")

	require.NoError(t, buf.Set(schema.Path{schema.Field("name")}, "Billy Joel"))
	require.NoError(t, buf.Set(schema.Path{schema.Field("tags"), schema.Index(0)}, "first tag"))

	reopened, err := f.Open(buf.Close())
	require.NoError(t, err)

	name, present, err := reopened.Get(schema.Path{schema.Field("name")})
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "Billy Joel", name)

	tag, present, err := reopened.Get(schema.Path{schema.Field("tags"), schema.Index(0)})
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "first tag", tag)

	age, present, err = reopened.Get(schema.Path{schema.Field("age")})
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, uint16(0), age)
}

func TestSortedTupleMinMax(t *testing.T) {
	f := mustFactory(t, `{"type": "tuple", "sorted": true, "values": [{"type": "i32"}, {"type": "string", "size": 8}]}`)

	lo := f.Empty()
	require.NoError(t, lo.SetMin(schema.Path{schema.Index(0)}))
	require.NoError(t, lo.SetMin(schema.Path{schema.Index(1)}))
	loBytes := lo.Close()
	require.Equal(t, append([]byte{0, 0, 0, 0}, make([]byte, 8)...), loBytes[3:])

	hi := f.Empty()
	require.NoError(t, hi.SetMax(schema.Path{schema.Index(0)}))
	require.NoError(t, hi.SetMax(schema.Path{schema.Index(1)}))
	hiBytes := hi.Close()
	want := append([]byte{0xFF, 0xFF, 0xFF, 0xFF}, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}...)
	require.Equal(t, want, hiBytes[3:])

	neg := f.Empty()
	require.NoError(t, neg.Set(schema.Path{schema.Index(0)}, int64(-1)))
	require.NoError(t, neg.Set(schema.Path{schema.Index(1)}, "a"))

	zero := f.Empty()
	require.NoError(t, zero.Set(schema.Path{schema.Index(0)}, int64(0)))
	require.NoError(t, zero.Set(schema.Path{schema.Index(1)}, "a"))

	require.Less(t, string(neg.Close()[3:]), string(zero.Close()[3:]))

	negKey, err := neg.SortableBytes()
	require.NoError(t, err)
	zeroKey, err := zero.SortableBytes()
	require.NoError(t, err)
	require.Less(t, string(negKey), string(zeroKey), "keys compare like the tuples they encode")

	back, err := f.FromSortableBytes(negKey)
	require.NoError(t, err)
	v, present, err := back.Get(schema.Path{schema.Index(0)})
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, int32(-1), v)

	blank, err := f.Empty().SortableBytes()
	require.NoError(t, err)
	require.Equal(t, make([]byte, 12), blank, "a never-touched sorted tuple is its default pattern")
}

func TestListGrowthLeavesIntermediatesVacant(t *testing.T) {
	f := mustFactory(t, `{"type": "list", "of": {"type": "string"}}`)
	buf := f.Empty()

	require.NoError(t, buf.Set(schema.Path{schema.Index(2)}, "c"))

	length, err := buf.Length(nil)
	require.NoError(t, err)
	require.Equal(t, 3, length)

	_, present, err := buf.Get(schema.Path{schema.Index(0)})
	require.NoError(t, err)
	require.False(t, present, "intermediate index 0 was never written")

	v, present, err := buf.Get(schema.Path{schema.Index(2)})
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "c", v)

	require.NoError(t, buf.Del(schema.Path{schema.Index(2)}))
	length, err = buf.Length(nil)
	require.NoError(t, err)
	require.Equal(t, 2, length, "unlinking the trailing element shrinks the reported length")
}

func TestMapUpsertAndCompact(t *testing.T) {
	f := mustFactory(t, `{"type": "map", "value": {"type": "string"}}`)
	buf := f.Empty()

	require.NoError(t, buf.Set(schema.Path{schema.Key("k")}, "v1"))
	require.NoError(t, buf.Set(schema.Path{schema.Key("k")}, "v2"))

	length, err := buf.Length(nil)
	require.NoError(t, err)
	require.Equal(t, 1, length)

	v, present, err := buf.Get(schema.Path{schema.Key("k")})
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "v2", v)

	wasted, err := buf.WastedBytes()
	require.NoError(t, err)
	require.Greater(t, wasted, 0, "the stale v1 record is dead space")

	compacted, err := buf.Compact()
	require.NoError(t, err)
	wasted, err = compacted.WastedBytes()
	require.NoError(t, err)
	require.Zero(t, wasted)

	v, present, err = compacted.Get(schema.Path{schema.Key("k")})
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "v2", v)
}

func TestMapIterationOrderIsNewestFirst(t *testing.T) {
	f := mustFactory(t, `{"type": "map", "value": {"type": "u8"}}`)
	buf := f.Empty()
	require.NoError(t, buf.Set(schema.Path{schema.Key("a")}, uint8(1)))
	require.NoError(t, buf.Set(schema.Path{schema.Key("b")}, uint8(2)))
	require.NoError(t, buf.Set(schema.Path{schema.Key("c")}, uint8(3)))

	var keys []string
	require.NoError(t, buf.Iterate(nil, func(sel schema.Selector) (bool, error) {
		keys = append(keys, sel.Name)
		return true, nil
	}))
	require.Equal(t, []string{"c", "b", "a"}, keys)
}

func TestOpenUntrustedBytesNeverPanics(t *testing.T) {
	f := mustFactory(t, personSchema)
	junk := make([]byte, 64*1024)
	for i := range junk {
		junk[i] = byte(i * 2643 % 251)
	}

	buf, err := f.Open(junk)
	require.NoError(t, err, "any 64KiB blob at least as long as the header opens")

	_, _, err = buf.Get(schema.Path{schema.Field("name")})
	_ = err // either a decoded value or a reported error; must not panic or hang

	_, _, err = buf.Get(schema.Path{schema.Field("tags"), schema.Index(200)})
	_ = err
}

func TestPortalEnablesRecursiveTypes(t *testing.T) {
	f := mustFactory(t, `{
	  "type": "struct",
	  "fields": [
	    ["value", {"type": "u8"}],
	    ["kids", {"type": "list", "of": {"type": "portal", "to": ""}}]
	  ]
	}`)
	buf := f.Empty()

	require.NoError(t, buf.Set(schema.Path{schema.Field("value")}, uint8(1)))
	require.NoError(t, buf.Set(schema.Path{schema.Field("kids"), schema.Index(0), schema.Field("value")}, uint8(2)))
	require.NoError(t, buf.Set(schema.Path{
		schema.Field("kids"), schema.Index(0),
		schema.Field("kids"), schema.Index(0),
		schema.Field("value"),
	}, uint8(3)))

	v, present, err := buf.Get(schema.Path{
		schema.Field("kids"), schema.Index(0),
		schema.Field("kids"), schema.Index(0),
		schema.Field("value"),
	})
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, uint8(3), v)

	compacted, err := buf.Compact()
	require.NoError(t, err)
	v, present, err = compacted.Get(schema.Path{schema.Field("kids"), schema.Index(0), schema.Field("value")})
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, uint8(2), v)
}

func TestOptionDefaultStandsInForUnset(t *testing.T) {
	f := mustFactory(t, `{
	  "type": "struct",
	  "fields": [["status", {"type": "option", "choices": ["active", "inactive"], "default": "active"}]]
	}`)
	buf := f.Empty()

	v, present, err := buf.Get(schema.Path{schema.Field("status")})
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "active", v)

	require.NoError(t, buf.Set(schema.Path{schema.Field("status")}, "inactive"))
	v, _, err = buf.Get(schema.Path{schema.Field("status")})
	require.NoError(t, err)
	require.Equal(t, "inactive", v)

	// Writing the empty string stores the explicit 0 "unset" byte, which
	// reads back as the declared default again.
	require.NoError(t, buf.Set(schema.Path{schema.Field("status")}, ""))
	v, _, err = buf.Get(schema.Path{schema.Field("status")})
	require.NoError(t, err)
	require.Equal(t, "active", v)
}

func TestGetOnMissingStructFieldIsTypeMismatch(t *testing.T) {
	f := mustFactory(t, personSchema)
	buf := f.Empty()
	_, _, err := buf.Get(schema.Path{schema.Field("age"), schema.Field("nope")})
	require.ErrorIs(t, err, nperrors.TypeMismatch)
}
