package primitive_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noproto-io/noproto/primitive"
)

func TestIntegerRoundTrip(t *testing.T) {
	u16, err := primitive.DecodeU16(primitive.EncodeU16(4242))
	require.NoError(t, err)
	require.EqualValues(t, 4242, u16)

	i32, err := primitive.DecodeI32(primitive.EncodeI32(-123456))
	require.NoError(t, err)
	require.EqualValues(t, -123456, i32)

	i64, err := primitive.DecodeI64(primitive.EncodeI64(-1))
	require.NoError(t, err)
	require.EqualValues(t, -1, i64)
}

func TestSignedIntegersAreByteSortable(t *testing.T) {
	lo := primitive.EncodeI32(-1)
	hi := primitive.EncodeI32(0)
	require.Less(t, string(lo), string(hi), "-1 must sort before 0")

	lo = primitive.EncodeI64(-1)
	hi = primitive.EncodeI64(1)
	require.Less(t, string(lo), string(hi))
}

func TestFloatRoundTripAndOrder(t *testing.T) {
	f, err := primitive.DecodeF64(primitive.EncodeF64(-3.25))
	require.NoError(t, err)
	require.InDelta(t, -3.25, f, 1e-9)

	neg := primitive.EncodeF64(-1)
	pos := primitive.EncodeF64(1)
	require.Less(t, string(neg), string(pos))

	zero := primitive.EncodeF64(0)
	require.Less(t, string(neg), string(zero))
	require.Less(t, string(zero), string(pos))
}

func TestStringFixedWidth(t *testing.T) {
	b, err := primitive.EncodeString("hi", 8)
	require.NoError(t, err)
	require.Len(t, b, 8)
	require.Equal(t, "hi      ", string(b))

	s, err := primitive.DecodeString(b, 8)
	require.NoError(t, err)
	require.Equal(t, "hi      ", s)
}

func TestStringVariableWidth(t *testing.T) {
	b, err := primitive.EncodeString("Billy Joel", 0)
	require.NoError(t, err)
	s, err := primitive.DecodeString(b, 0)
	require.NoError(t, err)
	require.Equal(t, "Billy Joel", s)
}

func TestGeo4RoundTrip(t *testing.T) {
	b, err := primitive.EncodeGeo4(40.71, -74.0)
	require.NoError(t, err)
	lat, lng, err := primitive.DecodeGeo4(b)
	require.NoError(t, err)
	require.InDelta(t, 40.71, lat, 0.01)
	require.InDelta(t, -74.0, lng, 0.01)
}

func TestGeoOutOfRange(t *testing.T) {
	_, err := primitive.EncodeGeo4(91, 0)
	require.Error(t, err)
}

func TestUUIDRoundTrip(t *testing.T) {
	b := primitive.NewUUID()
	s, err := primitive.FormatUUID(b)
	require.NoError(t, err)
	back, err := primitive.ParseUUID(s)
	require.NoError(t, err)
	require.Equal(t, b, back)
}

func TestULIDTimeOrdering(t *testing.T) {
	early, err := primitive.NewULID(1000)
	require.NoError(t, err)
	late, err := primitive.NewULID(2000)
	require.NoError(t, err)
	require.Less(t, string(early[:6]), string(late[:6]))

	ts, err := primitive.ULIDTime(early)
	require.NoError(t, err)
	require.EqualValues(t, 1000, ts)
}

func TestMinMaxBytes(t *testing.T) {
	require.Equal(t, []byte{0, 0, 0, 0}, primitive.MinBytes(4))
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, primitive.MaxBytes(4))
}
