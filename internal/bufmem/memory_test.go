package bufmem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/nperrors"
)

func TestAllocateWriteReadRoundTrip(t *testing.T) {
	m := bufmem.New(0)
	addr, err := m.AllocateWrite([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Zero(t, addr)

	got, err := m.ReadBytes(addr, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got)
	require.Equal(t, 4, m.Length())
}

func TestU16RoundTrip(t *testing.T) {
	m := bufmem.New(0)
	addr, err := m.Allocate(2)
	require.NoError(t, err)
	require.NoError(t, m.WriteU16(addr, 0xBEEF))
	v, err := m.ReadU16(addr)
	require.NoError(t, err)
	require.EqualValues(t, 0xBEEF, v)
}

func TestOutOfBoundsIsMalformed(t *testing.T) {
	m := bufmem.New(0)
	_, err := m.ReadBytes(0, 4)
	require.Error(t, err)
}

func TestAllocateBeyondMaxSizeFails(t *testing.T) {
	m := bufmem.New(0)
	_, err := m.Allocate(bufmem.MaxSize + 1)
	require.ErrorIs(t, err, nperrors.BufferFull)
	require.ErrorIs(t, err, nperrors.CapacityExceeded, "buffer-full is a capacity sub-kind")
}

func TestTruncateForCompaction(t *testing.T) {
	m := bufmem.New(0)
	addr, err := m.AllocateWrite([]byte{9, 9, 9})
	require.NoError(t, err)
	_, err = m.Allocate(10)
	require.NoError(t, err)
	require.NoError(t, m.Truncate(addr+3))
	require.Equal(t, 3, m.Length())
}
