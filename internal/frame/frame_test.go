package frame_test

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noproto-io/noproto/internal/frame"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, frame.Write(&buf, []byte("hello")))
	require.NoError(t, frame.Write(&buf, []byte("world")))

	r := bufio.NewReader(&buf)
	got, err := frame.Read(r)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	got, err = frame.Read(r)
	require.NoError(t, err)
	require.Equal(t, "world", string(got))

	_, err = frame.Read(r)
	require.ErrorIs(t, err, io.EOF)
}

func TestSizeMatchesWrittenBytes(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("0123456789")
	require.NoError(t, frame.Write(&buf, payload))
	require.Equal(t, frame.Size(len(payload)), buf.Len())
}
