// Package frame length-delimits RPC envelopes for framing over a byte
// stream, the same varint-length-prefix shape CARv1 uses to delimit
// blocks one after another in a stream.
package frame

import (
	"bufio"
	"io"

	"github.com/multiformats/go-varint"
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/nperrors"
)

// ErrZeroLengthFrame signals an empty length-prefixed frame, which is
// never valid for an envelope (every envelope carries at least the
// 11-byte header).
var ErrZeroLengthFrame = xerrors.New("frame: zero-length frame encountered")

// MaxFrameSize caps a single frame's declared length, guarding against a
// corrupt or hostile length prefix forcing an enormous allocation
// before any body bytes have even been read.
const MaxFrameSize = 1 << 20

// Write writes d as one varint-length-prefixed frame.
func Write(w io.Writer, d []byte) error {
	if _, err := w.Write(varint.ToUvarint(uint64(len(d)))); err != nil {
		return xerrors.Errorf("frame: writing length prefix: %w", err)
	}
	if _, err := w.Write(d); err != nil {
		return xerrors.Errorf("frame: writing frame body: %w", err)
	}
	return nil
}

// Size reports the total wire size, in bytes, of the frame Write would
// produce for a payload of length n, without allocating.
func Size(n int) int {
	return varint.UvarintSize(uint64(n)) + n
}

// Read reads one varint-length-prefixed frame. It returns io.EOF only at
// a clean frame boundary with nothing left to read.
func Read(r *bufio.Reader) ([]byte, error) {
	if _, err := r.Peek(1); err != nil {
		return nil, err
	}
	l, err := varint.ReadUvarint(r)
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, xerrors.Errorf("frame: reading length prefix: %w", err)
	}
	if l == 0 {
		return nil, ErrZeroLengthFrame
	}
	if l > MaxFrameSize {
		return nil, xerrors.Errorf("frame: declared length %d exceeds max %d: %w", l, MaxFrameSize, nperrors.Malformed)
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, xerrors.Errorf("frame: reading frame body: %w", err)
	}
	return buf, nil
}
