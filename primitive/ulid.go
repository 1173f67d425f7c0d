package primitive

import (
	"crypto/rand"

	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/nperrors"
)

// NewULID encodes a ULID: a 48-bit big-endian
// millisecond timestamp followed by 80 bits of randomness, giving a
// byte-sortable, time-ordered 16-byte identifier.
func NewULID(unixMilli uint64) ([]byte, error) {
	if unixMilli >= 1<<48 {
		return nil, xerrors.Errorf("primitive: ulid timestamp %d exceeds 48 bits: %w", unixMilli, nperrors.OutOfRange)
	}
	out := make([]byte, WidthULID)
	out[0] = byte(unixMilli >> 40)
	out[1] = byte(unixMilli >> 32)
	out[2] = byte(unixMilli >> 24)
	out[3] = byte(unixMilli >> 16)
	out[4] = byte(unixMilli >> 8)
	out[5] = byte(unixMilli)
	if _, err := rand.Read(out[6:]); err != nil {
		return nil, xerrors.Errorf("primitive: reading ulid randomness: %w", err)
	}
	return out, nil
}

// ULIDTime extracts the millisecond timestamp from a 16-byte ULID.
func ULIDTime(b []byte) (uint64, error) {
	if err := needLen(b, WidthULID); err != nil {
		return 0, err
	}
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5]), nil
}
