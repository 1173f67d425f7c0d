package primitive

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/nperrors"
)

// MaxVariableLen is the largest string/bytes payload a variable-width
// record can carry: the u16 length prefix tops out at 2^16-1.
const MaxVariableLen = 1<<16 - 1

// StringPad is the byte a fixed-size string is right-padded
// with. Coercion (upper/lower) runs before padding.
const StringPad = byte(' ')

// BytesPad is the byte a fixed-size bytes value is right-padded with.
// Unlike string, bytes carries no text coercion, so the null byte rather
// than ASCII space better signals "no data" for an opaque payload.
const BytesPad = byte(0)

// Coerce applies the schema's uppercase/lowercase option, if any.
func Coerce(s string, uppercase, lowercase bool) string {
	switch {
	case uppercase:
		return strings.ToUpper(s)
	case lowercase:
		return strings.ToLower(s)
	default:
		return s
	}
}

// EncodeString encodes a string. With size == 0 it is variable-width:
// u16 big-endian length prefix followed by the raw UTF-8 bytes. With
// size > 0 it is a fixed-width, byte-sortable record: the raw bytes,
// right-padded with StringPad or truncated to exactly size bytes.
func EncodeString(s string, size int) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, xerrors.Errorf("primitive: invalid utf8 string: %w", nperrors.Malformed)
	}
	if size > 0 {
		return fixedWidth([]byte(s), size, StringPad), nil
	}
	if len(s) > MaxVariableLen {
		return nil, xerrors.Errorf("primitive: string of %d bytes exceeds max %d: %w", len(s), MaxVariableLen, nperrors.OutOfRange)
	}
	out := make([]byte, 2+len(s))
	copy(out, EncodeU16(uint16(len(s))))
	copy(out[2:], s)
	return out, nil
}

// DecodeString decodes a string previously produced by EncodeString. For
// a fixed size, b must be exactly size bytes (the raw record, with any
// padding still present); for variable width, b must begin with the u16
// length prefix.
func DecodeString(b []byte, size int) (string, error) {
	if size > 0 {
		if err := needLen(b, size); err != nil {
			return "", err
		}
		return string(b[:size]), nil
	}
	if err := needLen(b, 2); err != nil {
		return "", err
	}
	n, _ := DecodeU16(b[:2])
	if err := needLen(b, 2+int(n)); err != nil {
		return "", err
	}
	return string(b[2 : 2+int(n)]), nil
}

// EncodeBytes is the bytes counterpart of EncodeString: same framing,
// no UTF-8 validation, no case coercion.
func EncodeBytes(v []byte, size int) ([]byte, error) {
	if size > 0 {
		return fixedWidth(v, size, BytesPad), nil
	}
	if len(v) > MaxVariableLen {
		return nil, xerrors.Errorf("primitive: bytes of %d bytes exceeds max %d: %w", len(v), MaxVariableLen, nperrors.OutOfRange)
	}
	out := make([]byte, 2+len(v))
	copy(out, EncodeU16(uint16(len(v))))
	copy(out[2:], v)
	return out, nil
}

// DecodeBytes is the bytes counterpart of DecodeString.
func DecodeBytes(b []byte, size int) ([]byte, error) {
	if size > 0 {
		if err := needLen(b, size); err != nil {
			return nil, err
		}
		out := make([]byte, size)
		copy(out, b[:size])
		return out, nil
	}
	if err := needLen(b, 2); err != nil {
		return nil, err
	}
	n, _ := DecodeU16(b[:2])
	if err := needLen(b, 2+int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b[2:2+int(n)])
	return out, nil
}

func fixedWidth(v []byte, size int, pad byte) []byte {
	out := make([]byte, size)
	n := copy(out, v)
	for i := n; i < size; i++ {
		out[i] = pad
	}
	return out
}

// WireLen returns the number of bytes EncodeString/EncodeBytes will
// produce on the wire for a variable-width value of the given payload
// length, without allocating.
func WireLen(payloadLen int) int { return 2 + payloadLen }
