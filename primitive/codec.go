// Package primitive implements the scalar wire encoding: every
// scalar's fixed/variable width, its default bytes, and (where
// applicable) the byte-sortable bias/XOR transform that is baked
// directly into the wire form rather than kept as a separate mode.
//
// Every Encode/Decode pair here is pure: it neither allocates a cursor
// nor knows about the buffer it will end up living in. That lets the
// cursor engine (package cursor) treat these as leaf operations it can
// call once it has resolved an address to write to or read from.
package primitive

import (
	"encoding/binary"

	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/nperrors"
)

// Fixed widths, in bytes, of every fixed-width scalar kind.
const (
	WidthBool   = 1
	WidthI8     = 1
	WidthI16    = 2
	WidthI32    = 4
	WidthI64    = 8
	WidthU8     = 1
	WidthU16    = 2
	WidthU32    = 4
	WidthU64    = 8
	WidthF32    = 4
	WidthF64    = 8
	WidthDec    = 8
	WidthUUID   = 16
	WidthULID   = 16
	WidthDate   = 8
	WidthGeo4   = 4
	WidthGeo8   = 8
	WidthGeo16  = 16
	WidthOption = 1
)

func needLen(b []byte, n int) error {
	if len(b) < n {
		return xerrors.Errorf("primitive: need %d bytes, got %d: %w", n, len(b), nperrors.Malformed)
	}
	return nil
}

// EncodeBool encodes a bool as a single 0/1 byte, byte-sortable as-is.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeBool decodes a bool from its single byte.
func DecodeBool(b []byte) (bool, error) {
	if err := needLen(b, WidthBool); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// EncodeU8 encodes an unsigned 8-bit integer as-is; unsigned integers are
// always byte-sortable in their raw big-endian form.
func EncodeU8(v uint8) []byte { return []byte{v} }

// DecodeU8 decodes an unsigned 8-bit integer.
func DecodeU8(b []byte) (uint8, error) {
	if err := needLen(b, WidthU8); err != nil {
		return 0, err
	}
	return b[0], nil
}

// EncodeU16 encodes an unsigned 16-bit big-endian integer.
func EncodeU16(v uint16) []byte {
	buf := make([]byte, WidthU16)
	binary.BigEndian.PutUint16(buf, v)
	return buf
}

// DecodeU16 decodes an unsigned 16-bit big-endian integer.
func DecodeU16(b []byte) (uint16, error) {
	if err := needLen(b, WidthU16); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// EncodeU32 encodes an unsigned 32-bit big-endian integer.
func EncodeU32(v uint32) []byte {
	buf := make([]byte, WidthU32)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// DecodeU32 decodes an unsigned 32-bit big-endian integer.
func DecodeU32(b []byte) (uint32, error) {
	if err := needLen(b, WidthU32); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// EncodeU64 encodes an unsigned 64-bit big-endian integer. `date` reuses
// this directly: ms-since-epoch is already non-negative and so is
// byte-sortable without any bias.
func EncodeU64(v uint64) []byte {
	buf := make([]byte, WidthU64)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeU64 decodes an unsigned 64-bit big-endian integer.
func DecodeU64(b []byte) (uint64, error) {
	if err := needLen(b, WidthU64); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// EncodeI8 encodes a signed 8-bit integer with its sign bit flipped, so
// the biased byte is byte-sortable the same way its unsigned counterpart
// is.
func EncodeI8(v int8) []byte {
	return []byte{byte(v) ^ 0x80}
}

// DecodeI8 reverses EncodeI8.
func DecodeI8(b []byte) (int8, error) {
	if err := needLen(b, WidthI8); err != nil {
		return 0, err
	}
	return int8(b[0] ^ 0x80), nil
}

// EncodeI16 encodes a signed 16-bit big-endian integer with a flipped
// sign bit (biased representation).
func EncodeI16(v int16) []byte {
	buf := make([]byte, WidthI16)
	binary.BigEndian.PutUint16(buf, uint16(v)^0x8000)
	return buf
}

// DecodeI16 reverses EncodeI16.
func DecodeI16(b []byte) (int16, error) {
	if err := needLen(b, WidthI16); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b) ^ 0x8000), nil
}

// EncodeI32 encodes a signed 32-bit big-endian integer with a flipped
// sign bit.
func EncodeI32(v int32) []byte {
	buf := make([]byte, WidthI32)
	binary.BigEndian.PutUint32(buf, uint32(v)^0x80000000)
	return buf
}

// DecodeI32 reverses EncodeI32.
func DecodeI32(b []byte) (int32, error) {
	if err := needLen(b, WidthI32); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b) ^ 0x80000000), nil
}

// EncodeI64 encodes a signed 64-bit big-endian integer with a flipped
// sign bit. `dec` reuses this directly: the schema-declared exponent is
// metadata carried by the schema node, not by the wire bytes.
func EncodeI64(v int64) []byte {
	buf := make([]byte, WidthI64)
	binary.BigEndian.PutUint64(buf, uint64(v)^0x8000000000000000)
	return buf
}

// DecodeI64 reverses EncodeI64.
func DecodeI64(b []byte) (int64, error) {
	if err := needLen(b, WidthI64); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b) ^ 0x8000000000000000), nil
}

// EncodeOption encodes a 1-indexed option choice; 0 means unset.
func EncodeOption(choice uint8) []byte { return []byte{choice} }

// DecodeOption decodes a 1-indexed option choice.
func DecodeOption(b []byte) (uint8, error) {
	if err := needLen(b, WidthOption); err != nil {
		return 0, err
	}
	return b[0], nil
}
