package primitive

import (
	"encoding/binary"
	"math"
)

// EncodeF32 encodes a float32 in its byte-sortable transform:
// positive values (sign bit clear) have their sign bit set;
// negative values (sign bit set) have every bit flipped. This is the
// standard total-order bit trick for IEEE-754 and makes the stored bytes
// directly byte-comparable.
func EncodeF32(v float32) []byte {
	bits := math.Float32bits(v)
	if bits>>31 == 1 {
		bits = ^bits
	} else {
		bits |= 0x80000000
	}
	buf := make([]byte, WidthF32)
	binary.BigEndian.PutUint32(buf, bits)
	return buf
}

// DecodeF32 reverses EncodeF32.
func DecodeF32(b []byte) (float32, error) {
	if err := needLen(b, WidthF32); err != nil {
		return 0, err
	}
	bits := binary.BigEndian.Uint32(b)
	if bits>>31 == 1 {
		bits &^= 0x80000000
	} else {
		bits = ^bits
	}
	return math.Float32frombits(bits), nil
}

// EncodeF64 is the float64 counterpart of EncodeF32.
func EncodeF64(v float64) []byte {
	bits := math.Float64bits(v)
	if bits>>63 == 1 {
		bits = ^bits
	} else {
		bits |= 0x8000000000000000
	}
	buf := make([]byte, WidthF64)
	binary.BigEndian.PutUint64(buf, bits)
	return buf
}

// DecodeF64 reverses EncodeF64.
func DecodeF64(b []byte) (float64, error) {
	if err := needLen(b, WidthF64); err != nil {
		return 0, err
	}
	bits := binary.BigEndian.Uint64(b)
	if bits>>63 == 1 {
		bits &^= 0x8000000000000000
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), nil
}

// EncodeF64Raw encodes a float64 as plain IEEE-754 big-endian bits with
// no sort transform. geo16 uses this: it is the one precision excluded
// from byte-sortability, unlike the scalar f64 kind.
func EncodeF64Raw(v float64) []byte {
	buf := make([]byte, WidthF64)
	binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

// DecodeF64Raw reverses EncodeF64Raw.
func DecodeF64Raw(b []byte) (float64, error) {
	if err := needLen(b, WidthF64); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}
