package noproto

import (
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/primitive"
	"github.com/noproto-io/noproto/schema"
)

// GeoPoint is the Go-native shape of a `geo` scalar: a (latitude,
// longitude) pair in degrees.
type GeoPoint struct {
	Lat, Lng float64
}

func wrongType(kind schema.Kind, v any) error {
	return xerrors.Errorf("noproto: %T is not a valid %s value: %w", v, kind, nperrors.TypeMismatch)
}

func rangeErr(kind schema.Kind, v int64) error {
	return xerrors.Errorf("noproto: value %d out of range for %s: %w", v, kind, nperrors.OutOfRange)
}

func urangeErr(kind schema.Kind, v uint64) error {
	return xerrors.Errorf("noproto: value %d out of range for %s: %w", v, kind, nperrors.OutOfRange)
}

func asInt(kind schema.Kind, v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	default:
		return 0, wrongType(kind, v)
	}
}

func asUint(kind schema.Kind, v any) (uint64, error) {
	switch t := v.(type) {
	case uint:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	default:
		return 0, wrongType(kind, v)
	}
}

func asFloat(kind schema.Kind, v any) (float64, error) {
	switch t := v.(type) {
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	default:
		return 0, wrongType(kind, v)
	}
}

// EncodeScalar renders a Go-native value as the wire bytes for node,
// which must describe a non-collection kind. This is
// the façade's one boundary between Go values and the wire: everything
// beneath it moves already-encoded bytes without knowing their shape.
func EncodeScalar(node *schema.Node, v any) ([]byte, error) {
	switch node.Kind {
	case schema.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, wrongType(node.Kind, v)
		}
		return primitive.EncodeBool(b), nil
	case schema.KindI8:
		n, err := asInt(node.Kind, v)
		if err != nil {
			return nil, err
		}
		if n < -128 || n > 127 {
			return nil, rangeErr(node.Kind, n)
		}
		return primitive.EncodeI8(int8(n)), nil
	case schema.KindI16:
		n, err := asInt(node.Kind, v)
		if err != nil {
			return nil, err
		}
		if n < -32768 || n > 32767 {
			return nil, rangeErr(node.Kind, n)
		}
		return primitive.EncodeI16(int16(n)), nil
	case schema.KindI32:
		n, err := asInt(node.Kind, v)
		if err != nil {
			return nil, err
		}
		if n < -2147483648 || n > 2147483647 {
			return nil, rangeErr(node.Kind, n)
		}
		return primitive.EncodeI32(int32(n)), nil
	case schema.KindI64, schema.KindDec:
		n, err := asInt(node.Kind, v)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeI64(n), nil
	case schema.KindU8:
		n, err := asUint(node.Kind, v)
		if err != nil {
			return nil, err
		}
		if n > 255 {
			return nil, urangeErr(node.Kind, n)
		}
		return primitive.EncodeU8(uint8(n)), nil
	case schema.KindU16:
		n, err := asUint(node.Kind, v)
		if err != nil {
			return nil, err
		}
		if n > 65535 {
			return nil, urangeErr(node.Kind, n)
		}
		return primitive.EncodeU16(uint16(n)), nil
	case schema.KindU32:
		n, err := asUint(node.Kind, v)
		if err != nil {
			return nil, err
		}
		if n > 4294967295 {
			return nil, urangeErr(node.Kind, n)
		}
		return primitive.EncodeU32(uint32(n)), nil
	case schema.KindU64, schema.KindDate:
		n, err := asUint(node.Kind, v)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeU64(n), nil
	case schema.KindF32:
		f, err := asFloat(node.Kind, v)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeF32(float32(f)), nil
	case schema.KindF64:
		f, err := asFloat(node.Kind, v)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeF64(f), nil
	case schema.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, wrongType(node.Kind, v)
		}
		s = primitive.Coerce(s, node.Uppercase, node.Lowercase)
		return primitive.EncodeString(s, node.FixedSize)
	case schema.KindBytes:
		bs, ok := v.([]byte)
		if !ok {
			return nil, wrongType(node.Kind, v)
		}
		return primitive.EncodeBytes(bs, node.FixedSize)
	case schema.KindUUID:
		switch t := v.(type) {
		case string:
			return primitive.ParseUUID(t)
		case []byte:
			if len(t) != primitive.WidthUUID {
				return nil, xerrors.Errorf("noproto: uuid must be %d bytes: %w", primitive.WidthUUID, nperrors.Malformed)
			}
			return append([]byte(nil), t...), nil
		default:
			return nil, wrongType(node.Kind, v)
		}
	case schema.KindULID:
		bs, ok := v.([]byte)
		if !ok || len(bs) != primitive.WidthULID {
			return nil, wrongType(node.Kind, v)
		}
		return append([]byte(nil), bs...), nil
	case schema.KindGeo:
		g, ok := v.(GeoPoint)
		if !ok {
			return nil, wrongType(node.Kind, v)
		}
		switch node.GeoSize {
		case primitive.Geo4:
			return primitive.EncodeGeo4(g.Lat, g.Lng)
		case primitive.Geo8:
			return primitive.EncodeGeo8(g.Lat, g.Lng)
		case primitive.Geo16:
			return primitive.EncodeGeo16(g.Lat, g.Lng)
		default:
			return nil, xerrors.Errorf("noproto: invalid geo precision %d: %w", node.GeoSize, nperrors.SchemaInvalid)
		}
	case schema.KindOption:
		s, ok := v.(string)
		if !ok {
			return nil, wrongType(node.Kind, v)
		}
		if s == "" {
			return primitive.EncodeOption(0), nil
		}
		choice := node.ChoiceIndex(s)
		if choice == 0 {
			return nil, xerrors.Errorf("noproto: %q is not a declared choice: %w", s, nperrors.OutOfRange)
		}
		return primitive.EncodeOption(choice), nil
	default:
		return nil, xerrors.Errorf("noproto: %s is not a scalar kind: %w", node.Kind, nperrors.TypeMismatch)
	}
}

// DecodeScalar is the inverse of EncodeScalar: it renders node's wire
// bytes back as a Go-native value.
func DecodeScalar(node *schema.Node, raw []byte) (any, error) {
	switch node.Kind {
	case schema.KindBool:
		return primitive.DecodeBool(raw)
	case schema.KindI8:
		return primitive.DecodeI8(raw)
	case schema.KindI16:
		return primitive.DecodeI16(raw)
	case schema.KindI32:
		return primitive.DecodeI32(raw)
	case schema.KindI64, schema.KindDec:
		return primitive.DecodeI64(raw)
	case schema.KindU8:
		return primitive.DecodeU8(raw)
	case schema.KindU16:
		return primitive.DecodeU16(raw)
	case schema.KindU32:
		return primitive.DecodeU32(raw)
	case schema.KindU64, schema.KindDate:
		return primitive.DecodeU64(raw)
	case schema.KindF32:
		return primitive.DecodeF32(raw)
	case schema.KindF64:
		return primitive.DecodeF64(raw)
	case schema.KindString:
		return primitive.DecodeString(raw, node.FixedSize)
	case schema.KindBytes:
		return primitive.DecodeBytes(raw, node.FixedSize)
	case schema.KindUUID:
		return primitive.FormatUUID(raw)
	case schema.KindULID:
		return append([]byte(nil), raw...), nil
	case schema.KindGeo:
		var lat, lng float64
		var err error
		switch node.GeoSize {
		case primitive.Geo4:
			lat, lng, err = primitive.DecodeGeo4(raw)
		case primitive.Geo8:
			lat, lng, err = primitive.DecodeGeo8(raw)
		case primitive.Geo16:
			lat, lng, err = primitive.DecodeGeo16(raw)
		default:
			return nil, xerrors.Errorf("noproto: invalid geo precision %d: %w", node.GeoSize, nperrors.SchemaInvalid)
		}
		if err != nil {
			return nil, err
		}
		return GeoPoint{Lat: lat, Lng: lng}, nil
	case schema.KindOption:
		choice, err := primitive.DecodeOption(raw)
		if err != nil {
			return nil, err
		}
		if choice == 0 {
			// 0 on the wire means unset: the declared default, if any,
			// stands in.
			if node.Default != nil && node.Default[0] != 0 {
				return node.Choices[node.Default[0]-1], nil
			}
			return "", nil
		}
		if int(choice) > len(node.Choices) {
			return nil, xerrors.Errorf("noproto: option choice %d out of range: %w", choice, nperrors.Malformed)
		}
		return node.Choices[choice-1], nil
	default:
		return nil, xerrors.Errorf("noproto: %s is not a scalar kind: %w", node.Kind, nperrors.TypeMismatch)
	}
}

// readScalarBytes reads the raw wire record for a scalar node already
// known to be present at addr: the fixed width for anything sized, or
// the length-prefixed payload for a variable string/bytes.
func readScalarBytes(mem *bufmem.Memory, node *schema.Node, addr int) ([]byte, error) {
	if (node.Kind == schema.KindString || node.Kind == schema.KindBytes) && node.FixedSize == 0 {
		lenBytes, err := mem.ReadBytes(addr, 2)
		if err != nil {
			return nil, err
		}
		n, _ := primitive.DecodeU16(lenBytes)
		return mem.ReadBytes(addr, 2+int(n))
	}
	width, ok := node.FixedWidth()
	if !ok {
		return nil, xerrors.Errorf("noproto: %s has no fixed width: %w", node.Kind, nperrors.SchemaInvalid)
	}
	return mem.ReadBytes(addr, width)
}
