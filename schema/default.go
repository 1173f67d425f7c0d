package schema

import (
	"encoding/base64"
	"encoding/json"

	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/primitive"
)

// decodeJSONDefault converts a declared "default" JSON value into the
// node's pre-encoded wire bytes, stored verbatim in Node.Default so the
// cursor engine never has to re-derive it.
func decodeJSONDefault(n *Node, raw json.RawMessage) ([]byte, error) {
	switch n.Kind {
	case KindBool:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, badDefault(n, err)
		}
		return primitive.EncodeBool(v), nil
	case KindI8:
		v, err := unmarshalInt(raw, n)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeI8(int8(v)), nil
	case KindI16:
		v, err := unmarshalInt(raw, n)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeI16(int16(v)), nil
	case KindI32:
		v, err := unmarshalInt(raw, n)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeI32(int32(v)), nil
	case KindI64, KindDec:
		v, err := unmarshalInt(raw, n)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeI64(v), nil
	case KindU8:
		v, err := unmarshalUint(raw, n)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeU8(uint8(v)), nil
	case KindU16:
		v, err := unmarshalUint(raw, n)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeU16(uint16(v)), nil
	case KindU32:
		v, err := unmarshalUint(raw, n)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeU32(uint32(v)), nil
	case KindU64, KindDate:
		v, err := unmarshalUint(raw, n)
		if err != nil {
			return nil, err
		}
		return primitive.EncodeU64(v), nil
	case KindF32:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, badDefault(n, err)
		}
		return primitive.EncodeF32(float32(v)), nil
	case KindF64:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, badDefault(n, err)
		}
		return primitive.EncodeF64(v), nil
	case KindString:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, badDefault(n, err)
		}
		v = primitive.Coerce(v, n.Uppercase, n.Lowercase)
		return primitive.EncodeString(v, n.FixedSize)
	case KindBytes:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, badDefault(n, err)
		}
		v, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, badDefault(n, err)
		}
		return primitive.EncodeBytes(v, n.FixedSize)
	case KindUUID:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, badDefault(n, err)
		}
		return primitive.ParseUUID(s)
	case KindOption:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, badDefault(n, err)
		}
		choice := n.ChoiceIndex(s)
		if choice == 0 {
			return nil, xerrors.Errorf("schema: default %q is not a declared choice: %w", s, nperrors.SchemaInvalid)
		}
		return primitive.EncodeOption(choice), nil
	case KindGeo, KindULID:
		return nil, xerrors.Errorf("schema: %s does not support a declared default: %w", n.Kind, nperrors.SchemaInvalid)
	default:
		return nil, xerrors.Errorf("schema: %s does not support a declared default: %w", n.Kind, nperrors.SchemaInvalid)
	}
}

func badDefault(n *Node, err error) error {
	return xerrors.Errorf("schema: invalid %s default: %v: %w", n.Kind, err, nperrors.SchemaInvalid)
}

func unmarshalInt(raw json.RawMessage, n *Node) (int64, error) {
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, badDefault(n, err)
	}
	return v, nil
}

func unmarshalUint(raw json.RawMessage, n *Node) (uint64, error) {
	var v uint64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, badDefault(n, err)
	}
	return v, nil
}
