// Package rpc implements the message envelope and dispatch table:
// every message on the wire is (api_hash u64, message_id u16, kind u8,
// body), and a Dispatcher resolves a message_id against a schema's
// declared API the same way a blockstore resolves a CID.
package rpc

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/nperrors"
)

// Kind is the envelope's third field, distinguishing a request from
// the three possible response shapes.
type Kind uint8

const (
	KindRequest      Kind = 1
	KindResponseOK   Kind = 2
	KindResponseNone Kind = 3
	KindResponseErr  Kind = 4
)

// HeaderSize is the fixed envelope prefix: api_hash(8) + message_id(2) + kind(1).
const HeaderSize = 8 + 2 + 1

// APIHash derives the stable api_hash carried in every envelope from an
// API's declared (name, version) pair, using xxhash: a
// non-cryptographic hash chosen for speed over an adversarial-resistance
// guarantee it doesn't need here. Two schemas with the same name but
// different declared versions dispatch-mismatch rather than silently
// interop.
func APIHash(apiName, apiVersion string) uint64 {
	return xxhash.Sum64String(apiName + "\x00" + apiVersion)
}

// Envelope is one framed RPC message.
type Envelope struct {
	APIHash   uint64
	MessageID uint16
	Kind      Kind
	Body      []byte
}

// Encode renders e as HeaderSize+len(Body) bytes.
func (e Envelope) Encode() []byte {
	out := make([]byte, HeaderSize+len(e.Body))
	binary.BigEndian.PutUint64(out[0:8], e.APIHash)
	binary.BigEndian.PutUint16(out[8:10], e.MessageID)
	out[10] = byte(e.Kind)
	copy(out[HeaderSize:], e.Body)
	return out
}

// Decode parses an Envelope previously produced by Encode.
func Decode(b []byte) (Envelope, error) {
	if len(b) < HeaderSize {
		return Envelope{}, xerrors.Errorf("rpc: envelope shorter than %d-byte header: %w", HeaderSize, nperrors.Malformed)
	}
	k := Kind(b[10])
	switch k {
	case KindRequest, KindResponseOK, KindResponseNone, KindResponseErr:
	default:
		return Envelope{}, xerrors.Errorf("rpc: unknown envelope kind %d: %w", b[10], nperrors.Malformed)
	}
	return Envelope{
		APIHash:   binary.BigEndian.Uint64(b[0:8]),
		MessageID: binary.BigEndian.Uint16(b[8:10]),
		Kind:      k,
		Body:      append([]byte(nil), b[HeaderSize:]...),
	}, nil
}
