// Package nperrors defines the closed error taxonomy shared by every
// noproto package. No public operation panics: every failure mode
// described by the format (bad bytes, a selector that disagrees with the
// schema, an out-of-range scalar, a collection or buffer at capacity, an
// unresolved portal, or an RPC dispatch mismatch) is reported through one
// of these sentinels, wrapped with call-site context via
// golang.org/x/xerrors so callers can still xerrors.Is/As against the
// sentinel.
package nperrors

import (
	"errors"
	"fmt"
)

var (
	// Malformed indicates invalid bytes, an out-of-range address, a
	// hop-limit overrun, or invalid UTF-8.
	Malformed = errors.New("noproto: malformed")

	// TypeMismatch indicates a selector kind that does not match the
	// schema kind at the current cursor.
	TypeMismatch = errors.New("noproto: type mismatch")

	// OutOfRange indicates a numeric or geo value outside the
	// schema-permitted range, or a string/bytes value longer than
	// 2^16-1 bytes.
	OutOfRange = errors.New("noproto: value out of range")

	// CapacityExceeded indicates a collection would exceed 255 items.
	CapacityExceeded = errors.New("noproto: capacity exceeded")

	// BufferFull is the CapacityExceeded sub-kind raised when an
	// allocation would grow the buffer past 65535 bytes. It wraps
	// CapacityExceeded, so errors.Is against either sentinel matches.
	BufferFull = fmt.Errorf("buffer full: %w", CapacityExceeded)

	// PortalUnresolved indicates a portal path that does not resolve to
	// an ancestor node.
	PortalUnresolved = errors.New("noproto: portal unresolved")

	// ApiMismatch indicates an RPC envelope whose api_hash does not
	// match the locally compiled schema.
	ApiMismatch = errors.New("noproto: api hash mismatch")

	// UnknownMessage indicates an RPC envelope whose message_id has no
	// corresponding endpoint in the locally compiled schema.
	UnknownMessage = errors.New("noproto: unknown message id")

	// SchemaInvalid indicates a failure parsing or compiling a schema.
	SchemaInvalid = errors.New("noproto: invalid schema")
)

// IsCapacity reports whether err is CapacityExceeded or the more specific
// BufferFull sub-kind.
func IsCapacity(err error) bool {
	return errors.Is(err, CapacityExceeded) || errors.Is(err, BufferFull)
}
