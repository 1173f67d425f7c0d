package primitive

import (
	"golang.org/x/xerrors"

	"github.com/google/uuid"

	"github.com/noproto-io/noproto/nperrors"
)

// NewUUID generates a random (v4) UUID, returning its 16 raw bytes.
func NewUUID() []byte {
	id := uuid.New()
	out := make([]byte, WidthUUID)
	copy(out, id[:])
	return out
}

// ParseUUID parses the canonical hyphenated form into its 16 raw bytes.
func ParseUUID(s string) ([]byte, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, xerrors.Errorf("primitive: invalid uuid %q: %w", s, nperrors.Malformed)
	}
	out := make([]byte, WidthUUID)
	copy(out, id[:])
	return out, nil
}

// FormatUUID renders 16 raw bytes in canonical hyphenated form.
func FormatUUID(b []byte) (string, error) {
	if err := needLen(b, WidthUUID); err != nil {
		return "", err
	}
	id, err := uuid.FromBytes(b[:WidthUUID])
	if err != nil {
		return "", xerrors.Errorf("primitive: invalid uuid bytes: %w", nperrors.Malformed)
	}
	return id.String(), nil
}
