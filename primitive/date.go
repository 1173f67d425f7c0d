package primitive

// EncodeDate encodes a `date` scalar: milliseconds since the Unix epoch,
// stored as a plain (non-negative, already byte-sortable) u64.
func EncodeDate(unixMilli uint64) []byte { return EncodeU64(unixMilli) }

// DecodeDate reverses EncodeDate.
func DecodeDate(b []byte) (uint64, error) { return DecodeU64(b) }

// EncodeDec encodes a `dec(exp)` scalar. The exponent lives in the
// schema node, not the wire bytes: on the wire a dec is exactly an i64.
func EncodeDec(v int64) []byte { return EncodeI64(v) }

// DecodeDec reverses EncodeDec.
func DecodeDec(b []byte) (int64, error) { return DecodeI64(b) }
