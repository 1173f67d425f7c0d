// Package bufmem is the single contiguous byte vector backing a NoProto
// buffer: a flat, append-only []byte with big-endian u16
// addressing and an allocator that hands out the next free offset. It
// knows nothing about schemas, cursors, or record shapes; callers own
// interpreting the bytes they read and write here.
package bufmem

import (
	"encoding/binary"

	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/nperrors"
)

// MaxSize is the largest a buffer may grow to: 65535 bytes, the largest
// length a u16 can express, so offset 0xFFFE is the last byte.
const MaxSize = 1<<16 - 1

// Memory is a growable byte vector with bounds-checked big-endian u16
// reads/writes and a bump allocator.
type Memory struct {
	buf []byte
}

// New creates an empty Memory pre-sized to cap bytes of backing capacity.
func New(cap int) *Memory {
	if cap <= 0 {
		cap = 256
	}
	return &Memory{buf: make([]byte, 0, cap)}
}

// Wrap adopts an existing byte slice as a Memory's contents, used when
// opening a buffer received over the wire or read back from storage.
func Wrap(b []byte) *Memory {
	return &Memory{buf: b}
}

// Length returns the number of bytes currently in use.
func (m *Memory) Length() int { return len(m.buf) }

// Bytes returns the buffer's current contents. The caller must not
// retain it across a subsequent Allocate/WriteBytes call, which may
// reallocate the backing array.
func (m *Memory) Bytes() []byte { return m.buf }

func (m *Memory) checkRange(addr, n int) error {
	if addr < 0 || n < 0 || addr+n > len(m.buf) {
		return xerrors.Errorf("bufmem: range [%d,%d) out of bounds (len %d): %w", addr, addr+n, len(m.buf), nperrors.Malformed)
	}
	return nil
}

// ReadU16 reads a big-endian u16 at addr.
func (m *Memory) ReadU16(addr int) (uint16, error) {
	if err := m.checkRange(addr, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(m.buf[addr : addr+2]), nil
}

// WriteU16 writes a big-endian u16 at addr, which must already be
// allocated (use Allocate first for new space).
func (m *Memory) WriteU16(addr int, v uint16) error {
	if err := m.checkRange(addr, 2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(m.buf[addr:addr+2], v)
	return nil
}

// ReadByte reads a single byte at addr.
func (m *Memory) ReadByte(addr int) (byte, error) {
	if err := m.checkRange(addr, 1); err != nil {
		return 0, err
	}
	return m.buf[addr], nil
}

// WriteByte writes a single byte at addr.
func (m *Memory) WriteByte(addr int, v byte) error {
	if err := m.checkRange(addr, 1); err != nil {
		return err
	}
	m.buf[addr] = v
	return nil
}

// ReadBytes returns a copy of the n bytes starting at addr.
func (m *Memory) ReadBytes(addr, n int) ([]byte, error) {
	if err := m.checkRange(addr, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, m.buf[addr:addr+n])
	return out, nil
}

// WriteBytes overwrites len(v) bytes at addr, which must already be
// allocated.
func (m *Memory) WriteBytes(addr int, v []byte) error {
	if err := m.checkRange(addr, len(v)); err != nil {
		return err
	}
	copy(m.buf[addr:addr+len(v)], v)
	return nil
}

// Allocate grows the buffer by n zero bytes and returns the address of
// the first new byte. It is the only way a Memory grows.
func (m *Memory) Allocate(n int) (int, error) {
	if n < 0 {
		return 0, xerrors.Errorf("bufmem: negative allocation size %d: %w", n, nperrors.Malformed)
	}
	addr := len(m.buf)
	if addr+n > MaxSize {
		return 0, xerrors.Errorf("bufmem: allocating %d bytes at %d would exceed %d-byte addressable space: %w", n, addr, MaxSize, nperrors.BufferFull)
	}
	m.buf = append(m.buf, make([]byte, n)...)
	return addr, nil
}

// AllocateWrite allocates len(v) bytes and writes v into them in one
// step, returning the new record's address.
func (m *Memory) AllocateWrite(v []byte) (int, error) {
	addr, err := m.Allocate(len(v))
	if err != nil {
		return 0, err
	}
	copy(m.buf[addr:], v)
	return addr, nil
}

// Truncate discards every byte from addr onward. Compact does not call
// it: compaction copies live data into a fresh Memory instead.
func (m *Memory) Truncate(addr int) error {
	if addr < 0 || addr > len(m.buf) {
		return xerrors.Errorf("bufmem: truncate address %d out of bounds (len %d): %w", addr, len(m.buf), nperrors.Malformed)
	}
	m.buf = m.buf[:addr]
	return nil
}
