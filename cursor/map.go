package cursor

import (
	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/schema"
)

// A map is a head record plus a singly-linked chain of body
// records. Inserts prepend, so MapIterate visits keys newest-first;
// that ordering choice is pinned by the root package's
// TestMapIterationOrderIsNewestFirst.
const MapHeadSize = 4 // first(2) + count(2)

func mapHeadFirst(mem *bufmem.Memory, headAddr int) (int, error) {
	v, err := mem.ReadU16(headAddr)
	return int(v), err
}

func mapHeadCount(mem *bufmem.Memory, headAddr int) (int, error) {
	v, err := mem.ReadU16(headAddr + 2)
	return int(v), err
}

func setMapHead(mem *bufmem.Memory, headAddr, first, count int) error {
	if err := mem.WriteU16(headAddr, uint16(first)); err != nil {
		return err
	}
	return mem.WriteU16(headAddr+2, uint16(count))
}

// mapBodyNext/mapBodyKey/mapBodySize interpret a map body record:
// next(2) + keylen(1) + key(keylen) + value(2).
func mapBodyNext(mem *bufmem.Memory, bodyAddr int) (int, error) {
	v, err := mem.ReadU16(bodyAddr)
	return int(v), err
}

func mapBodyKey(mem *bufmem.Memory, bodyAddr int) (string, int, error) {
	keyLen, err := mem.ReadByte(bodyAddr + 2)
	if err != nil {
		return "", 0, err
	}
	keyBytes, err := mem.ReadBytes(bodyAddr+3, int(keyLen))
	if err != nil {
		return "", 0, err
	}
	return string(keyBytes), int(keyLen), nil
}

func mapBodySize(keyLen int) int { return 2 + 1 + keyLen + 2 }

// EnsureMapHead allocates an empty map head if addr is vacant.
func EnsureMapHead(mem *bufmem.Memory, addr int, parentSlotAddr int) (int, error) {
	if addr != 0 {
		return addr, nil
	}
	headAddr, err := mem.Allocate(MapHeadSize)
	if err != nil {
		return 0, err
	}
	if err := mem.WriteU16(parentSlotAddr, uint16(headAddr)); err != nil {
		return 0, err
	}
	return headAddr, nil
}

// mapFindBody walks the chain looking for key, bounded by MaxHops.
func mapFindBody(mem *bufmem.Memory, headAddr int, key string) (bodyAddr int, err error) {
	cur, err := mapHeadFirst(mem, headAddr)
	if err != nil {
		return 0, err
	}
	for i := 0; cur != 0; i++ {
		if i > MaxHops {
			return 0, errTooManyHops()
		}
		k, _, err := mapBodyKey(mem, cur)
		if err != nil {
			return 0, err
		}
		if k == key {
			return cur, nil
		}
		cur, err = mapBodyNext(mem, cur)
		if err != nil {
			return 0, err
		}
	}
	return 0, nil
}

func stepMap(mem *bufmem.Memory, node *schema.Node, headAddr int, sel schema.Selector) (int, *schema.Node, error) {
	if sel.Kind != schema.SelKey {
		return 0, nil, xerrors.Errorf("cursor: map requires a key selector: %w", nperrors.TypeMismatch)
	}
	bodyAddr, err := mapFindBody(mem, headAddr, sel.Name)
	if err != nil {
		return 0, nil, err
	}
	if bodyAddr == 0 {
		return 0, node.Children[0], nil
	}
	_, keyLen, err := mapBodyKey(mem, bodyAddr)
	if err != nil {
		return 0, nil, err
	}
	v, err := mem.ReadU16(bodyAddr + 3 + keyLen)
	if err != nil {
		return 0, nil, err
	}
	return int(v), node.Children[0], nil
}

// MapLength returns a map's entry count in O(1).
func MapLength(mem *bufmem.Memory, headAddr int) (int, error) {
	return mapHeadCount(mem, headAddr)
}

// MapValueSlot finds an existing key's value-pointer address, or 0 if
// absent.
func MapValueSlot(mem *bufmem.Memory, headAddr int, key string) (slotAddr int, err error) {
	bodyAddr, err := mapFindBody(mem, headAddr, key)
	if err != nil {
		return 0, err
	}
	if bodyAddr == 0 {
		return 0, nil
	}
	_, keyLen, err := mapBodyKey(mem, bodyAddr)
	if err != nil {
		return 0, err
	}
	return bodyAddr + 3 + keyLen, nil
}

// MapEnsureSlot finds key's value-pointer address, prepending a new
// zero-valued body record for it if it is not already present.
func MapEnsureSlot(mem *bufmem.Memory, headAddr int, key string) (slotAddr int, err error) {
	if slotAddr, err = MapValueSlot(mem, headAddr, key); err != nil {
		return 0, err
	}
	if slotAddr != 0 {
		return slotAddr, nil
	}
	if len(key) > schema.MaxNameLen {
		return 0, xerrors.Errorf("cursor: map key %q exceeds %d bytes: %w", key, schema.MaxNameLen, nperrors.OutOfRange)
	}
	first, err := mapHeadFirst(mem, headAddr)
	if err != nil {
		return 0, err
	}
	count, err := mapHeadCount(mem, headAddr)
	if err != nil {
		return 0, err
	}
	if count >= schema.MaxItems {
		return 0, xerrors.Errorf("cursor: map already holds %d entries: %w", schema.MaxItems, nperrors.CapacityExceeded)
	}
	bodyAddr, err := mem.Allocate(mapBodySize(len(key)))
	if err != nil {
		return 0, err
	}
	if err := mem.WriteU16(bodyAddr, uint16(first)); err != nil {
		return 0, err
	}
	if err := mem.WriteByte(bodyAddr+2, byte(len(key))); err != nil {
		return 0, err
	}
	if err := mem.WriteBytes(bodyAddr+3, []byte(key)); err != nil {
		return 0, err
	}
	valueSlot := bodyAddr + 3 + len(key)
	if err := mem.WriteU16(valueSlot, 0); err != nil {
		return 0, err
	}
	if err := setMapHead(mem, headAddr, bodyAddr, count+1); err != nil {
		return 0, err
	}
	return valueSlot, nil
}

// MapDelete unlinks key's body record, if present.
func MapDelete(mem *bufmem.Memory, headAddr int, key string) (deleted bool, err error) {
	first, err := mapHeadFirst(mem, headAddr)
	if err != nil {
		return false, err
	}
	count, err := mapHeadCount(mem, headAddr)
	if err != nil {
		return false, err
	}
	prev := 0
	cur := first
	for i := 0; cur != 0; i++ {
		if i > MaxHops {
			return false, errTooManyHops()
		}
		k, _, err := mapBodyKey(mem, cur)
		if err != nil {
			return false, err
		}
		next, err := mapBodyNext(mem, cur)
		if err != nil {
			return false, err
		}
		if k == key {
			if prev == 0 {
				first = next
			} else {
				if err := mem.WriteU16(prev, uint16(next)); err != nil {
					return false, err
				}
			}
			if err := setMapHead(mem, headAddr, first, count-1); err != nil {
				return false, err
			}
			return true, nil
		}
		prev = cur
		cur = next
	}
	return false, nil
}

// MapIterate walks every entry, newest-insert-first, calling
// fn(key, valueAddr) until fn returns false or the chain ends.
func MapIterate(mem *bufmem.Memory, headAddr int, fn func(key string, valueAddr int) (bool, error)) error {
	cur, err := mapHeadFirst(mem, headAddr)
	if err != nil {
		return err
	}
	for i := 0; cur != 0; i++ {
		if i > MaxHops {
			return errTooManyHops()
		}
		key, keyLen, err := mapBodyKey(mem, cur)
		if err != nil {
			return err
		}
		val, err := mem.ReadU16(cur + 3 + keyLen)
		if err != nil {
			return err
		}
		cont, err := fn(key, int(val))
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		cur, err = mapBodyNext(mem, cur)
		if err != nil {
			return err
		}
	}
	return nil
}
