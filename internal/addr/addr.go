// Package addr provides typed, overflow-safe address arithmetic for the
// signature resolver.
//
// It exists to keep one rule enforced in exactly one place: offsetting a
// 64-bit address by a signed 32-bit displacement must never truncate
// through a 32-bit intermediate. A negative displacement is subtracted as
// an unsigned magnitude, and a positive one is added directly, both on the
// full 64-bit value.
package addr

import "fmt"

// Addr is a byte address in a foreign (or simulated) address space.
type Addr uint64

func (a Addr) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// Add offsets a by a signed 32-bit displacement without losing the upper
// bits of the 64-bit value.
func (a Addr) Add(off int32) Addr {
	if off < 0 {
		return a - Addr(-int64(off))
	}
	return a + Addr(off)
}
