package memscan

// BufferReader is a Reader backed by an in-memory byte slice at a fixed
// base address. It is used both as the deterministic Test Reader for
// unit tests, and internally by the array scanner as the per-element
// scratch cache (see bind.go), exactly as the original implementation
// reuses a single buffer-backed reader type for both roles.
type BufferReader struct {
	Mem  []byte
	Base uint64
}

// NewBufferReader wraps mem as a Reader whose lowest addressable byte is
// base.
func NewBufferReader(mem []byte, base uint64) *BufferReader {
	return &BufferReader{Mem: mem, Base: base}
}

// Read implements Reader. It returns min(len(dst), bytes available from
// addr to the end of the buffer); addresses below Base or beyond the end
// of Mem read zero bytes.
func (b *BufferReader) Read(dst []byte, addr uint64) int {
	if addr < b.Base {
		return 0
	}
	index := addr - b.Base
	if index >= uint64(len(b.Mem)) {
		return 0
	}

	available := uint64(len(b.Mem)) - index
	n := uint64(len(dst))
	if n > available {
		n = available
	}

	copy(dst[:n], b.Mem[index:index+n])
	return int(n)
}

// reset repoints the buffer at a new base address and (re)reads len(b.Mem)
// bytes from src starting at base, reusing b.Mem's backing array. It
// reports whether the read was complete, matching
// macro_helpers::update_mem_cache's "could not read N bytes" failure mode.
func (b *BufferReader) reset(src Reader, base uint64, size uint64) bool {
	if uint64(cap(b.Mem)) < size {
		b.Mem = make([]byte, size)
	} else {
		b.Mem = b.Mem[:size]
	}
	b.Base = base
	return src.Read(b.Mem, base) == int(size)
}
