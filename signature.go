package memscan

import "github.com/xyproto/memscan/internal/addr"

// matchKind distinguishes the three token shapes of a signature pattern.
type matchKind int

const (
	matchLiteral matchKind = iota
	matchAny
	matchPosition
)

// match is a single token of a byte pattern: a literal byte to compare
// against, a wildcard ("any"), or a capture-point marker ("position").
type match struct {
	kind matchKind
	lit  byte
}

// opKind distinguishes the two signature op shapes.
type opKind int

const (
	opAsm opKind = iota
	opPtr
)

// op is one step of signature resolution.
type op struct {
	kind    opKind
	pattern []match // opAsm
	offset  int32   // opPtr
}

// Signature is a compiled, ordered sequence of ops describing how to
// locate a base address in a memory snapshot.
type Signature struct {
	ops []op
}

// ParseSignature compiles a Signature from its op strings (see the
// grammar in spec.md §4.2). Parsing fails if any op string does not match
// the grammar exactly, or if an "asm" pattern is empty.
func ParseSignature(opStrings []string) (Signature, error) {
	sig := Signature{ops: make([]op, 0, len(opStrings))}
	for _, s := range opStrings {
		o, err := parseOp(s)
		if err != nil {
			return Signature{}, configErr("can't parse op %q: %v", s, err)
		}
		sig.ops = append(sig.ops, o)
	}
	return sig, nil
}

// Resolve runs every op in declaration order and returns the final running
// address, which starts out as start. Each Asm op scans the original
// [start, end) window (not the running address carried forward by earlier
// ops), while Ptr ops consume and advance the running address. This mirrors the
// source behavior exactly; see SPEC_FULL.md §9 for why it is kept as-is.
//
// Resolve reports failure (ok == false) if any op fails: no pattern
// match, an out-of-range window, or an unreadable pointer indirection.
func (s Signature) Resolve(r Reader, start, end uint64) (uint64, bool) {
	running := start
	for _, o := range s.ops {
		var ok bool
		switch o.kind {
		case opAsm:
			running, ok = resolveAsm(r, start, end, o.pattern)
		case opPtr:
			running, ok = resolvePtr(r, running, o.offset)
		}
		if !ok {
			return 0, false
		}
	}
	return running, true
}

// matchPattern tests whether pattern matches the bytes read from r at
// windowStart, and if so returns the capture offset (the index of the
// first Position token, or len(pattern) if there is none).
func matchPattern(r Reader, windowStart uint64, pattern []match) (uint64, bool) {
	buf := make([]byte, len(pattern))
	if n := r.Read(buf, windowStart); n != len(buf) {
		return 0, false
	}

	captureOffset := -1
	for i, m := range pattern {
		switch m.kind {
		case matchPosition:
			if captureOffset == -1 {
				captureOffset = i
			}
		case matchAny:
			// always matches
		case matchLiteral:
			if buf[i] != m.lit {
				return 0, false
			}
		}
	}

	if captureOffset == -1 {
		return uint64(len(pattern)), true
	}
	return uint64(captureOffset), true
}

// scanForPattern scans [start, end) for the first offset where pattern
// matches, returning the captured address (start + i + captureOffset).
func scanForPattern(r Reader, start, end uint64, pattern []match) (uint64, bool) {
	if end < start {
		return 0, false
	}
	windowLen := end - start
	patLen := uint64(len(pattern))
	if windowLen < patLen {
		return 0, false
	}

	for i := uint64(0); i <= windowLen-patLen; i++ {
		captureOffset, ok := matchPattern(r, start+i, pattern)
		if ok {
			return start + i + captureOffset, true
		}
	}
	return 0, false
}

// resolveAsm scans [start, end) for pattern, then treats the captured
// address as the site of a 4-byte little-endian signed displacement,
// computing M + d + 4 (x86-64 RIP-relative addressing: M points at the
// displacement, the instruction continues 4 bytes past it).
func resolveAsm(r Reader, start, end uint64, pattern []match) (uint64, bool) {
	m, ok := scanForPattern(r, start, end, pattern)
	if !ok {
		return 0, false
	}

	d, ok := readInt32LE(r, m)
	if !ok {
		return 0, false
	}

	return uint64(addr.Addr(m).Add(d).Add(4)), true
}

// resolvePtr treats running as a location, applies off, and reads an
// 8-byte little-endian address from that location.
func resolvePtr(r Reader, running uint64, off int32) (uint64, bool) {
	loc := addr.Addr(running).Add(off)
	v, ok := readUint64LE(r, uint64(loc))
	if !ok {
		return 0, false
	}
	return v, true
}

// readInt32LE and readUint64LE decode explicit little-endian values from
// raw bytes, independent of host byte order. The signature DSL's
// displacement and pointer loads are specified as little-endian
// regardless of host architecture (spec.md §6), unlike the generic
// ReadI32/ReadU64 convenience reads, which are native-endian.
func readInt32LE(r Reader, at uint64) (int32, bool) {
	var buf [4]byte
	if r.Read(buf[:], at) != 4 {
		return 0, false
	}
	v := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	return int32(v), true
}

func readUint64LE(r Reader, at uint64) (uint64, bool) {
	var buf [8]byte
	if r.Read(buf[:], at) != 8 {
		return 0, false
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, true
}
