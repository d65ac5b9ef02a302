package memscan

import (
	"math"
	"testing"
)

func TestParseSignatureRoundTrip(t *testing.T) {
	ops := []string{"asm(00112233^^^^^^^^********)", "ptr(+8)", "ptr(-4)"}
	sig, err := ParseSignature(ops)
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if len(sig.ops) != len(ops) {
		t.Fatalf("got %d ops, want %d", len(sig.ops), len(ops))
	}
	if sig.ops[0].kind != opAsm || sig.ops[1].kind != opPtr || sig.ops[2].kind != opPtr {
		t.Fatalf("ops out of order: %+v", sig.ops)
	}
	if sig.ops[1].offset != 8 || sig.ops[2].offset != -4 {
		t.Fatalf("ptr offsets wrong: %+v", sig.ops[1:])
	}
}

func TestParseSignatureRejectsEmptyAsmPattern(t *testing.T) {
	if _, err := ParseSignature([]string{"asm()"}); err == nil {
		t.Fatalf("expected error for empty asm() pattern")
	}
}

func TestParseSignatureRejectsGarbage(t *testing.T) {
	for _, s := range []string{"foo(1)", "asm(0g)", "ptr()", "ptr(abc)", "asm(0)"} {
		if _, err := ParseSignature([]string{s}); err == nil {
			t.Fatalf("expected error for op string %q", s)
		}
	}
}

// Scenario A (spec §8): asm pattern with literal+position+any tokens,
// RIP-relative displacement resolution.
func scenarioAMem() []byte {
	return []byte{
		0xff, 0xff, 0xff, 0xff, 0x00, 0x11, 0x22, 0x33,
		0x04, 0x00, 0x00, 0x00, 0x44, 0x55, 0x66, 0x77,
		0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
	}
}

func TestScenarioA(t *testing.T) {
	mem := scenarioAMem()
	r := NewBufferReader(mem, 0x1000)

	sig, err := ParseSignature([]string{"asm(00112233^^^^^^^^********)"})
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}

	base, ok := sig.Resolve(r, 0x1000, 0x1000+uint64(len(mem)))
	if !ok {
		t.Fatalf("Resolve failed, want success")
	}
	if base != 0x1010 {
		t.Fatalf("base = 0x%x, want 0x1010", base)
	}

	value1, ok := ReadU8(r, base+0)
	if !ok || value1 != 0x88 {
		t.Fatalf("value1 = 0x%x (ok=%v), want 0x88", value1, ok)
	}
	value2, ok := ReadU32(r, base+4)
	if !ok || value2 != 0xffeeddcc {
		t.Fatalf("value2 = 0x%x (ok=%v), want 0xffeeddcc", value2, ok)
	}
}

// Scenario F (spec §8): signature miss, no partial scan.
func TestScenarioFSignatureMiss(t *testing.T) {
	mem := make([]byte, len(scenarioAMem()))
	copy(mem, scenarioAMem())
	// Corrupt the literal prefix so "00112233" never appears.
	mem[4], mem[5], mem[6], mem[7] = 0xaa, 0xbb, 0xcc, 0xdd

	r := NewBufferReader(mem, 0x1000)
	sig, err := ParseSignature([]string{"asm(00112233^^^^^^^^********)"})
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}

	if _, ok := sig.Resolve(r, 0x1000, 0x1000+uint64(len(mem))); ok {
		t.Fatalf("Resolve succeeded, want failure on signature miss")
	}
}

func TestLiteralMatchingInvariant(t *testing.T) {
	pattern := []match{{kind: matchLiteral, lit: 0xAA}, {kind: matchLiteral, lit: 0xBB}}
	mem := []byte{0x00, 0xAA, 0xBB, 0x00}
	r := NewBufferReader(mem, 0)

	for i := uint64(0); i <= 2; i++ {
		_, ok := matchPattern(r, i, pattern)
		want := i == 1
		if ok != want {
			t.Errorf("matchPattern at %d = %v, want %v", i, ok, want)
		}
	}
}

func TestAnyNeverRejects(t *testing.T) {
	pattern := []match{{kind: matchAny}, {kind: matchAny}}
	mem := []byte{0x00, 0xff}
	r := NewBufferReader(mem, 0)
	if _, ok := matchPattern(r, 0, pattern); !ok {
		t.Fatalf("Any pattern rejected, want always-match")
	}
}

func TestNoPositionCaptureIsPatternLength(t *testing.T) {
	pattern := []match{{kind: matchLiteral, lit: 1}, {kind: matchAny}, {kind: matchLiteral, lit: 2}}
	mem := []byte{1, 0x55, 2}
	r := NewBufferReader(mem, 0)

	offset, ok := matchPattern(r, 0, pattern)
	if !ok {
		t.Fatalf("expected match")
	}
	if offset != uint64(len(pattern)) {
		t.Fatalf("captureOffset = %d, want %d (pattern length)", offset, len(pattern))
	}
}

func TestPositionCapturesFirstOccurrence(t *testing.T) {
	pattern := []match{
		{kind: matchLiteral, lit: 1},
		{kind: matchPosition},
		{kind: matchPosition},
		{kind: matchLiteral, lit: 2},
	}
	mem := []byte{1, 0x00, 0x00, 2}
	r := NewBufferReader(mem, 0)

	offset, ok := matchPattern(r, 0, pattern)
	if !ok {
		t.Fatalf("expected match")
	}
	if offset != 1 {
		t.Fatalf("captureOffset = %d, want 1 (first Position index)", offset)
	}
}

// Displacement math: M + d + 4, holding for d down to math.MinInt32
// without overflow/underflow artifacts.
func TestDisplacementMathMinInt32(t *testing.T) {
	m := uint64(0x1_0000_0000) // large enough that M + d stays in range
	d := int32(math.MinInt32)

	mem := make([]byte, 4)
	mem[0] = byte(uint32(d))
	mem[1] = byte(uint32(d) >> 8)
	mem[2] = byte(uint32(d) >> 16)
	mem[3] = byte(uint32(d) >> 24)
	r := NewBufferReader(mem, m)

	pattern := []match{{kind: matchPosition}}
	got, ok := resolveAsm(r, m, m+1, pattern)
	if !ok {
		t.Fatalf("resolveAsm failed")
	}
	want := m + uint64(int64(d)) + 4
	if got != want {
		t.Fatalf("resolveAsm = 0x%x, want 0x%x", got, want)
	}
}

// Ptr op: for address A storing 8-byte LE value V, Ptr(off) with running
// address R = A - off yields V.
func TestPtrOp(t *testing.T) {
	const a = uint64(0x2000)
	const v = uint64(0x1122334455667788)
	const off = int32(16)

	mem := make([]byte, 8)
	for i := 0; i < 8; i++ {
		mem[i] = byte(v >> (8 * i))
	}
	r := NewBufferReader(mem, a)

	running := a - uint64(off)
	got, ok := resolvePtr(r, running, off)
	if !ok {
		t.Fatalf("resolvePtr failed")
	}
	if got != v {
		t.Fatalf("resolvePtr = 0x%x, want 0x%x", got, v)
	}
}

func TestScanForPatternUnderflowGuard(t *testing.T) {
	mem := []byte{1, 2, 3}
	r := NewBufferReader(mem, 0x1000)
	pattern := []match{{kind: matchLiteral, lit: 1}, {kind: matchLiteral, lit: 2}, {kind: matchLiteral, lit: 3}, {kind: matchLiteral, lit: 4}}

	// window shorter than the pattern: must report failure, not panic or
	// underflow through an unsigned subtraction.
	if _, ok := scanForPattern(r, 0x1000, 0x1002, pattern); ok {
		t.Fatalf("expected failure: window shorter than pattern")
	}
}

func TestAsmRescansOriginalWindowNotRunningAddress(t *testing.T) {
	// Two asm ops in sequence: the second must rescan [start, end), not
	// continue from the first op's result, per the preserved source
	// behavior (SPEC_FULL.md §9 / §3).
	mem := scenarioAMem()
	r := NewBufferReader(mem, 0x1000)

	sig, err := ParseSignature([]string{
		"asm(00112233^^^^^^^^********)",
		"asm(00112233^^^^^^^^********)",
	})
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}

	base, ok := sig.Resolve(r, 0x1000, 0x1000+uint64(len(mem)))
	if !ok {
		t.Fatalf("Resolve failed")
	}
	if base != 0x1010 {
		t.Fatalf("base = 0x%x, want 0x1010 (both ops should resolve identically)", base)
	}
}
