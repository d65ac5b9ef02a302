package memscan

import "unsafe"

// ScannableValue is implemented by field types the descriptor binder
// cannot read with a built-in primitive dispatch: user-defined enums and
// nested record types. bind.go detects an implementation of this
// interface on the field's pointer and calls ScanVal instead of doing its
// own reflect.Kind dispatch.
type ScannableValue interface {
	ScanVal(r Reader, addr uint64) error
}

// enumInt is the set of underlying kinds a user enum may be declared
// over; its width (1, 2, 4, or 8 bytes) selects which primitive read
// ScanEnum issues.
type enumInt interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// ScanEnum reads the underlying integer width of E at addr and maps the
// numeric value to a variant via from. If from reports false (an
// unrecognized value), dst is left at E's zero value, matching the
// spec's "unrecognized value maps to the record's default" rule. A
// genuinely unreadable address is reported as a *ScanError of KindRead.
//
// A user enum type's ScanVal method is expected to be a thin wrapper
// around this, e.g.:
//
//	func (s *Status) ScanVal(r memscan.Reader, addr uint64) error {
//		return memscan.ScanEnum(s, r, addr, statusFromUint64)
//	}
func ScanEnum[E enumInt](dst *E, r Reader, addr uint64, from func(uint64) (E, bool)) error {
	var probe E
	var v uint64
	var ok bool

	switch unsafe.Sizeof(probe) {
	case 1:
		var u uint8
		u, ok = ReadU8(r, addr)
		v = uint64(u)
	case 2:
		var u uint16
		u, ok = ReadU16(r, addr)
		v = uint64(u)
	case 4:
		var u uint32
		u, ok = ReadU32(r, addr)
		v = uint64(u)
	case 8:
		v, ok = ReadU64(r, addr)
	default:
		return unsupportedTypeErr("", "unsupported enum size %d (want 1, 2, 4, or 8)", unsafe.Sizeof(probe))
	}

	if !ok {
		return readErr("", addr, "can't read enum value")
	}

	if parsed, valid := from(v); valid {
		*dst = parsed
	} else {
		*dst = E(0)
	}
	return nil
}
