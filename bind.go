package memscan

import (
	"fmt"
	"reflect"

	"github.com/xyproto/memscan/internal/fieldname"
)

// Resolver walks a Reader across an address window to discover the base
// address of a T, returning a Scanner bound to that address.
type Resolver[T any] func(r Reader, start, end uint64) (Scanner[T], error)

// Scanner fills dst's fields by reading them at its captured base
// address.
type Scanner[T any] func(dst *T, r Reader) error

// ArrayResolver is the array-scanning analog of Resolver.
type ArrayResolver[T any] func(r Reader, start, end uint64) (ArrayScanner[T], error)

// ArrayScanner resizes *dst to the configured element count and fills
// each element's fields, either from a flat array of fixed-size elements
// or through a table of pointers.
type ArrayScanner[T any] func(dst *[]T, r Reader) error

var scannableValueType = reflect.TypeOf((*ScannableValue)(nil)).Elem()

// fieldBinding is computed once, at Bind/BindArray construction time, and
// captured by the returned closures: the field-offset lookup the spec
// requires to happen "once at resolver construction, not per scan."
type fieldBinding struct {
	name   string
	offset uint64
	index  int
	read   func(fieldValue reflect.Value, r Reader, addr uint64) error
}

// Bind walks T's exported fields, resolving each one's byte offset
// against cfg.Fields, and returns a Resolver[T] that performs a full
// resolve+scan. T must be a struct type; every exported field must
// either have a config.Fields entry (by name, or by its `memscan` struct
// tag) and a supported type, or Bind fails before any I/O happens.
func Bind[T any](cfg TypeConfig) (Resolver[T], error) {
	bindings, err := buildBindings[T](cfg)
	if err != nil {
		return nil, err
	}

	resolver := func(r Reader, start, end uint64) (Scanner[T], error) {
		base, ok := cfg.Signature.Resolve(r, start, end)
		if !ok {
			return nil, resolveErr("can't resolve base address")
		}

		scanner := func(dst *T, r Reader) error {
			rv := reflect.ValueOf(dst).Elem()
			for _, b := range bindings {
				if err := b.read(rv.Field(b.index), r, base+b.offset); err != nil {
					return err
				}
			}
			return nil
		}
		return scanner, nil
	}
	return resolver, nil
}

// BindArray is Bind's array-scanning counterpart. cfg.Array must be
// present; BindArray fails otherwise.
func BindArray[T any](cfg TypeConfig) (ArrayResolver[T], error) {
	if cfg.Array == nil {
		var zero T
		return nil, configErr("no array config for []%T scanner", zero)
	}
	arrayCfg := *cfg.Array

	bindings, err := buildBindings[T](cfg)
	if err != nil {
		return nil, err
	}

	resolver := func(r Reader, start, end uint64) (ArrayScanner[T], error) {
		base, ok := cfg.Signature.Resolve(r, start, end)
		if !ok {
			return nil, resolveErr("can't resolve base address")
		}

		scanner := func(dst *[]T, r Reader) error {
			n := int(arrayCfg.ElementCount)
			if cap(*dst) >= n {
				*dst = (*dst)[:n]
			} else {
				*dst = make([]T, n)
			}
			for i := range *dst {
				var zero T
				(*dst)[i] = zero
			}

			// Scratch cache serving reads for the current element without
			// crossing into neighboring elements; reused across
			// iterations, same role as the original's per-element
			// TestMemReader cache.
			scratch := &BufferReader{}

			for i := 0; i < n; i++ {
				elemAddr, isNull, err := elementBaseAddr(&arrayCfg, base, uint64(i), r)
				if err != nil {
					return err
				}
				if isNull {
					continue
				}

				if !scratch.reset(r, elemAddr, arrayCfg.ElementSize) {
					return readErr("", elemAddr, "could not read %d bytes (element %d)", arrayCfg.ElementSize, i)
				}

				rv := reflect.ValueOf(&(*dst)[i]).Elem()
				for _, b := range bindings {
					if err := b.read(rv.Field(b.index), scratch, elemAddr+b.offset); err != nil {
						return err
					}
				}
			}
			return nil
		}
		return scanner, nil
	}
	return resolver, nil
}

// elementBaseAddr computes the address of array element index. When the
// array uses a pointer table, a zero table entry means a null entry
// (isNull == true, no error); an unreadable table slot is an error.
func elementBaseAddr(cfg *ArrayDescriptor, base, index uint64, r Reader) (addr uint64, isNull bool, err error) {
	if !cfg.UsesPointerTable {
		return base + index*cfg.ElementSize, false, nil
	}

	ptr, ok := readUint64LE(r, base+index*8)
	if !ok {
		return 0, false, resolveErr("can't load pointer table index %d", index)
	}
	if ptr == 0 {
		return 0, true, nil
	}
	return ptr, false, nil
}

func buildBindings[T any](cfg TypeConfig) ([]fieldBinding, error) {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, unsupportedTypeErr("", "Bind requires a struct type, got %v", rt)
	}

	known := make([]string, 0, len(cfg.Fields))
	for name := range cfg.Fields {
		known = append(known, name)
	}

	bindings := make([]fieldBinding, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if tag, ok := f.Tag.Lookup("memscan"); ok && tag != "" {
			name = tag
		}

		offset, ok := cfg.Fields[name]
		if !ok {
			msg := "field offset not found"
			if hint := fieldname.Suggest(name, known); hint != "" {
				msg = fmt.Sprintf("%s (did you mean %q?)", msg, hint)
			}
			return nil, configFieldErr(name, "%s", msg)
		}

		readFn, err := fieldReadFunc(f.Type, name)
		if err != nil {
			return nil, err
		}

		bindings = append(bindings, fieldBinding{name: name, offset: offset, index: i, read: readFn})
	}
	return bindings, nil
}

// fieldReadFunc returns the per-field read closure for a field of type t,
// reported against name. Any type implementing ScannableValue (through
// its pointer) is dispatched to ScanVal; otherwise t must be one of the
// built-in primitive kinds. Anything else is an unsupported-type error,
// caught here at bind time rather than at scan time.
func fieldReadFunc(t reflect.Type, name string) (func(fv reflect.Value, r Reader, addr uint64) error, error) {
	if reflect.PointerTo(t).Implements(scannableValueType) {
		return func(fv reflect.Value, r Reader, addr uint64) error {
			sv := fv.Addr().Interface().(ScannableValue)
			if err := sv.ScanVal(r, addr); err != nil {
				return fmt.Errorf("can't read %q: %w", name, err)
			}
			return nil
		}, nil
	}

	switch t.Kind() {
	case reflect.Uint8:
		return func(fv reflect.Value, r Reader, addr uint64) error {
			v, ok := ReadU8(r, addr)
			if !ok {
				return readErr(name, addr, "short read")
			}
			fv.SetUint(uint64(v))
			return nil
		}, nil
	case reflect.Uint16:
		return func(fv reflect.Value, r Reader, addr uint64) error {
			v, ok := ReadU16(r, addr)
			if !ok {
				return readErr(name, addr, "short read")
			}
			fv.SetUint(uint64(v))
			return nil
		}, nil
	case reflect.Uint32:
		return func(fv reflect.Value, r Reader, addr uint64) error {
			v, ok := ReadU32(r, addr)
			if !ok {
				return readErr(name, addr, "short read")
			}
			fv.SetUint(uint64(v))
			return nil
		}, nil
	case reflect.Uint64:
		return func(fv reflect.Value, r Reader, addr uint64) error {
			v, ok := ReadU64(r, addr)
			if !ok {
				return readErr(name, addr, "short read")
			}
			fv.SetUint(v)
			return nil
		}, nil
	case reflect.Int16:
		return func(fv reflect.Value, r Reader, addr uint64) error {
			v, ok := ReadI16(r, addr)
			if !ok {
				return readErr(name, addr, "short read")
			}
			fv.SetInt(int64(v))
			return nil
		}, nil
	case reflect.Int32:
		return func(fv reflect.Value, r Reader, addr uint64) error {
			v, ok := ReadI32(r, addr)
			if !ok {
				return readErr(name, addr, "short read")
			}
			fv.SetInt(int64(v))
			return nil
		}, nil
	case reflect.Int64:
		return func(fv reflect.Value, r Reader, addr uint64) error {
			v, ok := ReadI64(r, addr)
			if !ok {
				return readErr(name, addr, "short read")
			}
			fv.SetInt(v)
			return nil
		}, nil
	case reflect.Float32:
		return func(fv reflect.Value, r Reader, addr uint64) error {
			v, ok := ReadF32(r, addr)
			if !ok {
				return readErr(name, addr, "short read")
			}
			fv.SetFloat(float64(v))
			return nil
		}, nil
	case reflect.Float64:
		return func(fv reflect.Value, r Reader, addr uint64) error {
			v, ok := ReadF64(r, addr)
			if !ok {
				return readErr(name, addr, "short read")
			}
			fv.SetFloat(v)
			return nil
		}, nil
	case reflect.String:
		return func(fv reflect.Value, r Reader, addr uint64) error {
			fv.SetString(ReadString(r, addr))
			return nil
		}, nil
	default:
		return nil, unsupportedTypeErr(name, "unsupported field type %s", t)
	}
}
