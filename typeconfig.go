package memscan

// ArrayDescriptor describes how to read an array of structures: either a
// flat array of fixed-size elements, or an array accessed through a table
// of 8-byte pointers.
type ArrayDescriptor struct {
	ElementSize      uint64
	ElementCount     uint64
	UsesPointerTable bool
}

// TypeConfig is a parsed configuration: a Signature for locating a base
// address, an optional ArrayDescriptor for array scanners, and a table of
// field-name -> byte-offset pairs. Keys are matched by exact string
// equality; insertion order does not matter.
type TypeConfig struct {
	Signature Signature
	Array     *ArrayDescriptor
	Fields    map[string]uint64
}

// NewTypeConfig compiles a raw document shape (as produced by any
// pluggable deserializer) into a TypeConfig, parsing the signature op
// strings and copying over the array descriptor and field map.
func NewTypeConfig(signature []string, array *ArrayDescriptor, fields map[string]uint64) (TypeConfig, error) {
	sig, err := ParseSignature(signature)
	if err != nil {
		return TypeConfig{}, err
	}
	if fields == nil {
		fields = map[string]uint64{}
	}
	return TypeConfig{Signature: sig, Array: array, Fields: fields}, nil
}
