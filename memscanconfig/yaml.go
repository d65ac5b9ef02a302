// Package memscanconfig is a pluggable deserializer for memscan.TypeConfig
// documents. memscan itself has no parsing dependency; this package is
// one concrete producer of a memscan.TypeConfig, the same way
// process.Process is one concrete memscan.Reader.
package memscanconfig

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xyproto/memscan"
)

type rawArray struct {
	ElementSize      uint64 `yaml:"element_size"`
	ElementCount     uint64 `yaml:"element_count"`
	UsesPointerTable bool   `yaml:"uses_pointer_table"`
}

type rawTypeConfig struct {
	Signature []string          `yaml:"signature"`
	Fields    map[string]uint64 `yaml:"fields"`
	Array     *rawArray         `yaml:"array"`
}

// Load decodes a single YAML type-config document from r and compiles it
// into a memscan.TypeConfig.
func Load(r io.Reader) (memscan.TypeConfig, error) {
	var raw rawTypeConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return memscan.TypeConfig{}, fmt.Errorf("memscanconfig: decode: %w", err)
	}

	var array *memscan.ArrayDescriptor
	if raw.Array != nil {
		array = &memscan.ArrayDescriptor{
			ElementSize:      raw.Array.ElementSize,
			ElementCount:     raw.Array.ElementCount,
			UsesPointerTable: raw.Array.UsesPointerTable,
		}
	}

	cfg, err := memscan.NewTypeConfig(raw.Signature, array, raw.Fields)
	if err != nil {
		return memscan.TypeConfig{}, fmt.Errorf("memscanconfig: %w", err)
	}
	return cfg, nil
}

// LoadFile opens path and decodes a YAML type-config document from it.
func LoadFile(path string) (memscan.TypeConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return memscan.TypeConfig{}, fmt.Errorf("memscanconfig: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
