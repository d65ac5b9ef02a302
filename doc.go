// Package memscan extracts structured data from the address space of a
// foreign process (or a simulated one, for tests) given a declarative
// signature + field-offset description of where the data lives.
//
// A Reader supplies raw bytes. A Signature, compiled from a small op-code
// DSL (ParseSignature), walks a Reader to find a base address. Bind and
// BindArray turn a caller-defined struct type into a Resolver/Scanner
// pair that reads that struct's fields at the resolved base address,
// using a TypeConfig for the signature and field offsets.
//
// memscan has no opinion on where bytes come from or how a TypeConfig is
// authored: see package process for a Reader backed by a real OS
// process, and package memscanconfig for a YAML TypeConfig loader.
package memscan
