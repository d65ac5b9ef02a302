// Package process adapts a real operating-system process into a
// memscan.Reader, matching the teacher's per-OS file layout
// (process.go + process_<goos>.go build-tagged implementations, a stub
// for platforms without a native reader).
package process

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xyproto/memscan"
)

// ErrUnsupported is returned by OpenByPID/OpenByName on a platform
// without a native memory-read implementation (currently Darwin).
var ErrUnsupported = errors.New("process: not supported on this platform")

// platformHandle is the only part of Process that differs per
// operating system; each process_<goos>.go supplies one via
// openPlatform and moduleBase.
type platformHandle interface {
	read(dst []byte, addr uint64) int
	close() error
}

// Process is a memscan.Reader backed by a live operating-system
// process's address space.
type Process struct {
	pid    int
	name   string
	arch   Arch
	os     OS
	logger *slog.Logger

	mu    sync.RWMutex
	bases map[string]uint64 // module name ("" = main executable) -> base

	impl platformHandle
}

var _ memscan.Reader = (*Process)(nil)

// Option configures a Process at construction time.
type Option func(*Process)

// WithLogger sets the logger used for attach/detach and base-cache debug
// records. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Process) { p.logger = logger }
}

// OpenByPID attaches to the running process identified by pid.
func OpenByPID(pid int, opts ...Option) (*Process, error) {
	return open(pid, "", opts...)
}

// OpenByName attaches to the first running process whose executable
// basename matches name exactly (case-insensitively on Windows).
func OpenByName(name string, opts ...Option) (*Process, error) {
	return open(0, name, opts...)
}

func open(pid int, name string, opts ...Option) (*Process, error) {
	osKind, err := hostOS()
	if err != nil {
		return nil, err
	}

	p := &Process{
		name:  name,
		arch:  hostArch(),
		os:    osKind,
		bases: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	impl, resolvedPID, err := openPlatform(pid, name)
	if err != nil {
		return nil, fmt.Errorf("process: open: %w", err)
	}
	p.impl = impl
	p.pid = resolvedPID

	p.logger.Debug("process attached", "pid", p.pid, "name", p.name, "os", p.os, "arch", p.arch)
	return p, nil
}

// PID returns the attached process's id.
func (p *Process) PID() int { return p.pid }

// Arch returns the architecture recorded at attach time (the host's).
func (p *Process) Arch() Arch { return p.arch }

// Read implements memscan.Reader.
func (p *Process) Read(dst []byte, addr uint64) int {
	return p.impl.read(dst, addr)
}

// LoadBase returns the cached base address of module, reading and
// caching it from the process's memory map on first use. Pass "" for
// the main executable's own base address. Subsequent calls for the same
// module are served from the cache until UnloadBase evicts it.
func (p *Process) LoadBase(module string) (uint64, error) {
	p.mu.RLock()
	base, ok := p.bases[module]
	p.mu.RUnlock()
	if ok {
		return base, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if base, ok := p.bases[module]; ok {
		return base, nil
	}

	base, err := moduleBase(p, module)
	if err != nil {
		return 0, fmt.Errorf("process: load base of %q: %w", moduleLabel(module), err)
	}
	p.bases[module] = base
	p.logger.Debug("base module cache load", "pid", p.pid, "module", moduleLabel(module), "base", fmt.Sprintf("0x%x", base))
	return base, nil
}

// UnloadBase evicts module from the base-address cache.
func (p *Process) UnloadBase(module string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.bases[module]; ok {
		delete(p.bases, module)
		p.logger.Debug("base module cache unload", "pid", p.pid, "module", moduleLabel(module))
	}
}

// Close releases the underlying OS handle.
func (p *Process) Close() error {
	p.logger.Debug("process detached", "pid", p.pid)
	return p.impl.close()
}

func moduleLabel(module string) string {
	if module == "" {
		return "<main>"
	}
	return module
}
