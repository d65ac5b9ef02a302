//go:build darwin

package process

// Darwin has no process_vm_readv or ReadProcessMemory analog wired up
// here; task_for_pid-based memory access requires a code-signing
// entitlement this package does not attempt to acquire. See
// process_linux.go / process_windows.go for the implemented platforms.

func openPlatform(pid int, name string) (platformHandle, int, error) {
	return nil, 0, ErrUnsupported
}

func moduleBase(p *Process, module string) (uint64, error) {
	return 0, ErrUnsupported
}
