//go:build windows

package process

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// x/sys/windows wraps CreateToolhelp32Snapshot and the Process32/Module32
// enumeration calls, but not ReadProcessMemory itself; it is loaded
// manually the same way the package already loads other kernel32 entry
// points that golang.org/x/sys/windows doesn't cover.
var (
	modkernel32           = windows.NewLazySystemDLL("kernel32.dll")
	procReadProcessMemory = modkernel32.NewProc("ReadProcessMemory")
)

type windowsHandle struct {
	pid    int
	handle windows.Handle
}

func openPlatform(pid int, name string) (platformHandle, int, error) {
	if pid == 0 {
		found, err := findPIDByName(name)
		if err != nil {
			return nil, 0, err
		}
		pid = found
	}

	h, err := windows.OpenProcess(
		windows.PROCESS_VM_READ|windows.PROCESS_QUERY_INFORMATION,
		false,
		uint32(pid),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	return &windowsHandle{pid: pid, handle: h}, pid, nil
}

func (h *windowsHandle) read(dst []byte, addr uint64) int {
	if len(dst) == 0 {
		return 0
	}
	var nRead uintptr
	ret, _, _ := procReadProcessMemory.Call(
		uintptr(h.handle),
		uintptr(addr),
		uintptr(unsafe.Pointer(&dst[0])),
		uintptr(len(dst)),
		uintptr(unsafe.Pointer(&nRead)),
	)
	if ret == 0 {
		return 0
	}
	return int(nRead)
}

func (h *windowsHandle) close() error {
	return windows.CloseHandle(h.handle)
}

// findPIDByName enumerates running processes via a Toolhelp32 snapshot
// looking for a case-insensitive executable-name match.
func findPIDByName(name string) (int, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Process32First(snapshot, &entry); err != nil {
		return 0, fmt.Errorf("Process32First: %w", err)
	}
	for {
		exeName := windows.UTF16ToString(entry.ExeFile[:])
		if strings.EqualFold(exeName, name) {
			return int(entry.ProcessID), nil
		}
		if err := windows.Process32Next(snapshot, &entry); err != nil {
			break
		}
	}
	return 0, fmt.Errorf("no running process named %q", name)
}

// moduleBase enumerates module32 entries in a Toolhelp32 snapshot of the
// target process. module == "" resolves to the first module in the
// snapshot, which Windows always orders with the main executable first.
func moduleBase(p *Process, module string) (uint64, error) {
	h, ok := p.impl.(*windowsHandle)
	if !ok {
		return 0, ErrUnsupported
	}

	snapshot, err := windows.CreateToolhelp32Snapshot(
		windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32,
		uint32(h.pid),
	)
	if err != nil {
		return 0, fmt.Errorf("CreateToolhelp32Snapshot(modules): %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Module32First(snapshot, &entry); err != nil {
		return 0, fmt.Errorf("Module32First: %w", err)
	}
	for {
		modName := windows.UTF16ToString(entry.Module[:])
		if module == "" || strings.EqualFold(modName, module) {
			return uint64(uintptr(unsafe.Pointer(entry.ModBaseAddr))), nil
		}
		if err := windows.Module32Next(snapshot, &entry); err != nil {
			break
		}
	}
	return 0, fmt.Errorf("module %q not loaded", module)
}
