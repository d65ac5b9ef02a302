//go:build linux

package process

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// linuxHandle reads a target's memory via process_vm_readv, the same
// syscall the pack's gomem-derived readers are built around; no
// persistent fd is held, so close is a no-op.
type linuxHandle struct {
	pid int
}

func openPlatform(pid int, name string) (platformHandle, int, error) {
	if pid == 0 {
		found, err := findPIDByName(name)
		if err != nil {
			return nil, 0, err
		}
		pid = found
	} else if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err != nil {
		return nil, 0, fmt.Errorf("pid %d not running: %w", pid, err)
	}
	return &linuxHandle{pid: pid}, pid, nil
}

func (h *linuxHandle) read(dst []byte, addr uint64) int {
	if len(dst) == 0 {
		return 0
	}
	local := []unix.Iovec{{Base: &dst[0]}}
	local[0].SetLen(len(dst))
	remote := []unix.Iovec{{Base: (*byte)(unsafe.Pointer(uintptr(addr)))}}
	remote[0].SetLen(len(dst))

	n, err := unix.ProcessVMReadv(h.pid, local, remote, 0)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (h *linuxHandle) close() error { return nil }

// findPIDByName scans /proc for a process whose /proc/<pid>/exe symlink
// basename matches name exactly.
func findPIDByName(name string) (int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, fmt.Errorf("read /proc: %w", err)
	}
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		target, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
		if err != nil {
			continue // permission denied, or the process exited mid-scan
		}
		if filepath.Base(target) == name {
			return pid, nil
		}
	}
	return 0, fmt.Errorf("no running process named %q", name)
}

// moduleBase returns the lowest mapped address of module in the
// process's /proc/<pid>/maps listing. module == "" resolves to the
// process's own executable (the /proc/<pid>/exe link target).
func moduleBase(p *Process, module string) (uint64, error) {
	h, ok := p.impl.(*linuxHandle)
	if !ok {
		return 0, ErrUnsupported
	}

	target := module
	if target == "" {
		exe, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", h.pid))
		if err != nil {
			return 0, fmt.Errorf("readlink exe: %w", err)
		}
		target = filepath.Base(exe)
	}

	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", h.pid))
	if err != nil {
		return 0, fmt.Errorf("open maps: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		if filepath.Base(fields[5]) != target {
			continue
		}
		start, _, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		base, err := strconv.ParseUint(start, 16, 64)
		if err != nil {
			continue
		}
		return base, nil
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("scan maps: %w", err)
	}
	return 0, fmt.Errorf("module %q not mapped", target)
}
