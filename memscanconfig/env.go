package memscanconfig

import (
	"strconv"

	"github.com/xyproto/env/v2"
)

const (
	envTargetPID  = "MEMSCAN_TARGET_PID"
	envTargetName = "MEMSCAN_TARGET_NAME"
)

// Target names the process a caller wants process.OpenByPID or
// process.OpenByName to attach to.
type Target struct {
	PID  int
	Name string
}

// TargetFromEnv reads MEMSCAN_TARGET_PID / MEMSCAN_TARGET_NAME, letting a
// caller pick an attach target without writing its own flag parsing. PID
// takes precedence over Name when both are set. ok is false if neither
// variable is set or MEMSCAN_TARGET_PID does not parse as an integer.
func TargetFromEnv() (t Target, ok bool) {
	if env.Has(envTargetPID) {
		pid, err := strconv.Atoi(env.Str(envTargetPID))
		if err != nil {
			return Target{}, false
		}
		return Target{PID: pid}, true
	}
	if env.Has(envTargetName) {
		return Target{Name: env.Str(envTargetName)}, true
	}
	return Target{}, false
}
