//go:build !windows

package process

import "syscall"

// KillTree kills a process and all its children by sending SIGKILL to the
// process group (negative PID). Non-positive PIDs are ignored: -0 would
// target the caller's own group.
func KillTree(pid int) error {
	if pid <= 0 {
		return ErrInvalidPID
	}
	return syscall.Kill(-pid, syscall.SIGKILL)
}
