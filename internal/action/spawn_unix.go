//go:build !windows

package action

import "syscall"

// detachedProcAttr puts the child in its own session.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true,
	}
}
