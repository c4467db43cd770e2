//go:build !windows

package config

import (
	"syscall"
)

// lockFile blocks until it holds an exclusive lock on f.
func lockFile(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX)
}

func unlockFile(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
