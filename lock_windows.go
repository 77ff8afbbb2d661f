//go:build windows

package chrometrace

import (
	"fmt"
	"math"

	"golang.org/x/sys/windows"
)

// lockFile locks the given file for exclusive access; if the file is already
// locked, this function will wait until it is unlocked.
func lockFile(h Handle) error {
	err := windows.LockFileEx(
		windows.Handle(h.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK,
		0,
		math.MaxUint32, math.MaxUint32,
		&windows.Overlapped{})
	if err != nil {
		return fmt.Errorf("failed to lock file: %w", err)
	}
	return nil
}

// unlockFile releases the lock taken by lockFile.
func unlockFile(h Handle) error {
	err := windows.UnlockFileEx(
		windows.Handle(h.Fd()),
		0,
		math.MaxUint32, math.MaxUint32,
		&windows.Overlapped{})
	if err != nil {
		return fmt.Errorf("failed to unlock file: %w", err)
	}
	return nil
}
