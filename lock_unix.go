//go:build unix

package chrometrace

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// lockFile takes an exclusive advisory lock on h, waiting until any other
// holder releases it.
func lockFile(h Handle) error {
	for {
		err := unix.Flock(int(h.Fd()), unix.LOCK_EX)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to lock file: %w", err)
		}
		return nil
	}
}

// unlockFile releases the lock taken by lockFile.
func unlockFile(h Handle) error {
	if err := unix.Flock(int(h.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("failed to unlock file: %w", err)
	}
	return nil
}
