//go:build !unix && !windows

package chrometrace

// Platforms without advisory locks only support a single writer per file.
func lockFile(Handle) error { return nil }

func unlockFile(Handle) error { return nil }
