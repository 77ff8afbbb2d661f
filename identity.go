package chrometrace

import (
	"os"

	"github.com/petermattis/goid"
)

// IdentityProbe reports who is recording an event.
// PID is compared on every record to detect that the process was duplicated.
type IdentityProbe interface {
	PID() int
	TID() int64
}

// RuntimeIdentity reports the OS process id and the current goroutine id.
type RuntimeIdentity struct{}

// PID returns os.Getpid().
func (RuntimeIdentity) PID() int {
	return os.Getpid()
}

// TID returns the id of the calling goroutine.
func (RuntimeIdentity) TID() int64 {
	return goid.Get()
}
