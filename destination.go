package chrometrace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Handle is an open, writable trace file.
// Fd must refer to a descriptor that supports OS advisory locking.
// *os.File satisfies Handle.
type Handle interface {
	io.Writer
	io.Seeker
	io.Closer
	Fd() uintptr
}

// Destination selects where a session writes its trace.
type Destination struct {
	handle Handle
	path   string
}

// DefaultDestination derives "<program>.json" in the working directory from
// the name the program was invoked with.
func DefaultDestination() Destination {
	return Destination{}
}

// PathDestination appends to the file at path, creating it if absent.
func PathDestination(path string) Destination {
	return Destination{path: path}
}

// HandleDestination writes to an already-open handle. The session closes the
// handle when it is disabled. If Enable fails the handle is left open for the
// caller.
//
// A handle that cannot be read back, such as a file opened write-only, never
// takes ownership of a non-empty file.
func HandleDestination(h Handle) Destination {
	return Destination{handle: h}
}

// String describes the destination for logs.
func (d Destination) String() string {
	switch {
	case d.handle != nil:
		if f, ok := d.handle.(interface{ Name() string }); ok {
			return f.Name()
		}
		return fmt.Sprintf("fd:%d", d.handle.Fd())
	case d.path != "":
		return d.path
	default:
		return DefaultTraceFile()
	}
}

func (d Destination) open() (Handle, error) {
	if d.handle != nil {
		return d.handle, nil
	}
	path := d.path
	if path == "" {
		path = DefaultTraceFile()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return f, nil
}

// release closes h after a failed Enable if the destination opened it.
func (d Destination) release(h Handle) {
	if d.handle == nil {
		_ = h.Close()
	}
}

// DefaultTraceFile returns the file name used by DefaultDestination.
func DefaultTraceFile() string {
	return ProgramName() + ".json"
}

// ProgramName is the base name of the running program: the invocation name
// when available, otherwise the OS process name, otherwise "trace_event".
func ProgramName() string {
	if len(os.Args) > 0 && os.Args[0] != "" {
		return filepath.Base(os.Args[0])
	}
	if name := processName(os.Getpid()); name != "" {
		return name
	}
	return "trace_event"
}

// processName asks the OS for the executable name of pid.
func processName(pid int) string {
	p, err := process.NewProcess(int32(pid)) //nolint:gosec // pids fit in int32
	if err != nil {
		return ""
	}
	name, err := p.Name()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(name)
}
