//go:build !notrace

// Package tracing is a drop-in facade over a process-wide chrometrace
// session. Instrumented code calls these functions unconditionally; building
// with -tags notrace turns every one of them into a no-op.
package tracing

import (
	"errors"

	"github.com/zoobzio/chrometrace"
)

// ErrUnavailable is returned by Enable in notrace builds.
var ErrUnavailable = errors.New("tracing: built without chrometrace (notrace)")

var (
	config   = chrometrace.ConfigFromEnv()
	session  = chrometrace.New(config.Options()...)
	recorder = chrometrace.NewRecorder(session, config.RecorderOptions()...)
)

// CanEnable reports whether tracing is compiled in.
func CanEnable() bool {
	return true
}

// Enable starts tracing into path, or into CHROMETRACE_FILE / the default
// "<program>.json" when path is empty.
func Enable(path string) error {
	if path == "" {
		return session.Enable(config.Destination())
	}
	return session.Enable(chrometrace.PathDestination(path))
}

// Disable flushes and closes the trace.
func Disable() error {
	return session.Disable()
}

// Flush writes buffered events to the trace file.
func Flush() error {
	return session.Flush()
}

// IsEnabled reports whether events are being recorded.
func IsEnabled() bool {
	return session.IsEnabled()
}

// Begin records the start of a span.
func Begin(name string, args ...chrometrace.Arg) {
	recorder.Begin(name, args...)
}

// End records the end of a span.
func End(name string, args ...chrometrace.Arg) {
	recorder.End(name, args...)
}

// Scope opens a span closed by the returned function.
//
//	defer tracing.Scope("load")()
func Scope(name string, args ...chrometrace.Arg) func() {
	return recorder.Scope(name, args...).End
}

// Wrap traces fn. It panics if fn cannot be traced.
func Wrap[F any](fn F, opts ...chrometrace.WrapOption) F {
	return chrometrace.MustWrap(recorder, fn, opts...)
}

// WrapMethod traces a method value. It panics if method cannot be traced.
func WrapMethod[F any](method F, opts ...chrometrace.WrapOption) F {
	return chrometrace.MustWrapMethod(recorder, method, opts...)
}

// Exit finalizes the trace and exits with code.
func Exit(code int) {
	chrometrace.Exit(code)
}
