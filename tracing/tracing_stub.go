//go:build notrace

package tracing

import (
	"errors"
	"os"

	"github.com/zoobzio/chrometrace"
)

// ErrUnavailable is returned by Enable when tracing is compiled out.
var ErrUnavailable = errors.New("tracing: built without chrometrace (notrace)")

// CanEnable reports false when tracing is compiled out.
func CanEnable() bool {
	return false
}

// Enable always fails when tracing is compiled out.
func Enable(string) error {
	return ErrUnavailable
}

// Disable always fails when tracing is compiled out.
func Disable() error {
	return ErrUnavailable
}

// Flush is a no-op when tracing is compiled out.
func Flush() error {
	return nil
}

// IsEnabled is always false when tracing is compiled out.
func IsEnabled() bool {
	return false
}

// Begin is a no-op when tracing is compiled out.
func Begin(string, ...chrometrace.Arg) {}

// End is a no-op when tracing is compiled out.
func End(string, ...chrometrace.Arg) {}

// Scope is a no-op when tracing is compiled out.
func Scope(string, ...chrometrace.Arg) func() {
	return func() {}
}

// Wrap returns fn unchanged when tracing is compiled out.
func Wrap[F any](fn F, _ ...chrometrace.WrapOption) F {
	return fn
}

// WrapMethod returns method unchanged when tracing is compiled out.
func WrapMethod[F any](method F, _ ...chrometrace.WrapOption) F {
	return method
}

// Exit exits with code.
func Exit(code int) {
	os.Exit(code)
}
