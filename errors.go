package chrometrace

import "errors"

var (
	// ErrAlreadyEnabled is returned by Enable when the session is already enabled.
	ErrAlreadyEnabled = errors.New("chrometrace: session already enabled")

	// ErrControlNotPermitted is returned by Enable and Disable on a session
	// that may only record, such as one running in a child process.
	ErrControlNotPermitted = errors.New("chrometrace: session control not permitted")

	// ErrUnsupportedCallable is returned when wrapping something that cannot
	// be bracketed by a Begin/End pair.
	ErrUnsupportedCallable = errors.New("chrometrace: unsupported callable")
)
