// Package chrometrace records hand-instrumented spans into a trace file
// readable by the Chrome trace viewer (about:tracing, Perfetto).
//
// chrometrace keeps recording cheap: events are appended to an in-memory
// buffer and only written to disk on Flush, on Disable, or from an optional
// background flusher. Many processes may share one trace file; writes are
// serialized with an OS-level advisory lock held only while a flush runs.
//
// Core Components:
//   - Session: owns the enabled state, the event buffer and the trace file.
//   - Recorder: emits Begin/End pairs into a Session.
//   - Scope: an open span that is closed exactly once.
//   - Wrap / WrapMethod: return a traced function of the identical type.
//
// Basic Usage:
//
//	session := chrometrace.New()
//	if err := session.Enable(chrometrace.PathDestination("app.json")); err != nil {
//		return err
//	}
//	defer session.Disable()
//
//	rec := chrometrace.NewRecorder(session)
//	load := chrometrace.MustWrap(rec, loadConfig)
//
//	scope := rec.Scope("startup")
//	defer scope.End()
//	cfg, err := load(path)
//
// File Format:
//
//	{"traceEvents": [{"ph":"B","ts":1.5e15,"category":"go","pid":1,"tid":7,"name":"startup","args":{}}, ...]}
//
// The session that finds the file empty writes the opening header and is the
// file owner; only the owner writes the closing footer. A file without its
// footer is a partial trace that the query package repairs before parsing.
//
// Thread Safety:
//
// Session and Recorder are safe for concurrent use by multiple goroutines.
// Events carry the goroutine id as their thread id, so nested spans on one
// goroutine render as a single stack.
//
// Process Exit:
//
// Go runs no hooks at exit. Call Session.Disable, or terminate through Exit
// or HandleSignals so that every enabled session flushes and closes its file.
package chrometrace

// DefaultCategory is the category recorded when none is configured.
const DefaultCategory = "go"

const (
	fileHeader = `{"traceEvents": [`
	fileFooter = `]}`
)
