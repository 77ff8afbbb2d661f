package chrometrace

import (
	"context"
	"reflect"
	"runtime"

	lru "github.com/hashicorp/golang-lru/v2"
)

// nameCacheSize bounds the function-name cache used by Do and DoErr.
const nameCacheSize = 512

// Recorder emits spans into a Session.
// Safe for concurrent use by multiple goroutines.
type Recorder struct {
	session  *Session
	names    *lru.Cache[uintptr, string]
	category string
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithCategory sets the category stamped on every event.
func WithCategory(category string) RecorderOption {
	return func(r *Recorder) {
		r.category = category
	}
}

// NewRecorder creates a recorder bound to session.
func NewRecorder(session *Session, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		session:  session,
		category: DefaultCategory,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.names, _ = lru.New[uintptr, string](nameCacheSize) //nolint:errcheck // size is positive
	return r
}

// Session returns the session the recorder writes to.
func (r *Recorder) Session() *Session {
	return r.session
}

// Enabled reports whether the underlying session is recording.
func (r *Recorder) Enabled() bool {
	return r.session.IsEnabled()
}

// Begin records the start of a span. Every Begin needs a matching End on
// the same goroutine; prefer Scope, Run or Wrap which guarantee it.
func (r *Recorder) Begin(name string, args ...Arg) {
	r.session.RecordEvent(PhaseBegin, r.session.Now(), r.category, name, Args(args))
}

// End records the end of the span opened by Begin.
func (r *Recorder) End(name string, args ...Arg) {
	r.session.RecordEvent(PhaseEnd, r.session.Now(), r.category, name, Args(args))
}

// Scope opens a span that is closed by Scope.End.
//
//	scope := rec.Scope("parse", chrometrace.NewArg("bytes", n))
//	defer scope.End()
func (r *Recorder) Scope(name string, args ...Arg) *Scope {
	if !r.session.IsEnabled() {
		return &Scope{}
	}
	r.Begin(name, args...)
	return &Scope{rec: r, name: name, active: true}
}

// Run brackets fn with a span named name. The End event is recorded when fn
// returns or panics; fn's error and panic reach the caller unchanged.
func (r *Recorder) Run(name string, fn func() error, args ...Arg) error {
	if !r.session.IsEnabled() {
		return fn()
	}
	r.Begin(name, args...)
	defer r.End(name)
	return fn()
}

// Do runs fn inside a span named after fn itself.
func (r *Recorder) Do(fn func()) {
	if !r.session.IsEnabled() {
		fn()
		return
	}
	name := r.funcName(fn)
	r.Begin(name)
	defer r.End(name)
	fn()
}

// DoErr is Do for functions returning an error.
func (r *Recorder) DoErr(fn func() error) error {
	if !r.session.IsEnabled() {
		return fn()
	}
	name := r.funcName(fn)
	r.Begin(name)
	defer r.End(name)
	return fn()
}

// funcName resolves the span name for fn, cached by entry PC.
func (r *Recorder) funcName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	if name, ok := r.names.Get(pc); ok {
		return name
	}
	name := spanName(runtimeName(pc), false)
	r.names.Add(pc, name)
	return name
}

func runtimeName(pc uintptr) string {
	if f := runtime.FuncForPC(pc); f != nil {
		return f.Name()
	}
	return "unknown"
}

// recorderKeyType is a private type for context keys to avoid collisions.
type recorderKeyType string

const recorderKey recorderKeyType = "chrometrace"

// ContextWithRecorder returns a context carrying r.
func ContextWithRecorder(ctx context.Context, r *Recorder) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, recorderKey, r)
}

// RecorderFromContext extracts the recorder stored by ContextWithRecorder.
// Returns nil if no recorder is present.
func RecorderFromContext(ctx context.Context) *Recorder {
	if ctx == nil {
		return nil
	}
	if r, ok := ctx.Value(recorderKey).(*Recorder); ok {
		return r
	}
	return nil
}
