package chrometrace

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// WrapOption configures Wrap and WrapMethod.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	name    string
	capture []string
}

// WithName overrides the span name derived from the function.
func WithName(name string) WrapOption {
	return func(c *wrapConfig) {
		c.name = name
	}
}

// WithArgs names the function's parameters, in order, whose values are
// recorded in the span's args. An empty name skips that parameter.
// Values are captured before the call, so later mutation does not leak in.
func WithArgs(names ...string) WrapOption {
	return func(c *wrapConfig) {
		c.capture = names
	}
}

// Wrap returns a function of the same type as fn that records a span around
// every call while the session is enabled. The span is named after fn.
//
// The End event is recorded on return and on panic; results and panics
// pass through unchanged. Functions that hand back a lazy sequence (a
// receive channel or an iter.Seq-shaped function) are rejected with
// ErrUnsupportedCallable because their work runs after the call returns.
func Wrap[F any](r *Recorder, fn F, opts ...WrapOption) (F, error) {
	return wrap(r, fn, false, opts)
}

// WrapMethod is Wrap for method values; the span is named Type.Method.
func WrapMethod[F any](r *Recorder, method F, opts ...WrapOption) (F, error) {
	return wrap(r, method, true, opts)
}

// MustWrap is Wrap that panics on an unsupported callable.
func MustWrap[F any](r *Recorder, fn F, opts ...WrapOption) F {
	wrapped, err := Wrap(r, fn, opts...)
	if err != nil {
		panic(err)
	}
	return wrapped
}

// MustWrapMethod is WrapMethod that panics on an unsupported callable.
func MustWrapMethod[F any](r *Recorder, method F, opts ...WrapOption) F {
	wrapped, err := WrapMethod(r, method, opts...)
	if err != nil {
		panic(err)
	}
	return wrapped
}

func wrap[F any](r *Recorder, fn F, method bool, opts []WrapOption) (F, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fn, fmt.Errorf("%w: %T is not a function", ErrUnsupportedCallable, fn)
	}
	t := v.Type()
	if returnsLazySequence(t) {
		return fn, fmt.Errorf("%w: %s returns a lazy sequence", ErrUnsupportedCallable, t)
	}

	cfg := wrapConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	full := runtimeName(v.Pointer())
	if method && !isMethodName(full) {
		return fn, fmt.Errorf("%w: %s is not a method", ErrUnsupportedCallable, full)
	}
	name := cfg.name
	if name == "" {
		name = spanName(full, method)
	}

	capture, err := resolveCapture(t, cfg.capture)
	if err != nil {
		return fn, err
	}

	wrapped := reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		if !r.session.IsEnabled() {
			return call(v, t, in)
		}
		args := capture.values(in)
		r.Begin(name, args...)
		defer r.End(name, args...)
		return call(v, t, in)
	})
	return wrapped.Interface().(F), nil //nolint:forcetypeassert // MakeFunc keeps the type
}

func call(v reflect.Value, t reflect.Type, in []reflect.Value) []reflect.Value {
	if t.IsVariadic() {
		return v.CallSlice(in)
	}
	return v.Call(in)
}

// returnsLazySequence reports whether any result of t is a receive channel
// or a push iterator, func(yield func(...) bool).
func returnsLazySequence(t reflect.Type) bool {
	for i := 0; i < t.NumOut(); i++ {
		out := t.Out(i)
		switch out.Kind() {
		case reflect.Chan:
			if out.ChanDir()&reflect.RecvDir != 0 {
				return true
			}
		case reflect.Func:
			if out.NumIn() != 1 || out.NumOut() != 0 {
				continue
			}
			yield := out.In(0)
			if yield.Kind() == reflect.Func && yield.NumOut() == 1 && yield.Out(0).Kind() == reflect.Bool {
				return true
			}
		}
	}
	return false
}

type captureSpec struct {
	names []string
}

func resolveCapture(t reflect.Type, names []string) (captureSpec, error) {
	if len(names) > t.NumIn() {
		return captureSpec{}, fmt.Errorf("%w: %d arg names for %s", ErrUnsupportedCallable, len(names), t)
	}
	return captureSpec{names: names}, nil
}

// values snapshots the named parameters.
func (c captureSpec) values(in []reflect.Value) []Arg {
	if len(c.names) == 0 {
		return nil
	}
	args := make([]Arg, 0, len(c.names))
	for i, name := range c.names {
		if name == "" || i >= len(in) {
			continue
		}
		args = append(args, Arg{Key: name, Value: snapshot(in[i])})
	}
	return args
}

// snapshot keeps scalars as they are and renders everything else as Go syntax.
func snapshot(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return "<invalid>"
	}
	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v.Interface()
	default:
		return fmt.Sprintf("%#v", v.Interface())
	}
}

var closureSuffix = regexp.MustCompile(`\.func\d+(\.\d+)*$`)

// isMethodName reports whether a runtime function name belongs to a method
// value or method expression.
func isMethodName(full string) bool {
	return strings.HasSuffix(full, "-fm") || strings.Contains(full, ").")
}

// spanName turns a runtime function name such as
// "github.com/acme/app/store.(*DB).Query-fm" into a span label: "Query", or
// "DB.Query" when qualified. Closures keep their enclosing function,
// "TestLoad.func1".
func spanName(full string, qualified bool) string {
	name := strings.TrimSuffix(full, "-fm")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	// Drop the package name. The last path element may itself contain dots,
	// so a pointer receiver marks the end of the package when present.
	if i := strings.Index(name, ".("); i >= 0 {
		name = name[i+1:]
	} else if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.NewReplacer("(*", "", "(", "", ")", "").Replace(name)
	if qualified || closureSuffix.MatchString(name) {
		return name
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
