package chrometrace

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

type counter struct {
	n int
}

func (c *counter) Add(d int) int {
	c.n += d
	return c.n
}

func sleepFor(d time.Duration) {
	time.Sleep(d)
}

func numbers() <-chan int {
	ch := make(chan int)
	close(ch)
	return ch
}

func sequence() func(yield func(int) bool) {
	return func(yield func(int) bool) {
		yield(1)
	}
}

func TestWrapNestedSpans(t *testing.T) {
	r, path := newTestRecorder(t)

	helper := MustWrap(r, sleepFor, WithName("helper"))

	var measured time.Duration
	work := MustWrap(r, func() {
		start := time.Now()
		time.Sleep(250 * time.Millisecond)
		helper(50 * time.Millisecond)
		measured = time.Since(start)
	}, WithName("work"))

	work()

	events := finish(t, r, path)
	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}

	want := []struct {
		ph   Phase
		name string
	}{
		{PhaseBegin, "work"},
		{PhaseBegin, "helper"},
		{PhaseEnd, "helper"},
		{PhaseEnd, "work"},
	}
	for i, w := range want {
		if events[i].Phase != w.ph || events[i].Name != w.name {
			t.Errorf("Event %d: expected %s %s, got %s %s", i, w.ph, w.name, events[i].Phase, events[i].Name)
		}
		if events[i].ProcessID != os.Getpid() || events[i].ThreadID != events[0].ThreadID {
			t.Errorf("Event %d recorded on unexpected pid/tid: %+v", i, events[i])
		}
	}

	workSpan := time.Duration((events[3].Timestamp - events[0].Timestamp) * float64(time.Microsecond))
	helperSpan := time.Duration((events[2].Timestamp - events[1].Timestamp) * float64(time.Microsecond))

	if workSpan < 300*time.Millisecond {
		t.Errorf("Expected work span >= 300ms, got %v", workSpan)
	}
	if diff := workSpan - measured; diff < 0 || diff > 5*time.Millisecond {
		t.Errorf("Work span %v differs from measured %v by %v", workSpan, measured, diff)
	}
	if helperSpan < 50*time.Millisecond || helperSpan > workSpan {
		t.Errorf("Unexpected helper span %v", helperSpan)
	}
}

func TestWrapDerivesNames(t *testing.T) {
	r, path := newTestRecorder(t)
	c := &counter{}

	add := MustWrap(r, c.Add)
	qualified := MustWrapMethod(r, c.Add)
	sleep := MustWrap(r, sleepFor)

	if got := add(2); got != 2 {
		t.Errorf("Expected 2, got %d", got)
	}
	if got := qualified(3); got != 5 {
		t.Errorf("Expected 5, got %d", got)
	}
	sleep(0)

	events := finish(t, r, path)
	if len(events) != 6 {
		t.Fatalf("Expected 6 events, got %d", len(events))
	}
	for i, want := range []string{"Add", "counter.Add", "sleepFor"} {
		if got := events[i*2].Name; got != want {
			t.Errorf("Expected span %s, got %s", want, got)
		}
	}
}

func TestWrapMethodRejectsFunctions(t *testing.T) {
	r := NewRecorder(New(WithLogger(quietLogger())))

	if _, err := WrapMethod(r, sleepFor); !errors.Is(err, ErrUnsupportedCallable) {
		t.Errorf("Expected ErrUnsupportedCallable, got %v", err)
	}
}

func TestWrapRejectsLazySequences(t *testing.T) {
	r := NewRecorder(New(WithLogger(quietLogger())))

	if _, err := Wrap(r, numbers); !errors.Is(err, ErrUnsupportedCallable) {
		t.Errorf("Expected channel result to be rejected, got %v", err)
	}
	if _, err := Wrap(r, sequence); !errors.Is(err, ErrUnsupportedCallable) {
		t.Errorf("Expected iterator result to be rejected, got %v", err)
	}
	if _, err := Wrap(r, 42); !errors.Is(err, ErrUnsupportedCallable) {
		t.Errorf("Expected non-function to be rejected, got %v", err)
	}
	var nilFn func()
	if _, err := Wrap(r, nilFn); !errors.Is(err, ErrUnsupportedCallable) {
		t.Errorf("Expected nil function to be rejected, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustWrap should panic on unsupported callable")
		}
	}()
	MustWrap(r, numbers)
}

func TestWrapPassesErrorsAndPanics(t *testing.T) {
	r, path := newTestRecorder(t)
	want := errors.New("failed")

	failing := MustWrap(r, func(string) (int, error) { return 0, want })
	if _, err := failing("x"); !errors.Is(err, want) {
		t.Errorf("Expected error to pass through, got %v", err)
	}

	panicking := MustWrap(r, func() { panic("boom") }, WithName("panicking"))
	func() {
		defer func() {
			if recovered := recover(); recovered != "boom" {
				t.Errorf("Expected panic to propagate, got %v", recovered)
			}
		}()
		panicking()
	}()

	events := finish(t, r, path)
	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}
	if events[3].Phase != PhaseEnd || events[3].Name != "panicking" {
		t.Errorf("Expected End for panicking span, got %+v", events[3])
	}
}

func TestWrapCapturesArgsBeforeCall(t *testing.T) {
	r, path := newTestRecorder(t)

	mutate := MustWrap(r, func(values []int, label string, n int) {
		values[0] = 99
	}, WithName("mutate"), WithArgs("values", "", "n"))

	mutate([]int{1, 2}, "ignored", 7)

	events := finish(t, r, path)
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	args := events[0].Args
	if len(args) != 2 {
		t.Fatalf("Expected 2 captured args, got %v", args)
	}
	if v, _ := args.Get("values"); v != "[]int{1, 2}" {
		t.Errorf("Expected values captured before mutation, got %v", v)
	}
	if v, _ := args.Get("n"); v != float64(7) {
		t.Errorf("Expected n=7, got %v", v)
	}
	if _, ok := args.Get("label"); ok {
		t.Error("Unnamed parameter should not be captured")
	}
}

func TestWrapTooManyArgNames(t *testing.T) {
	r := NewRecorder(New(WithLogger(quietLogger())))

	if _, err := Wrap(r, sleepFor, WithArgs("d", "extra")); !errors.Is(err, ErrUnsupportedCallable) {
		t.Errorf("Expected ErrUnsupportedCallable, got %v", err)
	}
}

func TestWrapVariadic(t *testing.T) {
	r, path := newTestRecorder(t)

	join := MustWrap(r, func(sep string, parts ...string) string {
		return strings.Join(parts, sep)
	}, WithName("join"))

	if got := join("-", "a", "b", "c"); got != "a-b-c" {
		t.Errorf("Expected a-b-c, got %s", got)
	}
	if got := join(","); got != "" {
		t.Errorf("Expected empty join, got %q", got)
	}

	if events := finish(t, r, path); len(events) != 4 {
		t.Errorf("Expected 4 events, got %d", len(events))
	}
}

func TestWrapDisabledSkipsRecording(t *testing.T) {
	r := NewRecorder(New(WithLogger(quietLogger())))
	c := &counter{}

	add := MustWrap(r, c.Add)
	if got := add(4); got != 4 {
		t.Errorf("Expected 4, got %d", got)
	}
	if r.Session().Buffered() != 0 {
		t.Error("Disabled wrapper should not record")
	}
}

func TestSpanName(t *testing.T) {
	tests := []struct {
		full      string
		qualified bool
		want      string
	}{
		{"github.com/acme/app/store.(*DB).Query-fm", false, "Query"},
		{"github.com/acme/app/store.(*DB).Query-fm", true, "DB.Query"},
		{"github.com/acme/app/store.DB.Query", true, "DB.Query"},
		{"github.com/acme/app/store.Open", false, "Open"},
		{"main.main", false, "main"},
		{"gopkg.in/yaml.v3.Marshal", false, "Marshal"},
		{"gopkg.in/yaml.v3.(*Decoder).Decode-fm", false, "Decode"},
		{"gopkg.in/yaml.v3.(*Decoder).Decode-fm", true, "Decoder.Decode"},
		{"github.com/zoobzio/chrometrace.TestLoad.func1", false, "TestLoad.func1"},
		{"github.com/zoobzio/chrometrace.TestLoad.func1.2", false, "TestLoad.func1.2"},
	}

	for _, tt := range tests {
		if got := spanName(tt.full, tt.qualified); got != tt.want {
			t.Errorf("spanName(%q, %v) = %q, want %q", tt.full, tt.qualified, got, tt.want)
		}
	}
}

func TestIsMethodName(t *testing.T) {
	tests := map[string]bool{
		"github.com/acme/app/store.(*DB).Query-fm": true,
		"github.com/acme/app/store.(*DB).Query":    true,
		"github.com/acme/app/store.DB.Query-fm":    true,
		"github.com/acme/app/store.Open":           false,
		"main.main.func1":                          false,
	}

	for full, want := range tests {
		if got := isMethodName(full); got != want {
			t.Errorf("isMethodName(%q) = %v, want %v", full, got, want)
		}
	}
}
