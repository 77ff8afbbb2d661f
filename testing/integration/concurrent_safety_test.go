package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zoobzio/chrometrace"
)

// TestConcurrentRecording records nested spans from many goroutines while a
// background flusher drains the buffer.
func TestConcurrentRecording(t *testing.T) {
	const (
		goroutines        = 20
		spansPerGoroutine = 50
	)
	path := tracePath(t)

	s := newSession(t, chrometrace.WithFlushInterval(5*time.Millisecond))
	if err := s.Enable(chrometrace.PathDestination(path)); err != nil {
		t.Fatalf("enable: %v", err)
	}
	rec := chrometrace.NewRecorder(s)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < spansPerGoroutine; j++ {
				_ = rec.Run("parent", func() error { //nolint:errcheck // returns nil
					scope := rec.Scope("child", chrometrace.NewArg("j", j))
					defer scope.End()
					return nil
				})
			}
		}()
	}
	wg.Wait()

	if err := s.Disable(); err != nil {
		t.Fatalf("disable: %v", err)
	}

	events := loadComplete(t, path)
	if want := goroutines * spansPerGoroutine * 4; events.Len() != want {
		t.Fatalf("Expected %d events, got %d", want, events.Len())
	}
	if tids := events.ThreadIDs(); len(tids) != goroutines {
		t.Errorf("Expected %d distinct goroutine ids, got %d", goroutines, len(tids))
	}
	assertBalanced(t, events)

	for _, span := range events.Spans() {
		want := 0
		if span.Name == "child" {
			want = 1
		}
		if span.Depth != want {
			t.Errorf("Span %s on tid %d has depth %d, want %d", span.Name, span.TID, span.Depth, want)
			break
		}
	}
}

// TestConcurrentEnableDisable toggles a session while other goroutines record.
func TestConcurrentEnableDisable(t *testing.T) {
	path := tracePath(t)
	s := newSession(t)
	rec := chrometrace.NewRecorder(s)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				rec.Scope("racing").End()
			}
			return nil
		})
	}

	for round := 0; round < 20; round++ {
		if err := s.Enable(chrometrace.PathDestination(path)); err != nil {
			t.Fatalf("enable round %d: %v", round, err)
		}
		time.Sleep(time.Millisecond)
		if err := s.Disable(); err != nil {
			t.Fatalf("disable round %d: %v", round, err)
		}
	}
	cancel()
	if err := g.Wait(); err != nil {
		t.Fatalf("recorder failed: %v", err)
	}

	// Spans cut by Disable may be unpaired, but the document must be valid.
	events := loadComplete(t, path)
	if events.Len() == 0 {
		t.Error("Expected some events to be recorded")
	}
	for _, ev := range events.All() {
		if ev.Name != "racing" {
			t.Errorf("Unexpected event %+v", ev)
		}
	}
}

// TestRecorderThroughContext hands a recorder to workers via context.
func TestRecorderThroughContext(t *testing.T) {
	path := tracePath(t)
	s := newSession(t)
	if err := s.Enable(chrometrace.PathDestination(path)); err != nil {
		t.Fatalf("enable: %v", err)
	}
	ctx := chrometrace.ContextWithRecorder(context.Background(), chrometrace.NewRecorder(s))

	handle := func(ctx context.Context, id int) error {
		rec := chrometrace.RecorderFromContext(ctx)
		if rec == nil {
			t.Error("Recorder missing from context")
			return nil
		}
		return rec.Run("handle", func() error {
			defer rec.Scope("query").End()
			return nil
		}, chrometrace.NewArg("id", id))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error { return handle(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if err := s.Disable(); err != nil {
		t.Fatalf("disable: %v", err)
	}

	events := loadComplete(t, path)
	counts := events.SpanCounts()
	if counts["handle"] != 8 || counts["query"] != 8 {
		t.Errorf("Expected 8 handle and 8 query spans, got %v", counts)
	}
	ids := map[float64]bool{}
	for _, ev := range events.ByName("handle").ByPhase(chrometrace.PhaseBegin).All() {
		id, _ := ev.Args.Get("id")
		ids[id.(float64)] = true //nolint:forcetypeassert // ids are numbers
	}
	if len(ids) != 8 {
		t.Errorf("Expected 8 distinct ids, got %v", ids)
	}
}
