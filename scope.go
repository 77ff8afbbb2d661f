package chrometrace

import "sync"

// Scope is an open span. End closes it exactly once.
// A Scope opened while the session was disabled records nothing.
type Scope struct {
	rec    *Recorder
	name   string
	mu     sync.Mutex
	active bool
}

// End records the span's End event.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Scope) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.active = false
	s.rec.End(s.name)
}

// Name returns the span name, empty for a scope that records nothing.
func (s *Scope) Name() string {
	return s.name
}

// Active reports whether End is still pending.
func (s *Scope) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
