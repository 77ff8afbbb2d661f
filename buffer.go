package chrometrace

import "sync"

// buffer holds events recorded since the last flush.
// The events belong to the process that recorded them; when a different
// process id shows up the inherited events are discarded.
// Safe for concurrent use by multiple goroutines.
type buffer struct {
	events []Event
	pid    int
	mu     sync.Mutex
}

func newBuffer(pid int) *buffer {
	return &buffer{
		events: make([]Event, 0, 8), // Start with small capacity.
		pid:    pid,
	}
}

// add appends an event recorded by process pid.
// If pid differs from the owning process the existing events are dropped
// first and forked reports true along with the number dropped.
func (b *buffer) add(pid int, ev Event) (dropped int, forked bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pid != b.pid {
		dropped = len(b.events)
		b.events = b.events[:0]
		b.pid = pid
		forked = true
	}

	if len(b.events) >= cap(b.events) {
		b.grow()
	}
	b.events = append(b.events, ev)
	return dropped, forked
}

// grow enlarges the backing array. Caller holds mu.
func (b *buffer) grow() {
	currentCap := cap(b.events)
	var newCap int
	if currentCap < 1024 {
		newCap = currentCap * 2
	} else {
		// 50% for large buffers.
		newCap = currentCap + currentCap/2
	}
	if newCap < 32 {
		newCap = 32
	}
	grown := make([]Event, len(b.events), newCap)
	copy(grown, b.events)
	b.events = grown
}

// drain returns the buffered events in record order and empties the buffer.
// The returned slice is not shared with the buffer.
func (b *buffer) drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, len(b.events))
	copy(out, b.events)

	// Only shrink very oversized buffers to avoid allocation churn.
	if cap(b.events) > 256 && len(b.events) < cap(b.events)/8 {
		newCap := cap(b.events) / 4
		if newCap < 32 {
			newCap = 32
		}
		b.events = make([]Event, 0, newCap)
	} else {
		b.events = b.events[:0]
	}
	return out
}

// reset discards all events and assigns the buffer to pid.
func (b *buffer) reset(pid int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.events)
	b.events = b.events[:0]
	b.pid = pid
	return n
}

// count returns the number of buffered events.
func (b *buffer) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
