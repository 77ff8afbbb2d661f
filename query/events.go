// Package query loads finished chrometrace files and filters their events.
//
//	events, err := query.Load("app.json")
//	if err != nil {
//		return err
//	}
//	for _, tid := range events.ThreadIDs() {
//		fmt.Println(tid, events.OnThread(tid).Len())
//	}
//
// Every filter returns a new *Events over a subset of the same events.
// A file missing its closing footer is repaired before parsing.
package query

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/zoobzio/chrometrace"
)

// MalformedTraceFileError reports a trace document that does not parse.
type MalformedTraceFileError struct {
	Path string
	Err  error
}

func (e *MalformedTraceFileError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed trace: %v", e.Err)
	}
	return fmt.Sprintf("malformed trace file %s: %v", e.Path, e.Err)
}

func (e *MalformedTraceFileError) Unwrap() error {
	return e.Err
}

type document struct {
	TraceEvents *[]chrometrace.Event `json:"traceEvents"`
}

// Events is a queryable list of trace events.
// Safe for concurrent reads.
type Events struct {
	events []chrometrace.Event

	once sync.Once
	pids []int
	tids []int64
}

// New wraps an in-memory event list.
func New(events []chrometrace.Event) *Events {
	return &Events{events: events}
}

// Load reads and parses the trace file at path.
func Load(path string) (*Events, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	events, err := Parse(data)
	if err != nil {
		if malformed, ok := err.(*MalformedTraceFileError); ok {
			malformed.Path = path
		}
		return nil, err
	}
	return events, nil
}

// Parse decodes a trace document, repairing a missing footer first.
func Parse(data []byte) (*Events, error) {
	var doc document
	if err := json.Unmarshal(Repair(data), &doc); err != nil {
		return nil, &MalformedTraceFileError{Err: err}
	}
	if doc.TraceEvents == nil {
		return nil, &MalformedTraceFileError{Err: fmt.Errorf("missing traceEvents array")}
	}
	return New(*doc.TraceEvents), nil
}

// Len returns the number of events.
func (e *Events) Len() int {
	return len(e.events)
}

// At returns the i-th event.
func (e *Events) At(i int) chrometrace.Event {
	return e.events[i]
}

// All returns a copy of the events.
func (e *Events) All() []chrometrace.Event {
	out := make([]chrometrace.Event, len(e.events))
	copy(out, e.events)
	return out
}

func (e *Events) index() {
	e.once.Do(func() {
		seenPID := make(map[int]struct{})
		seenTID := make(map[int64]struct{})
		for i := range e.events {
			ev := &e.events[i]
			if _, ok := seenPID[ev.ProcessID]; !ok {
				seenPID[ev.ProcessID] = struct{}{}
				e.pids = append(e.pids, ev.ProcessID)
			}
			if _, ok := seenTID[ev.ThreadID]; !ok {
				seenTID[ev.ThreadID] = struct{}{}
				e.tids = append(e.tids, ev.ThreadID)
			}
		}
	})
}

// ProcessIDs returns the distinct process ids in first-seen order.
func (e *Events) ProcessIDs() []int {
	e.index()
	return append([]int(nil), e.pids...)
}

// ThreadIDs returns the distinct thread ids in first-seen order.
func (e *Events) ThreadIDs() []int64 {
	e.index()
	return append([]int64(nil), e.tids...)
}

// Filter returns the events matching keep.
func (e *Events) Filter(keep func(chrometrace.Event) bool) *Events {
	out := make([]chrometrace.Event, 0, len(e.events))
	for _, ev := range e.events {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	return New(out)
}

// OnProcess returns the events recorded by process pid.
func (e *Events) OnProcess(pid int) *Events {
	return e.Filter(func(ev chrometrace.Event) bool { return ev.ProcessID == pid })
}

// OnThread returns the events recorded on thread tid.
func (e *Events) OnThread(tid int64) *Events {
	return e.Filter(func(ev chrometrace.Event) bool { return ev.ThreadID == tid })
}

// ByPhase returns the events with phase ph.
func (e *Events) ByPhase(ph chrometrace.Phase) *Events {
	return e.Filter(func(ev chrometrace.Event) bool { return ev.Phase == ph })
}

// ByName returns the events named name.
func (e *Events) ByName(name string) *Events {
	return e.Filter(func(ev chrometrace.Event) bool { return ev.Name == name })
}

// Names returns the distinct event names in first-seen order.
func (e *Events) Names() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, ev := range e.events {
		if _, ok := seen[ev.Name]; ok {
			continue
		}
		seen[ev.Name] = struct{}{}
		names = append(names, ev.Name)
	}
	return names
}
