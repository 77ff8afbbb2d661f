package query

import (
	"time"

	"github.com/zoobzio/chrometrace"
)

// Span is a Begin event joined with its End event.
//
//nolint:govet // Field alignment optimized for readability
type Span struct {
	Name     string
	Category string
	PID      int
	TID      int64
	Start    float64 // microseconds
	End      float64 // microseconds
	Depth    int
	Args     chrometrace.Args
}

// Duration returns End - Start.
func (s Span) Duration() time.Duration {
	return time.Duration((s.End - s.Start) * float64(time.Microsecond))
}

// StartTime returns Start as a time.Time.
func (s Span) StartTime() time.Time {
	return fromMicros(s.Start)
}

// EndTime returns End as a time.Time.
func (s Span) EndTime() time.Time {
	return fromMicros(s.End)
}

func fromMicros(us float64) time.Time {
	return time.Unix(0, int64(us*float64(time.Microsecond)))
}

type threadKey struct {
	pid int
	tid int64
}

// Spans pairs Begin and End events per thread, innermost first, in the
// order their End events appear. An End whose name differs from the open
// Begin closes the nearest open Begin with that name; unmatched events are
// skipped.
func (e *Events) Spans() []Span {
	stacks := make(map[threadKey][]chrometrace.Event)
	var spans []Span

	for _, ev := range e.events {
		key := threadKey{pid: ev.ProcessID, tid: ev.ThreadID}
		switch ev.Phase {
		case chrometrace.PhaseBegin:
			stacks[key] = append(stacks[key], ev)
		case chrometrace.PhaseEnd:
			stack := stacks[key]
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].Name != ev.Name {
					continue
				}
				begin := stack[i]
				spans = append(spans, Span{
					Name:     begin.Name,
					Category: begin.Category,
					PID:      begin.ProcessID,
					TID:      begin.ThreadID,
					Start:    begin.Timestamp,
					End:      ev.Timestamp,
					Depth:    i,
					Args:     begin.Args,
				})
				stacks[key] = stack[:i]
				break
			}
		}
	}
	return spans
}

// SpanCounts returns the number of completed spans per name.
func (e *Events) SpanCounts() map[string]int {
	counts := make(map[string]int)
	for _, s := range e.Spans() {
		counts[s.Name]++
	}
	return counts
}
