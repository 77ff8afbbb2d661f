package chrometrace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Phase is the trace event type code.
type Phase string

const (
	PhaseBegin    Phase = "B"
	PhaseEnd      Phase = "E"
	PhaseMetadata Phase = "M"
)

// Event is a single trace record.
// Field order matches the serialized key order.
//
//nolint:govet // Field order is the JSON key order
type Event struct {
	Phase     Phase   `json:"ph"`
	Timestamp float64 `json:"ts"`
	Category  string  `json:"category"`
	ProcessID int     `json:"pid"`
	ThreadID  int64   `json:"tid"`
	Name      string  `json:"name"`
	Args      Args    `json:"args"`
}

// Arg is one key/value pair attached to an event.
type Arg struct {
	Key   string
	Value any
}

// NewArg creates an Arg.
func NewArg(key string, value any) Arg {
	return Arg{Key: key, Value: value}
}

// Args is an ordered set of event arguments. It serializes as a JSON object
// whose keys keep insertion order.
type Args []Arg

// Get returns the first value stored under key.
func (a Args) Get(key string) (any, bool) {
	for _, arg := range a {
		if arg.Key == key {
			return arg.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes the args as an object, {} when empty.
// Values that cannot be encoded are written as their fmt representation.
func (a Args) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, arg := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(arg.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(arg.Value)
		if err != nil {
			value, _ = json.Marshal(fmt.Sprint(arg.Value)) //nolint:errcheck // strings always encode
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object into Args, keeping key order.
func (a *Args) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("args: expected object, got %v", tok)
	}

	out := Args{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("args: expected key, got %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = append(out, Arg{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// Microseconds converts t to the trace timestamp unit.
func Microseconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Microsecond)
}
