package console

import (
	"slices"
	"sync"
	"time"
)

// Severity classifies a console entry.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lowercase label for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is a single typed console message.
type Entry struct {
	Severity Severity
	Code     string
	Params   []any
	Time     time.Time
}

// Info builds an informational entry.
func Info(code string, params ...any) Entry {
	return Entry{Severity: SeverityInfo, Code: code, Params: params, Time: time.Now()}
}

// Warning builds a warning entry.
func Warning(code string, params ...any) Entry {
	return Entry{Severity: SeverityWarning, Code: code, Params: params, Time: time.Now()}
}

// Error builds an error entry.
func Error(code string, params ...any) Entry {
	return Entry{Severity: SeverityError, Code: code, Params: params, Time: time.Now()}
}

// Sink receives console entries.
type Sink interface {
	Log(e Entry)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Entry)

// Log calls f(e).
func (f SinkFunc) Log(e Entry) { f(e) }

// Discard drops every entry.
var Discard Sink = SinkFunc(func(Entry) {})

type multiSink []Sink

func (m multiSink) Log(e Entry) {
	for _, s := range m {
		s.Log(e)
	}
}

// Multi returns a Sink that forwards each entry to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Recorder is an in-memory Sink.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Log appends e.
func (r *Recorder) Log(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// Codes returns the recorded codes in order.
func (r *Recorder) Codes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, len(r.entries))
	for i, e := range r.entries {
		codes[i] = e.Code
	}
	return codes
}

// Has reports whether an entry with the given code was recorded.
func (r *Recorder) Has(code string) bool {
	return slices.Contains(r.Codes(), code)
}

// Find returns the first entry with the given code.
func (r *Recorder) Find(code string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Code == code {
			return e, true
		}
	}
	return Entry{}, false
}
