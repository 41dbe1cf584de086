package event

import (
	"sync"
	"time"
)

// Type identifies the kind of event.
type Type int

const (
	DiscoveryStarted Type = iota + 1
	DirDiscovered
	DiscoveryComplete
	PairPlanned
	PlanComplete
	DirStarted
	DirCreated
	DirFailed
	DirSkipped
	DirCompleted
	FileCopied
	FileFailed
	FileSkipped
	MigrationComplete
)

var typeNames = [...]string{
	DiscoveryStarted:  "DiscoveryStarted",
	DirDiscovered:     "DirDiscovered",
	DiscoveryComplete: "DiscoveryComplete",
	PairPlanned:       "PairPlanned",
	PlanComplete:      "PlanComplete",
	DirStarted:        "DirStarted",
	DirCreated:        "DirCreated",
	DirFailed:         "DirFailed",
	DirSkipped:        "DirSkipped",
	DirCompleted:      "DirCompleted",
	FileCopied:        "FileCopied",
	FileFailed:        "FileFailed",
	FileSkipped:       "FileSkipped",
	MigrationComplete: "MigrationComplete",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single progress record emitted by the engine.
type Event struct {
	Timestamp time.Time
	Error     error
	Type      Type
	Src       string // absolute source path (file or directory)
	Dst       string // absolute target path
	Digest    string // verified digest (FileCopied)
	SrcDigest string // source digest on mismatch
	DstDigest string // target digest on mismatch
	Algorithm string
	Size      int64 // file size, or total bytes for summary events
	Files     int64 // file count for directory and summary events
	Errors    int64 // error count for directory and summary events
	Dirs      int64 // directory count (DiscoveryComplete, PlanComplete)
}

// Sink receives events. Implementations must be safe for concurrent use;
// the engine emits from file workers when more than one is configured.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(e Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Recorder collects events in memory. Used by tests and by callers that
// want to inspect a run after the fact.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of all recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Tee fans an event out to several sinks in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			s.Emit(e)
		}
	})
}

// Emit stamps e and sends it to s. A nil sink is a no-op.
func Emit(s Sink, e Event) {
	if s == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	s.Emit(e)
}
