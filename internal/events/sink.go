package events

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) {
	f(e)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Multi fans an event out to several sinks in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(e)
			}
		}
	})
}

// Stamp fills in the event time if it is unset.
func Stamp(e Event) Event {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	return e
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records the event.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind returns the recorded events of the given kind.
func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Output concatenates the text of recorded Output events.
func (r *Recorder) Output() string {
	var sb strings.Builder
	for _, e := range r.OfKind(Output) {
		sb.WriteString(e.Text)
	}
	return sb.String()
}

// FileSink appends raw agent output and a header per task to a log file.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (or creates) path for appending.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output log: %w", err)
	}
	return &FileSink{file: f}, nil
}

// Emit writes output text verbatim and other events as marker lines.
func (s *FileSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}

	switch e.Kind {
	case Output:
		s.file.WriteString(e.Text)
	case TaskStarted:
		fmt.Fprintf(s.file, "\n=== %s %s %s ===\n", Stamp(e).Time.Format(time.RFC3339), e.TaskLabel(), e.Text)
	default:
		fmt.Fprintf(s.file, "--- %s %s %s\n", e.Kind, e.TaskLabel(), e.Text)
	}
}

// Close closes the log file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// WriterSink renders events as plain text for a non-interactive terminal.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
	// StderrTo receives stderr output chunks. Defaults to w.
	StderrTo io.Writer
}

// NewWriterSink creates a plain-text sink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Emit prints the event.
func (s *WriterSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Kind {
	case Output:
		w := s.w
		if e.Stream == "stderr" && s.StderrTo != nil {
			w = s.StderrTo
		}
		io.WriteString(w, e.Text)
	case TaskStarted:
		fmt.Fprintf(s.w, "\n==> Task %s %s\n", e.TaskLabel(), e.Text)
	default:
		prefix := ""
		switch e.Severity {
		case Warning:
			prefix = "Warning: "
		case Error:
			prefix = "Error: "
		}
		label := e.TaskLabel()
		if label != "" {
			label += " "
		}
		fmt.Fprintf(s.w, "%s%s%s\n", prefix, label, e.Text)
	}
}
