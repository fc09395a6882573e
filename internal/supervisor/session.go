package supervisor

import (
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// Kind distinguishes the two kinds of run session. At most one session of
// each kind can be active.
type Kind int

const (
	KindExecution Kind = iota
	KindPlanning
)

func (k Kind) String() string {
	switch k {
	case KindExecution:
		return "execution"
	case KindPlanning:
		return "planning"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Stream identifies the pipe an output chunk came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Spec describes the process to spawn.
type Spec struct {
	Kind       Kind
	Executable string
	Args       []string
	Dir        string
	Env        []string // nil means the current environment with the shell PATH
	Stdin      string   // written to the process and then closed; empty means no stdin
	TaskID     *int
}

// EventType is the type of a session event.
type EventType int

const (
	EventOutput EventType = iota
	EventExited
)

// Event is delivered on a session's event channel. Output chunks keep pipe
// order per stream. Exited is always last.
type Event struct {
	Type   EventType
	Stream Stream
	Text   string
	Exit   *ExitStatus
}

// ExitStatus describes how a session ended.
type ExitStatus struct {
	Code    int    // -1 when killed by a signal
	Signal  string // signal name, empty for a normal exit
	Aborted bool   // Terminate was called for this session
	Err     error  // start or wait failure, nil for a clean exit
}

// Success reports whether the process exited with code 0.
func (e *ExitStatus) Success() bool {
	return e != nil && e.Code == 0 && e.Signal == "" && e.Err == nil
}

func (e *ExitStatus) String() string {
	switch {
	case e.Aborted:
		return "aborted"
	case e.Signal != "":
		return "killed by " + e.Signal
	case e.Err != nil && e.Code <= 0:
		return e.Err.Error()
	default:
		return fmt.Sprintf("exit code %d", e.Code)
	}
}

// Session is one spawned agent process.
type Session struct {
	ID        string
	Kind      Kind
	TaskID    *int
	StartTime time.Time

	cmd    *exec.Cmd
	events chan Event
	done   chan struct{}

	abandoned   chan struct{}
	abandonOnce sync.Once
	aborted     atomic.Bool

	exit *ExitStatus // set before done is closed
}

const eventBuffer = 256

func newSession(id string, spec Spec) *Session {
	return &Session{
		ID:        id,
		Kind:      spec.Kind,
		TaskID:    spec.TaskID,
		StartTime: time.Now(),
		events:    make(chan Event, eventBuffer),
		done:      make(chan struct{}),
		abandoned: make(chan struct{}),
	}
}

// Events returns the ordered event channel. It is closed after Exited.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed once the process has exited and its output is drained.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Exit returns the exit status, or nil while the process is running.
func (s *Session) Exit() *ExitStatus {
	select {
	case <-s.done:
		return s.exit
	default:
		return nil
	}
}

// Aborted reports whether Terminate was called for the session.
func (s *Session) Aborted() bool {
	return s.aborted.Load()
}

// send delivers an event unless the consumer has abandoned the session.
func (s *Session) send(ev Event) {
	select {
	case s.events <- ev:
	case <-s.abandoned:
	}
}

func (s *Session) abandon() {
	s.abandonOnce.Do(func() { close(s.abandoned) })
}

// finish records the exit status, emits Exited, and closes the channels.
func (s *Session) finish(status *ExitStatus) {
	status.Aborted = status.Aborted || s.aborted.Load()
	s.exit = status

	select {
	case <-s.abandoned:
		// Best effort once nobody is guaranteed to read.
		select {
		case s.events <- Event{Type: EventExited, Exit: status}:
		default:
		}
	default:
		s.send(Event{Type: EventExited, Exit: status})
	}
	close(s.events)
	close(s.done)
}

// streamWriter turns pipe writes into Output events.
type streamWriter struct {
	session *Session
	stream  Stream
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.session.send(Event{Type: EventOutput, Stream: w.stream, Text: string(p)})
	}
	return len(p), nil
}
