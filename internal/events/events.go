// Package events defines the single stream of progress, output, and error
// notifications that the engine emits for a UI.
package events

import (
	"fmt"
	"time"
)

// Kind identifies what happened.
type Kind int

const (
	TaskStarted Kind = iota
	Output
	TaskDone
	TaskExited
	Notice
	PlansSaved
	RunFinished
)

func (k Kind) String() string {
	switch k {
	case TaskStarted:
		return "task-started"
	case Output:
		return "output"
	case TaskDone:
		return "task-done"
	case TaskExited:
		return "task-exited"
	case Notice:
		return "notice"
	case PlansSaved:
		return "plans-saved"
	case RunFinished:
		return "run-finished"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Severity tags an event for display.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Session names the kind of run session that produced an event.
type Session string

const (
	SessionExecution Session = "execution"
	SessionPlanning  Session = "planning"
)

// Event is one notification.
type Event struct {
	Time     time.Time
	Kind     Kind
	Session  Session
	TaskID   *int
	Stream   string // "stdout" or "stderr" for Output events
	Severity Severity
	Text     string
	Updated  int // number of records updated, for PlansSaved
}

// HasTask reports whether the event refers to a task.
func (e Event) HasTask() bool {
	return e.TaskID != nil
}

// TaskLabel renders the task reference, or an empty string.
func (e Event) TaskLabel() string {
	if e.TaskID == nil {
		return ""
	}
	return fmt.Sprintf("[%d]", *e.TaskID)
}
