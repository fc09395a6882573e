// Package msgs defines the messages that carry engine activity into the TUI.
package msgs

import "github.com/ashiqsultan/copilot-ralph/internal/events"

// EventMsg wraps one engine event.
type EventMsg struct {
	Event events.Event
}

// WorkDoneMsg signals that the engine call driven by the TUI returned.
type WorkDoneMsg struct {
	Err error
}
