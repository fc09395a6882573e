package orchestrator

import (
	"errors"
	"fmt"

	"github.com/ashiqsultan/copilot-ralph/internal/supervisor"
)

// ErrAlreadyRunning is returned when Run or RunTask is called while a run is active.
var ErrAlreadyRunning = errors.New("a run is already in progress")

// ConfigError reports a problem found before any task started: a missing
// project folder, an unusable agent, an unreadable backlog, or an unknown task.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TaskFailedError reports that the agent process for a task did not succeed.
type TaskFailedError struct {
	TaskID int
	Status *supervisor.ExitStatus
	Err    error
}

func (e *TaskFailedError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("task %d failed: %v", e.TaskID, e.Err)
	case e.Status != nil:
		return fmt.Sprintf("task %d failed: %s", e.TaskID, e.Status)
	default:
		return fmt.Sprintf("task %d failed", e.TaskID)
	}
}

func (e *TaskFailedError) Unwrap() error {
	return e.Err
}
