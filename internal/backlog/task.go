package backlog

import (
	"errors"
	"strings"
)

// DefaultDescription is stored when a task is created without a description.
const DefaultDescription = "No description"

// Attachment references a project file attached to a task.
type Attachment struct {
	Type         string `json:"type"`
	RelativePath string `json:"relativePath"`
	DisplayName  string `json:"displayName"`
}

// Task represents a single backlog record.
type Task struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	IsDone      bool         `json:"isDone"`
	Plan        string       `json:"plan,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Validate checks that the task can be handed to the agent.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("task title is required")
	}
	return nil
}
