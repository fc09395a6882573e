// Package backlog holds the ordered list of task records and its on-disk
// representation under .copilot_ralph/.
package backlog

import (
	"errors"
	"strings"
)

// Backlog is the ordered work list. Insertion order is iteration order.
type Backlog struct {
	Tasks []Task
}

// NextPending returns the first task that is not done, or nil.
// Selection is FIFO over insertion order, not priority based.
func (b *Backlog) NextPending() *Task {
	for i := range b.Tasks {
		if !b.Tasks[i].IsDone {
			return &b.Tasks[i]
		}
	}
	return nil
}

// NextID returns max(existing ids)+1, or 0 when the backlog is empty.
func (b *Backlog) NextID() int {
	if len(b.Tasks) == 0 {
		return 0
	}
	max := b.Tasks[0].ID
	for _, t := range b.Tasks[1:] {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// Add appends a new pending task and returns it.
func (b *Backlog) Add(title, description string, attachments []Attachment) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, errors.New("task title is required")
	}
	if strings.TrimSpace(description) == "" {
		description = DefaultDescription
	}

	task := Task{
		ID:          b.NextID(),
		Title:       title,
		Description: description,
		Attachments: attachments,
	}
	b.Tasks = append(b.Tasks, task)
	return task, nil
}

// Find returns the task with the given id, or nil.
func (b *Backlog) Find(id int) *Task {
	for i := range b.Tasks {
		if b.Tasks[i].ID == id {
			return &b.Tasks[i]
		}
	}
	return nil
}

// MarkDone sets isDone on the task. Returns false if the id is unknown.
func (b *Backlog) MarkDone(id int) bool {
	t := b.Find(id)
	if t == nil {
		return false
	}
	t.IsDone = true
	return true
}

// Reset marks the task as pending again.
func (b *Backlog) Reset(id int) bool {
	t := b.Find(id)
	if t == nil {
		return false
	}
	t.IsDone = false
	return true
}

// SetPlan sets or overwrites the plan of the task.
func (b *Backlog) SetPlan(id int, plan string) bool {
	t := b.Find(id)
	if t == nil {
		return false
	}
	t.Plan = plan
	return true
}

// Remove deletes the task with the given id, preserving the order of the rest.
// The engine never calls this; it backs explicit user deletes.
func (b *Backlog) Remove(id int) bool {
	for i := range b.Tasks {
		if b.Tasks[i].ID == id {
			b.Tasks = append(b.Tasks[:i], b.Tasks[i+1:]...)
			return true
		}
	}
	return false
}

// CountDone returns the number of completed tasks.
func (b *Backlog) CountDone() int {
	count := 0
	for i := range b.Tasks {
		if b.Tasks[i].IsDone {
			count++
		}
	}
	return count
}
