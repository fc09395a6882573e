package backlog

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

func genBacklog(t *rapid.T) *Backlog {
	n := rapid.IntRange(0, 12).Draw(t, "n")
	ids := rapid.Permutation(rapidRange(n)).Draw(t, "ids")
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{
			ID:     ids[i],
			Title:  fmt.Sprintf("task %d", ids[i]),
			IsDone: rapid.Bool().Draw(t, fmt.Sprintf("done%d", i)),
		}
	}
	return &Backlog{Tasks: tasks}
}

func rapidRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i * 3
	}
	return out
}

// NextPending returns the first not-done record in insertion order, or nil.
func TestProperty_NextPendingIsFirstNotDone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := genBacklog(t)
		got := b.NextPending()

		for i := range b.Tasks {
			if !b.Tasks[i].IsDone {
				if got == nil {
					t.Fatalf("expected task %d, got nil", b.Tasks[i].ID)
				}
				if got != &b.Tasks[i] {
					t.Fatalf("expected task %d, got %d", b.Tasks[i].ID, got.ID)
				}
				return
			}
		}
		if got != nil {
			t.Fatalf("expected nil, got task %d", got.ID)
		}
	})
}

// Add assigns max+1 (or 0) and never reuses an existing id.
func TestProperty_AddAssignsUniqueIncreasingID(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := genBacklog(t)
		want := 0
		for _, task := range b.Tasks {
			if task.ID+1 > want {
				want = task.ID + 1
			}
		}

		task, err := b.Add("new", "", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if task.ID != want {
			t.Fatalf("ID = %d, want %d", task.ID, want)
		}

		seen := make(map[int]bool)
		for _, existing := range b.Tasks {
			if seen[existing.ID] {
				t.Fatalf("duplicate id %d", existing.ID)
			}
			seen[existing.ID] = true
		}
	})
}
