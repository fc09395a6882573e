package planner

import "github.com/ashiqsultan/copilot-ralph/internal/backlog"

// Merge writes each entry's plan onto the task with the same id and returns
// the number of tasks updated. Entries for unknown ids are ignored; when an id
// repeats, the last entry wins.
func Merge(b *backlog.Backlog, entries []Entry) int {
	plans := make(map[int]string, len(entries))
	for _, e := range entries {
		plans[e.ID] = e.Plan
	}

	updated := 0
	for i := range b.Tasks {
		if plan, ok := plans[b.Tasks[i].ID]; ok {
			b.Tasks[i].Plan = plan
			updated++
		}
	}
	return updated
}
