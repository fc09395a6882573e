package components

import (
	"fmt"
	"strings"
)

const (
	filledChar = "■"
	emptyChar  = "□"
)

// Progress renders finished tasks out of the backlog, like: ■■■■□□□□ 2/4
type Progress struct {
	Done  int
	Total int
	Width int // character width of the bar portion
}

// NewProgress creates a new Progress instance.
func NewProgress(done, total, width int) Progress {
	return Progress{Done: done, Total: total, Width: width}
}

// View returns the rendered bar, or an empty string for an empty backlog.
func (p Progress) View() string {
	if p.Total <= 0 || p.Width <= 0 {
		return ""
	}
	done := min(max(p.Done, 0), p.Total)
	filled := done * p.Width / p.Total
	bar := strings.Repeat(filledChar, filled) + strings.Repeat(emptyChar, p.Width-filled)
	return fmt.Sprintf("%s %d/%d", bar, done, p.Total)
}
