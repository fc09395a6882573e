package components

import (
	"strings"

	"github.com/ashiqsultan/copilot-ralph/internal/tui/styles"
)

// StatusBar renders the bottom key-help line.
type StatusBar struct{}

// NewStatusBar creates a new StatusBar instance.
func NewStatusBar() StatusBar {
	return StatusBar{}
}

// Render joins items with " | " and pads the result to width.
func (s StatusBar) Render(width int, items []string) string {
	return styles.StatusBarStyle.Width(width).Render(strings.Join(items, " | "))
}
