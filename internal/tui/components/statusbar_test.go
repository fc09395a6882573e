package components

import (
	"strings"
	"testing"
)

func TestStatusBar_Render(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		want  []string
	}{
		{"single item", []string{"q Quit"}, []string{"q Quit"}},
		{"multiple items", []string{"↑↓ Scroll", "q Abort"}, []string{"↑↓ Scroll", " | ", "q Abort"}},
		{"no items", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewStatusBar().Render(40, tt.items)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("Render() = %q, missing %q", got, want)
				}
			}
		})
	}
}
