package components

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

const defaultMaxLines = 1000

// OutputViewport shows streamed agent output with auto-scroll and a
// scrollbar column. Only the last maxLines raw lines are kept.
type OutputViewport struct {
	viewport    viewport.Model
	autoScroll  bool
	rawLines    []string // unwrapped lines as received
	rawLineOpen bool     // the last raw line has not seen its newline yet
	lines       []string // wrapped lines currently displayed
	maxLines    int
	width       int
	height      int
}

// NewOutputViewport creates an OutputViewport. The width includes one
// column for the scrollbar. maxLines <= 0 uses the default of 1000.
func NewOutputViewport(width, height, maxLines int) OutputViewport {
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}
	vp := viewport.New(max(width-1, 0), height)
	vp.SetContent("")

	return OutputViewport{
		viewport:   vp,
		autoScroll: true,
		maxLines:   maxLines,
		width:      width,
		height:     height,
	}
}

func (o OutputViewport) contentWidth() int {
	return max(o.width-1, 0)
}

// AppendChunk appends a piece of a stream. Chunk boundaries do not break
// lines; only newlines in the text do.
func (o *OutputViewport) AppendChunk(chunk string) {
	if chunk == "" {
		return
	}
	for {
		i := strings.IndexByte(chunk, '\n')
		if i == -1 {
			if chunk != "" {
				o.appendToOpenLine(chunk)
			}
			break
		}
		o.appendToOpenLine(chunk[:i])
		o.rawLineOpen = false
		chunk = chunk[i+1:]
	}
	o.refresh()
}

// AddLine appends a complete line of its own, closing any open stream line.
func (o *OutputViewport) AddLine(line string) {
	o.rawLineOpen = false
	o.appendRawLine(line)
	o.refresh()
}

// Update handles scroll keys and mouse wheel. Scrolling up pauses auto-scroll;
// reaching the bottom resumes it.
func (o *OutputViewport) Update(msg tea.Msg) (OutputViewport, tea.Cmd) {
	var cmd tea.Cmd
	o.viewport, cmd = o.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k", "pgup", "ctrl+u", "home", "g":
			o.autoScroll = false
		case "down", "j", "pgdown", "ctrl+d":
			if o.viewport.AtBottom() {
				o.autoScroll = true
			}
		case "end", "G":
			o.autoScroll = true
			o.viewport.GotoBottom()
		}
	case tea.MouseMsg:
		o.autoScroll = o.viewport.AtBottom()
	}
	return *o, cmd
}

// View renders the visible lines with the scrollbar on the right.
func (o OutputViewport) View() string {
	content := strings.Split(o.viewport.View(), "\n")
	bar := strings.Split(RenderScrollbar(o.height, len(o.lines), o.viewport.YOffset), "\n")
	cw := o.contentWidth()

	var b strings.Builder
	for i := 0; i < o.height; i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		line := ""
		if i < len(content) {
			line = content[i]
		}
		b.WriteString(line)
		if pad := cw - utf8.RuneCountInString(ansi.Strip(line)); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		if i < len(bar) {
			b.WriteString(bar[i])
		}
	}
	return b.String()
}

// SetSize resizes the viewport and rewraps the buffered lines.
func (o *OutputViewport) SetSize(width, height int) {
	if o.width == width && o.height == height {
		return
	}
	o.width = width
	o.height = height
	o.viewport.Width = o.contentWidth()
	o.viewport.Height = height
	o.refresh()
}

// AutoScroll reports whether new output scrolls the view to the bottom.
func (o OutputViewport) AutoScroll() bool {
	return o.autoScroll
}

// LineCount returns the number of wrapped lines in the buffer.
func (o OutputViewport) LineCount() int {
	return len(o.lines)
}

// Content returns the buffered raw lines joined by newlines.
func (o OutputViewport) Content() string {
	return strings.Join(o.rawLines, "\n")
}

func (o *OutputViewport) refresh() {
	cw := o.contentWidth()
	wrapped := make([]string, 0, len(o.rawLines))
	for _, raw := range o.rawLines {
		if cw > 0 {
			raw = ansi.Wrap(raw, cw, "/")
		}
		wrapped = append(wrapped, strings.Split(raw, "\n")...)
	}
	if len(wrapped) > o.maxLines {
		wrapped = wrapped[len(wrapped)-o.maxLines:]
	}
	o.lines = wrapped
	o.viewport.SetContent(strings.Join(o.lines, "\n"))

	if o.autoScroll {
		o.viewport.GotoBottom()
	} else {
		o.viewport.SetYOffset(o.viewport.YOffset)
	}
}

func (o *OutputViewport) appendRawLine(line string) {
	if len(o.rawLines) >= o.maxLines {
		o.rawLines = o.rawLines[1:]
	}
	o.rawLines = append(o.rawLines, line)
}

func (o *OutputViewport) appendToOpenLine(text string) {
	if o.rawLineOpen && len(o.rawLines) > 0 {
		o.rawLines[len(o.rawLines)-1] += text
		return
	}
	o.appendRawLine(text)
	o.rawLineOpen = true
}
