package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/ashiqsultan/copilot-ralph/internal/events"
	"github.com/ashiqsultan/copilot-ralph/internal/tui/components"
	"github.com/ashiqsultan/copilot-ralph/internal/tui/msgs"
	"github.com/ashiqsultan/copilot-ralph/internal/tui/styles"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// runState represents the current state of the run view.
type runState int

const (
	stateRunning runState = iota
	stateCancelling
	stateFinished
)

// TaskDisplay holds display information for a task.
type TaskDisplay struct {
	ID     int
	Title  string
	Status string // "pending", "running", "done", "failed"
}

// RunModel shows one engine run: a header with the active task and backlog
// progress, the streamed agent output, and engine notices inline.
type RunModel struct {
	state     runState
	title     string
	tasks     []TaskDisplay
	current   *int
	startTime time.Time

	spinner spinner.Model
	output  components.OutputViewport
	cancel  context.CancelFunc

	finalMessage  string
	finalSeverity events.Severity

	width  int
	height int
}

// tickMsg is used for elapsed time updates.
type tickMsg time.Time

// NewRunModel creates the view. cancel is called once when the user asks
// to abort.
func NewRunModel(title string, tasks []backlog.Task, cancel context.CancelFunc) RunModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	displays := make([]TaskDisplay, len(tasks))
	for i, t := range tasks {
		status := "pending"
		if t.IsDone {
			status = "done"
		}
		displays[i] = TaskDisplay{ID: t.ID, Title: t.Title, Status: status}
	}

	return RunModel{
		state:     stateRunning,
		title:     title,
		tasks:     displays,
		startTime: time.Now(),
		spinner:   s,
		output:    components.NewOutputViewport(80, 20, 0), // resized on the first WindowSizeMsg
		cancel:    cancel,
	}
}

// Init implements tea.Model.
func (m RunModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if m.state == stateFinished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if m.state == stateFinished {
			return m, nil
		}
		return m, tickCmd()

	case msgs.EventMsg:
		m.handleEvent(msg.Event)
		return m, nil

	case msgs.WorkDoneMsg:
		m.state = stateFinished
		if msg.Err != nil {
			if m.finalMessage == "" {
				m.finalMessage = msg.Err.Error()
			}
			m.finalSeverity = events.Error
		}
		if m.finalMessage == "" {
			m.finalMessage = "Finished"
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	var cmd tea.Cmd
	m.output, cmd = m.output.Update(msg)
	return m, cmd
}

func (m *RunModel) handleEvent(e events.Event) {
	switch e.Kind {
	case events.Output:
		m.output.AppendChunk(e.Text)

	case events.TaskStarted:
		if e.TaskID != nil {
			id := *e.TaskID
			m.current = &id
			m.setStatus(id, "running")
		}
		m.output.AddLine(styles.TitleStyle.Render(fmt.Sprintf("=== %s %s ===", e.TaskLabel(), e.Text)))

	case events.TaskDone:
		if e.TaskID != nil {
			m.setStatus(*e.TaskID, "done")
		}
		m.output.AddLine(styles.SuccessStyle.Render(fmt.Sprintf("✓ %s %s", e.TaskLabel(), e.Text)))

	case events.TaskExited:
		if e.TaskID != nil && e.Severity == events.Error {
			m.setStatus(*e.TaskID, "failed")
		}
		m.output.AddLine(styles.ForSeverity(e.Severity).Render(fmt.Sprintf("%s agent %s", e.TaskLabel(), e.Text)))

	case events.PlansSaved:
		m.output.AddLine(styles.SuccessStyle.Render(e.Text))

	case events.RunFinished:
		m.finalMessage = e.Text
		m.finalSeverity = e.Severity
		m.output.AddLine(styles.ForSeverity(e.Severity).Render(e.Text))

	default:
		text := e.Text
		if label := e.TaskLabel(); label != "" {
			text = label + " " + text
		}
		m.output.AddLine(styles.ForSeverity(e.Severity).Render(text))
	}
}

func (m *RunModel) setStatus(id int, status string) {
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks[i].Status = status
			return
		}
	}
}

func (m RunModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateRunning:
		switch msg.String() {
		case "q", "ctrl+c":
			m.state = stateCancelling
			if m.cancel != nil {
				m.cancel()
				m.cancel = nil
			}
			return m, nil
		}
	case stateFinished:
		switch msg.String() {
		case "q", "ctrl+c", "enter", "esc":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.output, cmd = m.output.Update(msg)
	return m, cmd
}

// SetSize updates the model dimensions.
func (m *RunModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	// header(2) + box borders(2) + status bar(1)
	outputHeight := max(height-5, 3)
	// box border(2) + padding(2)
	outputWidth := max(width-4, 10)
	m.output.SetSize(outputWidth, outputHeight)
}

// View implements tea.Model.
func (m RunModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	box := styles.BoxStyle.Width(max(m.width-2, 10))
	b.WriteString(box.Render(m.output.View()))
	b.WriteString("\n")

	b.WriteString(components.NewStatusBar().Render(m.width, m.statusItems()))
	return b.String()
}

func (m RunModel) renderHeader() string {
	left := styles.TitleStyle.Render(m.title)
	switch m.state {
	case stateRunning:
		left = m.spinner.View() + " " + left
	case stateCancelling:
		left = m.spinner.View() + " " + left + styles.WarningStyle.Render(" (stopping)")
	}

	right := formatDuration(time.Since(m.startTime))
	if p := components.NewProgress(m.countDone(), len(m.tasks), 10).View(); p != "" {
		right = p + "  " + right
	}

	task := ""
	if m.current != nil {
		for _, t := range m.tasks {
			if t.ID == *m.current {
				task = fmt.Sprintf("Task [%d] %s", t.ID, strings.TrimSpace(t.Title))
				break
			}
		}
	}
	if m.state == stateFinished {
		task = styles.ForSeverity(m.finalSeverity).Render(m.finalMessage)
		if m.finalSeverity == events.Info {
			task = styles.SuccessStyle.Render(m.finalMessage)
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	line := left + strings.Repeat(" ", max(gap, 1)) + right
	return ansi.Truncate(line, m.width, "…") + "\n" + ansi.Truncate(task, m.width, "…")
}

func (m RunModel) statusItems() []string {
	switch m.state {
	case stateCancelling:
		return []string{"Stopping agent..."}
	case stateFinished:
		return []string{"↑↓ Scroll", "q Quit"}
	default:
		return []string{"↑↓ Scroll", "q Abort"}
	}
}

func (m RunModel) countDone() int {
	n := 0
	for _, t := range m.tasks {
		if t.Status == "done" {
			n++
		}
	}
	return n
}

// Tasks returns the task display list.
func (m RunModel) Tasks() []TaskDisplay {
	return m.tasks
}

// Finished reports whether the engine call has returned.
func (m RunModel) Finished() bool {
	return m.state == stateFinished
}

// Cancelling reports whether an abort was requested and the run has not ended yet.
func (m RunModel) Cancelling() bool {
	return m.state == stateCancelling
}

// FinalMessage returns the run's closing message.
func (m RunModel) FinalMessage() string {
	return m.finalMessage
}

// formatDuration formats a duration as MM:SS or HH:MM:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
