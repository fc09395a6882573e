// Package tui renders engine runs in the terminal with Bubble Tea.
package tui

import (
	"context"
	"errors"

	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/ashiqsultan/copilot-ralph/internal/events"
	"github.com/ashiqsultan/copilot-ralph/internal/tui/msgs"
	"github.com/ashiqsultan/copilot-ralph/internal/tui/views"
	tea "github.com/charmbracelet/bubbletea"
)

// Work is the engine call the TUI drives. It must report through sink and
// return once ctx is cancelled.
type Work func(ctx context.Context, sink events.Sink) error

// ProgramSink forwards events into a running Bubble Tea program.
type ProgramSink struct {
	program *tea.Program
}

// NewProgramSink creates a sink for program.
func NewProgramSink(program *tea.Program) *ProgramSink {
	return &ProgramSink{program: program}
}

// Emit implements events.Sink.
func (s *ProgramSink) Emit(e events.Event) {
	s.program.Send(msgs.EventMsg{Event: e})
}

// Run shows the run view while work executes. Pressing q or ctrl+c cancels
// work's context; the view stays up until work returns and the user quits.
// extra receives every event as well, e.g. the output log.
func Run(ctx context.Context, title string, tasks []backlog.Task, extra events.Sink, work Work) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(
		views.NewRunModel(title, tasks, cancel),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	sink := events.Multi(extra, NewProgramSink(program))

	done := make(chan error, 1)
	go func() {
		err := work(runCtx, sink)
		done <- err
		program.Send(msgs.WorkDoneMsg{Err: err})
	}()

	_, uiErr := program.Run()

	// The program can exit early on an external kill; stop the work and wait.
	cancel()
	err := <-done
	if err != nil {
		return err
	}
	if errors.Is(uiErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return uiErr
}
