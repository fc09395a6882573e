package orchestrator

import (
	"context"
	"fmt"

	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/ashiqsultan/copilot-ralph/internal/events"
	"github.com/ashiqsultan/copilot-ralph/internal/git"
	"github.com/ashiqsultan/copilot-ralph/internal/sentinel"
	"github.com/ashiqsultan/copilot-ralph/internal/supervisor"
)

// reaction holds the per-session marker state for one task.
type reaction struct {
	o       *Orchestrator
	task    backlog.Task
	scanner *sentinel.Scanner

	doneHandled bool
	markErr     error
}

func (r *reaction) feed(ctx context.Context, chunk string) {
	for _, ev := range r.scanner.Feed(chunk) {
		switch ev.Type {
		case sentinel.EventDone:
			r.done(ctx)
		case sentinel.EventSummary:
			r.summary(ev.Text)
		}
	}
}

// done marks the task finished, persists it, and commits. Runs at most once.
func (r *reaction) done(ctx context.Context) {
	if r.doneHandled {
		return
	}
	r.doneHandled = true
	o, id := r.o, r.task.ID

	_, err := o.opts.Store.Update(func(b *backlog.Backlog) error {
		if !b.MarkDone(id) {
			return fmt.Errorf("task %d is no longer in the backlog", id)
		}
		return nil
	})
	if err != nil {
		r.markErr = err
		o.notice(&id, events.Error, fmt.Sprintf("failed to mark task done: %v", err))
		return
	}
	o.emit(events.Event{Kind: events.TaskDone, TaskID: &id, Text: r.task.Title})

	if o.opts.Committer == nil {
		return
	}
	// Commits run to completion even when the run is being aborted.
	res, err := o.opts.Committer.Commit(context.WithoutCancel(ctx), o.opts.ProjectDir, git.CommitMessage(id, r.task.Title))
	switch {
	case err != nil:
		o.logger.Warn("commit failed", "task", id, "err", err)
		o.notice(&id, events.Warning, fmt.Sprintf("git commit failed: %v", err))
	case res.NoChanges:
		o.notice(&id, events.Info, "Nothing to commit")
	default:
		o.notice(&id, events.Info, "Committed "+git.CommitMessage(id, r.task.Title))
	}
}

// summary appends the agent's summary to the progress log.
func (r *reaction) summary(text string) {
	o, id := r.o, r.task.ID
	entry := fmt.Sprintf("[%d] %s\n%s", id, r.task.Title, text)
	if err := o.opts.Progress.Append(entry); err != nil {
		o.logger.Warn("progress log write failed", "task", id, "err", err)
		o.notice(&id, events.Error, fmt.Sprintf("failed to write progress log: %v", err))
		return
	}
	o.notice(&id, events.Info, "Summary saved to progress log")
}

// exited decides the task outcome from the exit status. Exit code 0 is
// success even without the completion marker; the done reaction then runs
// here so the next selection moves on.
func (r *reaction) exited(ctx context.Context, exit *supervisor.ExitStatus) error {
	o, id := r.o, r.task.ID

	if exit.Aborted {
		o.emit(events.Event{Kind: events.TaskExited, TaskID: &id, Severity: events.Warning, Text: exit.String()})
		return context.Canceled
	}

	if !exit.Success() {
		o.emit(events.Event{Kind: events.TaskExited, TaskID: &id, Severity: events.Error, Text: exit.String()})
		o.logger.Error("task failed", "task", id, "status", exit.String())
		return &TaskFailedError{TaskID: id, Status: exit}
	}

	if !r.doneHandled {
		o.notice(&id, events.Info, "Agent exited without the completion marker; treating exit code 0 as done")
		r.done(ctx)
	}
	o.emit(events.Event{Kind: events.TaskExited, TaskID: &id, Severity: events.Info, Text: exit.String()})

	if r.markErr != nil {
		// Without a persisted isDone the next selection would pick this task again.
		return &TaskFailedError{TaskID: id, Status: exit, Err: r.markErr}
	}
	o.logger.Info("task finished", "task", id)
	return nil
}
