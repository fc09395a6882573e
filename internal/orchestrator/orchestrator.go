// Package orchestrator runs the backlog through the coding agent one task at
// a time, reacting to the agent's completion and summary markers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ashiqsultan/copilot-ralph/internal/agent"
	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/ashiqsultan/copilot-ralph/internal/events"
	"github.com/ashiqsultan/copilot-ralph/internal/git"
	"github.com/ashiqsultan/copilot-ralph/internal/logging"
	"github.com/ashiqsultan/copilot-ralph/internal/prompt"
	"github.com/ashiqsultan/copilot-ralph/internal/sentinel"
	"github.com/ashiqsultan/copilot-ralph/internal/supervisor"
	"github.com/charmbracelet/log"
)

// Committer records a finished task in version control.
type Committer interface {
	Commit(ctx context.Context, dir, message string) (git.CommitResult, error)
}

// Options configures an Orchestrator.
type Options struct {
	ProjectDir string
	Store      *backlog.Store
	Progress   *backlog.ProgressLog
	Supervisor *supervisor.Supervisor
	Committer  Committer // nil disables commits
	Sink       events.Sink
	Agent      agent.Config
	Lock       *backlog.RunLock // nil skips the cross-process lock
	Logger     *log.Logger
}

// Orchestrator is the sequential task runner. One run at a time.
type Orchestrator struct {
	opts   Options
	logger *log.Logger
	sink   events.Sink

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	startTime time.Time
}

// New creates an Orchestrator. Store, Progress, and Supervisor default to
// instances for ProjectDir.
func New(opts Options) *Orchestrator {
	if opts.Store == nil {
		opts.Store = backlog.NewStore(opts.ProjectDir)
	}
	if opts.Progress == nil {
		opts.Progress = backlog.NewProgressLog(opts.ProjectDir)
	}
	if opts.Supervisor == nil {
		opts.Supervisor = supervisor.New(supervisor.WithLogger(opts.Logger))
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	sink := opts.Sink
	if sink == nil {
		sink = events.Discard
	}
	return &Orchestrator{
		opts:   opts,
		logger: logger.WithPrefix("orchestrator"),
		sink:   sink,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logger.Debug("state", "state", s)
}

// Abort cancels the active run. The agent process is terminated, the task
// stays pending, and no further task starts. Abort without a run is a no-op.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes pending tasks in backlog order until none remain, a task
// fails, or the run is aborted through ctx or Abort.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	return o.run(ctx, nil)
}

// RunTask executes the single task with the given id and does not advance.
func (o *Orchestrator) RunTask(ctx context.Context, id int) (*Result, error) {
	return o.run(ctx, &id)
}

func (o *Orchestrator) run(ctx context.Context, only *int) (*Result, error) {
	runCtx, err := o.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer o.end()

	if err := o.preflight(runCtx); err != nil {
		o.notice(nil, events.Error, err.Error())
		return nil, err
	}

	if o.opts.Lock != nil {
		if err := o.opts.Lock.Acquire(); err != nil {
			cfgErr := &ConfigError{Reason: "cannot start run", Err: err}
			o.notice(nil, events.Error, cfgErr.Error())
			return nil, cfgErr
		}
		defer o.opts.Lock.Release()
	}

	result := &Result{}
	for {
		o.setState(StateSelectingTask)

		task, err := o.selectTask(only)
		if err != nil {
			o.notice(nil, events.Error, err.Error())
			return nil, err
		}
		if task == nil {
			break
		}

		err = o.runTask(runCtx, *task)
		switch {
		case err == nil:
			result.Completed = append(result.Completed, task.ID)
		case runCtx.Err() != nil || errors.Is(err, context.Canceled):
			result.Outcome = OutcomeAborted
			o.finish(result, fmt.Sprintf("Run aborted at task [%d]", task.ID))
			return result, nil
		default:
			id := task.ID
			result.Outcome = OutcomeFailed
			result.FailedTaskID = &id
			result.Err = err
			o.finish(result, fmt.Sprintf("Run stopped: %v", err))
			return result, err
		}

		if only != nil {
			break
		}
		o.setState(StateAdvancing)
	}

	if len(result.Completed) == 0 {
		result.Outcome = OutcomeNothingToDo
		o.finish(result, "No pending tasks.")
		return result, nil
	}
	result.Outcome = OutcomeCompleted
	o.finish(result, fmt.Sprintf("Run completed: %d task(s) done in %s",
		len(result.Completed), formatDuration(time.Since(o.startTime))))
	return result, nil
}

func (o *Orchestrator) begin(ctx context.Context) (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		return nil, ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.startTime = time.Now()
	return runCtx, nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.state = StateIdle
}

// preflight rejects runs that cannot start.
func (o *Orchestrator) preflight(ctx context.Context) error {
	info, err := os.Stat(o.opts.ProjectDir)
	if err != nil || !info.IsDir() {
		return &ConfigError{Reason: fmt.Sprintf("project folder %q not found", o.opts.ProjectDir), Err: err}
	}
	if err := o.opts.Agent.Validate(); err != nil {
		return &ConfigError{Reason: "invalid agent configuration", Err: err}
	}
	if _, err := o.opts.Agent.Locate(ctx, o.opts.Supervisor.Resolver()); err != nil {
		return &ConfigError{Reason: fmt.Sprintf("agent %q not found on PATH", o.opts.Agent.Executable), Err: err}
	}
	return nil
}

// selectTask reads the freshest backlog and picks what to run next.
func (o *Orchestrator) selectTask(only *int) (*backlog.Task, error) {
	b, err := o.opts.Store.Load()
	if err != nil {
		return nil, &ConfigError{Reason: "cannot read backlog", Err: err}
	}

	if only != nil {
		t := b.Find(*only)
		if t == nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("task %d not found", *only)}
		}
		task := *t
		return &task, nil
	}

	t := b.NextPending()
	if t == nil {
		return nil, nil
	}
	task := *t
	return &task, nil
}

// runTask drives one agent session from spawn to exit.
func (o *Orchestrator) runTask(ctx context.Context, task backlog.Task) error {
	if err := task.Validate(); err != nil {
		return &ConfigError{Reason: fmt.Sprintf("task %d is invalid", task.ID), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	progress, err := o.opts.Progress.Read()
	if err != nil {
		o.notice(&task.ID, events.Warning, fmt.Sprintf("could not read progress log: %v", err))
	}

	id := task.ID
	text := prompt.Build(prompt.Options{
		ID:              &id,
		Title:           task.Title,
		Description:     task.Description,
		Plan:            task.Plan,
		ProgressContext: progress,
	})

	o.setState(StateAwaitingAgent)
	sess, err := o.opts.Supervisor.Spawn(ctx, o.opts.Agent.ExecutionSpec(o.opts.ProjectDir, text, task.ID))
	if err != nil {
		return &TaskFailedError{TaskID: task.ID, Err: err}
	}

	o.emit(events.Event{Kind: events.TaskStarted, TaskID: &id, Text: task.Title})
	o.logger.Info("task started", "task", task.ID, "session", sess.ID)

	r := &reaction{o: o, task: task, scanner: sentinel.NewScanner()}
	o.setState(StateReactingToEvents)

	for {
		select {
		case <-ctx.Done():
			o.setState(StateAborting)
			if err := o.opts.Supervisor.Terminate(sess); err != nil {
				o.logger.Warn("terminate failed", "task", task.ID, "err", err)
			}
			o.notice(&id, events.Warning, "Aborted")
			return ctx.Err()

		case ev, ok := <-sess.Events():
			if !ok {
				return &TaskFailedError{TaskID: task.ID, Err: errors.New("session ended without exit status")}
			}
			switch ev.Type {
			case supervisor.EventOutput:
				o.emit(events.Event{Kind: events.Output, TaskID: &id, Stream: ev.Stream.String(), Text: ev.Text})
				if ev.Stream == supervisor.Stdout {
					r.feed(ctx, ev.Text)
				}
			case supervisor.EventExited:
				return r.exited(ctx, ev.Exit)
			}
		}
	}
}

func (o *Orchestrator) emit(e events.Event) {
	if e.Session == "" {
		e.Session = events.SessionExecution
	}
	o.sink.Emit(events.Stamp(e))
}

func (o *Orchestrator) notice(taskID *int, sev events.Severity, text string) {
	o.emit(events.Event{Kind: events.Notice, TaskID: taskID, Severity: sev, Text: text})
}

func (o *Orchestrator) finish(r *Result, text string) {
	sev := events.Info
	switch r.Outcome {
	case OutcomeFailed:
		sev = events.Error
	case OutcomeAborted:
		sev = events.Warning
	}
	o.emit(events.Event{Kind: events.RunFinished, Severity: sev, Text: text, TaskID: r.FailedTaskID})
}

// formatDuration formats a duration as HH:MM:SS or MM:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
