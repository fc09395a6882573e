package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ashiqsultan/copilot-ralph/internal/agent"
	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/ashiqsultan/copilot-ralph/internal/events"
	"github.com/ashiqsultan/copilot-ralph/internal/logging"
	"github.com/ashiqsultan/copilot-ralph/internal/prompt"
	"github.com/ashiqsultan/copilot-ralph/internal/supervisor"
	"github.com/charmbracelet/log"
)

var (
	// ErrAlreadyRunning is returned when Run is called during a planning pass.
	ErrAlreadyRunning = errors.New("planning is already in progress")
	// ErrNoBacklog is returned when there is nothing to plan.
	ErrNoBacklog = errors.New("no backlog to plan")
)

// Options configures a Planner.
type Options struct {
	ProjectDir string
	Store      *backlog.Store
	Supervisor *supervisor.Supervisor
	Sink       events.Sink
	Agent      agent.Config
	Lock       *backlog.RunLock // nil skips the cross-process lock
	Logger     *log.Logger
}

// Result describes a finished planning pass.
type Result struct {
	Status  *supervisor.ExitStatus
	Entries []Entry
	Updated int
	Aborted bool
}

// Planner runs one planning session at a time.
type Planner struct {
	opts   Options
	logger *log.Logger
	sink   events.Sink

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// New creates a Planner.
func New(opts Options) *Planner {
	if opts.Store == nil {
		opts.Store = backlog.NewStore(opts.ProjectDir)
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
	return &Planner{
		opts:   opts,
		logger: logger.WithPrefix("planner"),
		sink:   sink,
	}
}

// IsRunning reports whether a planning pass is active.
func (p *Planner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Abort stops the active planning pass. The backlog is left untouched.
func (p *Planner) Abort() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run plans every backlog task in a single agent session. On a clean exit
// the plans found in the output are merged into the backlog.
func (p *Planner) Run(ctx context.Context) (*Result, error) {
	runCtx, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer p.end()

	doc, err := p.prepare(runCtx)
	if err != nil {
		p.notice(events.Error, err.Error())
		return nil, err
	}

	if p.opts.Lock != nil {
		if err := p.opts.Lock.Acquire(); err != nil {
			err = fmt.Errorf("cannot start planning: %w", err)
			p.notice(events.Error, err.Error())
			return nil, err
		}
		defer p.opts.Lock.Release()
	}

	sess, err := p.opts.Supervisor.Spawn(runCtx, p.opts.Agent.PlanningSpec(p.opts.ProjectDir, prompt.BuildPlan(doc)))
	if err != nil {
		p.notice(events.Error, err.Error())
		return nil, err
	}
	p.logger.Info("planning started", "session", sess.ID)
	p.notice(events.Info, "Planning started")

	var stdout strings.Builder
	for {
		select {
		case <-runCtx.Done():
			if err := p.opts.Supervisor.Terminate(sess); err != nil {
				p.logger.Warn("terminate failed", "err", err)
			}
			p.finish(events.Warning, "Planning aborted")
			return &Result{Aborted: true}, nil

		case ev, ok := <-sess.Events():
			if !ok {
				return nil, errors.New("planning session ended without exit status")
			}
			switch ev.Type {
			case supervisor.EventOutput:
				if ev.Stream == supervisor.Stdout {
					stdout.WriteString(ev.Text)
				}
				p.emit(events.Event{Kind: events.Output, Stream: ev.Stream.String(), Text: ev.Text})
			case supervisor.EventExited:
				return p.exited(ev.Exit, stdout.String())
			}
		}
	}
}

func (p *Planner) begin(ctx context.Context) (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil, ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	return runCtx, nil
}

func (p *Planner) end() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.running = false
}

// prepare validates the agent and returns the backlog document to embed.
func (p *Planner) prepare(ctx context.Context) (string, error) {
	if err := p.opts.Agent.Validate(); err != nil {
		return "", err
	}
	if _, err := p.opts.Agent.Locate(ctx, p.opts.Supervisor.Resolver()); err != nil {
		return "", fmt.Errorf("agent %q not found on PATH: %w", p.opts.Agent.Executable, err)
	}

	raw, err := p.opts.Store.Raw()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoBacklog, err)
	}
	b, err := p.opts.Store.Load()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoBacklog, err)
	}
	if len(b.Tasks) == 0 {
		return "", fmt.Errorf("%w: backlog is empty", ErrNoBacklog)
	}
	return string(raw), nil
}

func (p *Planner) exited(status *supervisor.ExitStatus, output string) (*Result, error) {
	result := &Result{Status: status}

	if status.Aborted {
		result.Aborted = true
		p.finish(events.Warning, "Planning aborted")
		return result, nil
	}
	if !status.Success() {
		p.logger.Error("planning failed", "status", status.String())
		p.finish(events.Error, "Planning failed: "+status.String())
		return result, fmt.Errorf("planning agent failed: %s", status)
	}

	entries, err := Extract(output)
	if err != nil {
		p.finish(events.Warning, "Planning finished but could not parse plan JSON from output")
		return result, err
	}
	result.Entries = entries

	_, err = p.opts.Store.Update(func(b *backlog.Backlog) error {
		result.Updated = Merge(b, entries)
		return nil
	})
	if err != nil {
		p.finish(events.Error, fmt.Sprintf("Failed to save plans: %v", err))
		return result, fmt.Errorf("failed to save plans: %w", err)
	}

	p.emit(events.Event{
		Kind:    events.PlansSaved,
		Updated: result.Updated,
		Text:    fmt.Sprintf("Plans saved to prd.json (%d items updated)", result.Updated),
	})
	p.finish(events.Info, "Planning completed")
	return result, nil
}

func (p *Planner) emit(e events.Event) {
	e.Session = events.SessionPlanning
	p.sink.Emit(events.Stamp(e))
}

func (p *Planner) notice(sev events.Severity, text string) {
	p.emit(events.Event{Kind: events.Notice, Severity: sev, Text: text})
}

func (p *Planner) finish(sev events.Severity, text string) {
	p.emit(events.Event{Kind: events.RunFinished, Severity: sev, Text: text})
}
