// Package supervisor spawns agent processes, streams their output, and
// enforces that at most one session of each kind runs at a time.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ashiqsultan/copilot-ralph/internal/logging"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DefaultKillGrace is how long a terminated process may take to exit before
// it is force-killed.
const DefaultKillGrace = 5 * time.Second

// ErrAlreadyRunning is returned by Spawn when a session of the same kind is active.
var ErrAlreadyRunning = errors.New("a session of this kind is already running")

// Command creates exec.Cmd instances. Tests may replace it.
var Command = exec.Command

// Supervisor owns the active session slots.
type Supervisor struct {
	logger    *log.Logger
	resolver  *Resolver
	killGrace time.Duration

	mu     sync.Mutex
	active map[Kind]*Session
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResolver sets the executable resolver.
func WithResolver(r *Resolver) Option {
	return func(s *Supervisor) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithKillGrace sets the delay between the graceful signal and the forced kill.
func WithKillGrace(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.killGrace = d
		}
	}
}

// New creates a Supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		logger:    logging.Discard(),
		killGrace: DefaultKillGrace,
		active:    make(map[Kind]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = NewResolver(s.logger)
	}
	return s
}

// Resolver returns the resolver used to locate executables.
func (s *Supervisor) Resolver() *Resolver {
	return s.resolver
}

// Spawn starts the process described by spec and claims the slot for its kind.
//
// A second Spawn of the same kind fails with ErrAlreadyRunning and leaves the
// active session alone. When the process cannot be started, the returned
// session carries a single stderr Output describing the failure followed by
// Exited with code 1; no slot is held and nothing is retried.
func (s *Supervisor) Spawn(ctx context.Context, spec Spec) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.active[spec.Kind]; cur != nil {
		return nil, fmt.Errorf("%w: %s session %s", ErrAlreadyRunning, spec.Kind, cur.ID)
	}

	sess := newSession(uuid.NewString(), spec)

	path, err := s.resolver.Resolve(ctx, spec.Executable)
	if err != nil {
		s.failStart(sess, err)
		return sess, nil
	}

	env := spec.Env
	if env == nil {
		env = s.resolver.Env(ctx, os.Environ())
	}

	cmd := Command(path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = env
	if spec.Stdin != "" {
		cmd.Stdin = strings.NewReader(spec.Stdin)
	}
	cmd.Stdout = &streamWriter{session: sess, stream: Stdout}
	cmd.Stderr = &streamWriter{session: sess, stream: Stderr}
	// Bounds how long Wait keeps copying output after a kill when a child
	// process still holds the pipes open.
	cmd.WaitDelay = s.killGrace

	if err := cmd.Start(); err != nil {
		s.resolver.Invalidate(spec.Executable)
		s.failStart(sess, err)
		return sess, nil
	}
	sess.cmd = cmd
	s.active[spec.Kind] = sess

	s.logger.Debug("session started", "kind", spec.Kind, "id", sess.ID, "pid", cmd.Process.Pid, "exe", path)

	go s.wait(sess)
	return sess, nil
}

func (s *Supervisor) failStart(sess *Session, err error) {
	s.logger.Warn("failed to start agent", "kind", sess.Kind, "err", err)
	go func() {
		sess.send(Event{Type: EventOutput, Stream: Stderr, Text: fmt.Sprintf("failed to start agent: %v\n", err)})
		sess.finish(&ExitStatus{Code: 1, Err: err})
	}()
}

// wait blocks until the process exits and its output is copied, then
// releases the slot and emits Exited.
func (s *Supervisor) wait(sess *Session) {
	err := sess.cmd.Wait()
	status := exitStatus(sess.cmd, err)

	s.release(sess)
	s.logger.Debug("session exited", "kind", sess.Kind, "id", sess.ID, "status", status.String())
	sess.finish(status)
}

func (s *Supervisor) release(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[sess.Kind] == sess {
		delete(s.active, sess.Kind)
	}
}

// Terminate asks the session's process to stop and frees the slot at once.
// SIGTERM is sent first, with SIGKILL if signalling fails; a process still
// alive after the grace period is killed. Terminating a session that has
// already exited only clears the slot.
func (s *Supervisor) Terminate(sess *Session) error {
	if sess == nil {
		return nil
	}
	sess.aborted.Store(true)
	s.release(sess)
	sess.abandon()

	if sess.cmd == nil || sess.cmd.Process == nil {
		return nil
	}
	select {
	case <-sess.done:
		return nil
	default:
	}

	proc := sess.cmd.Process
	if err := signalTerm(proc); err != nil {
		s.logger.Debug("graceful signal failed, killing", "id", sess.ID, "err", err)
		if killErr := proc.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			return fmt.Errorf("failed to kill agent process: %w", killErr)
		}
		return nil
	}

	go func() {
		timer := time.NewTimer(s.killGrace)
		defer timer.Stop()
		select {
		case <-sess.done:
		case <-timer.C:
			s.logger.Warn("agent ignored SIGTERM, killing", "id", sess.ID, "grace", s.killGrace)
			proc.Kill()
		}
	}()
	return nil
}

// IsRunning reports whether a session of the kind holds the slot.
func (s *Supervisor) IsRunning(kind Kind) bool {
	return s.Active(kind) != nil
}

// Active returns the session holding the slot for kind, or nil.
func (s *Supervisor) Active(kind Kind) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[kind]
}

func signalTerm(p *os.Process) error {
	if runtime.GOOS == "windows" {
		return errors.New("SIGTERM is not supported on windows")
	}
	return p.Signal(syscall.SIGTERM)
}

func exitStatus(cmd *exec.Cmd, err error) *ExitStatus {
	status := &ExitStatus{}
	state := cmd.ProcessState

	if state == nil {
		status.Code = 1
		status.Err = err
		return status
	}

	status.Code = state.ExitCode()
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signal = ws.Signal().String()
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.Is(err, exec.ErrWaitDelay):
		// Process exited; only the output copy was cut short.
	case errors.As(err, &exitErr):
		// Exit code and signal already describe it.
	default:
		status.Err = err
	}
	return status
}
