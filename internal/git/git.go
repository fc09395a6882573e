// Package git runs the git commands ralph needs: committing finished tasks,
// showing history, and inspecting workspace status.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ashiqsultan/copilot-ralph/internal/logging"
	"github.com/ashiqsultan/copilot-ralph/internal/supervisor"
	"github.com/charmbracelet/log"
)

// DefaultTimeout bounds every git invocation.
const DefaultTimeout = 30 * time.Second

// CommandContext creates exec.Cmd instances. Tests may replace it.
var CommandContext = exec.CommandContext

// Client runs git in a project folder. git is located on the shell PATH.
type Client struct {
	Timeout time.Duration

	resolver *supervisor.Resolver
	logger   *log.Logger
}

// New creates a Client. A nil resolver uses the process PATH.
func New(resolver *supervisor.Resolver, logger *log.Logger) *Client {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		Timeout:  DefaultTimeout,
		resolver: resolver,
		logger:   logger,
	}
}

// exitError carries the exit code and stderr of a failed git command.
type exitError struct {
	args   []string
	code   int
	stderr string
}

func (e *exitError) Error() string {
	msg := strings.TrimSpace(e.stderr)
	if msg == "" {
		return fmt.Sprintf("git %s: exit status %d", strings.Join(e.args, " "), e.code)
	}
	return fmt.Sprintf("git %s: %s", strings.Join(e.args, " "), msg)
}

// run executes git with args in dir and returns stdout.
func (c *Client) run(ctx context.Context, dir string, args ...string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	gitPath := "git"
	var env []string
	if c.resolver != nil {
		if p, err := c.resolver.Resolve(ctx, "git"); err == nil {
			gitPath = p
		}
		env = c.resolver.Env(ctx, os.Environ())
	}

	cmd := CommandContext(ctx, gitPath, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("git", "dir", dir, "args", args)
	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %s timed out after %s", args[0], timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &exitError{args: args, code: exitErr.ExitCode(), stderr: stderr.String()}
		}
		return "", fmt.Errorf("failed to run git: %w", err)
	}
	return stdout.String(), nil
}

// exitCode returns the exit code of a failed git command, or -1.
func exitCode(err error) int {
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return -1
}

// IsRepository reports whether dir is inside a git work tree.
func (c *Client) IsRepository(ctx context.Context, dir string) bool {
	_, err := c.run(ctx, dir, "rev-parse", "--git-dir")
	return err == nil
}

// IsAvailable reports whether git can be run at all.
func (c *Client) IsAvailable(ctx context.Context) bool {
	_, err := c.run(ctx, "", "--version")
	return err == nil
}
