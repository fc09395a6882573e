// Package agent describes how the external coding agent CLI is invoked.
package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/ashiqsultan/copilot-ralph/internal/supervisor"
)

const (
	// DefaultExecutable is the agent CLI looked up on the shell PATH.
	DefaultExecutable = "copilot"
	// DefaultModel is passed to --model when none is configured.
	DefaultModel = "gpt-4.1"
)

// Config selects the agent executable and model.
type Config struct {
	Executable string
	Model      string
}

// Default returns the stock configuration.
func Default() Config {
	return Config{Executable: DefaultExecutable, Model: DefaultModel}
}

// Validate rejects an unusable configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Executable) == "" {
		return errors.New("agent executable is not configured")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("agent model is not configured")
	}
	return nil
}

// ExecutionSpec returns the spawn spec for running one task. The prompt is
// passed as an argument and all tool use is auto-approved.
func (c Config) ExecutionSpec(dir, prompt string, taskID int) supervisor.Spec {
	id := taskID
	return supervisor.Spec{
		Kind:       supervisor.KindExecution,
		Executable: c.Executable,
		Args:       []string{"--yolo", "--no-auto-update", "--model", c.Model, "-p", prompt},
		Dir:        dir,
		TaskID:     &id,
	}
}

// PlanningSpec returns the spawn spec for the planning pass. The prompt goes
// over stdin since the serialized backlog can exceed argument limits.
func (c Config) PlanningSpec(dir, prompt string) supervisor.Spec {
	return supervisor.Spec{
		Kind:       supervisor.KindPlanning,
		Executable: c.Executable,
		Args:       []string{"--yolo", "--no-auto-update", "--model", c.Model},
		Dir:        dir,
		Stdin:      prompt,
	}
}

// Locate resolves the agent executable on the shell PATH.
func (c Config) Locate(ctx context.Context, r *supervisor.Resolver) (string, error) {
	return r.Resolve(ctx, c.Executable)
}

// IsAvailable reports whether the agent executable can be found.
func (c Config) IsAvailable(ctx context.Context, r *supervisor.Resolver) bool {
	_, err := c.Locate(ctx, r)
	return err == nil
}
