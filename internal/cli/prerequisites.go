package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
)

// PrerequisiteError represents a failed prerequisite check with helpful remediation info.
type PrerequisiteError struct {
	Check   string
	Message string
	Help    string
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("%s: %s\n\n%s", e.Check, e.Message, e.Help)
}

// checkAgent verifies the configured agent executable resolves on the shell PATH.
func checkAgent(ctx context.Context, env *environment) error {
	if _, err := env.cfg.Agent.Locate(ctx, env.resolver); err != nil {
		return &PrerequisiteError{
			Check:   "Copilot CLI",
			Message: fmt.Sprintf("%q not found on PATH", env.cfg.Agent.Executable),
			Help:    "Install the Copilot CLI (npm install -g @github/copilot) or run 'ralph config set agent.path <path>'.",
		}
	}
	return nil
}

// checkGit verifies git can be run. Without it finished tasks are not committed.
func checkGit(ctx context.Context, env *environment) error {
	if !env.git().IsAvailable(ctx) {
		return &PrerequisiteError{
			Check:   "Git",
			Message: "git not found on PATH",
			Help:    "Install git, or run 'ralph config set git.enabled false' to skip commits.",
		}
	}
	return nil
}

// checkGitRepo verifies the project folder is a git repository.
func checkGitRepo(ctx context.Context, env *environment) error {
	if !env.git().IsRepository(ctx, env.dir) {
		return &PrerequisiteError{
			Check:   "Git repository",
			Message: "Not a git repository",
			Help:    "The first commit will run 'git init' in the project folder.",
		}
	}
	return nil
}

// IsInitialized checks if ralph is initialized in dir.
func IsInitialized(dir string) bool {
	info, err := os.Stat(backlog.StateDir(dir))
	return err == nil && info.IsDir() && backlog.NewStore(dir).Exists()
}
