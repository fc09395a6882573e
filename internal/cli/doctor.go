package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the agent and git can be found",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	failed := false

	check := func(name string, err error, required bool) {
		if err == nil {
			fmt.Fprintf(out, "✓ %s\n", name)
			return
		}
		mark := "!"
		if required {
			mark = "✗"
			failed = true
		}
		var prereq *PrerequisiteError
		if errors.As(err, &prereq) {
			fmt.Fprintf(out, "%s %s: %s\n    %s\n", mark, name, prereq.Message, prereq.Help)
			return
		}
		fmt.Fprintf(out, "%s %s: %v\n", mark, name, err)
	}

	if path, err := env.cfg.Agent.Locate(ctx, env.resolver); err == nil {
		fmt.Fprintf(out, "✓ Agent: %s (model %s)\n", path, env.cfg.Agent.Model)
	} else {
		check("Agent", checkAgent(ctx, env), true)
	}

	gitErr := checkGit(ctx, env)
	check("Git", gitErr, env.cfg.GitEnabled)
	if gitErr == nil {
		if err := checkGitRepo(ctx, env); err != nil {
			check("Git repository", err, false)
		} else if files, err := env.git().GetDirtyFiles(ctx, env.dir); err != nil {
			check("Git repository", err, false)
		} else if len(files) > 0 {
			fmt.Fprintf(out, "! Git repository: %d uncommitted file(s) will be included in the next task commit\n", len(files))
		} else {
			check("Git repository", nil, false)
		}
	}

	if IsInitialized(env.dir) {
		check("Backlog", nil, false)
	} else {
		check("Backlog", &PrerequisiteError{
			Check:   "Backlog",
			Message: "not initialized",
			Help:    "Run 'ralph init' in the project folder.",
		}, false)
	}

	if failed {
		return &reportedError{err: errors.New("doctor found problems")}
	}
	return nil
}
