package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/ashiqsultan/copilot-ralph/internal/events"
	"github.com/ashiqsultan/copilot-ralph/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// diagnosticsFileName receives the diagnostic log while the run view owns the terminal.
const diagnosticsFileName = "ralph.log"

// isTerminal reports whether stdout is attached to a terminal.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runWork drives an engine call either in the run view or as plain text.
// Agent output is always appended to output.log.
func runWork(ctx context.Context, cmd *cobra.Command, env *environment, title string, tasks []backlog.Task, noTUI bool, work tui.Work) error {
	logSink, err := events.NewFileSink(backlog.OutputLogPath(env.dir))
	if err != nil {
		return err
	}
	defer logSink.Close()

	var runErr error
	if !noTUI && isTerminal() {
		f, err := os.OpenFile(filepath.Join(backlog.StateDir(env.dir), diagnosticsFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open diagnostics log: %w", err)
		}
		defer f.Close()
		env.logger.SetOutput(f)
		defer env.logger.SetOutput(os.Stderr)

		runErr = tui.Run(ctx, title, tasks, logSink, work)
	} else {
		plain := events.NewWriterSink(cmd.OutOrStdout())
		plain.StderrTo = cmd.ErrOrStderr()
		runErr = work(ctx, events.Multi(logSink, plain))
	}

	if runErr != nil {
		return &reportedError{err: runErr}
	}
	return nil
}
