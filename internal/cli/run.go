package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/ashiqsultan/copilot-ralph/internal/events"
	"github.com/ashiqsultan/copilot-ralph/internal/orchestrator"
	"github.com/spf13/cobra"
)

var (
	runTaskID int
	runNoTUI  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run pending tasks through the agent",
	Long: `Runs pending tasks in backlog order, one agent process at a time, until none
remain or a task fails. With --task only that task runs, whether or not it is done.

Press q or Ctrl+C to abort: the agent is stopped and the task stays pending.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runTaskID, "task", 0, "Run only the task with this id")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "Print plain output instead of the interactive view")
}

func runRun(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if err := env.requireInitialized(); err != nil {
		return err
	}

	b, err := env.store.Load()
	if err != nil {
		return err
	}

	var only *int
	if cmd.Flags().Changed("task") {
		id := runTaskID
		only = &id
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	work := func(ctx context.Context, sink events.Sink) error {
		opts := orchestrator.Options{
			ProjectDir: env.dir,
			Store:      env.store,
			Progress:   env.progress,
			Supervisor: env.supervisor(),
			Sink:       sink,
			Agent:      env.cfg.Agent,
			Lock:       backlog.NewRunLock(env.dir, backlog.ExecutionLock),
			Logger:     env.logger,
		}
		if env.cfg.GitEnabled {
			opts.Committer = env.git()
		}

		orch := orchestrator.New(opts)
		if only != nil {
			_, err := orch.RunTask(ctx, *only)
			return err
		}
		_, err := orch.Run(ctx)
		return err
	}

	return runWork(ctx, cmd, env, "ralph run", b.Tasks, runNoTUI, work)
}
