package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/ashiqsultan/copilot-ralph/internal/events"
	"github.com/ashiqsultan/copilot-ralph/internal/planner"
	"github.com/spf13/cobra"
)

var planNoTUI bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Ask the agent to write an implementation plan for every task",
	Long: `Hands the whole backlog to the agent in read-only mode and stores the plan it
returns on each task. Tasks the agent does not mention keep their current plan.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planNoTUI, "no-tui", false, "Print plain output instead of the interactive view")
}

func runPlan(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if err := env.requireInitialized(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	work := func(ctx context.Context, sink events.Sink) error {
		p := planner.New(planner.Options{
			ProjectDir: env.dir,
			Store:      env.store,
			Supervisor: env.supervisor(),
			Sink:       sink,
			Agent:      env.cfg.Agent,
			Lock:       backlog.NewRunLock(env.dir, backlog.PlanningLock),
			Logger:     env.logger,
		})
		_, err := p.Run(ctx)
		if errors.Is(err, planner.ErrNoPlan) {
			// Already reported as a warning; the backlog is unchanged.
			return nil
		}
		return err
	}

	return runWork(ctx, cmd, env, "ralph plan", nil, planNoTUI, work)
}
