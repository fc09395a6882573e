package cli

import (
	"fmt"

	"github.com/ashiqsultan/copilot-ralph/internal/git"
	"github.com/spf13/cobra"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent commits in the project folder",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", git.DefaultLogLimit, "Number of commits to show")
}

func runLog(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	client := env.git()
	if !client.IsRepository(ctx, env.dir) {
		return fmt.Errorf("%s is not a git repository", env.dir)
	}

	entries, err := client.Log(ctx, env.dir, logLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No commits yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s %s\n", e.Hash, e.Subject)
	}
	return nil
}
