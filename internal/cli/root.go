package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/ashiqsultan/copilot-ralph/internal/version"
	"github.com/spf13/cobra"
)

var (
	projectDirFlag string
	logLevelFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "Run a backlog of tasks through the Copilot coding agent",
	Long: `Ralph keeps a backlog of tasks in .copilot_ralph/prd.json and hands them to the
Copilot CLI one at a time. Each finished task is marked done, its summary is added
to the progress log, and the work is committed before the next task starts.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDirFlag, "dir", "C", ".", "Project folder")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Diagnostic log level (debug, info, warn, error)")
	rootCmd.SetVersionTemplate("ralph " + version.String() + "\n")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
}

// reportedError wraps an error the user has already seen, e.g. through the
// run view or the plain event output.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Execute runs the root command and prints any error not shown yet.
func Execute() error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}
	var reported *reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
