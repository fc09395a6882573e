package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "View or clear the progress log",
}

var progressShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the progress log",
	Args:  cobra.NoArgs,
	RunE:  runProgressShow,
}

var progressClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the progress log",
	Args:  cobra.NoArgs,
	RunE:  runProgressClear,
}

func init() {
	progressCmd.AddCommand(progressShowCmd)
	progressCmd.AddCommand(progressClearCmd)
}

func runProgressShow(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if err := env.requireInitialized(); err != nil {
		return err
	}

	content, err := env.progress.Read()
	if err != nil {
		return err
	}
	if content == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Progress log is empty.")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), content)
	return nil
}

func runProgressClear(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if err := env.requireInitialized(); err != nil {
		return err
	}

	if err := env.progress.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cleared", env.progress.Path())
	return nil
}
