package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/ashiqsultan/copilot-ralph/internal/config"
	"github.com/spf13/cobra"
)

var configGlobal bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Save a setting to the project (or --global) config file",
	Long: fmt.Sprintf(`Saves a setting to .copilot_ralph/%s, or to the user config file with --global.

Keys: agent.path, agent.model, shell, log.level, supervisor.kill_grace, git.enabled`, config.FileName),
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configSetCmd.Flags().BoolVar(&configGlobal, "global", false, "Write to the user config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, key := range config.Keys {
		value, err := env.cfg.Value(key)
		if err != nil {
			return err
		}
		if value == "" {
			value = "(default)"
		}
		fmt.Fprintf(w, "%s\t%s\n", key, value)
	}
	return w.Flush()
}

// runConfigSet does not load the existing config so a broken value can be fixed.
func runConfigSet(cmd *cobra.Command, args []string) error {
	var path string
	if configGlobal {
		global, err := config.GlobalPath()
		if err != nil {
			return err
		}
		path = global
	} else {
		dir, err := filepath.Abs(projectDirFlag)
		if err != nil {
			return fmt.Errorf("invalid project folder: %w", err)
		}
		path = config.ProjectPath(dir)
	}

	if err := config.Set(path, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], path)
	return nil
}
