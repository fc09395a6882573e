package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/spf13/cobra"
)

// gitignoreEntries keep per-machine state out of task commits.
var gitignoreEntries = []string{
	backlog.DirName + "/*.lock",
	backlog.DirName + "/output.log",
	backlog.DirName + "/" + diagnosticsFileName,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ralph in the project folder",
	Long:  "Creates .copilot_ralph/ with an empty backlog (prd.json) and progress log.",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	if IsInitialized(env.dir) {
		return fmt.Errorf("ralph is already initialized in %s", env.dir)
	}

	if err := env.store.Init(); err != nil {
		return err
	}
	for _, entry := range gitignoreEntries {
		if err := addToGitignore(env.dir, entry); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Initialized ralph in", backlog.StateDir(env.dir))
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Add tasks: ralph task add \"Title\" -d \"Description\"")
	fmt.Fprintln(out, "  2. Optionally plan them: ralph plan")
	fmt.Fprintln(out, "  3. Run: ralph run")
	return nil
}

// addToGitignore appends entry to dir/.gitignore unless it is already listed.
func addToGitignore(dir, entry string) error {
	path := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read .gitignore: %w", err)
	}
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open .gitignore: %w", err)
	}
	defer f.Close()

	prefix := ""
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		prefix = "\n"
	}
	if _, err := f.WriteString(prefix + entry + "\n"); err != nil {
		return fmt.Errorf("failed to update .gitignore: %w", err)
	}
	return nil
}
