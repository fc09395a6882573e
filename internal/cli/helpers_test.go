package cli

import (
	"bytes"
	"testing"

	"github.com/ashiqsultan/copilot-ralph/internal/testutil"
	"github.com/spf13/cobra"
)

// useProject points --dir at a fresh temp folder and isolates the global
// config and environment overrides.
func useProject(t *testing.T) string {
	t.Helper()

	dir := testutil.TempDir(t)
	oldDir, oldLevel := projectDirFlag, logLevelFlag
	projectDirFlag, logLevelFlag = dir, ""
	t.Cleanup(func() {
		projectDirFlag, logLevelFlag = oldDir, oldLevel
	})

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RALPH_SHELL", "/bin/sh")
	t.Setenv("RALPH_LOG_LEVEL", "error")
	return dir
}

// testCommand returns a command whose output is captured.
func testCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	return cmd, &out
}

func initProject(t *testing.T) string {
	t.Helper()
	dir := useProject(t)
	cmd, _ := testCommand()
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}
	return dir
}
