package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/spf13/cobra"
)

var (
	taskDescription string
	taskAttachments []string
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true,
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the task backlog",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task to the end of the backlog",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks in backlog order",
	Args:    cobra.NoArgs,
	RunE:    runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task with its plan and attachments",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateTask(cmd, args[0], "Removed", (*backlog.Backlog).Remove)
	},
}

var taskResetCmd = &cobra.Command{
	Use:   "reset <id>",
	Short: "Mark a task as pending again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateTask(cmd, args[0], "Reset", (*backlog.Backlog).Reset)
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task as done without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateTask(cmd, args[0], "Completed", (*backlog.Backlog).MarkDone)
	},
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "Task description")
	taskAddCmd.Flags().StringArrayVar(&taskAttachments, "attach", nil, "Attach a project file (repeatable)")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskRemoveCmd)
	taskCmd.AddCommand(taskResetCmd)
	taskCmd.AddCommand(taskDoneCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if err := env.requireInitialized(); err != nil {
		return err
	}

	attachments, err := resolveAttachments(env.dir, taskAttachments)
	if err != nil {
		return err
	}

	var task backlog.Task
	_, err = env.store.Update(func(b *backlog.Backlog) error {
		task, err = b.Add(args[0], taskDescription, attachments)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added task [%d] %s\n", task.ID, task.Title)
	return nil
}

// resolveAttachments turns paths into attachments relative to the project folder.
func resolveAttachments(projectDir string, paths []string) ([]backlog.Attachment, error) {
	var attachments []backlog.Attachment
	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(projectDir, p)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("attachment %s is a directory", p)
		}
		rel, err := filepath.Rel(projectDir, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("attachment %s is outside the project folder", p)
		}

		kind := "file"
		if imageExtensions[strings.ToLower(filepath.Ext(rel))] {
			kind = "image"
		}
		attachments = append(attachments, backlog.Attachment{
			Type:         kind,
			RelativePath: filepath.ToSlash(rel),
			DisplayName:  filepath.Base(rel),
		})
	}
	return attachments, nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	if len(b.Tasks) == 0 {
		fmt.Fprintln(out, "No tasks. Add one with: ralph task add \"Title\"")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPLAN\tTITLE")
	for _, t := range b.Tasks {
		status := "pending"
		if t.IsDone {
			status = "done"
		}
		plan := "-"
		if t.Plan != "" {
			plan = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, status, plan, truncate(t.Title, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d/%d done\n", b.CountDone(), len(b.Tasks))
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
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
	t := b.Find(id)
	if t == nil {
		return fmt.Errorf("task %d not found", id)
	}

	out := cmd.OutOrStdout()
	status := "pending"
	if t.IsDone {
		status = "done"
	}
	fmt.Fprintf(out, "[%d] %s (%s)\n\n", t.ID, t.Title, status)
	fmt.Fprintln(out, t.Description)
	if t.Plan != "" {
		fmt.Fprintln(out, "\nPlan:")
		for _, line := range strings.Split(t.Plan, "\n") {
			fmt.Fprintln(out, "  "+line)
		}
	}
	if len(t.Attachments) > 0 {
		fmt.Fprintln(out, "\nAttachments:")
		for _, a := range t.Attachments {
			fmt.Fprintf(out, "  %s (%s)\n", a.RelativePath, a.Type)
		}
	}
	return nil
}

// mutateTask applies op to the task with the given id and saves the backlog.
func mutateTask(cmd *cobra.Command, arg, verb string, op func(*backlog.Backlog, int) bool) error {
	id, err := parseTaskID(arg)
	if err != nil {
		return err
	}
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if err := env.requireInitialized(); err != nil {
		return err
	}

	_, err = env.store.Update(func(b *backlog.Backlog) error {
		if !op(b, id) {
			return fmt.Errorf("task %d not found", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s task %d\n", verb, id)
	return nil
}

func parseTaskID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
