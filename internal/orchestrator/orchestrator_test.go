package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashiqsultan/copilot-ralph/internal/agent"
	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/ashiqsultan/copilot-ralph/internal/events"
	"github.com/ashiqsultan/copilot-ralph/internal/git"
	"github.com/ashiqsultan/copilot-ralph/internal/supervisor"
	"github.com/ashiqsultan/copilot-ralph/internal/testutil"
)

// fakeCommitter records commit messages.
type fakeCommitter struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (f *fakeCommitter) Commit(ctx context.Context, dir, message string) (git.CommitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return git.CommitResult{}, f.err
}

func (f *fakeCommitter) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type harness struct {
	dir       string
	store     *backlog.Store
	progress  *backlog.ProgressLog
	committer *fakeCommitter
	recorder  *events.Recorder
	orch      *Orchestrator
}

// newHarness writes the backlog and a fake agent whose body receives the
// prompt in $prompt.
func newHarness(t *testing.T, tasks []backlog.Task, agentBody string) *harness {
	t.Helper()
	agentPath := testutil.WriteAgentScript(t, "prompt=\"\"\nfor a in \"$@\"; do prompt=\"$a\"; done\n"+agentBody)

	dir := t.TempDir()
	store := backlog.NewStore(dir)
	if err := store.Save(&backlog.Backlog{Tasks: tasks}); err != nil {
		t.Fatalf("failed to save backlog: %v", err)
	}

	resolver := supervisor.NewResolver(nil)
	resolver.DisableLoginShell = true

	h := &harness{
		dir:       dir,
		store:     store,
		progress:  backlog.NewProgressLog(dir),
		committer: &fakeCommitter{},
		recorder:  &events.Recorder{},
	}
	h.orch = New(Options{
		ProjectDir: dir,
		Store:      store,
		Progress:   h.progress,
		Supervisor: supervisor.New(supervisor.WithResolver(resolver), supervisor.WithKillGrace(500*time.Millisecond)),
		Committer:  h.committer,
		Sink:       h.recorder,
		Agent:      agent.Config{Executable: agentPath, Model: "test-model"},
		Lock:       backlog.NewRunLock(dir, backlog.ExecutionLock),
	})
	return h
}

func (h *harness) load(t *testing.T) *backlog.Backlog {
	t.Helper()
	b, err := h.store.Load()
	if err != nil {
		t.Fatalf("failed to load backlog: %v", err)
	}
	return b
}

func (h *harness) startedIDs() []int {
	var ids []int
	for _, e := range h.recorder.OfKind(events.TaskStarted) {
		ids = append(ids, *e.TaskID)
	}
	return ids
}

func twoTasks() []backlog.Task {
	return []backlog.Task{
		{ID: 0, Title: "A", Description: "first"},
		{ID: 1, Title: "B", Description: "second"},
	}
}

func TestRun_CompletesTasksInOrder(t *testing.T) {
	h := newHarness(t, twoTasks(), `echo "working"; echo "<status>done</status>"; exit 0`)

	result, err := h.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Outcome != OutcomeCompleted {
		t.Errorf("Outcome = %v, want completed", result.Outcome)
	}
	if len(result.Completed) != 2 || result.Completed[0] != 0 || result.Completed[1] != 1 {
		t.Errorf("Completed = %v, want [0 1]", result.Completed)
	}

	b := h.load(t)
	if !b.Tasks[0].IsDone || !b.Tasks[1].IsDone {
		t.Errorf("expected both tasks done: %+v", b.Tasks)
	}

	msgs := h.committer.Messages()
	if len(msgs) != 2 || msgs[0] != "[0] A" || msgs[1] != "[1] B" {
		t.Errorf("commit messages = %v", msgs)
	}
	if ids := h.startedIDs(); len(ids) != 2 || ids[0] != 0 || ids[1] != 1 {
		t.Errorf("started = %v", ids)
	}
	if len(h.recorder.OfKind(events.TaskDone)) != 2 {
		t.Error("expected a TaskDone event per task")
	}
	if !strings.Contains(h.recorder.Output(), "working") {
		t.Error("agent output should be forwarded")
	}
	if h.orch.State() != StateIdle {
		t.Errorf("State() = %v after run", h.orch.State())
	}
}

func TestRun_PromptCarriesTaskFields(t *testing.T) {
	tasks := []backlog.Task{{ID: 0, Title: "A", Description: "the description", Plan: "step1\nstep2"}}
	h := newHarness(t, tasks, `printf '%s' "$prompt"; exit 0`)

	if _, err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	out := h.recorder.Output()
	for _, want := range []string{"ID: 0", "Title: A", "the description", "step1\nstep2", "<status>done</status>"} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestRun_ExitZeroWithoutSentinelStillCompletes(t *testing.T) {
	h := newHarness(t, twoTasks(), `echo "no marker here"; exit 0`)

	result, err := h.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Outcome != OutcomeCompleted || len(result.Completed) != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
	if h.load(t).CountDone() != 2 {
		t.Error("exit code 0 should mark the task done")
	}
	if len(h.committer.Messages()) != 2 {
		t.Errorf("commits = %v", h.committer.Messages())
	}
}

func TestRun_FailureStopsRun(t *testing.T) {
	tasks := []backlog.Task{
		{ID: 0, Title: "A"},
		{ID: 1, Title: "B"},
		{ID: 2, Title: "C"},
	}
	h := newHarness(t, tasks, `
case "$prompt" in
  *"ID: 1"*) echo "boom" >&2; exit 2 ;;
  *) echo "<status>done</status>"; exit 0 ;;
esac`)

	result, err := h.orch.Run(context.Background())
	var failed *TaskFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected TaskFailedError, got %v", err)
	}
	if failed.TaskID != 1 || failed.Status == nil || failed.Status.Code != 2 {
		t.Errorf("unexpected failure: %+v", failed)
	}
	if result.Outcome != OutcomeFailed || result.FailedTaskID == nil || *result.FailedTaskID != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	b := h.load(t)
	if !b.Tasks[0].IsDone {
		t.Error("task 0 should be done")
	}
	if b.Tasks[1].IsDone || b.Tasks[2].IsDone {
		t.Error("failed task and later tasks must stay pending")
	}
	if ids := h.startedIDs(); len(ids) != 2 {
		t.Errorf("task 2 must never start, started = %v", ids)
	}

	exited := h.recorder.OfKind(events.TaskExited)
	if len(exited) == 0 || exited[len(exited)-1].Severity != events.Error {
		t.Error("expected an error-severity exit event")
	}
}

func TestRun_DoneSentinelFiresOnce(t *testing.T) {
	tasks := []backlog.Task{{ID: 0, Title: "A"}}
	h := newHarness(t, tasks, `echo "<status>done</status>"; echo "quoting <status>done</status> again"; exit 0`)

	if _, err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := len(h.committer.Messages()); got != 1 {
		t.Errorf("expected 1 commit, got %d", got)
	}
	if got := len(h.recorder.OfKind(events.TaskDone)); got != 1 {
		t.Errorf("expected 1 TaskDone event, got %d", got)
	}
}

func TestRun_SummaryAppendedToProgress(t *testing.T) {
	tasks := []backlog.Task{{ID: 0, Title: "A"}}
	h := newHarness(t, tasks, `echo "<status>done</status>"; echo "<summary>"; echo "Chose sqlite."; echo "</summary>"; exit 0`)

	if _, err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	content, err := h.progress.Read()
	if err != nil {
		t.Fatalf("failed to read progress: %v", err)
	}
	if !strings.Contains(content, "[0] A\nChose sqlite.\n") {
		t.Errorf("progress log = %q", content)
	}
}

func TestRun_CommitFailureIsWarning(t *testing.T) {
	h := newHarness(t, twoTasks(), `echo "<status>done</status>"; exit 0`)
	h.committer.err = errors.New("not a git repository")

	result, err := h.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("commit failures must not fail the run: %v", err)
	}
	if result.Outcome != OutcomeCompleted {
		t.Errorf("Outcome = %v", result.Outcome)
	}
	if h.load(t).CountDone() != 2 {
		t.Error("tasks should stay done despite commit failure")
	}

	var warned bool
	for _, e := range h.recorder.OfKind(events.Notice) {
		if e.Severity == events.Warning && strings.Contains(e.Text, "git commit failed") {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning notice for the commit failure")
	}
}

func TestRun_NothingToDo(t *testing.T) {
	tasks := []backlog.Task{{ID: 0, Title: "A", IsDone: true}}
	h := newHarness(t, tasks, `exit 0`)

	result, err := h.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Outcome != OutcomeNothingToDo {
		t.Errorf("Outcome = %v", result.Outcome)
	}
	if len(h.startedIDs()) != 0 {
		t.Error("no agent should be spawned")
	}
}

func TestRun_Abort(t *testing.T) {
	h := newHarness(t, twoTasks(), `echo "started"; exec sleep 30`)

	type runResult struct {
		result *Result
		err    error
	}
	done := make(chan runResult, 1)
	go func() {
		r, err := h.orch.Run(context.Background())
		done <- runResult{r, err}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(h.recorder.Output(), "started") {
		if time.Now().After(deadline) {
			t.Fatal("agent never started")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := h.orch.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run should fail with ErrAlreadyRunning, got %v", err)
	}

	h.orch.Abort()

	var rr runResult
	select {
	case rr = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after Abort")
	}
	if rr.err != nil {
		t.Fatalf("aborted run should not return an error, got %v", rr.err)
	}
	if rr.result.Outcome != OutcomeAborted {
		t.Errorf("Outcome = %v, want aborted", rr.result.Outcome)
	}

	b := h.load(t)
	if b.Tasks[0].IsDone || b.Tasks[1].IsDone {
		t.Error("aborted tasks must stay pending")
	}
	if ids := h.startedIDs(); len(ids) != 1 {
		t.Errorf("next task must not start after abort, started = %v", ids)
	}
	if len(h.committer.Messages()) != 0 {
		t.Error("no commit expected")
	}
	if h.orch.State() != StateIdle {
		t.Errorf("State() = %v, want idle", h.orch.State())
	}
}

func TestRun_ContextCancel(t *testing.T) {
	h := newHarness(t, twoTasks(), `exec sleep 30`)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	result, err := h.orch.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeAborted {
		t.Errorf("Outcome = %v, want aborted", result.Outcome)
	}
}

func TestRunTask(t *testing.T) {
	h := newHarness(t, twoTasks(), `echo "<status>done</status>"; exit 0`)

	result, err := h.orch.RunTask(context.Background(), 1)
	if err != nil {
		t.Fatalf("RunTask() error: %v", err)
	}
	if len(result.Completed) != 1 || result.Completed[0] != 1 {
		t.Errorf("Completed = %v", result.Completed)
	}
	b := h.load(t)
	if b.Tasks[0].IsDone || !b.Tasks[1].IsDone {
		t.Errorf("only task 1 should be done: %+v", b.Tasks)
	}

	_, err = h.orch.RunTask(context.Background(), 42)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for unknown task, got %v", err)
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	t.Run("missing agent", func(t *testing.T) {
		h := newHarness(t, twoTasks(), `exit 0`)
		h.orch.opts.Agent.Executable = "definitely-not-installed-agent"

		_, err := h.orch.Run(context.Background())
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
		if len(h.startedIDs()) != 0 {
			t.Error("run must not start")
		}
		if len(h.recorder.OfKind(events.Notice)) == 0 {
			t.Error("config errors should be reported as events")
		}
	})

	t.Run("missing project folder", func(t *testing.T) {
		h := newHarness(t, twoTasks(), `exit 0`)
		h.orch.opts.ProjectDir = filepath.Join(h.dir, "does-not-exist")

		_, err := h.orch.Run(context.Background())
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
	})

	t.Run("invalid backlog", func(t *testing.T) {
		h := newHarness(t, twoTasks(), `exit 0`)
		os.WriteFile(h.store.Path(), []byte("{broken"), 0644)

		_, err := h.orch.Run(context.Background())
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
	})

	t.Run("lock held by this process", func(t *testing.T) {
		h := newHarness(t, twoTasks(), `exit 0`)
		lock := backlog.NewRunLock(h.dir, backlog.ExecutionLock)
		if err := lock.Acquire(); err != nil {
			t.Fatalf("failed to acquire lock: %v", err)
		}
		defer lock.Release()

		_, err := h.orch.Run(context.Background())
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{65 * time.Second, "01:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
