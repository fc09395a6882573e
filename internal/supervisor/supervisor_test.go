package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests rely on /bin/sh")
	}
	r := NewResolver(nil)
	r.DisableLoginShell = true
	return New(WithResolver(r), WithKillGrace(500*time.Millisecond))
}

func shSpec(kind Kind, script string) Spec {
	return Spec{Kind: kind, Executable: "/bin/sh", Args: []string{"-c", script}}
}

// collect drains the session and returns stdout, stderr and the exit status.
func collect(t *testing.T, sess *Session) (string, string, *ExitStatus) {
	t.Helper()
	var stdout, stderr strings.Builder
	var exit *ExitStatus
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-sess.Events():
			if !ok {
				if exit == nil {
					t.Fatal("channel closed without Exited event")
				}
				return stdout.String(), stderr.String(), exit
			}
			switch ev.Type {
			case EventOutput:
				if exit != nil {
					t.Fatal("output after Exited")
				}
				if ev.Stream == Stderr {
					stderr.WriteString(ev.Text)
				} else {
					stdout.WriteString(ev.Text)
				}
			case EventExited:
				exit = ev.Exit
			}
		case <-timeout:
			t.Fatal("timed out waiting for session")
		}
	}
}

func TestSpawn_StreamsOutputAndExit(t *testing.T) {
	s := newTestSupervisor(t)

	sess, err := s.Spawn(context.Background(), shSpec(KindExecution, "echo hello; echo oops >&2; exit 0"))
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	if sess.ID == "" {
		t.Error("session should have an id")
	}

	stdout, stderr, exit := collect(t, sess)
	if stdout != "hello\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if stderr != "oops\n" {
		t.Errorf("stderr = %q", stderr)
	}
	if !exit.Success() {
		t.Errorf("expected success, got %s", exit)
	}
	if s.IsRunning(KindExecution) {
		t.Error("slot should be released after exit")
	}
}

func TestSpawn_NonZeroExit(t *testing.T) {
	s := newTestSupervisor(t)

	sess, err := s.Spawn(context.Background(), shSpec(KindExecution, "exit 3"))
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	_, _, exit := collect(t, sess)
	if exit.Code != 3 || exit.Success() {
		t.Errorf("expected exit code 3, got %+v", exit)
	}
	if exit.Aborted {
		t.Error("exit should not be marked aborted")
	}
}

func TestSpawn_Stdin(t *testing.T) {
	s := newTestSupervisor(t)

	spec := shSpec(KindPlanning, "cat")
	spec.Stdin = "prompt text"
	sess, err := s.Spawn(context.Background(), spec)
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	stdout, _, _ := collect(t, sess)
	if stdout != "prompt text" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestSpawn_WorkingDirectory(t *testing.T) {
	s := newTestSupervisor(t)
	dir := t.TempDir()

	spec := shSpec(KindExecution, "pwd")
	spec.Dir = dir
	sess, _ := s.Spawn(context.Background(), spec)
	stdout, _, _ := collect(t, sess)

	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(stdout))
	if got != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}

func TestSpawn_SingleFlightPerKind(t *testing.T) {
	s := newTestSupervisor(t)

	first, err := s.Spawn(context.Background(), shSpec(KindExecution, "exec sleep 30"))
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	defer func() {
		s.Terminate(first)
		<-first.Done()
	}()

	if _, err := s.Spawn(context.Background(), shSpec(KindExecution, "echo second")); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if s.Active(KindExecution) != first {
		t.Error("rejected spawn must not disturb the active session")
	}

	// A different kind has its own slot
	other, err := s.Spawn(context.Background(), shSpec(KindPlanning, "echo plan"))
	if err != nil {
		t.Fatalf("planning spawn should be allowed: %v", err)
	}
	collect(t, other)
}

func TestTerminate(t *testing.T) {
	s := newTestSupervisor(t)

	sess, err := s.Spawn(context.Background(), shSpec(KindExecution, "exec sleep 30"))
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	if !s.IsRunning(KindExecution) {
		t.Fatal("expected session to be running")
	}

	if err := s.Terminate(sess); err != nil {
		t.Fatalf("Terminate() error: %v", err)
	}
	if s.IsRunning(KindExecution) {
		t.Error("slot should be released immediately")
	}

	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Terminate")
	}
	exit := sess.Exit()
	if exit == nil || !exit.Aborted {
		t.Fatalf("expected aborted exit, got %+v", exit)
	}
	if exit.Success() {
		t.Error("terminated process should not report success")
	}

	// A new session can start right away
	next, err := s.Spawn(context.Background(), shSpec(KindExecution, "true"))
	if err != nil {
		t.Fatalf("Spawn() after Terminate error: %v", err)
	}
	collect(t, next)
}

func TestTerminate_ForceKillAfterGrace(t *testing.T) {
	s := newTestSupervisor(t)

	sess, err := s.Spawn(context.Background(), shSpec(KindExecution, "trap '' TERM; echo ready; while :; do sleep 0.1; done"))
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	// Wait until the trap is installed
	for ev := range sess.Events() {
		if ev.Type == EventOutput && strings.Contains(ev.Text, "ready") {
			break
		}
	}

	s.Terminate(sess)
	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process survived the grace kill")
	}
	if exit := sess.Exit(); exit.Signal == "" && exit.Code == 0 {
		t.Errorf("expected a killed process, got %+v", exit)
	}
}

func TestTerminate_AfterExit(t *testing.T) {
	s := newTestSupervisor(t)

	sess, _ := s.Spawn(context.Background(), shSpec(KindExecution, "true"))
	collect(t, sess)

	if err := s.Terminate(sess); err != nil {
		t.Errorf("Terminate() on exited session error: %v", err)
	}
	if s.IsRunning(KindExecution) {
		t.Error("slot should be free")
	}
}

func TestSpawn_StartFailure(t *testing.T) {
	s := newTestSupervisor(t)

	sess, err := s.Spawn(context.Background(), Spec{Kind: KindExecution, Executable: "definitely-not-a-real-agent-binary"})
	if err != nil {
		t.Fatalf("start failure should be reported through the session, got %v", err)
	}
	_, stderr, exit := collect(t, sess)
	if !strings.Contains(stderr, "failed to start agent") {
		t.Errorf("stderr = %q", stderr)
	}
	if exit.Code != 1 || exit.Err == nil {
		t.Errorf("expected code 1 with error, got %+v", exit)
	}
	if !errors.Is(exit.Err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", exit.Err)
	}
	if s.IsRunning(KindExecution) {
		t.Error("failed start must not hold the slot")
	}
}

func TestSpawn_NotExecutable(t *testing.T) {
	s := newTestSupervisor(t)

	path := filepath.Join(t.TempDir(), "agent")
	os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0644)

	sess, _ := s.Spawn(context.Background(), Spec{Kind: KindExecution, Executable: path})
	_, _, exit := collect(t, sess)
	if exit.Success() {
		t.Error("non-executable file should not start")
	}
}

func TestSpawn_TaskIDAndKind(t *testing.T) {
	s := newTestSupervisor(t)

	id := 4
	spec := shSpec(KindExecution, "true")
	spec.TaskID = &id
	sess, _ := s.Spawn(context.Background(), spec)
	collect(t, sess)

	if sess.TaskID == nil || *sess.TaskID != 4 {
		t.Errorf("TaskID = %v", sess.TaskID)
	}
	if sess.Kind != KindExecution || sess.Kind.String() != "execution" {
		t.Errorf("Kind = %v", sess.Kind)
	}
	if sess.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
}
