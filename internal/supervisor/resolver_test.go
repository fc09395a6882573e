package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatalf("failed to write executable: %v", err)
	}
	return path
}

func newPathResolver(t *testing.T, path string) *Resolver {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions required")
	}
	t.Setenv("PATH", path)
	r := NewResolver(nil)
	r.DisableLoginShell = true
	return r
}

func TestResolver_Resolve(t *testing.T) {
	binDir := t.TempDir()
	want := writeExecutable(t, binDir, "copilot")
	r := newPathResolver(t, binDir)

	got, err := r.Resolve(context.Background(), "copilot")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}

	if _, err := r.Resolve(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolver_AbsolutePath(t *testing.T) {
	binDir := t.TempDir()
	exe := writeExecutable(t, binDir, "agent")
	r := newPathResolver(t, "")

	got, err := r.Resolve(context.Background(), exe)
	if err != nil || got != exe {
		t.Fatalf("Resolve(%q) = %q, %v", exe, got, err)
	}

	plain := filepath.Join(binDir, "plain")
	os.WriteFile(plain, []byte("x"), 0644)
	if _, err := r.Resolve(context.Background(), plain); !errors.Is(err, ErrNotFound) {
		t.Errorf("non-executable file should not resolve, got %v", err)
	}
}

func TestResolver_StaleCacheIsRevalidated(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	old := writeExecutable(t, first, "copilot")
	r := newPathResolver(t, first+string(os.PathListSeparator)+second)

	got, _ := r.Resolve(context.Background(), "copilot")
	if got != old {
		t.Fatalf("Resolve() = %q, want %q", got, old)
	}

	// The executable moves to another PATH entry
	os.Remove(old)
	moved := writeExecutable(t, second, "copilot")

	got, err := r.Resolve(context.Background(), "copilot")
	if err != nil {
		t.Fatalf("Resolve() after move error: %v", err)
	}
	if got != moved {
		t.Errorf("Resolve() = %q, want %q", got, moved)
	}
}

func TestResolver_Env(t *testing.T) {
	r := newPathResolver(t, "/custom/bin")

	env := r.Env(context.Background(), []string{"HOME=/home/u", "PATH=/usr/bin", "LANG=C"})

	var paths []string
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			paths = append(paths, kv)
		}
	}
	if len(paths) != 1 || paths[0] != "PATH=/custom/bin" {
		t.Errorf("PATH entries = %v", paths)
	}
	if len(env) != 3 {
		t.Errorf("expected 3 entries, got %v", env)
	}
}

func TestResolver_LoginShellFallback(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no login shell on windows")
	}
	t.Setenv("PATH", "/fallback/bin")
	r := NewResolver(nil)
	r.Shell = filepath.Join(t.TempDir(), "no-such-shell")

	if got := r.ShellPATH(context.Background()); got != "/fallback/bin" {
		t.Errorf("ShellPATH() = %q, want process PATH", got)
	}
}
