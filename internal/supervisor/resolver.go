package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ashiqsultan/copilot-ralph/internal/logging"
	"github.com/charmbracelet/log"
)

// DefaultShell is used when $SHELL is unset.
const DefaultShell = "/bin/zsh"

// DefaultShellTimeout bounds the login-shell PATH query.
const DefaultShellTimeout = 5 * time.Second

// ErrNotFound is returned when an executable cannot be located.
var ErrNotFound = errors.New("executable not found")

// Resolver finds executables on the user's login-shell PATH, which is often
// richer than the PATH a launcher passes to this process.
type Resolver struct {
	// Shell is queried with -ilc 'echo $PATH'. Defaults to $SHELL.
	Shell string
	// Timeout bounds the shell query.
	Timeout time.Duration
	// DisableLoginShell skips the shell query and uses the process PATH.
	DisableLoginShell bool

	logger *log.Logger

	mu         sync.Mutex
	path       string
	pathLoaded bool
	cache      map[string]string
}

// NewResolver creates a resolver using $SHELL.
func NewResolver(logger *log.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{
		Shell:   os.Getenv("SHELL"),
		Timeout: DefaultShellTimeout,
		logger:  logger,
		cache:   make(map[string]string),
	}
}

// ShellPATH returns the PATH of an interactive login shell, falling back to
// the process PATH. The result is computed once.
func (r *Resolver) ShellPATH(ctx context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shellPATHLocked(ctx)
}

func (r *Resolver) shellPATHLocked(ctx context.Context) string {
	if r.pathLoaded {
		return r.path
	}

	r.path = os.Getenv("PATH")
	if !r.DisableLoginShell && runtime.GOOS != "windows" {
		if p, err := r.queryShell(ctx); err != nil {
			r.logger.Warn("login shell PATH query failed, using process PATH", "err", err)
		} else if p != "" {
			r.path = p
		}
	}
	r.pathLoaded = true
	return r.path
}

func (r *Resolver) queryShell(ctx context.Context) (string, error) {
	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultShellTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, shell, "-ilc", "echo $PATH").Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", shell, err)
	}

	// Interactive shells may print banners; PATH is the last line.
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}

// Resolve returns the full path of name. Absolute or relative paths pass
// through when they point at an executable. Cached results are re-checked
// and re-resolved when the file has gone away.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrNotFound)
	}

	if strings.ContainsRune(name, os.PathSeparator) || strings.Contains(name, "/") {
		if isExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[name]; ok {
		if isExecutable(cached) {
			return cached, nil
		}
		r.logger.Debug("cached executable is gone, resolving again", "name", name, "path", cached)
		delete(r.cache, name)
	}

	for _, dir := range filepath.SplitList(r.shellPATHLocked(ctx)) {
		if dir == "" {
			continue
		}
		for _, candidate := range candidates(filepath.Join(dir, name)) {
			if isExecutable(candidate) {
				r.cache[name] = candidate
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Invalidate drops the cached location of name.
func (r *Resolver) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, name)
}

// Env returns base with PATH replaced by the shell PATH.
func (r *Resolver) Env(ctx context.Context, base []string) []string {
	path := r.ShellPATH(ctx)
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if strings.HasPrefix(kv, "PATH=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, "PATH="+path)
}

func candidates(path string) []string {
	if runtime.GOOS != "windows" {
		return []string{path}
	}
	exts := []string{".exe", ".cmd", ".bat"}
	out := []string{path}
	for _, ext := range exts {
		out = append(out, path+ext)
	}
	return out
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0111 != 0
}
