package backlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ProgressLog is the append-only plain-text log that carries summaries
// between iterations. Each append is a timestamped block.
type ProgressLog struct {
	path string
	now  func() time.Time
}

// NewProgressLog creates a progress log for the given project folder.
func NewProgressLog(projectDir string) *ProgressLog {
	return &ProgressLog{
		path: filepath.Join(StateDir(projectDir), progressFileName),
		now:  time.Now,
	}
}

// Path returns the location of progress.txt.
func (p *ProgressLog) Path() string {
	return p.path
}

// Exists reports whether the log file is present.
func (p *ProgressLog) Exists() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

// Read returns the full log. A missing file reads as empty.
func (p *ProgressLog) Read() (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", progressFileName, err)
	}
	return string(data), nil
}

// Append writes a timestamped block, creating the file if needed.
func (p *ProgressLog) Append(content string) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(p.path), err)
	}

	block := fmt.Sprintf("\n---\n[%s]\n%s\n", p.now().UTC().Format(time.RFC3339), content)

	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", progressFileName, err)
	}
	defer f.Close()

	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("failed to append to %s: %w", progressFileName, err)
	}
	return nil
}

// Clear resets the log to empty.
func (p *ProgressLog) Clear() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(p.path), err)
	}
	if err := os.WriteFile(p.path, nil, 0644); err != nil {
		return fmt.Errorf("failed to clear %s: %w", progressFileName, err)
	}
	return nil
}
