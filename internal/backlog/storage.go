package backlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DirName is the project-relative directory holding all engine state.
	DirName = ".copilot_ralph"

	backlogFileName  = "prd.json"
	progressFileName = "progress.txt"
	outputFileName   = "output.log"
)

// StateDir returns the state directory for a project folder.
func StateDir(projectDir string) string {
	return filepath.Join(projectDir, DirName)
}

// OutputLogPath returns the path of the raw agent output log.
func OutputLogPath(projectDir string) string {
	return filepath.Join(StateDir(projectDir), outputFileName)
}

// Store reads and writes the backlog document of one project.
// Every Load goes to disk so edits made by other tools are always seen.
type Store struct {
	projectDir string
	mu         sync.Mutex
}

// NewStore creates a store for the given project folder.
func NewStore(projectDir string) *Store {
	return &Store{projectDir: projectDir}
}

// ProjectDir returns the project folder the store belongs to.
func (s *Store) ProjectDir() string {
	return s.projectDir
}

// Path returns the location of prd.json.
func (s *Store) Path() string {
	return filepath.Join(StateDir(s.projectDir), backlogFileName)
}

// Exists reports whether the backlog document is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Init creates the state directory, an empty backlog, and an empty progress
// log. Existing files are left untouched.
func (s *Store) Init() error {
	dir := StateDir(s.projectDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if !s.Exists() {
		if err := s.Save(&Backlog{}); err != nil {
			return err
		}
	}
	progressPath := filepath.Join(dir, progressFileName)
	f, err := os.OpenFile(progressPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("failed to create %s: %w", progressFileName, err)
	}
	return f.Close()
}

// Load reads the freshest copy of the backlog from disk.
// A missing file means "no backlog" and yields an empty backlog.
func (s *Store) Load() (*Backlog, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Backlog{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", backlogFileName, err)
	}
	return parse(data)
}

// Raw returns the backlog document bytes as stored on disk.
func (s *Store) Raw() ([]byte, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", backlogFileName, err)
	}
	if _, err := parse(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Save atomically writes the backlog using a temp file + rename.
func (s *Store) Save(b *Backlog) error {
	dir := StateDir(s.projectDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tasks := b.Tasks
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backlog: %w", err)
	}

	path := s.Path()
	tmpPath := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Update loads the backlog, applies fn, and saves the result.
// Nothing is written when fn returns an error.
func (s *Store) Update(fn func(b *Backlog) error) (*Backlog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.Load()
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := s.Save(b); err != nil {
		return nil, err
	}
	return b, nil
}

func parse(data []byte) (*Backlog, error) {
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", backlogFileName, err)
	}
	return &Backlog{Tasks: tasks}, nil
}
