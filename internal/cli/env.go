package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/ashiqsultan/copilot-ralph/internal/config"
	"github.com/ashiqsultan/copilot-ralph/internal/git"
	"github.com/ashiqsultan/copilot-ralph/internal/logging"
	"github.com/ashiqsultan/copilot-ralph/internal/supervisor"
	"github.com/charmbracelet/log"
)

// environment bundles what every command needs for one project folder.
type environment struct {
	dir      string
	cfg      *config.Config
	logger   *log.Logger
	resolver *supervisor.Resolver
	store    *backlog.Store
	progress *backlog.ProgressLog
}

// loadEnvironment resolves --dir, loads the layered config, and builds the
// diagnostic logger. --log-level overrides the configured level.
func loadEnvironment() (*environment, error) {
	dir, err := filepath.Abs(projectDirFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid project folder: %w", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	resolver := supervisor.NewResolver(logger)
	if cfg.Shell != "" {
		resolver.Shell = cfg.Shell
	}

	return &environment{
		dir:      dir,
		cfg:      cfg,
		logger:   logger,
		resolver: resolver,
		store:    backlog.NewStore(dir),
		progress: backlog.NewProgressLog(dir),
	}, nil
}

func (e *environment) supervisor() *supervisor.Supervisor {
	return supervisor.New(
		supervisor.WithLogger(e.logger),
		supervisor.WithResolver(e.resolver),
		supervisor.WithKillGrace(e.cfg.KillGrace),
	)
}

func (e *environment) git() *git.Client {
	return git.New(e.resolver, e.logger)
}

// requireInitialized fails unless the project has a backlog.
func (e *environment) requireInitialized() error {
	if !IsInitialized(e.dir) {
		return fmt.Errorf("ralph is not initialized in %s. Run 'ralph init' first.", e.dir)
	}
	return nil
}
