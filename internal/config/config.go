// Package config loads ralph's settings from defaults, a global config file,
// the project's .copilot_ralph/config.yaml, and RALPH_* environment variables,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashiqsultan/copilot-ralph/internal/agent"
	"github.com/ashiqsultan/copilot-ralph/internal/backlog"
	"github.com/ashiqsultan/copilot-ralph/internal/logging"
	"github.com/ashiqsultan/copilot-ralph/internal/supervisor"
	"github.com/spf13/viper"
)

// FileName is the name of both the global and the project config file.
const FileName = "config.yaml"

// EnvPrefix prefixes environment overrides, e.g. RALPH_AGENT_MODEL.
const EnvPrefix = "RALPH"

// Setting keys.
const (
	KeyAgentPath = "agent.path"
	KeyModel     = "agent.model"
	KeyShell     = "shell"
	KeyLogLevel  = "log.level"
	KeyKillGrace = "supervisor.kill_grace"
	KeyGit       = "git.enabled"
)

// Keys lists every supported setting in display order.
var Keys = []string{KeyAgentPath, KeyModel, KeyShell, KeyLogLevel, KeyKillGrace, KeyGit}

// Config holds the resolved settings.
type Config struct {
	Agent      agent.Config
	Shell      string
	LogLevel   string
	KillGrace  time.Duration
	GitEnabled bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAgentPath, agent.DefaultExecutable)
	v.SetDefault(KeyModel, agent.DefaultModel)
	v.SetDefault(KeyShell, "")
	v.SetDefault(KeyLogLevel, logging.DefaultLevel)
	v.SetDefault(KeyKillGrace, supervisor.DefaultKillGrace.String())
	v.SetDefault(KeyGit, true)
}

// GlobalPath returns the user-level config file location.
func GlobalPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return filepath.Join(dir, "copilot-ralph", FileName), nil
}

// ProjectPath returns the project-level config file location.
func ProjectPath(projectDir string) string {
	return filepath.Join(backlog.StateDir(projectDir), FileName)
}

// Load resolves the configuration for a project folder.
func Load(projectDir string) (*Config, error) {
	var paths []string
	if global, err := GlobalPath(); err == nil {
		paths = append(paths, global)
	}
	paths = append(paths, ProjectPath(projectDir))
	return LoadFrom(paths...)
}

// LoadFrom merges the given YAML files over the defaults, later files
// winning, then applies environment overrides. Missing files are skipped.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		v.SetConfigFile(p)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Agent: agent.Config{
			Executable: v.GetString(KeyAgentPath),
			Model:      v.GetString(KeyModel),
		},
		Shell:      v.GetString(KeyShell),
		LogLevel:   v.GetString(KeyLogLevel),
		KillGrace:  v.GetDuration(KeyKillGrace),
		GitEnabled: v.GetBool(KeyGit),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.KillGrace <= 0 {
		return fmt.Errorf("%s must be a positive duration", KeyKillGrace)
	}
	return nil
}

// Value returns the display value of a setting.
func (c *Config) Value(key string) (string, error) {
	switch key {
	case KeyAgentPath:
		return c.Agent.Executable, nil
	case KeyModel:
		return c.Agent.Model, nil
	case KeyShell:
		return c.Shell, nil
	case KeyLogLevel:
		return c.LogLevel, nil
	case KeyKillGrace:
		return c.KillGrace.String(), nil
	case KeyGit:
		return fmt.Sprintf("%t", c.GitEnabled), nil
	default:
		return "", fmt.Errorf("unknown setting %q", key)
	}
}
