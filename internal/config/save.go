package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ashiqsultan/copilot-ralph/internal/logging"
	"gopkg.in/yaml.v3"
)

// Set writes one setting into the YAML file at path, keeping the other
// settings in that file. The value is checked before anything is written.
func Set(path, key, value string) error {
	typed, err := parseValue(key, value)
	if err != nil {
		return err
	}

	doc := map[string]interface{}{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]interface{}{}
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	setNested(doc, strings.Split(key, "."), typed)

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func parseValue(key, value string) (interface{}, error) {
	value = strings.TrimSpace(value)
	switch key {
	case KeyAgentPath, KeyModel:
		if value == "" {
			return nil, fmt.Errorf("%s cannot be empty", key)
		}
		return value, nil
	case KeyShell:
		return value, nil
	case KeyLogLevel:
		if _, err := logging.ParseLevel(value); err != nil {
			return nil, err
		}
		return strings.ToLower(value), nil
	case KeyKillGrace:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration like 5s", key)
		}
		return d.String(), nil
	case KeyGit:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
}

func setNested(doc map[string]interface{}, parts []string, value interface{}) {
	if len(parts) == 1 {
		doc[parts[0]] = value
		return
	}
	child, ok := doc[parts[0]].(map[string]interface{})
	if !ok {
		child = map[string]interface{}{}
		doc[parts[0]] = child
	}
	setNested(child, parts[1:], value)
}
