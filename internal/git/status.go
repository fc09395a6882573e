package git

import (
	"context"
	"strings"
)

// Status represents the git workspace status.
type Status struct {
	Clean bool
	Files []string
}

// GetStatus returns the git workspace status for the given directory.
// If dir is empty, uses the current working directory.
func (c *Client) GetStatus(ctx context.Context, dir string) (*Status, error) {
	output, err := c.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		// Porcelain format is "XY path", e.g. "?? file.txt" or " M file.txt"
		if len(line) > 3 {
			files = append(files, line[3:])
		} else {
			// Keep malformed entries rather than dropping them
			files = append(files, strings.TrimSpace(line))
		}
	}

	return &Status{
		Clean: len(files) == 0,
		Files: files,
	}, nil
}

// IsClean returns true if the workspace has no staged, unstaged, or untracked changes.
func (c *Client) IsClean(ctx context.Context, dir string) (bool, error) {
	status, err := c.GetStatus(ctx, dir)
	if err != nil {
		return false, err
	}
	return status.Clean, nil
}

// GetDirtyFiles returns the files with uncommitted changes.
func (c *Client) GetDirtyFiles(ctx context.Context, dir string) ([]string, error) {
	status, err := c.GetStatus(ctx, dir)
	if err != nil {
		return nil, err
	}
	return status.Files, nil
}
