package git

import (
	"context"
	"fmt"
)

// CommitResult describes what Commit did.
type CommitResult struct {
	// Initialized is true when Commit had to run git init first.
	Initialized bool
	// NoChanges is true when nothing was staged, so no commit was made.
	NoChanges bool
}

// CommitMessage formats the message for a finished task.
func CommitMessage(id int, title string) string {
	return fmt.Sprintf("[%d] %s", id, title)
}

// Commit stages everything in dir and commits it with message.
// A folder that is not yet a repository is initialized first. A clean index
// is reported through CommitResult.NoChanges rather than as an error.
func (c *Client) Commit(ctx context.Context, dir, message string) (CommitResult, error) {
	var result CommitResult

	if !c.IsRepository(ctx, dir) {
		if _, err := c.run(ctx, dir, "init"); err != nil {
			return result, fmt.Errorf("git init failed: %w", err)
		}
		result.Initialized = true
	}

	if _, err := c.run(ctx, dir, "add", "-A"); err != nil {
		return result, fmt.Errorf("git add failed: %w", err)
	}

	// --quiet exits 1 when the index differs from HEAD.
	_, err := c.run(ctx, dir, "diff", "--cached", "--quiet")
	switch {
	case err == nil:
		result.NoChanges = true
		c.logger.Debug("nothing to commit", "dir", dir)
		return result, nil
	case exitCode(err) == 1:
	default:
		return result, fmt.Errorf("git diff failed: %w", err)
	}

	if _, err := c.run(ctx, dir, "commit", "-m", message); err != nil {
		return result, fmt.Errorf("git commit failed: %w", err)
	}
	return result, nil
}
