package git

import (
	"context"
	"strconv"
	"strings"
)

// DefaultLogLimit is the number of commits shown by default.
const DefaultLogLimit = 50

// LogEntry is one line of git log --oneline.
type LogEntry struct {
	Hash    string
	Subject string
}

// Log returns up to limit recent commits, newest first. A repository without
// commits yields an empty list.
func (c *Client) Log(ctx context.Context, dir string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	output, err := c.run(ctx, dir, "log", "--oneline", "-n", strconv.Itoa(limit))
	if err != nil {
		if msg := err.Error(); strings.Contains(msg, "does not have any commits") || strings.Contains(msg, "bad default revision") {
			return nil, nil
		}
		return nil, err
	}

	var entries []LogEntry
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hash, subject, _ := strings.Cut(line, " ")
		entries = append(entries, LogEntry{Hash: hash, Subject: subject})
	}
	return entries, nil
}
