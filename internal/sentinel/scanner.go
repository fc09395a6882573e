// Package sentinel detects the in-band completion and summary markers in an
// agent's streamed output.
package sentinel

import (
	"bytes"
	"strings"
)

// Protocol markers.
const (
	DoneTag         = "<status>done</status>"
	SummaryOpenTag  = "<summary>"
	SummaryCloseTag = "</summary>"
)

// EventType identifies a fired marker.
type EventType int

const (
	// EventDone fires the first time DoneTag appears in the buffer.
	EventDone EventType = iota
	// EventSummary fires the first time SummaryCloseTag appears with a
	// non-empty block before it.
	EventSummary
)

func (t EventType) String() string {
	switch t {
	case EventDone:
		return "done"
	case EventSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Event is a marker observation.
type Event struct {
	Type EventType
	Text string // summary content, trimmed; empty for EventDone
}

// Scanner accumulates one run session's output and reports each marker at
// most once. The buffer is never truncated, so later markers can still see
// earlier text. A Scanner is not safe for concurrent use.
type Scanner struct {
	buf   []byte
	lower []byte // ASCII-lowered copy of buf, same length

	doneFired    bool
	summaryFired bool
}

// NewScanner returns an empty scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Feed appends chunk to the buffer and returns the events it newly fired.
// Markers split across chunks are found because matching runs over the
// accumulated buffer.
func (s *Scanner) Feed(chunk string) []Event {
	if chunk == "" {
		return nil
	}

	prevLen := len(s.buf)
	s.buf = append(s.buf, chunk...)
	s.lower = append(s.lower, asciiLower(chunk)...)

	var events []Event

	if !s.doneFired {
		from := searchFrom(prevLen, len(DoneTag))
		if bytes.Contains(s.buf[from:], []byte(DoneTag)) {
			s.doneFired = true
			events = append(events, Event{Type: EventDone})
		}
	}

	if !s.summaryFired {
		from := searchFrom(prevLen, len(SummaryCloseTag))
		if idx := bytes.Index(s.lower[from:], []byte(SummaryCloseTag)); idx >= 0 {
			// Only the first closing tag counts, with or without a usable block.
			s.summaryFired = true
			closeAt := from + idx
			if text, ok := s.extractSummary(closeAt); ok {
				events = append(events, Event{Type: EventSummary, Text: text})
			}
		}
	}

	return events
}

// extractSummary takes the text between the nearest opening tag before
// closeAt and closeAt.
func (s *Scanner) extractSummary(closeAt int) (string, bool) {
	openAt := bytes.LastIndex(s.lower[:closeAt], []byte(SummaryOpenTag))
	if openAt < 0 {
		return "", false
	}
	text := strings.TrimSpace(string(s.buf[openAt+len(SummaryOpenTag) : closeAt]))
	if text == "" {
		return "", false
	}
	return text, true
}

// Buffer returns everything fed so far.
func (s *Scanner) Buffer() string {
	return string(s.buf)
}

// DoneFired reports whether the completion marker has been seen.
func (s *Scanner) DoneFired() bool {
	return s.doneFired
}

// SummaryFired reports whether the closing summary tag has been seen.
func (s *Scanner) SummaryFired() bool {
	return s.summaryFired
}

// searchFrom returns where to resume searching for a tag of length n after
// the buffer grew from prevLen bytes. A match may straddle the old end.
func searchFrom(prevLen, n int) int {
	from := prevLen - n + 1
	if from < 0 {
		return 0
	}
	return from
}

// asciiLower lowercases ASCII letters only, keeping byte offsets aligned
// with the original text.
func asciiLower(s string) []byte {
	out := []byte(s)
	for i, c := range out {
		if 'A' <= c && c <= 'Z' {
			out[i] = c + ('a' - 'A')
		}
	}
	return out
}
