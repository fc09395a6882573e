package sentinel

import (
	"testing"
)

func feedAll(s *Scanner, chunks ...string) []Event {
	var all []Event
	for _, c := range chunks {
		all = append(all, s.Feed(c)...)
	}
	return all
}

func TestScanner_Done(t *testing.T) {
	tests := []struct {
		name     string
		chunks   []string
		wantDone bool
	}{
		{name: "single chunk", chunks: []string{"working...\n<status>done</status>\n"}, wantDone: true},
		{name: "split across chunks", chunks: []string{"<sta", "tus>do", "ne</status>"}, wantDone: true},
		{name: "one byte at a time", chunks: splitBytes("xx<status>done</status>yy"), wantDone: true},
		{name: "absent", chunks: []string{"all good", " but no tag"}, wantDone: false},
		{name: "wrong case is not the literal tag", chunks: []string{"<STATUS>DONE</STATUS>"}, wantDone: false},
		{name: "partial tag", chunks: []string{"<status>done"}, wantDone: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner()
			events := feedAll(s, tt.chunks...)
			got := countType(events, EventDone)
			if tt.wantDone && got != 1 {
				t.Errorf("expected 1 done event, got %d", got)
			}
			if !tt.wantDone && got != 0 {
				t.Errorf("expected no done event, got %d", got)
			}
			if s.DoneFired() != tt.wantDone {
				t.Errorf("DoneFired() = %v, want %v", s.DoneFired(), tt.wantDone)
			}
		})
	}
}

func TestScanner_DoneIdempotent(t *testing.T) {
	s := NewScanner()
	events := feedAll(s, "<status>done</status>", "again <status>done</status>", "<status>done</status>")
	if got := countType(events, EventDone); got != 1 {
		t.Errorf("expected exactly 1 done event, got %d", got)
	}
}

func TestScanner_Summary(t *testing.T) {
	tests := []struct {
		name     string
		chunks   []string
		wantText string
		wantOK   bool
	}{
		{
			name:     "simple block",
			chunks:   []string{"<status>done</status>\n<summary>\n  Added login.  \n</summary>"},
			wantText: "Added login.",
			wantOK:   true,
		},
		{
			name:     "split closing tag",
			chunks:   []string{"<summary>notes</sum", "mary>"},
			wantText: "notes",
			wantOK:   true,
		},
		{
			name:     "case insensitive tags",
			chunks:   []string{"<SUMMARY>Mixed Case Body</Summary>"},
			wantText: "Mixed Case Body",
			wantOK:   true,
		},
		{
			name:     "nearest preceding opening tag",
			chunks:   []string{"<summary>old <summary>new</summary>"},
			wantText: "new",
			wantOK:   true,
		},
		{
			name:   "closing tag without opening tag",
			chunks: []string{"text</summary>"},
			wantOK: false,
		},
		{
			name:   "empty block",
			chunks: []string{"<summary>   </summary>"},
			wantOK: false,
		},
		{
			name:   "unterminated block",
			chunks: []string{"<summary>never closed"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner()
			events := feedAll(s, tt.chunks...)

			var summaries []Event
			for _, e := range events {
				if e.Type == EventSummary {
					summaries = append(summaries, e)
				}
			}
			if !tt.wantOK {
				if len(summaries) != 0 {
					t.Fatalf("expected no summary, got %q", summaries[0].Text)
				}
				return
			}
			if len(summaries) != 1 {
				t.Fatalf("expected 1 summary, got %d", len(summaries))
			}
			if summaries[0].Text != tt.wantText {
				t.Errorf("Text = %q, want %q", summaries[0].Text, tt.wantText)
			}
		})
	}
}

func TestScanner_SummaryOnlyFirstClosingTag(t *testing.T) {
	s := NewScanner()
	events := feedAll(s, "<summary>first</summary>", "<summary>second</summary>")
	if got := countType(events, EventSummary); got != 1 {
		t.Fatalf("expected 1 summary event, got %d", got)
	}
	if !s.SummaryFired() {
		t.Error("SummaryFired() should be true")
	}
}

func TestScanner_BufferKeepsEverything(t *testing.T) {
	s := NewScanner()
	feedAll(s, "a", "<status>done</status>", "b")
	if s.Buffer() != "a<status>done</status>b" {
		t.Errorf("Buffer() = %q", s.Buffer())
	}
}

func TestScanner_NonASCIIOffsets(t *testing.T) {
	s := NewScanner()
	events := feedAll(s, "ÄÖÜ <summary>héllo wörld</summary>")
	if len(events) != 1 || events[0].Text != "héllo wörld" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func countType(events []Event, typ EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func splitBytes(s string) []string {
	out := make([]string, len(s))
	for i := range s {
		out[i] = s[i : i+1]
	}
	return out
}
