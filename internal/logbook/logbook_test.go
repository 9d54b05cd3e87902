package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "incidents.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestTailOnMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "incidents.log"))
	if err != nil {
		t.Fatal(err)
	}
	lines, total := book.Tail(10)
	if lines != nil || total != 0 {
		t.Fatalf("expected empty tail, got %v/%d", lines, total)
	}
}

func TestIncidentFormat(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }
	book, err := New(filepath.Join(t.TempDir(), "incidents.log"), WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}
	if err := book.Incident(LevelError, 5, "human_intervention", "Operator entered\ncell"); err != nil {
		t.Fatalf("Incident: %v", err)
	}
	lines, _ := book.Tail(1)
	want := "2025-03-14T09:30:00Z ERROR unit=5 kind=human_intervention Operator entered cell"
	if len(lines) != 1 || lines[0] != want {
		t.Fatalf("got %q, want %q", lines, want)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"high":   LevelError,
		"error":  LevelError,
		"medium": LevelWarn,
		"WARN":   LevelWarn,
		"low":    LevelInfo,
		"":       LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Warn("ignored")
	if lines, total := book.Tail(5); lines != nil || total != 0 {
		t.Fatalf("expected empty tail from nil logbook")
	}
}
