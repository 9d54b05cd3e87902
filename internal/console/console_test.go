package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/cellsim/internal/report"
	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/sim"
)

func TestNarratorFollowsRun(t *testing.T) {
	var buf bytes.Buffer
	n := New(&buf)
	scen := scenario.Default()
	n.Header(scen.Name(), scen.TotalUnits())

	simulator, err := sim.New(scen,
		sim.WithObserver(n.Event),
		sim.WithClock(func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }),
		sim.WithRunIDs(func(time.Time) string { return "run-console" }),
	)
	if err != nil {
		t.Fatalf("sim.New returned error: %v", err)
	}
	state, err := simulator.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	n.Summary(report.Summarize(state, scen), "reports/manufacturing_report.md")

	out := buf.String()
	for _, want := range []string{
		"widget-cell-demo · 5 unit(s)",
		"[Planning Agent]",
		"[Exception Agent]",
		"switched_to_Robot_2",
		"run-console",
		"Units completed",
		"5/5",
		"100%",
		"reports/manufacturing_report.md",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "\n"); got < len(state.Events) {
		t.Fatalf("expected one line per event, got %d lines for %d events", got, len(state.Events))
	}
}

func TestNarratorUnknownAgent(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Event(sim.Event{Agent: "Night Shift", Message: "hello", SimSeconds: 7})
	if !strings.Contains(buf.String(), "[Night Shift] hello") || !strings.Contains(buf.String(), "t+    7s") {
		t.Fatalf("unexpected line %q", buf.String())
	}
}
