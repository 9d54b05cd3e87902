package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/cellsim/internal/logbook"
	"github.com/kingrea/cellsim/internal/runstore"
	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/sim"
)

func newTestSnapshot(t *testing.T, scen *scenario.Scenario) runstore.Snapshot {
	t.Helper()
	simulator, err := sim.New(scen,
		sim.WithClock(func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }),
		sim.WithRunIDs(func(time.Time) string { return "run-replay" }),
	)
	if err != nil {
		t.Fatalf("sim.New returned error: %v", err)
	}
	state, err := simulator.Run(context.Background())
	if err != nil && state == nil {
		t.Fatalf("Run returned no state: %v", err)
	}
	return runstore.Snapshot{State: state}
}

func press(a *App, msg tea.Msg) (*App, tea.Cmd) {
	model, cmd := a.Update(msg)
	return model.(*App), cmd
}

func TestReplayListsUnitsAndJournal(t *testing.T) {
	app := NewApp(newTestSnapshot(t, scenario.Default()))
	app, _ = press(app, tea.WindowSizeMsg{Width: 140, Height: 40})

	if got := app.SelectedUnit(); got != 1 {
		t.Fatalf("expected unit 1 selected, got %d", got)
	}
	view := app.View()
	for _, want := range []string{"CELLSIM REPLAY", "run-replay", "Unit 1 · Widget-A", "Unit 1 journal"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}

	app, _ = press(app, tea.KeyMsg{Type: tea.KeyDown})
	if got := app.SelectedUnit(); got != 2 {
		t.Fatalf("expected unit 2 after down, got %d", got)
	}
	if view := app.View(); !strings.Contains(view, "switched_to_Robot_2") {
		t.Fatalf("expected unit 2 recovery in journal:\n%s", view)
	}

	app, _ = press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	if view := app.View(); !strings.Contains(view, "Run journal") || !strings.Contains(view, "paused_for_human_clearance") {
		t.Fatalf("expected full journal after toggle:\n%s", view)
	}
}

func TestReplayMarksAbortedUnit(t *testing.T) {
	payload := `{
  "production_orders": [{"product": "P", "quantity": 2}],
  "products": {"P": {"steps": ["pick_part"], "cycle_time_seconds": 10}},
  "equipment": [{"id": "R1", "capabilities": ["pick"]}],
  "disruptions": [{"occurs_at_unit": 2, "type": "equipment_failure", "target": "R1", "delay_seconds": 5}]
}`
	scen, err := scenario.Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	snap := newTestSnapshot(t, scen)
	if snap.State.Status != sim.StatusAborted {
		t.Fatalf("expected aborted run, got %s", snap.State.Status)
	}
	items := buildUnitItems(snap.State)
	if got := items[1].(unitItem).desc; got != "aborted" {
		t.Fatalf("expected unit 2 to be marked aborted, got %q", got)
	}
	view := NewApp(snap).View()
	if !strings.Contains(view, "aborted") {
		t.Fatalf("expected aborted status in view:\n%s", view)
	}
}

func TestReplayShowsIncidentLog(t *testing.T) {
	lb, err := logbook.New(filepath.Join(t.TempDir(), "incidents.log"))
	if err != nil {
		t.Fatal(err)
	}
	if err := lb.Incident(logbook.LevelError, 5, "human_intervention", "Operator entered cell"); err != nil {
		t.Fatal(err)
	}
	view := NewApp(newTestSnapshot(t, scenario.Default()), WithLogbook(lb)).View()
	if !strings.Contains(view, "INCIDENTS · incidents.log (1)") || !strings.Contains(view, "Operator entered cell") {
		t.Fatalf("expected incident panel in view:\n%s", view)
	}
}

func TestQuitKeys(t *testing.T) {
	app := NewApp(runstore.Snapshot{})
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := press(app, key)
		if cmd == nil {
			t.Fatalf("expected quit command for %s", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("expected tea.QuitMsg for %s", key.String())
		}
	}
	if app.SelectedUnit() != 0 {
		t.Fatalf("expected no selection for empty snapshot")
	}
	if !strings.Contains(app.View(), "No events recorded.") {
		t.Fatalf("expected empty journal note")
	}
}
