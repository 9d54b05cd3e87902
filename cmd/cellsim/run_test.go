package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/cellsim/internal/logbook"
	"github.com/kingrea/cellsim/internal/logging"
	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/sim"
)

func TestRecordIncidentsWarnsWhenLogbookFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incidents.log")
	// A directory at the log path makes every append fail.
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	journal, err := logbook.New(path)
	if err != nil {
		t.Fatalf("logbook.New: %v", err)
	}
	var buf bytes.Buffer
	logger := logging.NewWriter(&buf, logging.Options{})

	state := &sim.RunState{
		RunID:         "run-1",
		Status:        sim.StatusAborted,
		Error:         "no fallback equipment",
		CurrentUnitID: 2,
		DisruptionsHandled: []sim.HandledDisruption{{
			UnitID:       1,
			Kind:         scenario.MaterialShortage,
			Subject:      "component_B",
			Severity:     "medium",
			ActionTaken:  "substituted_from_bin_3",
			DelaySeconds: 15,
		}},
	}
	recordIncidents(logger, journal, state)

	out := buf.String()
	if got := strings.Count(out, "record incident failed"); got != 2 {
		t.Fatalf("expected 2 warnings, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "kind=material_shortage") || !strings.Contains(out, "run_id=run-1") {
		t.Fatalf("warnings missing context:\n%s", out)
	}
}

func TestRecordIncidentsWritesEntries(t *testing.T) {
	journal, err := logbook.New(filepath.Join(t.TempDir(), "incidents.log"))
	if err != nil {
		t.Fatalf("logbook.New: %v", err)
	}
	var buf bytes.Buffer
	state := &sim.RunState{
		RunID:  "run-2",
		Status: sim.StatusCompleted,
		DisruptionsHandled: []sim.HandledDisruption{{
			UnitID:       2,
			Kind:         scenario.EquipmentFailure,
			Subject:      "Robot_1",
			Severity:     "high",
			ActionTaken:  "switched_to_Robot_2",
			DelaySeconds: 5,
		}},
	}
	recordIncidents(logging.NewWriter(&buf, logging.Options{}), journal, state)

	if buf.Len() != 0 {
		t.Fatalf("expected no warnings, got %s", buf.String())
	}
	tail, total := journal.Tail(10)
	if total != 1 || !strings.Contains(tail[0], "unit=2 kind=equipment_failure") {
		t.Fatalf("unexpected logbook tail %v (total %d)", tail, total)
	}
}
