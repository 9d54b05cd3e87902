package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kingrea/cellsim/internal/report"
	"github.com/kingrea/cellsim/internal/sim"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sum := report.Summary{
		RunID:                  "01RUN",
		Scenario:               "widget-cell-demo",
		Status:                 sim.StatusCompleted,
		FinishedAt:             time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		TotalUnits:             5,
		CompletedUnits:         5,
		QualityPasses:          5,
		TotalDisruptions:       3,
		DisruptionsHandled:     3,
		CumulativeDelaySeconds: 40,
		SuccessRate:            1,
		QualityPassRate:        1,
		DisruptionRecoveryRate: 1,
	}
	if err := store.Record(ctx, FromSummary(sum, "manufacturing_report.md")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := store.Get(ctx, "01RUN")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Scenario != "widget-cell-demo" || got.CumulativeDelaySeconds != 40 || got.DisruptionRecoveryRate != 1 || got.ReportPath != "manufacturing_report.md" {
		t.Fatalf("unexpected entry %+v", got)
	}
	if !got.FinishedAt.Equal(sum.FinishedAt) {
		t.Fatalf("finished_at = %v, want %v", got.FinishedAt, sum.FinishedAt)
	}
}

func TestGetMissingRun(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		e := Entry{RunID: id, Scenario: "demo", Status: "completed", FinishedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}
	entries, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-3" || entries[1].RunID != "run-2" {
		t.Fatalf("unexpected order %+v", entries)
	}
	all, err := store.List(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d (%v)", len(all), err)
	}
}

func TestRecordReplacesExistingRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	e := Entry{RunID: "run-1", Scenario: "demo", Status: "running", FinishedAt: time.Now()}
	if err := store.Record(ctx, e); err != nil {
		t.Fatal(err)
	}
	e.Status = "aborted"
	e.Error = "no fallback"
	if err := store.Record(ctx, e); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "aborted" || got.Error != "no fallback" {
		t.Fatalf("expected replaced row, got %+v", got)
	}
}

func TestRecordRequiresRunID(t *testing.T) {
	store := openTestStore(t)
	if err := store.Record(context.Background(), Entry{}); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}
