package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/kingrea/cellsim/internal/scenario"
)

func TestResolverRejectsUnknownKind(t *testing.T) {
	s := scenario.Default()
	state := NewRunState(s)
	unit, _ := s.Unit(1)
	_, err := NewResolver(nil).Resolve(context.Background(), state, unit, scenario.Disruption{
		TriggerUnitID: 1,
		Kind:          scenario.DisruptionKind("power_outage"),
	})
	var kindErr *scenario.UnknownDisruptionKindError
	if !errors.As(err, &kindErr) || kindErr.Kind != "power_outage" {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
	if !errors.Is(err, scenario.ErrUnknownDisruptionKind) {
		t.Fatalf("expected ErrUnknownDisruptionKind")
	}
}

func TestResolverEquipmentFailureUsesDeclarationOrder(t *testing.T) {
	s := scenario.Default()
	state := NewRunState(s)
	unit, _ := s.Unit(2)
	outcome, err := NewResolver(nil).Resolve(context.Background(), state, unit, s.DisruptionsAt(2)[0])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if outcome.ActionTaken != "switched_to_Robot_2" || outcome.DelaySeconds != 5 || outcome.Equipment != "Robot_2" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if got, _ := state.AssignmentFor(2); got != "Robot_2" {
		t.Fatalf("expected unit 2 reassigned to Robot_2, got %q", got)
	}
}

func TestResolverMaterialShortage(t *testing.T) {
	s := scenario.Default()
	state := NewRunState(s)
	unit, _ := s.Unit(4)
	outcome, err := NewResolver(nil).Resolve(context.Background(), state, unit, s.DisruptionsAt(4)[0])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if outcome.ActionTaken != "substituted_from_bin_3" || outcome.DelaySeconds != 15 || outcome.Bin != "bin_3" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	m, _ := state.MaterialByID("component_B")
	if m.BackupStock != 9 {
		t.Fatalf("expected backup stock 9, got %d", m.BackupStock)
	}
}

func TestResolverUnknownMaterialIsExhausted(t *testing.T) {
	s := scenario.Default()
	state := NewRunState(s)
	unit, _ := s.Unit(1)
	_, err := NewResolver(nil).Resolve(context.Background(), state, unit, scenario.Disruption{
		TriggerUnitID: 1,
		Kind:          scenario.MaterialShortage,
		Target:        "unobtainium",
	})
	if !errors.Is(err, ErrMaterialExhausted) {
		t.Fatalf("expected ErrMaterialExhausted, got %v", err)
	}
}

func TestResolverMaterialShortageDecrementsPrimaryStock(t *testing.T) {
	s := scenario.Default()
	state := NewRunState(s)
	m, ok := state.MaterialByID("component_B")
	if !ok {
		t.Fatalf("component_B missing from run state")
	}
	m.Stock = 5
	m.BackupStock = 10
	unit, _ := s.Unit(4)
	outcome, err := NewResolver(nil).Resolve(context.Background(), state, unit, s.DisruptionsAt(4)[0])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if outcome.ActionTaken != "substituted_from_bin_3" || outcome.DelaySeconds != 15 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	m, _ = state.MaterialByID("component_B")
	if m.Stock != 4 || m.BackupStock != 9 {
		t.Fatalf("expected stock 4 and backup 9, got %d and %d", m.Stock, m.BackupStock)
	}
}
