package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/sim"
)

func parseProductionOrder(_ context.Context, s *Session, _ json.RawMessage) (string, error) {
	var b strings.Builder
	b.WriteString("Parsed production orders:\n")
	total := 0
	for _, order := range s.scen.Orders() {
		fmt.Fprintf(&b, "  - %dx %s", order.Quantity, order.Product)
		if order.Description != "" {
			fmt.Fprintf(&b, " (%s)", order.Description)
		}
		b.WriteString("\n")
		total += order.Quantity
	}
	fmt.Fprintf(&b, "Total units to produce: %d", total)
	return b.String(), nil
}

func generateManufacturingSequence(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		ProductName string `json:"product_name"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	p, ok := s.scen.Product(in.ProductName)
	if !ok {
		return "", fmt.Errorf("product %s not found in catalog", in.ProductName)
	}
	simulated := 0
	for _, step := range p.Steps {
		simulated += sim.StepDuration(step)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Manufacturing sequence for %s:\n", p.ID)
	fmt.Fprintf(&b, "  Steps: %s\n", strings.Join(p.Steps, " -> "))
	fmt.Fprintf(&b, "  Target cycle time: %ds (simulated %ds)\n", p.CycleTimeSeconds, simulated)
	fmt.Fprintf(&b, "  Capabilities: %s\n", strings.Join(p.Requirements(), ", "))
	fmt.Fprintf(&b, "  Required tools: %s", joinOrNone(p.RequiredTools))
	return b.String(), nil
}

// coordinateRobots applies equipment failures scripted for the unit before
// choosing equipment, so the assignment matches what the production loop
// would pick.
func coordinateRobots(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		ProductName string `json:"product_name"`
		UnitNumber  int    `json:"unit_number"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	p, ok := s.scen.Product(in.ProductName)
	if !ok {
		return "", fmt.Errorf("product %s not found in catalog", in.ProductName)
	}
	for _, d := range s.scen.DisruptionsAt(in.UnitNumber) {
		if d.Kind != scenario.EquipmentFailure {
			continue
		}
		if e, ok := s.state.EquipmentByID(d.Target); ok {
			e.Status = scenario.StatusFailed
		}
	}
	reqs := p.Requirements()
	e, ok := scenario.FirstCapable(s.state.Equipment, reqs)
	if !ok {
		return "", fmt.Errorf("no operational equipment covers %s for unit %d", strings.Join(reqs, ", "), in.UnitNumber)
	}
	s.currentUnit = in.UnitNumber
	s.state.Assignments = append(s.state.Assignments, sim.Assignment{UnitID: in.UnitNumber, Equipment: e.ID})

	var b strings.Builder
	fmt.Fprintf(&b, "Robot coordination for %s unit %d:\n", p.ID, in.UnitNumber)
	fmt.Fprintf(&b, "  Assigned: %s", e.ID)
	if e.Station != "" {
		fmt.Fprintf(&b, " at %s", e.Station)
	}
	fmt.Fprintf(&b, "\n  Capabilities: %s", strings.Join(e.Capabilities, ", "))
	return b.String(), nil
}

func adaptPlanForDisruption(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		DisruptionType string `json:"disruption_type"`
		Target         string `json:"target"`
		UnitNumber     int    `json:"unit_number"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	kind := scenario.DisruptionKind(in.DisruptionType)
	if !kind.Valid() {
		return "", &scenario.UnknownDisruptionKindError{Kind: in.DisruptionType, UnitID: in.UnitNumber}
	}
	s.adaptations++

	var b strings.Builder
	fmt.Fprintf(&b, "Adapting plan for %s:\n", kind.Label())
	switch kind {
	case scenario.EquipmentFailure:
		var reqs []string
		if u, ok := s.unit(in.UnitNumber); ok {
			reqs = u.Requirements()
		}
		var pool []scenario.Equipment
		for _, e := range s.state.Equipment {
			if e.ID != in.Target {
				pool = append(pool, e)
			}
		}
		if alt, ok := scenario.FirstCapable(pool, reqs); ok {
			fmt.Fprintf(&b, "  Reallocating tasks from %s to %s\n", in.Target, alt.ID)
			fmt.Fprintf(&b, "  Estimated delay: +%ds", s.scriptedDelay(kind, in.Target, in.UnitNumber))
		} else {
			fmt.Fprintf(&b, "  No alternate equipment covers %s. Requesting maintenance.", joinOrNone(reqs))
		}
	case scenario.MaterialShortage:
		m, ok := s.state.MaterialByID(in.Target)
		fmt.Fprintf(&b, "  Material %s depleted\n", in.Target)
		if ok && m.BackupBin != "" && m.BackupStock > 0 {
			fmt.Fprintf(&b, "  Switching to backup inventory (%s, %d on hand)\n", m.BackupBin, m.BackupStock)
			fmt.Fprintf(&b, "  Estimated delay: +%ds for retrieval", s.scriptedDelay(kind, in.Target, in.UnitNumber))
		} else {
			b.WriteString("  No backup inventory available. Production must halt.")
		}
	case scenario.HumanIntervention:
		fmt.Fprintf(&b, "  Human detected at %s\n", in.Target)
		b.WriteString("  Pausing production for safety\n")
		fmt.Fprintf(&b, "  Resume after clearance (+%ds)", s.scriptedDelay(kind, in.Target, in.UnitNumber))
	}
	return b.String(), nil
}

func trackProductionProgress(_ context.Context, s *Session, _ json.RawMessage) (string, error) {
	total := s.scen.TotalUnits()
	pct := 0.0
	if total > 0 {
		pct = float64(s.inspected) / float64(total) * 100
	}
	var b strings.Builder
	b.WriteString("Production progress:\n")
	fmt.Fprintf(&b, "  Units completed: %d/%d (%.0f%%)\n", s.inspected, total, pct)
	fmt.Fprintf(&b, "  Disruptions handled: %d\n", s.adaptations)
	fmt.Fprintf(&b, "  Quality checks passed: %d", s.passed)
	return b.String(), nil
}

// scriptedDelay returns the delay of the matching scripted disruption, or
// of the first one of the same kind and subject when unit is unknown.
func (s *Session) scriptedDelay(kind scenario.DisruptionKind, subject string, unit int) int {
	fallback := 0
	for _, d := range s.scen.Disruptions() {
		if d.Kind != kind || d.Subject() != subject {
			continue
		}
		if unit == 0 || d.TriggerUnitID == unit {
			return d.DelaySeconds
		}
		if fallback == 0 {
			fallback = d.DelaySeconds
		}
	}
	return fallback
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
