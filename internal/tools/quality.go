package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/sim"
)

func inspectProductQuality(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		Product string `json:"product"`
		Unit    int    `json:"unit"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	p, ok := s.scen.Product(in.Product)
	if !ok {
		return "", fmt.Errorf("product %s not found in catalog", in.Product)
	}
	result := sim.Inspect(p, s.scen.QualityStandards())
	s.inspected++
	if result.Passed {
		s.passed++
	}
	if in.Unit > s.currentUnit {
		s.currentUnit = in.Unit
	}

	verdict := "PASS"
	if !result.Passed {
		verdict = "FAIL"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Inspecting %s unit %d:\n", p.ID, in.Unit)
	fmt.Fprintf(&b, "  Dimensional check: %.3fmm deviation (tolerance %.3fmm)\n", result.DeviationMM, result.ToleranceMM)
	if result.SurfaceFinish != "" {
		fmt.Fprintf(&b, "  Surface finish: %s\n", result.SurfaceFinish)
	}
	if result.InspectionPoints > 0 {
		fmt.Fprintf(&b, "  Inspection points: %d\n", result.InspectionPoints)
	}
	fmt.Fprintf(&b, "  Status: %s", verdict)
	return b.String(), nil
}

func analyzeQualityTrends(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		Product   string `json:"product"`
		BatchSize int    `json:"batch_size"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	p, ok := s.scen.Product(in.Product)
	if !ok {
		return "", fmt.Errorf("product %s not found in catalog", in.Product)
	}
	stepsPerUnit := len(p.Steps)
	if stepsPerUnit == 0 {
		stepsPerUnit = 1
	}
	need := in.BatchSize * stepsPerUnit
	if len(s.cycleSeconds) < need {
		return fmt.Sprintf("Insufficient data for trend analysis (need %d executed steps, have %d)", need, len(s.cycleSeconds)), nil
	}
	recent := s.cycleSeconds[len(s.cycleSeconds)-need:]
	total := 0
	for _, v := range recent {
		total += v
	}
	avg := float64(total) / float64(in.BatchSize)

	var b strings.Builder
	fmt.Fprintf(&b, "Quality trend analysis for %s batch (%d units):\n", p.ID, in.BatchSize)
	fmt.Fprintf(&b, "  Average cycle time: %.0fs (target: %ds)\n", avg, p.CycleTimeSeconds)
	fmt.Fprintf(&b, "  Quality pass rate: %d/%d\n", s.passed, s.inspected)
	if avg > float64(p.CycleTimeSeconds) {
		fmt.Fprintf(&b, "  Cycle time exceeded target by %.0fs", avg-float64(p.CycleTimeSeconds))
	} else {
		b.WriteString("  Performance within expectations")
	}
	return b.String(), nil
}

// suggestProcessImprovements matches the issue text against the cell's
// equipment and materials before falling back to keyword rules.
func suggestProcessImprovements(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		Issue string `json:"issue"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	issue := strings.ToLower(in.Issue)
	var b strings.Builder
	b.WriteString("Process improvement recommendations:\n")

	for _, e := range s.state.Equipment {
		if strings.Contains(issue, strings.ToLower(e.ID)) || (strings.Contains(issue, "failure") && e.Status == scenario.StatusFailed) {
			f := sim.PredictMaintenance(e, s.scen.MaintenanceThreshold())
			fmt.Fprintf(&b, "  %s: schedule preventive maintenance (%d cycles remaining)\n", e.ID, f.Remaining)
			b.WriteString("  Impact: reduce cycle time variance\n")
			b.WriteString("  Priority: HIGH")
			return b.String(), nil
		}
	}
	if strings.Contains(issue, "material") || strings.Contains(issue, "shortage") {
		target := ""
		for _, m := range s.state.Materials {
			if strings.Contains(issue, strings.ToLower(m.ID)) || (target == "" && m.BackupBin != "") {
				target = m.ID
			}
		}
		if target == "" {
			target = "critical components"
		}
		fmt.Fprintf(&b, "  Inventory: increase buffer stock for %s\n", target)
		b.WriteString("  Impact: prevent supply chain delays\n")
		b.WriteString("  Priority: MEDIUM")
		return b.String(), nil
	}
	switch {
	case strings.Contains(issue, "cycle"):
		b.WriteString("  Motion optimization: review robot path planning\n")
		b.WriteString("  Impact: shorter cycle times\n")
		b.WriteString("  Priority: MEDIUM")
	case strings.Contains(issue, "quality"), strings.Contains(issue, "tolerance"):
		b.WriteString("  Inspection: recalibrate fixtures and review units outside tolerance\n")
		b.WriteString("  Priority: HIGH")
	default:
		b.WriteString("  Continue monitoring production metrics\n")
		b.WriteString("  No immediate action required")
	}
	return b.String(), nil
}

func predictMaintenanceNeeds(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		Robot string `json:"robot"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	e, ok := s.state.EquipmentByID(in.Robot)
	if !ok {
		return "", fmt.Errorf("robot %s not found in equipment list", in.Robot)
	}
	f := sim.PredictMaintenance(*e, s.scen.MaintenanceThreshold())
	var b strings.Builder
	fmt.Fprintf(&b, "Predictive maintenance for %s:\n", f.Equipment)
	fmt.Fprintf(&b, "  Current cycles: %d\n", f.CyclesCompleted)
	fmt.Fprintf(&b, "  Maintenance threshold: %d\n", f.Threshold)
	fmt.Fprintf(&b, "  Remaining cycles: %d\n", f.Remaining)
	fmt.Fprintf(&b, "  %s: %s", strings.ToUpper(string(f.Urgency)), f.Recommendation)
	return b.String(), nil
}
