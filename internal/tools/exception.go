package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/cellsim/internal/logbook"
	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/sim"
)

func detectAnomalies(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		UnitNumber int `json:"unit_number"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	found := s.scen.DisruptionsAt(in.UnitNumber)
	if len(found) == 0 {
		return fmt.Sprintf("No anomalies detected for unit %d", in.UnitNumber), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ANOMALY DETECTED at unit %d:", in.UnitNumber)
	for _, d := range found {
		fmt.Fprintf(&b, "\n  Type: %s", d.Kind)
		switch d.Kind {
		case scenario.EquipmentFailure:
			fmt.Fprintf(&b, "\n  Target: %s", d.Target)
		case scenario.MaterialShortage:
			fmt.Fprintf(&b, "\n  Material: %s", d.Target)
		case scenario.HumanIntervention:
			fmt.Fprintf(&b, "\n  Location: %s", d.Subject())
			if d.Reason != "" {
				fmt.Fprintf(&b, "\n  Reason: %s", d.Reason)
			}
		}
		if d.Description != "" {
			fmt.Fprintf(&b, "\n  Description: %s", d.Description)
		}
		if d.Severity != "" {
			fmt.Fprintf(&b, "\n  Severity: %s", strings.ToUpper(d.Severity))
		}
		fmt.Fprintf(&b, "\n  Delay: %ds", d.DelaySeconds)
	}
	return b.String(), nil
}

// generateRecoveryStrategy runs the resolver on a copy of the session
// state, so the preview never changes the cell.
func generateRecoveryStrategy(ctx context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		DisruptionType string `json:"disruption_type"`
		Target         string `json:"target"`
		UnitNumber     int    `json:"unit_number"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	kind := scenario.DisruptionKind(in.DisruptionType)
	unit, ok := s.unit(in.UnitNumber)
	if !ok {
		return "", fmt.Errorf("unit %d is outside 1..%d", in.UnitNumber, s.scen.TotalUnits())
	}
	d := scenario.Disruption{
		TriggerUnitID: unit.ID,
		Kind:          kind,
		Target:        in.Target,
		DelaySeconds:  s.scriptedDelay(kind, in.Target, in.UnitNumber),
	}
	if kind == scenario.HumanIntervention {
		d.Location = in.Target
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recovery strategy for %s on %s:\n", kind.Label(), in.Target)
	outcome, err := s.resolver.Resolve(ctx, s.state.Clone(), unit, d)
	switch {
	case err == nil:
		fmt.Fprintf(&b, "  Selected: %s\n", outcome.ActionTaken)
		fmt.Fprintf(&b, "  Estimated recovery time: %ds", outcome.DelaySeconds)
	case errors.Is(err, sim.ErrNoFallbackEquipment), errors.Is(err, sim.ErrMaterialExhausted):
		fmt.Fprintf(&b, "  No automatic recovery: %v\n", err)
		b.WriteString("  Recommendation: halt production and escalate to maintenance")
	default:
		return "", err
	}
	return b.String(), nil
}

func validateSafetyProtocols(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		ScenarioName string `json:"scenario_name"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	name := in.ScenarioName
	if name == "" {
		name = s.scen.Name()
	}
	protocols := s.scen.SafetyProtocols()

	var violations []string
	if protocols.HumanDetectionDistance <= 0 {
		violations = append(violations, "human detection distance is not configured")
	}
	if protocols.EmergencyStopTime <= 0 {
		violations = append(violations, "emergency stop time is not configured")
	}
	stations := map[string]struct{}{}
	for _, e := range s.state.Equipment {
		if e.Station != "" {
			stations[e.Station] = struct{}{}
		}
	}
	for _, zone := range protocols.RestrictedZones {
		if _, ok := stations[zone]; !ok {
			violations = append(violations, fmt.Sprintf("restricted zone %s has no equipment station", zone))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Safety protocol validation: %s\n", name)
	fmt.Fprintf(&b, "  Human detection distance: %gm\n", protocols.HumanDetectionDistance)
	fmt.Fprintf(&b, "  Emergency stop time: %gs\n", protocols.EmergencyStopTime)
	fmt.Fprintf(&b, "  Restricted zones: %s\n", joinOrNone(protocols.RestrictedZones))
	if len(violations) == 0 {
		b.WriteString("  Status: all safety protocols maintained")
		return b.String(), nil
	}
	b.WriteString("  Status: violations found")
	for _, v := range violations {
		fmt.Fprintf(&b, "\n  - %s", v)
	}
	return b.String(), nil
}

func logIncident(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		IncidentType string `json:"incident_type"`
		Details      string `json:"details"`
		Severity     string `json:"severity"`
		UnitNumber   int    `json:"unit_number"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	entry := LoggedIncident{
		Kind:     in.IncidentType,
		Details:  in.Details,
		Severity: in.Severity,
		UnitID:   in.UnitNumber,
		At:       s.clock(),
	}
	if err := s.journal.Incident(logbook.ParseLevel(in.Severity), in.UnitNumber, in.IncidentType, in.Details); err != nil {
		return "", fmt.Errorf("record incident: %w", err)
	}
	s.incidents = append(s.incidents, entry)

	var b strings.Builder
	b.WriteString("Incident logged:\n")
	fmt.Fprintf(&b, "  Type: %s\n", entry.Kind)
	fmt.Fprintf(&b, "  Details: %s\n", entry.Details)
	fmt.Fprintf(&b, "  Timestamp: %s\n", entry.At.UTC().Format(time.RFC3339))
	if path := s.journal.Path(); path != "" {
		fmt.Fprintf(&b, "  Journal: %s", path)
	} else {
		b.WriteString("  Status: recorded for analysis")
	}
	return b.String(), nil
}
