package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/sim"
)

var motionPrimitives = map[string][]string{
	"pick":     {"move_to_bin", "open_gripper", "approach", "close_gripper", "lift"},
	"assemble": {"move_to_assembly", "position", "apply_force", "verify_fit"},
	"weld":     {"move_to_weld", "position", "ignite_torch", "weld_seam", "cool_down"},
	"quality":  {"move_to_inspection", "scan", "measure", "validate"},
	"place":    {"move_to_output", "position", "open_gripper", "retract"},
}

var defaultPrimitives = []string{"move", "execute", "return"}

// MotionPrimitives returns the low-level commands for a process step. Steps
// are matched by their capability prefix.
func MotionPrimitives(step string) []string {
	primitives, ok := motionPrimitives[scenario.StepRequirement(step)]
	if !ok {
		primitives = defaultPrimitives
	}
	out := make([]string, len(primitives))
	copy(out, primitives)
	return out
}

func translateToMotionPrimitives(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		Task  string `json:"task"`
		Robot string `json:"robot"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	if _, ok := s.state.EquipmentByID(in.Robot); !ok {
		return "", fmt.Errorf("robot %s not found in equipment list", in.Robot)
	}
	return fmt.Sprintf("Motion primitives for %q on %s:\n  %s", in.Task, in.Robot, strings.Join(MotionPrimitives(in.Task), " | ")), nil
}

func readSensorData(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		SensorType string `json:"sensor_type"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	names := s.scen.SensorNames()
	if in.SensorType != "" && in.SensorType != "all" {
		if _, ok := s.scen.Sensor(in.SensorType); !ok {
			return "", fmt.Errorf("sensor %s not configured (have %s)", in.SensorType, joinOrNone(names))
		}
		names = []string{in.SensorType}
	}
	if len(names) == 0 {
		return "No sensors configured", nil
	}
	var b strings.Builder
	b.WriteString("Sensor readings:")
	for _, name := range names {
		sensor, _ := s.scen.Sensor(name)
		fmt.Fprintf(&b, "\n  %s: %g%s", name, sensor.Nominal, sensor.Unit)
		switch {
		case sensor.Accuracy != "":
			fmt.Fprintf(&b, " (accuracy: %s)", sensor.Accuracy)
		case sensor.Threshold > 0:
			fmt.Fprintf(&b, " (threshold: %g%s)", sensor.Threshold, sensor.Unit)
		}
	}
	return b.String(), nil
}

func executeMotion(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		Step     string `json:"step"`
		Robot    string `json:"robot"`
		Duration *int   `json:"duration"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	if s.stopped {
		return "", fmt.Errorf("emergency stop active: %s cannot move", in.Robot)
	}
	e, ok := s.state.EquipmentByID(in.Robot)
	if !ok {
		return "", fmt.Errorf("robot %s not found in equipment list", in.Robot)
	}
	if !e.Operational() {
		return "", fmt.Errorf("robot %s is %s", e.ID, e.Status)
	}
	req := scenario.StepRequirement(in.Step)
	if !e.Covers([]string{req}) {
		return "", fmt.Errorf("robot %s lacks capability %s", e.ID, req)
	}
	duration := sim.StepDuration(in.Step)
	if in.Duration != nil {
		duration = *in.Duration
	}
	s.cycleSeconds = append(s.cycleSeconds, duration)
	return fmt.Sprintf("Executed %s on %s in %ds", in.Step, e.ID, duration), nil
}

func checkHumanProximity(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		Location   string `json:"location"`
		UnitNumber int    `json:"unit_number"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	unit := in.UnitNumber
	if unit == 0 {
		unit = s.currentUnit
	}
	radius := s.scen.SafetyProtocols().HumanDetectionDistance
	for _, d := range s.scen.DisruptionsAt(unit) {
		if d.Kind == scenario.HumanIntervention && d.Subject() == in.Location {
			var b strings.Builder
			fmt.Fprintf(&b, "Human detected at %s", in.Location)
			if d.Reason != "" {
				fmt.Fprintf(&b, " (%s)", d.Reason)
			}
			fmt.Fprintf(&b, "\n  Inside the %gm safety radius\n  Recommendation: EMERGENCY STOP required", radius)
			return b.String(), nil
		}
	}
	msg := fmt.Sprintf("Human proximity check at %s: clear (safety radius %gm)", in.Location, radius)
	if s.stopped {
		s.stopped = false
		msg += "\n  Safety clearance confirmed, emergency stop released"
	}
	return msg, nil
}

func emergencyStop(_ context.Context, s *Session, args json.RawMessage) (string, error) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	s.stopped = true
	var b strings.Builder
	b.WriteString("EMERGENCY STOP ACTIVATED\n")
	fmt.Fprintf(&b, "  Reason: %s\n", in.Reason)
	b.WriteString("  All robot motion halted\n")
	fmt.Fprintf(&b, "  Stop time: %gs\n", s.scen.SafetyProtocols().EmergencyStopTime)
	b.WriteString("  Waiting for safety clearance")
	return b.String(), nil
}
