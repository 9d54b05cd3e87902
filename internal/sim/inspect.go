package sim

import (
	"strings"

	"github.com/kingrea/cellsim/internal/scenario"
)

// Step durations in simulated seconds.
const (
	PickStepSeconds    = 3
	DefaultStepSeconds = 5
)

// StepDuration returns the simulated duration of a process step.
func StepDuration(step string) int {
	if strings.HasPrefix(step, "pick") {
		return PickStepSeconds
	}
	return DefaultStepSeconds
}

// Inspection is the quality verdict for one unit.
type Inspection struct {
	Passed           bool    `json:"passed"`
	DeviationMM      float64 `json:"deviation_mm"`
	ToleranceMM      float64 `json:"tolerance_mm"`
	InspectionPoints int     `json:"inspection_points"`
	SurfaceFinish    string  `json:"surface_finish,omitempty"`
}

// Inspect measures a unit of product p. The measured deviation is the
// product's nominal deviation, so the verdict is deterministic.
func Inspect(p scenario.Product, standards scenario.QualityStandards) Inspection {
	return Inspection{
		Passed:           p.NominalDeviationMM <= p.QualityTolerance,
		DeviationMM:      p.NominalDeviationMM,
		ToleranceMM:      p.QualityTolerance,
		InspectionPoints: standards.InspectionPoints,
		SurfaceFinish:    standards.SurfaceFinish,
	}
}

// MaintenanceUrgency buckets remaining cycles before service.
type MaintenanceUrgency string

const (
	MaintenanceUrgent  MaintenanceUrgency = "urgent"
	MaintenanceSoon    MaintenanceUrgency = "soon"
	MaintenanceHealthy MaintenanceUrgency = "healthy"
)

// MaintenanceForecast is the service prediction for one piece of equipment.
type MaintenanceForecast struct {
	Equipment       string             `json:"equipment"`
	CyclesCompleted int                `json:"cycles_completed"`
	Threshold       int                `json:"threshold"`
	Remaining       int                `json:"remaining"`
	Urgency         MaintenanceUrgency `json:"urgency"`
	Recommendation  string             `json:"recommendation"`
}

// PredictMaintenance compares completed cycles with the equipment's rated
// cycles, falling back to threshold when none is declared.
func PredictMaintenance(e scenario.Equipment, threshold int) MaintenanceForecast {
	rated := e.CyclesRated
	if rated <= 0 {
		rated = threshold
	}
	remaining := rated - e.CyclesCompleted
	if remaining < 0 {
		remaining = 0
	}
	f := MaintenanceForecast{
		Equipment:       e.ID,
		CyclesCompleted: e.CyclesCompleted,
		Threshold:       rated,
		Remaining:       remaining,
	}
	switch {
	case remaining < 50:
		f.Urgency = MaintenanceUrgent
		f.Recommendation = "Schedule maintenance immediately"
	case remaining < 150:
		f.Urgency = MaintenanceSoon
		f.Recommendation = "Schedule maintenance within the next shift"
	default:
		f.Urgency = MaintenanceHealthy
		f.Recommendation = "No maintenance required"
	}
	return f
}
