package scenario

import (
	"sort"
	"strings"
)

// Order is one production order line before expansion into units.
type Order struct {
	Product     string `json:"product"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description,omitempty"`
}

// Product describes how a product type is built and inspected.
type Product struct {
	ID                 string   `json:"-"`
	Steps              []string `json:"steps"`
	CycleTimeSeconds   int      `json:"cycle_time_seconds"`
	RequiredTools      []string `json:"required_tools,omitempty"`
	QualityTolerance   float64  `json:"quality_tolerance,omitempty"`
	NominalDeviationMM float64  `json:"nominal_deviation_mm,omitempty"`
}

// Requirements returns the sorted, de-duplicated capabilities needed to run
// every step of the product.
func (p Product) Requirements() []string {
	return Requirements(p.Steps)
}

func (p Product) clone() Product {
	p.Steps = cloneStrings(p.Steps)
	p.RequiredTools = cloneStrings(p.RequiredTools)
	return p
}

// EquipmentStatus is the availability state of a piece of equipment.
type EquipmentStatus string

const (
	StatusOperational EquipmentStatus = "operational"
	StatusFailed      EquipmentStatus = "failed"
	StatusMaintenance EquipmentStatus = "maintenance"
)

// Equipment is a robot or station that can perform process steps.
type Equipment struct {
	ID              string          `json:"id"`
	Station         string          `json:"station,omitempty"`
	Capabilities    []string        `json:"capabilities"`
	CyclesCompleted int             `json:"cycles_completed,omitempty"`
	CyclesRated     int             `json:"cycles_rated,omitempty"`
	Status          EquipmentStatus `json:"status,omitempty"`
}

// Operational reports whether the equipment can accept work.
func (e Equipment) Operational() bool {
	return e.Status == StatusOperational
}

// Covers reports whether the capability set is a superset of reqs.
func (e Equipment) Covers(reqs []string) bool {
	caps := make(map[string]struct{}, len(e.Capabilities))
	for _, c := range e.Capabilities {
		caps[c] = struct{}{}
	}
	for _, r := range reqs {
		if _, ok := caps[r]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (e Equipment) Clone() Equipment {
	e.Capabilities = cloneStrings(e.Capabilities)
	return e
}

// Material is a stocked component with an optional backup bin.
type Material struct {
	ID          string `json:"id"`
	Bin         string `json:"bin,omitempty"`
	Stock       int    `json:"stock"`
	BackupBin   string `json:"backup_bin,omitempty"`
	BackupStock int    `json:"backup_stock,omitempty"`
}

// Sensor holds the nominal reading reported for a sensor channel.
type Sensor struct {
	Accuracy  string  `json:"accuracy,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Nominal   float64 `json:"nominal,omitempty"`
	Unit      string  `json:"unit,omitempty"`
}

// QualityStandards apply to every inspected unit.
type QualityStandards struct {
	SurfaceFinish    string `json:"surface_finish,omitempty"`
	InspectionPoints int    `json:"inspection_points,omitempty"`
}

// SafetyProtocols configure human-robot interaction limits.
type SafetyProtocols struct {
	HumanDetectionDistance float64  `json:"human_detection_distance,omitempty"`
	EmergencyStopTime      float64  `json:"emergency_stop_time,omitempty"`
	RestrictedZones        []string `json:"restricted_zones,omitempty"`
}

// Unit is one product instance to be produced. Units are numbered from 1 in
// arrival order across all orders.
type Unit struct {
	ID               int      `json:"id"`
	Product          string   `json:"product"`
	Steps            []string `json:"steps"`
	CycleTimeSeconds int      `json:"cycle_time_seconds"`
	OrderIndex       int      `json:"order_index"`
	Ordinal          int      `json:"ordinal"`
	BatchSize        int      `json:"batch_size"`
}

// Requirements returns the capabilities the unit's step sequence needs.
func (u Unit) Requirements() []string {
	return Requirements(u.Steps)
}

func (u Unit) clone() Unit {
	u.Steps = cloneStrings(u.Steps)
	return u
}

// StepRequirement maps a step name to the capability that performs it. The
// capability is the step prefix before the first underscore, so
// "pick_component" needs "pick" and "weld" needs "weld".
func StepRequirement(step string) string {
	step = strings.TrimSpace(step)
	if idx := strings.Index(step, "_"); idx > 0 {
		return step[:idx]
	}
	return step
}

// Requirements maps each step to its capability and returns the sorted set.
func Requirements(steps []string) []string {
	set := map[string]struct{}{}
	for _, step := range steps {
		if req := StepRequirement(step); req != "" {
			set[req] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for req := range set {
		out = append(out, req)
	}
	sort.Strings(out)
	return out
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
