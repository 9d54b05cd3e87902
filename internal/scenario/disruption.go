package scenario

import "strings"

// DisruptionKind is the closed set of scripted disruption types.
type DisruptionKind string

const (
	EquipmentFailure  DisruptionKind = "equipment_failure"
	MaterialShortage  DisruptionKind = "material_shortage"
	HumanIntervention DisruptionKind = "human_intervention"
)

// DisruptionKinds lists every supported kind in a stable order.
func DisruptionKinds() []DisruptionKind {
	return []DisruptionKind{EquipmentFailure, MaterialShortage, HumanIntervention}
}

// Valid reports whether k is one of the supported kinds.
func (k DisruptionKind) Valid() bool {
	switch k {
	case EquipmentFailure, MaterialShortage, HumanIntervention:
		return true
	}
	return false
}

// Label is the human readable form used in reports.
func (k DisruptionKind) Label() string {
	return strings.ReplaceAll(string(k), "_", " ")
}

// Disruption is a scripted adverse event tied to one unit.
type Disruption struct {
	TriggerUnitID  int            `json:"occurs_at_unit"`
	Kind           DisruptionKind `json:"type"`
	Target         string         `json:"target,omitempty"`
	Severity       string         `json:"severity,omitempty"`
	Description    string         `json:"description,omitempty"`
	Location       string         `json:"location,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	RecoveryAction string         `json:"recovery_action,omitempty"`
	DelaySeconds   int            `json:"delay_seconds,omitempty"`
	// DurationSeconds is accepted as an alias of DelaySeconds for
	// human_intervention records written in the older format.
	DurationSeconds int `json:"duration_seconds,omitempty"`
}

// Subject returns the equipment, material or location the disruption affects.
func (d Disruption) Subject() string {
	if d.Kind == HumanIntervention && d.Location != "" {
		return d.Location
	}
	return d.Target
}
