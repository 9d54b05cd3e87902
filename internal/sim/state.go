package sim

import (
	"fmt"
	"time"

	"github.com/kingrea/cellsim/internal/scenario"
)

// Agent names tag every journal entry with the role that acted.
const (
	AgentPlanning  = "Planning Agent"
	AgentRobot     = "Robot Control Agent"
	AgentQuality   = "Quality Agent"
	AgentException = "Exception Agent"
)

// Status is the lifecycle of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// EventKind classifies journal entries.
type EventKind string

const (
	EventStart      EventKind = "start"
	EventPlan       EventKind = "plan"
	EventChangeover EventKind = "changeover"
	EventAssign     EventKind = "assign"
	EventStep       EventKind = "step"
	EventDisruption EventKind = "disruption"
	EventRecovery   EventKind = "recovery"
	EventIncident   EventKind = "incident"
	EventInspection EventKind = "inspection"
	EventComplete   EventKind = "complete"
	EventAbort      EventKind = "abort"
)

// Event is one line of the chronological run journal.
type Event struct {
	Seq        int       `json:"seq"`
	UnitID     int       `json:"unit_id"`
	Agent      string    `json:"agent"`
	Kind       EventKind `json:"kind"`
	Message    string    `json:"message"`
	SimSeconds int       `json:"sim_seconds"`
}

// CompletedUnit records the outcome of one produced unit.
type CompletedUnit struct {
	UnitID        int     `json:"unit_id"`
	Product       string  `json:"product"`
	Equipment     string  `json:"equipment"`
	QualityPassed bool    `json:"quality_passed"`
	DeviationMM   float64 `json:"deviation_mm"`
	CycleSeconds  int     `json:"cycle_seconds"`
	DelaySeconds  int     `json:"delay_seconds"`
}

// HandledDisruption records a disruption and the recovery applied to it.
type HandledDisruption struct {
	UnitID       int                     `json:"unit_id"`
	Kind         scenario.DisruptionKind `json:"kind"`
	Subject      string                  `json:"subject"`
	Severity     string                  `json:"severity,omitempty"`
	Description  string                  `json:"description,omitempty"`
	ActionTaken  string                  `json:"action_taken"`
	DelaySeconds int                     `json:"delay_seconds"`
}

// Incident is a safety event raised while a unit was in progress.
type Incident struct {
	UnitID       int    `json:"unit_id"`
	Kind         string `json:"kind"`
	Location     string `json:"location,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Severity     string `json:"severity,omitempty"`
	DelaySeconds int    `json:"delay_seconds"`
}

// Changeover records a product switch between consecutive units.
type Changeover struct {
	BeforeUnitID int      `json:"before_unit_id"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	ToolsRemoved []string `json:"tools_removed,omitempty"`
	ToolsAdded   []string `json:"tools_added,omitempty"`
	Seconds      int      `json:"seconds"`
}

// Assignment records which equipment finished a unit.
type Assignment struct {
	UnitID    int    `json:"unit_id"`
	Equipment string `json:"equipment"`
}

// RunState is everything a run produced. The production loop is its only
// writer; the resolver mutates it only when called from the loop.
type RunState struct {
	RunID                  string               `json:"run_id"`
	Scenario               string               `json:"scenario"`
	Status                 Status               `json:"status"`
	Error                  string               `json:"error,omitempty"`
	StartedAt              time.Time            `json:"started_at"`
	FinishedAt             time.Time            `json:"finished_at"`
	TotalUnits             int                  `json:"total_units"`
	TotalDisruptions       int                  `json:"total_disruptions"`
	CurrentUnitID          int                  `json:"current_unit_id"`
	CompletedUnits         []CompletedUnit      `json:"completed_units"`
	QualityPassCount       int                  `json:"quality_pass_count"`
	DisruptionsHandled     []HandledDisruption  `json:"disruptions_handled"`
	CumulativeDelaySeconds int                  `json:"cumulative_delay_seconds"`
	SimulatedSeconds       int                  `json:"simulated_seconds"`
	Incidents              []Incident           `json:"incidents"`
	Changeovers            []Changeover         `json:"changeovers"`
	Assignments            []Assignment         `json:"assignments"`
	Equipment              []scenario.Equipment `json:"equipment"`
	Materials              []scenario.Material  `json:"materials"`
	Events                 []Event              `json:"events"`

	observer func(Event)
}

// NewRunState creates an empty run over working copies of the scenario's
// equipment and materials.
func NewRunState(s *scenario.Scenario) *RunState {
	return &RunState{
		Scenario:         s.Name(),
		Status:           StatusRunning,
		TotalUnits:       s.TotalUnits(),
		TotalDisruptions: len(s.Disruptions()),
		Equipment:        s.EquipmentList(),
		Materials:        s.Materials(),
	}
}

// Clone returns a deep copy of the state without its observer.
func (st *RunState) Clone() *RunState {
	out := *st
	out.observer = nil
	out.CompletedUnits = append([]CompletedUnit(nil), st.CompletedUnits...)
	out.DisruptionsHandled = append([]HandledDisruption(nil), st.DisruptionsHandled...)
	out.Incidents = append([]Incident(nil), st.Incidents...)
	out.Assignments = append([]Assignment(nil), st.Assignments...)
	out.Materials = append([]scenario.Material(nil), st.Materials...)
	out.Events = append([]Event(nil), st.Events...)
	out.Changeovers = make([]Changeover, len(st.Changeovers))
	for i, c := range st.Changeovers {
		c.ToolsRemoved = append([]string(nil), c.ToolsRemoved...)
		c.ToolsAdded = append([]string(nil), c.ToolsAdded...)
		out.Changeovers[i] = c
	}
	out.Equipment = make([]scenario.Equipment, len(st.Equipment))
	for i, e := range st.Equipment {
		out.Equipment[i] = e.Clone()
	}
	return &out
}

// Completed is the number of finished units.
func (st *RunState) Completed() int { return len(st.CompletedUnits) }

// EquipmentByID returns the working copy of a piece of equipment.
func (st *RunState) EquipmentByID(id string) (*scenario.Equipment, bool) {
	for i := range st.Equipment {
		if st.Equipment[i].ID == id {
			return &st.Equipment[i], true
		}
	}
	return nil, false
}

// MaterialByID returns the working copy of a material.
func (st *RunState) MaterialByID(id string) (*scenario.Material, bool) {
	for i := range st.Materials {
		if st.Materials[i].ID == id {
			return &st.Materials[i], true
		}
	}
	return nil, false
}

// AssignmentFor returns the equipment that handled unitID.
func (st *RunState) AssignmentFor(unitID int) (string, bool) {
	for _, a := range st.Assignments {
		if a.UnitID == unitID {
			return a.Equipment, true
		}
	}
	return "", false
}

func (st *RunState) assign(unitID int, equipment string) {
	for i := range st.Assignments {
		if st.Assignments[i].UnitID == unitID {
			st.Assignments[i].Equipment = equipment
			return
		}
	}
	st.Assignments = append(st.Assignments, Assignment{UnitID: unitID, Equipment: equipment})
}

func (st *RunState) record(unitID int, agent string, kind EventKind, format string, args ...any) {
	ev := Event{
		Seq:        len(st.Events) + 1,
		UnitID:     unitID,
		Agent:      agent,
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		SimSeconds: st.SimulatedSeconds,
	}
	st.Events = append(st.Events, ev)
	if st.observer != nil {
		st.observer(ev)
	}
}
