package sim

import (
	"context"
	"log/slog"

	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/tracing"
)

// RecoveryOutcome is what the resolver did about one disruption.
type RecoveryOutcome struct {
	ActionTaken  string `json:"action_taken"`
	DelaySeconds int    `json:"delay_seconds"`
	// Equipment is the replacement chosen for an equipment failure.
	Equipment string `json:"equipment,omitempty"`
	// Bin is the backup bin drawn from on a material shortage.
	Bin string `json:"bin,omitempty"`
}

// Resolver applies the scripted recovery rule for each disruption kind.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver builds a resolver. A nil logger discards output.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{logger: logger}
}

// Resolve mutates the run's working copies according to the disruption and
// reports the action and simulated delay. Errors are fatal to the run.
func (r *Resolver) Resolve(ctx context.Context, state *RunState, unit scenario.Unit, d scenario.Disruption) (RecoveryOutcome, error) {
	_, span := tracing.StartSpan(ctx, "sim.resolve",
		tracing.IntAttr("unit.id", unit.ID),
		tracing.StringAttr("disruption.kind", string(d.Kind)),
		tracing.StringAttr("disruption.subject", d.Subject()),
	)
	defer span.End()

	var (
		outcome RecoveryOutcome
		err     error
	)
	switch d.Kind {
	case scenario.EquipmentFailure:
		outcome, err = r.switchEquipment(state, unit, d)
	case scenario.MaterialShortage:
		outcome, err = r.substituteMaterial(state, unit, d)
	case scenario.HumanIntervention:
		outcome = r.pauseForClearance(state, unit, d)
	default:
		err = &scenario.UnknownDisruptionKindError{Kind: string(d.Kind), UnitID: unit.ID}
	}
	if err != nil {
		tracing.RecordError(span, err)
		r.logger.Error("recovery failed", "unit", unit.ID, "kind", d.Kind, "subject", d.Subject(), "error", err)
		return RecoveryOutcome{}, err
	}
	tracing.SetOK(span)
	r.logger.Info("disruption resolved", "unit", unit.ID, "kind", d.Kind, "action", outcome.ActionTaken, "delay_seconds", outcome.DelaySeconds)
	return outcome, nil
}

func (r *Resolver) switchEquipment(state *RunState, unit scenario.Unit, d scenario.Disruption) (RecoveryOutcome, error) {
	if failed, ok := state.EquipmentByID(d.Target); ok {
		failed.Status = scenario.StatusFailed
	}
	reqs := unit.Requirements()
	replacement, ok := scenario.FirstCapable(state.Equipment, reqs)
	if !ok {
		return RecoveryOutcome{}, &NoFallbackEquipmentError{UnitID: unit.ID, Failed: d.Target, Requirements: reqs}
	}
	state.assign(unit.ID, replacement.ID)
	return RecoveryOutcome{
		ActionTaken:  "switched_to_" + replacement.ID,
		DelaySeconds: d.DelaySeconds,
		Equipment:    replacement.ID,
	}, nil
}

// substituteMaterial takes one unit from the primary stock, floored at zero,
// and draws the replacement from the backup bin.
func (r *Resolver) substituteMaterial(state *RunState, unit scenario.Unit, d scenario.Disruption) (RecoveryOutcome, error) {
	m, ok := state.MaterialByID(d.Target)
	if !ok {
		return RecoveryOutcome{}, &MaterialExhaustedError{UnitID: unit.ID, Material: d.Target}
	}
	if m.Stock > 0 {
		m.Stock--
	}
	if m.BackupBin == "" || m.BackupStock <= 0 {
		return RecoveryOutcome{}, &MaterialExhaustedError{UnitID: unit.ID, Material: m.ID}
	}
	m.BackupStock--
	return RecoveryOutcome{
		ActionTaken:  "substituted_from_" + m.BackupBin,
		DelaySeconds: d.DelaySeconds,
		Bin:          m.BackupBin,
	}, nil
}

// pauseForClearance models the safety stop. The pause is simulated time
// only and leaves equipment untouched.
func (r *Resolver) pauseForClearance(state *RunState, unit scenario.Unit, d scenario.Disruption) RecoveryOutcome {
	inc := Incident{
		UnitID:       unit.ID,
		Kind:         string(d.Kind),
		Location:     d.Location,
		Reason:       d.Reason,
		Severity:     d.Severity,
		DelaySeconds: d.DelaySeconds,
	}
	state.Incidents = append(state.Incidents, inc)
	state.record(unit.ID, AgentException, EventIncident, "Safety stop at %s: %s", orUnknown(d.Location), orUnknown(d.Reason))
	return RecoveryOutcome{
		ActionTaken:  "paused_for_human_clearance",
		DelaySeconds: d.DelaySeconds,
	}
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
