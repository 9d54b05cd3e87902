// Package sim runs a scenario unit by unit, resolving scripted disruptions
// and recording everything into an explicit RunState.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/tracing"
)

// Simulator walks the expanded unit list of one scenario.
type Simulator struct {
	scenario *scenario.Scenario
	resolver *Resolver
	logger   *slog.Logger
	clock    func() time.Time
	runID    func(time.Time) string
	observer func(Event)
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithLogger routes simulator and resolver logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Simulator) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(gen func(time.Time) string) Option {
	return func(s *Simulator) {
		if gen != nil {
			s.runID = gen
		}
	}
}

// WithObserver receives every journal event as it is recorded.
func WithObserver(fn func(Event)) Option {
	return func(s *Simulator) {
		s.observer = fn
	}
}

// New builds a simulator for scen.
func New(scen *scenario.Scenario, opts ...Option) (*Simulator, error) {
	if scen == nil {
		return nil, fmt.Errorf("sim: scenario is required")
	}
	s := &Simulator{
		scenario: scen,
		logger:   slog.New(slog.DiscardHandler),
		clock:    time.Now,
		runID:    newRunID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = NewResolver(s.logger)
	return s, nil
}

// Run produces every unit in arrival order. On a fatal recovery error or
// context cancellation it returns the partial state together with the error.
func (s *Simulator) Run(ctx context.Context) (*RunState, error) {
	ctx, span := tracing.StartSpan(ctx, "sim.run",
		tracing.StringAttr("scenario", s.scenario.Name()),
		tracing.IntAttr("units", s.scenario.TotalUnits()),
	)
	defer span.End()

	state := NewRunState(s.scenario)
	state.observer = s.observer
	defer func() { state.observer = nil }()

	state.StartedAt = s.clock()
	state.RunID = s.runID(state.StartedAt)
	state.record(0, AgentPlanning, EventStart, "Starting %s: %d units across %d orders", s.scenario.Name(), state.TotalUnits, len(s.scenario.Orders()))
	s.logger.Info("run started", "run_id", state.RunID, "scenario", state.Scenario, "units", state.TotalUnits)

	previous := ""
	for _, unit := range s.scenario.Units() {
		if err := ctx.Err(); err != nil {
			return s.abort(state, span, fmt.Errorf("sim: run cancelled before unit %d: %w", unit.ID, err))
		}
		if err := s.runUnit(ctx, state, unit, previous); err != nil {
			return s.abort(state, span, err)
		}
		previous = unit.Product
	}

	state.Status = StatusCompleted
	state.FinishedAt = s.clock()
	state.record(0, AgentPlanning, EventComplete, "Run complete: %d/%d units, %d disruptions handled, %ds delay",
		state.Completed(), state.TotalUnits, len(state.DisruptionsHandled), state.CumulativeDelaySeconds)
	tracing.SetOK(span)
	s.logger.Info("run completed", "run_id", state.RunID, "completed", state.Completed(), "delay_seconds", state.CumulativeDelaySeconds)
	return state, nil
}

func (s *Simulator) runUnit(ctx context.Context, state *RunState, unit scenario.Unit, previous string) error {
	ctx, span := tracing.StartSpan(ctx, "sim.unit",
		tracing.IntAttr("unit.id", unit.ID),
		tracing.StringAttr("unit.product", unit.Product),
	)
	defer span.End()

	state.CurrentUnitID = unit.ID
	product, _ := s.scenario.Product(unit.Product)

	if previous != "" && previous != unit.Product {
		s.changeover(state, unit, previous, product)
	}
	state.record(unit.ID, AgentPlanning, EventPlan, "Unit %d/%d: %s (%d of %d)", unit.ID, state.TotalUnits, unit.Product, unit.Ordinal, unit.BatchSize)

	reqs := unit.Requirements()
	equipment, ok := scenario.FirstCapable(state.Equipment, reqs)
	if !ok {
		err := &NoFallbackEquipmentError{UnitID: unit.ID, Requirements: reqs}
		tracing.RecordError(span, err)
		return err
	}
	state.assign(unit.ID, equipment.ID)
	state.record(unit.ID, AgentPlanning, EventAssign, "Assigned unit %d to %s", unit.ID, equipment.ID)

	cycle := 0
	for _, step := range unit.Steps {
		d := StepDuration(step)
		cycle += d
		state.record(unit.ID, AgentRobot, EventStep, "%s executed %s (%ds)", equipment.ID, step, d)
	}

	delay := 0
	for _, d := range s.scenario.DisruptionsAt(unit.ID) {
		state.record(unit.ID, AgentException, EventDisruption, "Disruption: %s on %s (severity %s)", d.Kind.Label(), orUnknown(d.Subject()), orUnknown(d.Severity))
		outcome, err := s.resolver.Resolve(ctx, state, unit, d)
		if err != nil {
			tracing.RecordError(span, err)
			return err
		}
		state.DisruptionsHandled = append(state.DisruptionsHandled, HandledDisruption{
			UnitID:       unit.ID,
			Kind:         d.Kind,
			Subject:      d.Subject(),
			Severity:     d.Severity,
			Description:  d.Description,
			ActionTaken:  outcome.ActionTaken,
			DelaySeconds: outcome.DelaySeconds,
		})
		state.CumulativeDelaySeconds += outcome.DelaySeconds
		delay += outcome.DelaySeconds
		state.record(unit.ID, AgentException, EventRecovery, "Recovery: %s (+%ds)", outcome.ActionTaken, outcome.DelaySeconds)
	}

	inspection := Inspect(product, s.scenario.QualityStandards())
	verdict := "PASS"
	if inspection.Passed {
		state.QualityPassCount++
	} else {
		verdict = "FAIL"
	}
	state.record(unit.ID, AgentQuality, EventInspection, "Unit %d %s: deviation %.3fmm (tolerance %.3fmm)", unit.ID, verdict, inspection.DeviationMM, inspection.ToleranceMM)

	assigned, _ := state.AssignmentFor(unit.ID)
	state.SimulatedSeconds += cycle + delay
	state.CompletedUnits = append(state.CompletedUnits, CompletedUnit{
		UnitID:        unit.ID,
		Product:       unit.Product,
		Equipment:     assigned,
		QualityPassed: inspection.Passed,
		DeviationMM:   inspection.DeviationMM,
		CycleSeconds:  cycle,
		DelaySeconds:  delay,
	})
	tracing.SetOK(span)
	s.logger.Debug("unit completed", "unit", unit.ID, "product", unit.Product, "equipment", assigned, "quality_passed", inspection.Passed)
	return nil
}

func (s *Simulator) changeover(state *RunState, unit scenario.Unit, previous string, next scenario.Product) {
	prev, _ := s.scenario.Product(previous)
	removed, added := diffTools(prev.RequiredTools, next.RequiredTools)
	c := Changeover{
		BeforeUnitID: unit.ID,
		From:         previous,
		To:           unit.Product,
		ToolsRemoved: removed,
		ToolsAdded:   added,
		Seconds:      s.scenario.ChangeoverSeconds(),
	}
	state.Changeovers = append(state.Changeovers, c)
	msg := fmt.Sprintf("Changeover %s -> %s", c.From, c.To)
	if len(removed) > 0 || len(added) > 0 {
		msg += fmt.Sprintf(": swap [%s] for [%s]", strings.Join(removed, ", "), strings.Join(added, ", "))
	}
	state.record(unit.ID, AgentPlanning, EventChangeover, "%s (%ds)", msg, c.Seconds)
	state.SimulatedSeconds += c.Seconds
}

func (s *Simulator) abort(state *RunState, span trace.Span, err error) (*RunState, error) {
	state.Status = StatusAborted
	state.Error = err.Error()
	state.FinishedAt = s.clock()
	state.record(state.CurrentUnitID, AgentException, EventAbort, "Run aborted: %v", err)
	tracing.RecordError(span, err)
	s.logger.Error("run aborted", "run_id", state.RunID, "unit", state.CurrentUnitID, "error", err)
	return state, err
}

func diffTools(from, to []string) (removed, added []string) {
	inTo := make(map[string]bool, len(to))
	for _, t := range to {
		inTo[t] = true
	}
	inFrom := make(map[string]bool, len(from))
	for _, t := range from {
		inFrom[t] = true
		if !inTo[t] {
			removed = append(removed, t)
		}
	}
	for _, t := range to {
		if !inFrom[t] {
			added = append(added, t)
		}
	}
	return removed, added
}

func newRunID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
