// Package report reduces a finished (or aborted) run into metrics and
// renders the manufacturing report.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/sim"
)

// Summary is the pure reduction of a RunState.
type Summary struct {
	RunID                  string                    `json:"run_id"`
	Scenario               string                    `json:"scenario"`
	Status                 sim.Status                `json:"status"`
	Error                  string                    `json:"error,omitempty"`
	FinishedAt             time.Time                 `json:"finished_at"`
	TotalUnits             int                       `json:"total_units"`
	CompletedUnits         int                       `json:"completed_units"`
	QualityPasses          int                       `json:"quality_passes"`
	TotalDisruptions       int                       `json:"total_disruptions"`
	DisruptionsHandled     int                       `json:"disruptions_handled"`
	SuccessRate            float64                   `json:"success_rate"`
	QualityPassRate        float64                   `json:"quality_pass_rate"`
	DisruptionRecoveryRate float64                   `json:"disruption_recovery_rate"`
	CumulativeDelaySeconds int                       `json:"cumulative_delay_seconds"`
	SimulatedSeconds       int                       `json:"simulated_seconds"`
	Units                  []sim.CompletedUnit       `json:"units"`
	Disruptions            []sim.HandledDisruption   `json:"disruptions"`
	Incidents              []sim.Incident            `json:"incidents"`
	Changeovers            []sim.Changeover          `json:"changeovers"`
	Batches                []Batch                   `json:"batches"`
	Utilization            []EquipmentUsage          `json:"utilization"`
	Maintenance            []sim.MaintenanceForecast `json:"maintenance"`
	Recommendations        []string                  `json:"recommendations"`
}

// Batch aggregates the units of one product.
type Batch struct {
	Product            string  `json:"product"`
	Units              int     `json:"units"`
	Passed             int     `json:"passed"`
	AvgCycleSeconds    float64 `json:"avg_cycle_seconds"`
	TargetCycleSeconds int     `json:"target_cycle_seconds"`
	WithinTarget       bool    `json:"within_target"`
}

// EquipmentUsage counts the units each piece of equipment finished.
type EquipmentUsage struct {
	Equipment string `json:"equipment"`
	Units     int    `json:"units"`
	Status    string `json:"status"`
}

// Summarize reduces state into report metrics. It never mutates state.
func Summarize(state *sim.RunState, scen *scenario.Scenario) Summary {
	sum := Summary{
		RunID:                  state.RunID,
		Scenario:               state.Scenario,
		Status:                 state.Status,
		Error:                  state.Error,
		FinishedAt:             state.FinishedAt,
		TotalUnits:             scen.TotalUnits(),
		CompletedUnits:         state.Completed(),
		QualityPasses:          state.QualityPassCount,
		TotalDisruptions:       len(scen.Disruptions()),
		DisruptionsHandled:     len(state.DisruptionsHandled),
		CumulativeDelaySeconds: state.CumulativeDelaySeconds,
		SimulatedSeconds:       state.SimulatedSeconds,
		Units:                  append([]sim.CompletedUnit(nil), state.CompletedUnits...),
		Disruptions:            append([]sim.HandledDisruption(nil), state.DisruptionsHandled...),
		Incidents:              append([]sim.Incident(nil), state.Incidents...),
		Changeovers:            append([]sim.Changeover(nil), state.Changeovers...),
	}
	sum.SuccessRate = ratio(sum.CompletedUnits, sum.TotalUnits)
	sum.QualityPassRate = ratio(sum.QualityPasses, sum.TotalUnits)
	if sum.TotalDisruptions == 0 {
		sum.DisruptionRecoveryRate = 1.0
	} else {
		sum.DisruptionRecoveryRate = ratio(sum.DisruptionsHandled, sum.TotalDisruptions)
	}
	sum.Batches = batches(state, scen)
	sum.Utilization = utilization(state)
	for _, eq := range state.Equipment {
		sum.Maintenance = append(sum.Maintenance, sim.PredictMaintenance(eq, scen.MaintenanceThreshold()))
	}
	sum.Recommendations = recommendations(sum)
	return sum
}

func ratio(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	r := float64(n) / float64(d)
	if r > 1 {
		return 1
	}
	return r
}

func batches(state *sim.RunState, scen *scenario.Scenario) []Batch {
	index := map[string]int{}
	var out []Batch
	totals := map[string]int{}
	for _, u := range state.CompletedUnits {
		i, ok := index[u.Product]
		if !ok {
			target := 0
			if p, found := scen.Product(u.Product); found {
				target = p.CycleTimeSeconds
			}
			out = append(out, Batch{Product: u.Product, TargetCycleSeconds: target})
			i = len(out) - 1
			index[u.Product] = i
		}
		out[i].Units++
		if u.QualityPassed {
			out[i].Passed++
		}
		totals[u.Product] += u.CycleSeconds
	}
	for i := range out {
		out[i].AvgCycleSeconds = float64(totals[out[i].Product]) / float64(out[i].Units)
		out[i].WithinTarget = out[i].TargetCycleSeconds == 0 || out[i].AvgCycleSeconds <= float64(out[i].TargetCycleSeconds)
	}
	return out
}

func utilization(state *sim.RunState) []EquipmentUsage {
	counts := map[string]int{}
	for _, u := range state.CompletedUnits {
		counts[u.Equipment]++
	}
	out := make([]EquipmentUsage, 0, len(state.Equipment))
	for _, eq := range state.Equipment {
		out = append(out, EquipmentUsage{Equipment: eq.ID, Units: counts[eq.ID], Status: string(eq.Status)})
	}
	return out
}

func recommendations(sum Summary) []string {
	var out []string
	seen := map[string]bool{}
	add := func(rec string) {
		if !seen[rec] {
			seen[rec] = true
			out = append(out, rec)
		}
	}
	for _, d := range sum.Disruptions {
		switch d.Kind {
		case scenario.EquipmentFailure:
			add(fmt.Sprintf("Inspect %s before the next shift and keep a qualified backup robot on standby", d.Subject))
		case scenario.MaterialShortage:
			add(fmt.Sprintf("Raise the reorder point for %s so the primary bin is refilled before the backup is drawn", d.Subject))
		case scenario.HumanIntervention:
			add(fmt.Sprintf("Review access control at %s to reduce unplanned safety stops", d.Subject))
		}
	}
	if sum.QualityPassRate < 1 && sum.CompletedUnits > 0 {
		add("Investigate units outside tolerance and recalibrate inspection fixtures")
	}
	maint := append([]sim.MaintenanceForecast(nil), sum.Maintenance...)
	sort.SliceStable(maint, func(i, j int) bool { return maint[i].Remaining < maint[j].Remaining })
	for _, m := range maint {
		if m.Urgency != sim.MaintenanceHealthy {
			add(fmt.Sprintf("Plan maintenance for %s (%d cycles remaining)", m.Equipment, m.Remaining))
		}
	}
	if len(out) == 0 {
		add("No process changes required")
	}
	return out
}
