// Package console narrates a run on the terminal: one agent-tagged line per
// journal event and a closing metrics block.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/cellsim/internal/report"
	"github.com/kingrea/cellsim/internal/sim"
)

var agentColors = map[string]lipgloss.Color{
	sim.AgentPlanning:  lipgloss.Color("#5B8DEF"),
	sim.AgentRobot:     lipgloss.Color("#4CAF50"),
	sim.AgentQuality:   lipgloss.Color("#F7B801"),
	sim.AgentException: lipgloss.Color("#FF6B6B"),
}

// Narrator writes styled run output to w.
type Narrator struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	tags     map[string]lipgloss.Style
	clock    lipgloss.Style
	warn     lipgloss.Style
	heading  lipgloss.Style
	muted    lipgloss.Style
}

// New creates a narrator. Colors are chosen from w's terminal capabilities,
// so non-terminal writers receive plain text.
func New(w io.Writer) *Narrator {
	r := lipgloss.NewRenderer(w)
	n := &Narrator{
		w:        w,
		renderer: r,
		tags:     map[string]lipgloss.Style{},
		clock:    r.NewStyle().Foreground(lipgloss.Color("#888888")),
		warn:     r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		heading:  r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		muted:    r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
	}
	for agent, color := range agentColors {
		n.tags[agent] = r.NewStyle().Foreground(color).Bold(true)
	}
	return n
}

// Header announces the run.
func (n *Narrator) Header(scenarioName string, units int) {
	fmt.Fprintln(n.w, n.heading.Render("⬡ CELLSIM"))
	fmt.Fprintln(n.w, n.muted.Render(fmt.Sprintf("Scenario %s · %d unit(s)", scenarioName, units)))
	fmt.Fprintln(n.w)
}

// Event prints one journal entry. It matches sim.WithObserver.
func (n *Narrator) Event(ev sim.Event) {
	tag, ok := n.tags[ev.Agent]
	if !ok {
		tag = n.renderer.NewStyle().Bold(true)
	}
	msg := ev.Message
	switch ev.Kind {
	case sim.EventDisruption, sim.EventIncident, sim.EventAbort:
		msg = n.warn.Render(msg)
	}
	fmt.Fprintf(n.w, "%s %s %s\n",
		n.clock.Render(fmt.Sprintf("t+%5ds", ev.SimSeconds)),
		tag.Render("["+ev.Agent+"]"),
		msg,
	)
}

// Summary prints the closing metrics block.
func (n *Narrator) Summary(sum report.Summary, reportPath string) {
	fmt.Fprintln(n.w)
	status := strings.ToUpper(string(sum.Status))
	if sum.Status != sim.StatusCompleted {
		status = n.warn.Render(status)
	}
	fmt.Fprintf(n.w, "%s %s\n", n.heading.Render("Run"), status)
	rows := [][2]string{
		{"Run ID", sum.RunID},
		{"Units completed", fmt.Sprintf("%d/%d", sum.CompletedUnits, sum.TotalUnits)},
		{"Success rate", percent(sum.SuccessRate)},
		{"Quality pass rate", percent(sum.QualityPassRate)},
		{"Disruption recovery", percent(sum.DisruptionRecoveryRate)},
		{"Cumulative delay", fmt.Sprintf("%ds", sum.CumulativeDelaySeconds)},
		{"Simulated time", fmt.Sprintf("%ds", sum.SimulatedSeconds)},
	}
	if sum.Error != "" {
		rows = append(rows, [2]string{"Error", sum.Error})
	}
	if reportPath != "" {
		rows = append(rows, [2]string{"Report", reportPath})
	}
	for _, row := range rows {
		fmt.Fprintf(n.w, "  %s %s\n", n.muted.Render(fmt.Sprintf("%-20s", row[0])), row[1])
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
