package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/cellsim/internal/sim"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))

	statusStyleCompleted = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	statusStyleAborted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	statusStyleRunning   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)

	kindStyles = map[sim.EventKind]lipgloss.Style{
		sim.EventDisruption: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		sim.EventIncident:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		sim.EventAbort:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		sim.EventRecovery:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		sim.EventInspection: lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
		sim.EventChangeover: lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
	}
	kindStyleDefault = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
)

func (a *App) renderRunLine() string {
	st := a.state
	var status string
	switch st.Status {
	case sim.StatusCompleted:
		status = statusStyleCompleted.Render(string(st.Status))
	case sim.StatusAborted:
		status = statusStyleAborted.Render(string(st.Status))
	default:
		status = statusStyleRunning.Render(orDash(string(st.Status)))
	}
	line := fmt.Sprintf("Run %s · %s · %s · %d/%d units · +%ds delay",
		orDash(st.RunID), orDash(st.Scenario), status, st.Completed(), st.TotalUnits, st.CumulativeDelaySeconds)
	if st.Error != "" {
		line += "\n" + statusStyleAborted.Render(st.Error)
	}
	return line
}

func (a *App) renderJournal(width int) string {
	unit := a.SelectedUnit()
	title := fmt.Sprintf("Unit %d journal", unit)
	if a.showAll || unit == 0 {
		title = "Run journal"
	}
	var rows []string
	for _, ev := range a.state.Events {
		if !a.showAll && unit != 0 && ev.UnitID != unit {
			continue
		}
		style, ok := kindStyles[ev.Kind]
		if !ok {
			style = kindStyleDefault
		}
		rows = append(rows, fmt.Sprintf("%s %s %s",
			mutedStyle.Render(fmt.Sprintf("t+%4ds", ev.SimSeconds)),
			mutedStyle.Render(shortAgent(ev.Agent)),
			style.Render(ev.Message),
		))
	}
	if len(rows) == 0 {
		rows = append(rows, mutedStyle.Render("No events recorded."))
	}
	body := lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(rows, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), body)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := titleStyle.Render(fmt.Sprintf("INCIDENTS · %s (%d)", fileName, total))
	body := mutedStyle.Render(strings.Join(lines, "\n"))
	return boxStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

// shortAgent trims the " Agent" suffix so journal rows stay narrow.
func shortAgent(agent string) string {
	return "[" + strings.TrimSuffix(agent, " Agent") + "]"
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
