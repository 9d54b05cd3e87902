// internal/tui/app.go
//
// Replay viewer for the last persisted run. It follows The Elm Architecture
// as bubbletea expects:
//
// 1. Model: the snapshot plus the unit list and window size
// 2. Update: key and resize messages move the selection
// 3. View: renders units, the selected unit's journal and the incident log

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/cellsim/internal/logbook"
	"github.com/kingrea/cellsim/internal/runstore"
	"github.com/kingrea/cellsim/internal/sim"
)

// AppOption customizes App construction.
type AppOption func(*App)

// WithLogbook shows the tail of the incident journal under the replay.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// unitItem implements list.Item for one unit of the run.
type unitItem struct {
	id    int
	title string
	desc  string
}

func (i unitItem) Title() string       { return i.title }
func (i unitItem) Description() string { return i.desc }
func (i unitItem) FilterValue() string { return i.title }

// App is the replay model.
type App struct {
	snapshot runstore.Snapshot
	state    *sim.RunState
	logbook  *logbook.Logbook

	units     list.Model
	showAll   bool
	statusMsg string

	width  int
	height int
}

// NewApp builds a replay of snap.
func NewApp(snap runstore.Snapshot, opts ...AppOption) *App {
	state := snap.State
	if state == nil {
		state = &sim.RunState{}
	}
	units := list.New(buildUnitItems(state), list.NewDefaultDelegate(), 0, 0)
	units.Title = "Units"
	units.SetShowStatusBar(false)
	units.SetFilteringEnabled(false)
	units.SetShowHelp(false)

	a := &App{
		snapshot:  snap,
		state:     state,
		units:     units,
		statusMsg: "↑/↓ select unit    a → all events    q → quit",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func buildUnitItems(state *sim.RunState) []list.Item {
	done := map[int]sim.CompletedUnit{}
	for _, u := range state.CompletedUnits {
		done[u.UnitID] = u
	}
	items := make([]list.Item, 0, state.TotalUnits)
	for id := 1; id <= state.TotalUnits; id++ {
		item := unitItem{id: id, title: fmt.Sprintf("Unit %d", id)}
		if u, ok := done[id]; ok {
			verdict := "PASS"
			if !u.QualityPassed {
				verdict = "FAIL"
			}
			item.title = fmt.Sprintf("Unit %d · %s", id, u.Product)
			item.desc = fmt.Sprintf("%s · %s · %ds", u.Equipment, verdict, u.CycleSeconds)
			if u.DelaySeconds > 0 {
				item.desc += fmt.Sprintf(" (+%ds)", u.DelaySeconds)
			}
		} else if state.Status == sim.StatusAborted && id == state.CurrentUnitID {
			item.desc = "aborted"
		} else {
			item.desc = "not started"
		}
		items = append(items, item)
	}
	return items
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update handles resize and key messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.units.SetSize(max(20, a.leftWidth()-4), max(6, msg.Height-12))
		return a, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return a, tea.Quit
		case "a", "tab":
			a.showAll = !a.showAll
			return a, nil
		}
	}
	var cmd tea.Cmd
	a.units, cmd = a.units.Update(msg)
	return a, cmd
}

// SelectedUnit returns the highlighted unit id, or 0 when there are none.
func (a *App) SelectedUnit() int {
	item, ok := a.units.SelectedItem().(unitItem)
	if !ok {
		return 0
	}
	return item.id
}

func (a *App) leftWidth() int {
	if a.width <= 0 {
		return 36
	}
	return max(24, a.width/3)
}

// View renders the replay.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	leftWidth := a.leftWidth()
	rightWidth := width - leftWidth - 4
	if rightWidth < 30 {
		rightWidth = 30
	}

	header := headerStyle.Render("⬡ CELLSIM REPLAY")
	leftBox := boxStyle.Width(leftWidth).Render(a.units.View())
	rightBox := boxStyle.Width(rightWidth).Render(a.renderJournal(rightWidth - 4))
	body := lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)

	sections := []string{header, a.renderRunLine(), body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, footerStyle.Render(a.statusMsg))
	return strings.Join(sections, "\n")
}
