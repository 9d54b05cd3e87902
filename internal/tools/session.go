package tools

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kingrea/cellsim/internal/logbook"
	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/sim"
)

// Call records one tool invocation.
type Call struct {
	Tool  string    `json:"tool"`
	Agent string    `json:"agent"`
	At    time.Time `json:"at"`
}

// LoggedIncident is an incident recorded through log_incident.
type LoggedIncident struct {
	Kind     string    `json:"kind"`
	Details  string    `json:"details"`
	Severity string    `json:"severity,omitempty"`
	UnitID   int       `json:"unit_id,omitempty"`
	At       time.Time `json:"at"`
}

// Session is the mutable cell state shared by a sequence of tool calls.
// Registry.Execute serializes access.
type Session struct {
	mu sync.Mutex

	scen     *scenario.Scenario
	state    *sim.RunState
	resolver *sim.Resolver
	journal  *logbook.Logbook
	clock    func() time.Time

	currentUnit  int
	inspected    int
	passed       int
	adaptations  int
	stopped      bool
	cycleSeconds []int
	calls        []Call
	incidents    []LoggedIncident
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithJournal writes log_incident entries to the logbook.
func WithJournal(journal *logbook.Logbook) SessionOption {
	return func(s *Session) {
		s.journal = journal
	}
}

// WithSessionClock injects a deterministic clock.
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSessionLogger passes logger to the recovery resolver.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.resolver = sim.NewResolver(logger)
	}
}

// NewSession starts a session over fresh working copies of the scenario's
// equipment and materials.
func NewSession(scen *scenario.Scenario, opts ...SessionOption) *Session {
	s := &Session{
		scen:     scen,
		state:    sim.NewRunState(scen),
		resolver: sim.NewResolver(nil),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scenario returns the scenario the session runs against.
func (s *Session) Scenario() *scenario.Scenario { return s.scen }

// Calls returns the tool invocations made so far.
func (s *Session) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Incidents returns the incidents recorded through log_incident.
func (s *Session) Incidents() []LoggedIncident {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LoggedIncident, len(s.incidents))
	copy(out, s.incidents)
	return out
}

// Stopped reports whether emergency_stop has been called.
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Equipment returns the session's working copy of a piece of equipment.
func (s *Session) Equipment(id string) (scenario.Equipment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.state.EquipmentByID(id)
	if !ok {
		return scenario.Equipment{}, false
	}
	return e.Clone(), true
}

// unit resolves a unit number, falling back to the current unit and then
// to the first unit.
func (s *Session) unit(id int) (scenario.Unit, bool) {
	if id == 0 {
		id = s.currentUnit
	}
	if id == 0 {
		id = 1
	}
	return s.scen.Unit(id)
}
