// Package runstore persists the most recent run so other commands (watch,
// incidents, the MCP server) can inspect it without re-running.
package runstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kingrea/cellsim/internal/sim"
)

// ErrRunNotFound is returned when no run has been persisted yet.
var ErrRunNotFound = errors.New("runstore: no run recorded")

// Snapshot is the persisted form of one run.
type Snapshot struct {
	ScenarioPath string        `json:"scenario_path,omitempty"`
	ReportPath   string        `json:"report_path,omitempty"`
	SavedAt      time.Time     `json:"saved_at"`
	State        *sim.RunState `json:"state"`
}

// Store persists run snapshots.
type Store interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// Repository stores the last run as JSON.
type Repository struct {
	path string
}

// NewRepository creates a repository writing to path
// (normally .cellsim/state/last-run.json).
func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

// Path returns the snapshot location.
func (r *Repository) Path() string { return r.path }

// Load reads the persisted snapshot if present.
func (r *Repository) Load() (Snapshot, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, ErrRunNotFound
		}
		return Snapshot{}, fmt.Errorf("runstore: read %s: %w", r.path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("runstore: decode %s: %w", r.path, err)
	}
	if snap.State == nil {
		return Snapshot{}, fmt.Errorf("runstore: %s has no run state", r.path)
	}
	return snap, nil
}

// Save writes the snapshot through a temp file so readers never see a
// partial document.
func (r *Repository) Save(snap Snapshot) error {
	if snap.State == nil {
		return fmt.Errorf("runstore: run state is required")
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("runstore: ensure dir: %w", err)
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("runstore: encode: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("runstore: write: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("runstore: replace %s: %w", r.path, err)
	}
	return nil
}
