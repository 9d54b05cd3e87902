// Package history records one row per simulator run in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kingrea/cellsim/internal/report"
)

// ErrNotFound is returned when a run id has no history row.
var ErrNotFound = errors.New("history: run not found")

// Entry is one recorded run.
type Entry struct {
	RunID                  string
	Scenario               string
	Status                 string
	Error                  string
	FinishedAt             time.Time
	TotalUnits             int
	CompletedUnits         int
	QualityPasses          int
	TotalDisruptions       int
	DisruptionsHandled     int
	CumulativeDelaySeconds int
	SimulatedSeconds       int
	SuccessRate            float64
	QualityPassRate        float64
	DisruptionRecoveryRate float64
	ReportPath             string
}

// FromSummary builds a history entry from a run summary.
func FromSummary(sum report.Summary, reportPath string) Entry {
	return Entry{
		RunID:                  sum.RunID,
		Scenario:               sum.Scenario,
		Status:                 string(sum.Status),
		Error:                  sum.Error,
		FinishedAt:             sum.FinishedAt,
		TotalUnits:             sum.TotalUnits,
		CompletedUnits:         sum.CompletedUnits,
		QualityPasses:          sum.QualityPasses,
		TotalDisruptions:       sum.TotalDisruptions,
		DisruptionsHandled:     sum.DisruptionsHandled,
		CumulativeDelaySeconds: sum.CumulativeDelaySeconds,
		SimulatedSeconds:       sum.SimulatedSeconds,
		SuccessRate:            sum.SuccessRate,
		QualityPassRate:        sum.QualityPassRate,
		DisruptionRecoveryRate: sum.DisruptionRecoveryRate,
		ReportPath:             reportPath,
	}
}

// Store is the SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and migrates it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: ensure dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id              TEXT PRIMARY KEY,
			scenario            TEXT NOT NULL,
			status              TEXT NOT NULL,
			error               TEXT NOT NULL DEFAULT '',
			finished_at         TEXT NOT NULL,
			total_units         INTEGER NOT NULL,
			completed_units     INTEGER NOT NULL,
			quality_passes      INTEGER NOT NULL,
			total_disruptions   INTEGER NOT NULL,
			disruptions_handled INTEGER NOT NULL,
			delay_seconds       INTEGER NOT NULL,
			simulated_seconds   INTEGER NOT NULL,
			success_rate        REAL NOT NULL,
			quality_pass_rate   REAL NOT NULL,
			recovery_rate       REAL NOT NULL,
			report_path         TEXT NOT NULL DEFAULT ''
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts or replaces the row for e.RunID.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.RunID == "" {
		return fmt.Errorf("history: run id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			run_id, scenario, status, error, finished_at, total_units, completed_units,
			quality_passes, total_disruptions, disruptions_handled, delay_seconds,
			simulated_seconds, success_rate, quality_pass_rate, recovery_rate, report_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Scenario, e.Status, e.Error, e.FinishedAt.UTC().Format(time.RFC3339Nano),
		e.TotalUnits, e.CompletedUnits, e.QualityPasses, e.TotalDisruptions, e.DisruptionsHandled,
		e.CumulativeDelaySeconds, e.SimulatedSeconds, e.SuccessRate, e.QualityPassRate,
		e.DisruptionRecoveryRate, e.ReportPath,
	)
	if err != nil {
		return fmt.Errorf("history: record %s: %w", e.RunID, err)
	}
	return nil
}

const selectColumns = `run_id, scenario, status, error, finished_at, total_units, completed_units,
	quality_passes, total_disruptions, disruptions_handled, delay_seconds, simulated_seconds,
	success_rate, quality_pass_rate, recovery_rate, report_path`

// Get returns the entry for runID.
func (s *Store) Get(ctx context.Context, runID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM runs WHERE run_id = ?", runID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// List returns up to limit entries, most recent first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := "SELECT " + selectColumns + " FROM runs ORDER BY finished_at DESC, run_id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e        Entry
		finished string
	)
	err := row.Scan(&e.RunID, &e.Scenario, &e.Status, &e.Error, &finished,
		&e.TotalUnits, &e.CompletedUnits, &e.QualityPasses, &e.TotalDisruptions,
		&e.DisruptionsHandled, &e.CumulativeDelaySeconds, &e.SimulatedSeconds,
		&e.SuccessRate, &e.QualityPassRate, &e.DisruptionRecoveryRate, &e.ReportPath)
	if err != nil {
		return Entry{}, err
	}
	e.FinishedAt, err = time.Parse(time.RFC3339Nano, finished)
	if err != nil {
		return Entry{}, fmt.Errorf("history: parse finished_at %q: %w", finished, err)
	}
	return e, nil
}
