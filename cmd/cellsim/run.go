package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kingrea/cellsim/internal/config"
	"github.com/kingrea/cellsim/internal/console"
	"github.com/kingrea/cellsim/internal/crew"
	"github.com/kingrea/cellsim/internal/history"
	"github.com/kingrea/cellsim/internal/logbook"
	"github.com/kingrea/cellsim/internal/logging"
	"github.com/kingrea/cellsim/internal/report"
	"github.com/kingrea/cellsim/internal/runstore"
	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/sim"
	"github.com/kingrea/cellsim/internal/tools"
	"github.com/kingrea/cellsim/internal/tracing"
)

const (
	exampleScenarioFile = "manufacturing_scenario.json"
	prettyWidth         = 100
)

func (c *cli) initCommand(_ context.Context, args []string) error {
	fs := c.flags("init")
	project := projectFlag(fs)
	scenarioPath := fs.String("scenario", "", "scenario JSON file to record in the project config")
	example := fs.Bool("example", false, "write the built-in scenario to "+exampleScenarioFile+" and use it")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadProject(*project)
	if err != nil {
		return err
	}
	if err := crew.WriteDefaults(cfg.CrewDir()); err != nil {
		return err
	}

	selected := strings.TrimSpace(*scenarioPath)
	if *example {
		selected = filepath.Join(cfg.ProjectDir, exampleScenarioFile)
		if err := writeIfMissing(selected, scenario.DefaultJSON()); err != nil {
			return fmt.Errorf("write example scenario: %w", err)
		}
	}
	if selected != "" {
		abs, err := filepath.Abs(selected)
		if err != nil {
			return fmt.Errorf("resolve scenario path: %w", err)
		}
		if _, err := scenario.LoadFile(abs); err != nil {
			return err
		}
		if err := cfg.SetScenario(abs); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.stdout, "Initialized %s\n", cfg.CellsimDir)
	fmt.Fprintf(c.stdout, "  config:   %s\n", cfg.ProjectConfigPath())
	fmt.Fprintf(c.stdout, "  crew:     %s\n", cfg.CrewDir())
	fmt.Fprintf(c.stdout, "  scenario: %s\n", scenarioLabel(cfg.ScenarioPath()))
	return nil
}

func (c *cli) runCommand(ctx context.Context, args []string) error {
	fs := c.flags("run")
	project := projectFlag(fs)
	scenarioPath := fs.String("scenario", "", "scenario JSON file (overrides the project config)")
	reportPath := fs.String("report", "", "report destination (overrides the project config)")
	pretty := fs.Bool("pretty", false, "print the rendered report after the run")
	quiet := fs.Bool("quiet", false, "suppress the live agent narration")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := loadProject(*project)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	shutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:  cfg.Project.Tracing.Enabled,
		Exporter: cfg.Project.Tracing.Exporter,
		Path:     cfg.TracePath(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	scen, scenPath, err := loadScenario(cfg, *scenarioPath)
	if err != nil {
		return err
	}
	registry, err := tools.NewRegistry(logger)
	if err != nil {
		return err
	}
	team, err := loadCrew(cfg, registry)
	if err != nil {
		return err
	}
	tasks, err := team.Order()
	if err != nil {
		return err
	}
	for _, task := range tasks {
		logger.Debug("crew task scheduled", "task", task.ID, "agent", task.Agent, "context", task.Context)
	}

	journal, err := logbook.New(cfg.IncidentLogPath())
	if err != nil {
		return err
	}

	var narrator *console.Narrator
	opts := []sim.Option{sim.WithLogger(logger)}
	if !*quiet {
		narrator = console.New(c.stdout)
		narrator.Header(scen.Name(), scen.TotalUnits())
		opts = append(opts, sim.WithObserver(narrator.Event))
	}
	simulator, err := sim.New(scen, opts...)
	if err != nil {
		return err
	}
	state, runErr := simulator.Run(ctx)
	if state == nil {
		return fmt.Errorf("run: %w", runErr)
	}
	recordIncidents(logger, journal, state)

	// An interrupted run is still persisted.
	persistCtx := context.WithoutCancel(ctx)
	sum := report.Summarize(state, scen)
	out := cfg.ReportPath()
	if strings.TrimSpace(*reportPath) != "" {
		if out, err = filepath.Abs(*reportPath); err != nil {
			return fmt.Errorf("resolve report path: %w", err)
		}
	}
	if err := report.WriteFile(out, sum); err != nil {
		return err
	}
	if err := report.WriteFile(filepath.Join(cfg.ReportsDir(), state.RunID+".md"), sum); err != nil {
		logger.Warn("archive report failed", "run_id", state.RunID, "error", err)
	}
	snap := runstore.Snapshot{ScenarioPath: scenPath, ReportPath: out, SavedAt: time.Now().UTC(), State: state}
	if err := runstore.NewRepository(cfg.LastRunPath()).Save(snap); err != nil {
		return err
	}
	if cfg.Project.History.Enabled {
		if err := recordHistory(persistCtx, cfg.HistoryPath(), history.FromSummary(sum, out)); err != nil {
			logger.Warn("record history failed", "run_id", state.RunID, "error", err)
		}
	}

	if narrator != nil {
		narrator.Summary(sum, out)
	} else {
		fmt.Fprintf(c.stdout, "%s %s: %d/%d units, report %s\n", sum.RunID, sum.Status, sum.CompletedUnits, sum.TotalUnits, out)
	}
	if *pretty {
		if err := c.printPretty(sum); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	return nil
}

func (c *cli) reportCommand(_ context.Context, args []string) error {
	fs := c.flags("report")
	project := projectFlag(fs)
	pretty := fs.Bool("pretty", false, "render the markdown for the terminal")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadProject(*project)
	if err != nil {
		return err
	}
	snap, err := runstore.NewRepository(cfg.LastRunPath()).Load()
	if err != nil {
		return err
	}
	scen, err := scenarioForSnapshot(snap)
	if err != nil {
		return err
	}
	sum := report.Summarize(snap.State, scen)
	if *pretty {
		return c.printPretty(sum)
	}
	return report.Render(c.stdout, sum)
}

func (c *cli) printPretty(sum report.Summary) error {
	md, err := report.Markdown(sum)
	if err != nil {
		return err
	}
	rendered, err := report.Pretty(md, prettyWidth)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, rendered)
	return nil
}

func newLogger(cfg *config.Config) (*slog.Logger, func() error, error) {
	return logging.New(logging.Options{
		Level:  cfg.Project.Logging.Level,
		Format: cfg.Project.Logging.Format,
		Output: cfg.LogOutput(),
	})
}

// loadScenario resolves the scenario to simulate. An explicit path wins over
// the project config; neither means the built-in demo. The returned path is
// empty for the built-in scenario.
func loadScenario(cfg *config.Config, override string) (*scenario.Scenario, string, error) {
	path := cfg.ScenarioPath()
	if strings.TrimSpace(override) != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return nil, "", fmt.Errorf("resolve scenario path: %w", err)
		}
		path = abs
	}
	if path == "" {
		return scenario.Default(), "", nil
	}
	scen, err := scenario.LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	return scen, path, nil
}

func scenarioForSnapshot(snap runstore.Snapshot) (*scenario.Scenario, error) {
	if snap.ScenarioPath == "" {
		return scenario.Default(), nil
	}
	return scenario.LoadFile(snap.ScenarioPath)
}

// loadCrew reads the project's crew files, falling back to the built-in crew
// when neither exists, and rejects a crew that breaks the role contracts.
func loadCrew(cfg *config.Config, registry *tools.Registry) (*crew.Crew, error) {
	agentsPath, tasksPath := cfg.AgentsPath(), cfg.TasksPath()
	team := crew.Default()
	if exists(agentsPath) || exists(tasksPath) {
		loaded, err := crew.Load(agentsPath, tasksPath)
		if err != nil {
			return nil, err
		}
		team = loaded
	}
	if errs := team.Validate(registry.Names()); len(errs) > 0 {
		return nil, fmt.Errorf("crew is invalid: %w", errors.Join(errs...))
	}
	return team, nil
}

func recordIncidents(logger *slog.Logger, journal *logbook.Logbook, state *sim.RunState) {
	for _, d := range state.DisruptionsHandled {
		msg := fmt.Sprintf("subject=%s action=%s delay=%ds", orNone(d.Subject), d.ActionTaken, d.DelaySeconds)
		if d.Description != "" {
			msg += " " + d.Description
		}
		if err := journal.Incident(logbook.ParseLevel(d.Severity), d.UnitID, string(d.Kind), msg); err != nil {
			logger.Warn("record incident failed", "unit", d.UnitID, "kind", d.Kind, "error", err)
		}
	}
	if state.Status == sim.StatusAborted {
		msg := fmt.Sprintf("run=%s aborted at unit %d: %s", state.RunID, state.CurrentUnitID, state.Error)
		if err := journal.Append(logbook.LevelError, msg); err != nil {
			logger.Warn("record incident failed", "run_id", state.RunID, "error", err)
		}
	}
}

func recordHistory(ctx context.Context, path string, entry history.Entry) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, entry)
}

func writeIfMissing(path string, data []byte) error {
	if exists(path) {
		return nil
	}
	return os.WriteFile(path, data, 0o644)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

func scenarioLabel(path string) string {
	if path == "" {
		return "built-in widget cell demo"
	}
	return path
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
