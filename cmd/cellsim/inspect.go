package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kingrea/cellsim/internal/crew"
	"github.com/kingrea/cellsim/internal/history"
	"github.com/kingrea/cellsim/internal/logbook"
	"github.com/kingrea/cellsim/internal/logging"
	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/tools"
)

var (
	errInvalid    = errors.New("validation failed")
	errToolFailed = errors.New("tool call failed")
)

func (c *cli) validateScenarioCommand(_ context.Context, args []string) error {
	fs := c.flags("validate-scenario")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("%w: validate-scenario takes exactly one file", errUsage)
	}
	path := fs.Arg(0)
	scen, err := scenario.LoadFile(path)
	if err != nil {
		fmt.Fprintf(c.stdout, "Invalid: %s\n", path)
		fmt.Fprintf(c.stdout, "- %v\n", err)
		return errInvalid
	}
	fmt.Fprintf(c.stdout, "OK: %s (%s, %d units, %d disruptions)\n",
		path, scen.Name(), scen.TotalUnits(), len(scen.Disruptions()))
	return nil
}

func (c *cli) validateCrewCommand(_ context.Context, args []string) error {
	fs := c.flags("validate-crew")
	project := projectFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadProject(*project)
	if err != nil {
		return err
	}
	registry, err := tools.NewRegistry(logging.Discard())
	if err != nil {
		return err
	}
	rep, err := crew.ValidateFiles(cfg.AgentsPath(), cfg.TasksPath(), registry.Names())
	if err != nil {
		return fmt.Errorf("%w (run `cellsim init` to write the default crew)", err)
	}
	if rep.IsValid() {
		fmt.Fprintf(c.stdout, "OK: %s, %s\n", rep.AgentsPath, rep.TasksPath)
		return nil
	}
	fmt.Fprintf(c.stdout, "Invalid: %s, %s\n", rep.AgentsPath, rep.TasksPath)
	for _, validationErr := range rep.Errors {
		fmt.Fprintf(c.stdout, "- %v\n", validationErr)
	}
	return errInvalid
}

func (c *cli) crewCommand(_ context.Context, args []string) error {
	fs := c.flags("crew")
	project := projectFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadProject(*project)
	if err != nil {
		return err
	}
	registry, err := tools.NewRegistry(logging.Discard())
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

	fmt.Fprintln(c.stdout, "Agents")
	for _, agent := range team.Agents {
		fmt.Fprintf(c.stdout, "  %-22s %s\n", agent.ID, agent.Role)
		fmt.Fprintf(c.stdout, "  %-22s tools: %s\n", "", strings.Join(agent.Tools, ", "))
	}
	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, "Tasks (execution order)")
	for i, task := range tasks {
		line := fmt.Sprintf("  %d. %-32s %s", i+1, task.ID, task.Agent)
		if len(task.Context) > 0 {
			line += " after " + strings.Join(task.Context, ", ")
		}
		fmt.Fprintln(c.stdout, line)
	}
	return nil
}

func (c *cli) toolsCommand(_ context.Context, args []string) error {
	fs := c.flags("tools")
	agent := fs.String("agent", "", "only list tools of this agent id")
	asJSON := fs.Bool("json", false, "print names, descriptions and parameter schemas as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	registry, err := tools.NewRegistry(logging.Discard())
	if err != nil {
		return err
	}
	list := registry.List()
	if id := strings.TrimSpace(*agent); id != "" {
		if _, ok := crew.ContractForAgent(id); !ok {
			return fmt.Errorf("%w: unknown agent %q (expected one of %s)", errUsage, id, strings.Join(crew.AgentIDs(), ", "))
		}
		list = registry.ForAgent(id)
	}
	if *asJSON {
		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("encode tools: %w", err)
		}
		fmt.Fprintln(c.stdout, string(data))
		return nil
	}

	current := ""
	for _, t := range list {
		if t.Agent != current {
			if current != "" {
				fmt.Fprintln(c.stdout)
			}
			current = t.Agent
			fmt.Fprintln(c.stdout, current)
		}
		fmt.Fprintf(c.stdout, "  %-32s %s\n", t.Name, t.Description)
	}
	return nil
}

func (c *cli) callCommand(ctx context.Context, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		c.flags("call").Usage()
		return fmt.Errorf("%w: call needs a tool name", errUsage)
	}
	name := args[0]
	fs := c.flags("call")
	project := projectFlag(fs)
	scenarioPath := fs.String("scenario", "", "scenario JSON file (overrides the project config)")
	rawArgs := fs.String("json", "", "tool arguments as a JSON object")
	sets := keyValueFlag{}
	fs.Var(&sets, "arg", "tool argument (key=value, repeatable; values are parsed as JSON when possible)")
	if err := parseFlags(fs, args[1:]); err != nil {
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
	scen, _, err := loadScenario(cfg, *scenarioPath)
	if err != nil {
		return err
	}
	journal, err := logbook.New(cfg.IncidentLogPath())
	if err != nil {
		return err
	}
	payload, err := buildToolArgs(*rawArgs, sets)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	registry, err := tools.NewRegistry(logger)
	if err != nil {
		return err
	}
	session := tools.NewSession(scen, tools.WithJournal(journal), tools.WithSessionLogger(logger))
	res, err := registry.Execute(ctx, session, name, payload)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, res.Content)
	if res.IsError {
		return errToolFailed
	}
	return nil
}

// buildToolArgs merges a JSON object with key=value overrides. Override
// values that parse as JSON keep their type; anything else is a string.
func buildToolArgs(raw string, overrides keyValueFlag) (json.RawMessage, error) {
	fields := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("--json must be an object: %w", err)
		}
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := overrides[key]
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			fields[key] = decoded
			continue
		}
		fields[key] = value
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode tool arguments: %w", err)
	}
	return data, nil
}

func (c *cli) historyCommand(ctx context.Context, args []string) error {
	fs := c.flags("history")
	project := projectFlag(fs)
	limit := fs.Int("limit", 10, "number of runs to show (0 for all)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadProject(*project)
	if err != nil {
		return err
	}
	if !cfg.Project.History.Enabled {
		fmt.Fprintln(c.stdout, "Run history is disabled in the project config.")
		return nil
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()
	entries, err := store.List(ctx, *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.stdout, "No runs recorded.")
		return nil
	}
	fmt.Fprintln(c.stdout, historyTable(entries))
	return nil
}

func historyTable(entries []history.Entry) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("RUN", "FINISHED", "SCENARIO", "STATUS", "UNITS", "QUALITY", "RECOVERY", "DELAY")
	for _, e := range entries {
		t.Row(
			e.RunID,
			e.FinishedAt.Local().Format(time.DateTime),
			e.Scenario,
			e.Status,
			fmt.Sprintf("%d/%d", e.CompletedUnits, e.TotalUnits),
			fmt.Sprintf("%.0f%%", e.QualityPassRate*100),
			fmt.Sprintf("%.0f%%", e.DisruptionRecoveryRate*100),
			fmt.Sprintf("%ds", e.CumulativeDelaySeconds),
		)
	}
	return t.Render()
}

func (c *cli) incidentsCommand(_ context.Context, args []string) error {
	fs := c.flags("incidents")
	project := projectFlag(fs)
	lines := fs.Int("n", 20, "number of entries to show")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadProject(*project)
	if err != nil {
		return err
	}
	journal, err := logbook.New(cfg.IncidentLogPath())
	if err != nil {
		return err
	}
	tail, total := journal.Tail(*lines)
	if total == 0 {
		fmt.Fprintln(c.stdout, "No incidents recorded.")
		return nil
	}
	fmt.Fprintf(c.stdout, "Incidents (%d of %d) · %s\n", len(tail), total, journal.Path())
	for _, line := range tail {
		fmt.Fprintln(c.stdout, line)
	}
	return nil
}
