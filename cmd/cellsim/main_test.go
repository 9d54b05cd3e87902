package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/cellsim/internal/config"
	"github.com/kingrea/cellsim/internal/runstore"
	"github.com/kingrea/cellsim/internal/scenario"
	"github.com/kingrea/cellsim/internal/sim"
)

const abortingScenario = `{
  "production_orders": [{"product": "P", "quantity": 3}],
  "products": {"P": {"steps": ["pick_part"], "cycle_time_seconds": 30}},
  "equipment": [{"id": "R1", "capabilities": ["pick"]}],
  "disruptions": [{"occurs_at_unit": 2, "type": "equipment_failure", "target": "R1", "severity": "high", "delay_seconds": 5}]
}`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvScenario, config.EnvReport, config.EnvLogLevel, config.EnvTracing} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func newTestCLI() (*cli, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &cli{stdin: strings.NewReader(""), stdout: stdout, stderr: stderr}, stdout, stderr
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c, stdout, _ := newTestCLI()
	err := c.execute(context.Background(), args)
	return stdout.String(), err
}

func TestRunWritesReportSnapshotAndHistory(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	out, err := execute(t, "run", "--project", dir, "--quiet")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "completed: 5/5 units") {
		t.Fatalf("unexpected quiet output %q", out)
	}

	reportPath := filepath.Join(dir, "manufacturing_report.md")
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "widget-cell-demo") {
		t.Fatalf("report missing scenario name:\n%s", data)
	}

	snap, err := runstore.NewRepository(filepath.Join(dir, config.ProjectDirName, "state", "last-run.json")).Load()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snap.State.Status != sim.StatusCompleted || snap.State.Completed() != 5 {
		t.Fatalf("unexpected snapshot state %+v", snap.State)
	}
	if snap.ReportPath != reportPath || snap.ScenarioPath != "" {
		t.Fatalf("unexpected snapshot paths %q %q", snap.ReportPath, snap.ScenarioPath)
	}
	if _, err := os.Stat(filepath.Join(dir, config.ProjectDirName, "reports", snap.State.RunID+".md")); err != nil {
		t.Fatalf("expected archived report: %v", err)
	}

	out, err = execute(t, "history", "--project", dir)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, snap.State.RunID) || !strings.Contains(out, "5/5") {
		t.Fatalf("history missing run:\n%s", out)
	}

	out, err = execute(t, "incidents", "--project", dir)
	if err != nil {
		t.Fatalf("incidents: %v", err)
	}
	if !strings.Contains(out, "Incidents (3 of 3)") {
		t.Fatalf("unexpected incidents output:\n%s", out)
	}
	for _, want := range []string{"kind=equipment_failure", "kind=material_shortage", "kind=human_intervention"} {
		if !strings.Contains(out, want) {
			t.Fatalf("incidents missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "report", "--project", dir)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, snap.State.RunID) {
		t.Fatalf("re-rendered report missing run id:\n%s", out)
	}
}

func TestRunNarratesAgents(t *testing.T) {
	clearEnv(t)
	out, err := execute(t, "run", "--project", t.TempDir())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"⬡ CELLSIM", "[Planning Agent]", "[Exception Agent]", "[Quality Agent]", "Units completed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("narration missing %q:\n%s", want, out)
		}
	}
}

func TestRunAbortPersistsPartialState(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	scenPath := filepath.Join(dir, "abort.json")
	if err := os.WriteFile(scenPath, []byte(abortingScenario), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	_, err := execute(t, "run", "--project", dir, "--scenario", scenPath, "--quiet")
	if !errors.Is(err, sim.ErrNoFallbackEquipment) {
		t.Fatalf("expected ErrNoFallbackEquipment, got %v", err)
	}
	snap, err := runstore.NewRepository(filepath.Join(dir, config.ProjectDirName, "state", "last-run.json")).Load()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snap.State.Status != sim.StatusAborted || snap.State.Completed() != 1 {
		t.Fatalf("expected partial aborted state, got %+v", snap.State)
	}
	if snap.ScenarioPath != scenPath {
		t.Fatalf("unexpected scenario path %q", snap.ScenarioPath)
	}

	out, err := execute(t, "incidents", "--project", dir)
	if err != nil {
		t.Fatalf("incidents: %v", err)
	}
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "aborted at unit 2") {
		t.Fatalf("expected abort entry:\n%s", out)
	}
}

func TestInitWritesCrewAndExampleScenario(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	out, err := execute(t, "init", "--project", dir, "--example")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	scenPath := filepath.Join(dir, exampleScenarioFile)
	if !strings.Contains(out, scenPath) {
		t.Fatalf("init output should name the scenario:\n%s", out)
	}
	cfg, err := config.NewConfig(dir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ScenarioPath() != scenPath {
		t.Fatalf("scenario not recorded, got %q", cfg.ScenarioPath())
	}

	out, err = execute(t, "validate-crew", "--project", dir)
	if err != nil {
		t.Fatalf("validate-crew: %v\n%s", err, out)
	}
	if !strings.HasPrefix(out, "OK: ") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = execute(t, "crew", "--project", dir)
	if err != nil {
		t.Fatalf("crew: %v", err)
	}
	if !strings.Contains(out, "Tasks (execution order)") || !strings.Contains(out, "planning_agent") {
		t.Fatalf("unexpected crew output:\n%s", out)
	}
}

func TestValidateCrewReportsProblems(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if _, err := execute(t, "init", "--project", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	agents := filepath.Join(dir, config.ProjectDirName, "crew", "agents.yaml")
	data, err := os.ReadFile(agents)
	if err != nil {
		t.Fatalf("read agents: %v", err)
	}
	broken := strings.Replace(string(data), "emergency_stop", "self_destruct", 1)
	if err := os.WriteFile(agents, []byte(broken), 0o644); err != nil {
		t.Fatalf("write agents: %v", err)
	}

	out, err := execute(t, "validate-crew", "--project", dir)
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	if !strings.Contains(out, "Invalid:") || !strings.Contains(out, "self_destruct") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestValidateScenario(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, scenario.DefaultJSON(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"production_orders": []}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := execute(t, "validate-scenario", good)
	if err != nil || !strings.HasPrefix(out, "OK: ") || !strings.Contains(out, "5 units") {
		t.Fatalf("expected OK, got %q (%v)", out, err)
	}
	out, err = execute(t, "validate-scenario", bad)
	if !errors.Is(err, errInvalid) || !strings.HasPrefix(out, "Invalid: ") {
		t.Fatalf("expected invalid, got %q (%v)", out, err)
	}
	if _, err := execute(t, "validate-scenario"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestToolsListing(t *testing.T) {
	out, err := execute(t, "tools")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	for _, want := range []string{"planning_agent", "exception_agent", "emergency_stop", "log_incident"} {
		if !strings.Contains(out, want) {
			t.Fatalf("tools output missing %q", want)
		}
	}

	out, err = execute(t, "tools", "--agent", "quality_agent", "--json")
	if err != nil {
		t.Fatalf("tools --json: %v", err)
	}
	var listed []struct {
		Name  string `json:"name"`
		Agent string `json:"agent"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 4 {
		t.Fatalf("expected 4 quality tools, got %d", len(listed))
	}
	for _, tool := range listed {
		if tool.Agent != "quality_agent" {
			t.Fatalf("unexpected agent %q", tool.Agent)
		}
	}

	if _, err := execute(t, "tools", "--agent", "nobody"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestCallRunsOneTool(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	out, err := execute(t, "call", "generate_manufacturing_sequence", "--project", dir, "--arg", "product_name=Widget-A")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !strings.Contains(out, "Manufacturing sequence for Widget-A") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = execute(t, "call", "generate_manufacturing_sequence", "--project", dir, "--json", `{"product_name": "Gadget"}`)
	if !errors.Is(err, errToolFailed) {
		t.Fatalf("expected errToolFailed, got %v", err)
	}
	if !strings.Contains(out, "Gadget") {
		t.Fatalf("expected failure text, got %q", out)
	}

	if _, err := execute(t, "call", "no_such_tool", "--project", dir); err == nil {
		t.Fatalf("expected unknown tool error")
	}
	if _, err := execute(t, "call"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestBuildToolArgs(t *testing.T) {
	overrides := keyValueFlag{}
	for _, v := range []string{"unit_number=2", "product_name=Widget-A", "clear=true"} {
		if err := overrides.Set(v); err != nil {
			t.Fatalf("set %q: %v", v, err)
		}
	}
	raw, err := buildToolArgs(`{"product_name": "Widget-B", "note": "x"}`, overrides)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["unit_number"] != float64(2) || got["product_name"] != "Widget-A" || got["clear"] != true || got["note"] != "x" {
		t.Fatalf("unexpected args %v", got)
	}

	if _, err := buildToolArgs(`[1, 2]`, nil); err == nil {
		t.Fatalf("expected error for non-object JSON")
	}
	if err := overrides.Set("novalue"); err == nil {
		t.Fatalf("expected key=value error")
	}
}

func TestExecuteDispatch(t *testing.T) {
	c, stdout, stderr := newTestCLI()
	if err := c.execute(context.Background(), nil); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(stderr.String(), "Usage: cellsim") {
		t.Fatalf("expected usage on stderr")
	}
	if err := c.execute(context.Background(), []string{"explode"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := c.execute(context.Background(), []string{"help"}); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(stdout.String(), "serve-mcp") {
		t.Fatalf("help should list commands:\n%s", stdout.String())
	}
	if err := c.execute(context.Background(), []string{"run", "-h"}); err != nil {
		t.Fatalf("run -h should not fail: %v", err)
	}
}

func TestReportAndWatchNeedARun(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if _, err := execute(t, "report", "--project", dir); !errors.Is(err, runstore.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := execute(t, "watch", "--project", dir); err == nil || !strings.Contains(err.Error(), "cellsim run") {
		t.Fatalf("expected hint to run first, got %v", err)
	}
}
