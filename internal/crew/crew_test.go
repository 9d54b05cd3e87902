package crew

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const validAgents = `
planning_agent:
  role: Planner
  goal: Plan
  backstory: Plans things
  tools: [parse_production_order, generate_manufacturing_sequence, coordinate_robots, adapt_plan_for_disruption, track_production_progress]
robot_control_agent:
  role: Robot
  goal: Move
  backstory: Moves things
  tools: [translate_to_motion_primitives, read_sensor_data, execute_motion, check_human_proximity, emergency_stop]
quality_agent:
  role: Quality
  goal: Inspect
  backstory: Inspects things
  tools: [inspect_product_quality, analyze_quality_trends, suggest_process_improvements, predict_maintenance_needs]
exception_agent:
  role: Exceptions
  goal: Recover
  backstory: Recovers things
  tools: [detect_anomalies, generate_recovery_strategy, validate_safety_protocols, log_incident]
`

const validTasks = `
report:
  description: Report
  expected_output: Markdown
  agent: planning_agent
  context: [plan, execute]
plan:
  description: Plan
  expected_output: Plan
  agent: planning_agent
execute:
  description: Execute
  expected_output: Log
  agent: robot_control_agent
  context: [plan]
`

func TestDefaultCrewIsValid(t *testing.T) {
	c := Default()
	if errs := c.Validate(nil); len(errs) != 0 {
		t.Fatalf("expected default crew to validate, got %v", errs)
	}
	var ids []string
	for _, a := range c.Agents {
		ids = append(ids, a.ID)
	}
	if !reflect.DeepEqual(ids, AgentIDs()) {
		t.Fatalf("expected agents in file order, got %v", ids)
	}
	ordered, err := c.Order()
	if err != nil {
		t.Fatalf("Order returned error: %v", err)
	}
	if ordered[0].ID != "parse_and_plan" || ordered[len(ordered)-1].ID != "generate_report" {
		t.Fatalf("unexpected task order %v", taskIDs(ordered))
	}
	report, ok := c.Task("generate_report")
	if !ok || report.OutputFile != "manufacturing_report.md" {
		t.Fatalf("expected report task with output file, got %+v", report)
	}
}

func TestOrderFollowsContext(t *testing.T) {
	c, err := Parse([]byte(validAgents), []byte(validTasks))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	ordered, err := c.Order()
	if err != nil {
		t.Fatalf("Order returned error: %v", err)
	}
	if got := taskIDs(ordered); !reflect.DeepEqual(got, []string{"plan", "execute", "report"}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestValidateReportsProblems(t *testing.T) {
	tests := []struct {
		name   string
		agents string
		tasks  string
		known  []string
		want   string
	}{
		{
			name:   "missing required tool",
			agents: strings.Replace(validAgents, "log_incident", "detect_anomalies", 1),
			tasks:  validTasks,
			want:   `agents.exception_agent: missing required tool "log_incident"`,
		},
		{
			name:   "unknown tool",
			agents: validAgents,
			tasks:  validTasks,
			known:  []string{"parse_production_order"},
			want:   `unknown tool "emergency_stop"`,
		},
		{
			name:   "unknown agent role",
			agents: validAgents + "welding_agent:\n  role: Welder\n  goal: Weld\n  backstory: Welds\n",
			tasks:  validTasks,
			want:   "agents.welding_agent: unknown agent role",
		},
		{
			name:   "missing agent",
			agents: validAgents[:strings.Index(validAgents, "exception_agent:")],
			tasks:  validTasks,
			want:   `missing required agent "exception_agent"`,
		},
		{
			name:   "unknown task agent",
			agents: validAgents,
			tasks:  strings.Replace(validTasks, "agent: robot_control_agent", "agent: nobody", 1),
			want:   `tasks.execute: unknown agent "nobody"`,
		},
		{
			name:   "unknown context",
			agents: validAgents,
			tasks:  strings.Replace(validTasks, "context: [plan]", "context: [ghost]", 1),
			want:   `context references unknown task "ghost"`,
		},
		{
			name:   "self reference",
			agents: validAgents,
			tasks:  strings.Replace(validTasks, "context: [plan]", "context: [execute]", 1),
			want:   "tasks.execute: context references itself",
		},
		{
			name:   "cycle",
			agents: validAgents,
			tasks:  strings.Replace(validTasks, "  agent: planning_agent\nexecute:", "  agent: planning_agent\n  context: [execute]\nexecute:", 1),
			want:   "context forms a cycle through",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.agents), []byte(tt.tasks))
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			errs := c.Validate(tt.known)
			if len(errs) == 0 {
				t.Fatalf("expected validation errors")
			}
			found := false
			for _, err := range errs {
				if strings.Contains(err.Error(), tt.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error containing %q, got %v", tt.want, errs)
			}
		})
	}
}

func TestParseRejectsNonMapping(t *testing.T) {
	if _, err := Parse([]byte("- a\n- b\n"), []byte(validTasks)); err == nil {
		t.Fatalf("expected error for sequence document")
	}
}

func TestWriteDefaultsKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "agents.yaml")
	if err := os.WriteFile(custom, []byte(validAgents), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteDefaults(dir); err != nil {
		t.Fatalf("WriteDefaults returned error: %v", err)
	}
	data, err := os.ReadFile(custom)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != validAgents {
		t.Fatalf("existing agents.yaml was overwritten")
	}
	report, err := ValidateFiles(custom, filepath.Join(dir, "tasks.yaml"), nil)
	if err != nil {
		t.Fatalf("ValidateFiles returned error: %v", err)
	}
	if !report.IsValid() {
		t.Fatalf("expected valid crew, got %v", report.Errors)
	}
}

func TestContractForAgent(t *testing.T) {
	contract, ok := ContractForAgent(QualityAgent)
	if !ok || len(contract.RequiredTools) != 4 {
		t.Fatalf("unexpected quality contract %+v", contract)
	}
	if _, ok := ContractForAgent("unknown"); ok {
		t.Fatalf("expected no contract for unknown agent")
	}
}

func taskIDs(tasks []Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
