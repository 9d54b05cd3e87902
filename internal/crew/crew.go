// Package crew loads the agents.yaml and tasks.yaml crew definition,
// validates it against the role contracts and orders tasks by their
// context dependencies.
package crew

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed agents.yaml
var defaultAgentsYAML []byte

//go:embed tasks.yaml
var defaultTasksYAML []byte

// Agent is one entry of agents.yaml.
type Agent struct {
	ID              string   `yaml:"-"`
	Role            string   `yaml:"role"`
	Goal            string   `yaml:"goal"`
	Backstory       string   `yaml:"backstory"`
	Verbose         bool     `yaml:"verbose"`
	AllowDelegation bool     `yaml:"allow_delegation"`
	Tools           []string `yaml:"tools"`
}

// Task is one entry of tasks.yaml.
type Task struct {
	ID             string   `yaml:"-"`
	Description    string   `yaml:"description"`
	ExpectedOutput string   `yaml:"expected_output"`
	Agent          string   `yaml:"agent"`
	Context        []string `yaml:"context,omitempty"`
	OutputFile     string   `yaml:"output_file,omitempty"`
}

// Crew is the parsed crew definition. Agents and tasks keep file order.
type Crew struct {
	Agents []Agent
	Tasks  []Task
}

// Default returns the built-in crew.
func Default() *Crew {
	c, err := Parse(defaultAgentsYAML, defaultTasksYAML)
	if err != nil {
		panic(fmt.Sprintf("crew: embedded defaults are invalid: %v", err))
	}
	return c
}

// Load reads agents and tasks files from disk.
func Load(agentsPath, tasksPath string) (*Crew, error) {
	agents, err := os.ReadFile(agentsPath)
	if err != nil {
		return nil, fmt.Errorf("crew: read agents: %w", err)
	}
	tasks, err := os.ReadFile(tasksPath)
	if err != nil {
		return nil, fmt.Errorf("crew: read tasks: %w", err)
	}
	return Parse(agents, tasks)
}

// Parse decodes agents and tasks YAML documents.
func Parse(agentsYAML, tasksYAML []byte) (*Crew, error) {
	c := &Crew{}
	err := decodeOrdered(agentsYAML, func(id string, node *yaml.Node) error {
		var a Agent
		if err := node.Decode(&a); err != nil {
			return err
		}
		a.ID = id
		c.Agents = append(c.Agents, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("crew: parse agents: %w", err)
	}
	err = decodeOrdered(tasksYAML, func(id string, node *yaml.Node) error {
		var t Task
		if err := node.Decode(&t); err != nil {
			return err
		}
		t.ID = id
		c.Tasks = append(c.Tasks, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("crew: parse tasks: %w", err)
	}
	return c, nil
}

// decodeOrdered walks a top-level mapping in document order.
func decodeOrdered(data []byte, fn func(id string, node *yaml.Node) error) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("top-level value must be a mapping")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		id := strings.TrimSpace(root.Content[i].Value)
		if err := fn(id, root.Content[i+1]); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
	}
	return nil
}

// WriteDefaults writes the built-in agents.yaml and tasks.yaml into dir
// without overwriting existing files.
func WriteDefaults(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("crew: ensure dir: %w", err)
	}
	files := map[string][]byte{
		"agents.yaml": defaultAgentsYAML,
		"tasks.yaml":  defaultTasksYAML,
	}
	for name, data := range files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("crew: write %s: %w", path, err)
		}
	}
	return nil
}

// Agent looks up an agent by id.
func (c *Crew) Agent(id string) (Agent, bool) {
	for _, a := range c.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

// Task looks up a task by id.
func (c *Crew) Task(id string) (Task, bool) {
	for _, t := range c.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Validate checks the crew against the role contracts. knownTools, when
// non-empty, is the set of tool names the runtime can provide.
func (c *Crew) Validate(knownTools []string) []error {
	var errs []error
	known := map[string]struct{}{}
	for _, name := range knownTools {
		known[name] = struct{}{}
	}

	agents := map[string]Agent{}
	for _, a := range c.Agents {
		if _, dup := agents[a.ID]; dup {
			errs = append(errs, fmt.Errorf("agents.%s: duplicate agent", a.ID))
			continue
		}
		agents[a.ID] = a
		errs = append(errs, validateAgent(a, known)...)
	}
	for _, id := range AgentIDs() {
		if _, ok := agents[id]; !ok {
			errs = append(errs, fmt.Errorf("agents: missing required agent %q", id))
		}
	}

	if len(c.Tasks) == 0 {
		errs = append(errs, fmt.Errorf("tasks: at least one task is required"))
	}
	tasks := map[string]struct{}{}
	for _, t := range c.Tasks {
		if _, dup := tasks[t.ID]; dup {
			errs = append(errs, fmt.Errorf("tasks.%s: duplicate task", t.ID))
		}
		tasks[t.ID] = struct{}{}
	}
	for _, t := range c.Tasks {
		if strings.TrimSpace(t.Description) == "" {
			errs = append(errs, fmt.Errorf("tasks.%s.description is required", t.ID))
		}
		if strings.TrimSpace(t.ExpectedOutput) == "" {
			errs = append(errs, fmt.Errorf("tasks.%s.expected_output is required", t.ID))
		}
		if t.Agent == "" {
			errs = append(errs, fmt.Errorf("tasks.%s.agent is required", t.ID))
		} else if _, ok := agents[t.Agent]; !ok {
			errs = append(errs, fmt.Errorf("tasks.%s: unknown agent %q", t.ID, t.Agent))
		}
		for _, dep := range t.Context {
			if dep == t.ID {
				errs = append(errs, fmt.Errorf("tasks.%s: context references itself", t.ID))
				continue
			}
			if _, ok := tasks[dep]; !ok {
				errs = append(errs, fmt.Errorf("tasks.%s: context references unknown task %q", t.ID, dep))
			}
		}
	}
	if len(errs) == 0 {
		if _, err := c.Order(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validateAgent(a Agent, known map[string]struct{}) []error {
	var errs []error
	contract, ok := ContractForAgent(a.ID)
	if !ok {
		return []error{fmt.Errorf("agents.%s: unknown agent role", a.ID)}
	}
	if strings.TrimSpace(a.Role) == "" {
		errs = append(errs, fmt.Errorf("agents.%s.role is required", a.ID))
	}
	if strings.TrimSpace(a.Goal) == "" {
		errs = append(errs, fmt.Errorf("agents.%s.goal is required", a.ID))
	}
	if strings.TrimSpace(a.Backstory) == "" {
		errs = append(errs, fmt.Errorf("agents.%s.backstory is required", a.ID))
	}
	seen := map[string]struct{}{}
	for index, tool := range a.Tools {
		if _, dup := seen[tool]; dup {
			errs = append(errs, fmt.Errorf("agents.%s.tools[%d] duplicates %q", a.ID, index, tool))
		}
		seen[tool] = struct{}{}
		if len(known) > 0 {
			if _, ok := known[tool]; !ok {
				errs = append(errs, fmt.Errorf("agents.%s.tools[%d]: unknown tool %q", a.ID, index, tool))
			}
		}
	}
	for _, required := range contract.RequiredTools {
		if _, ok := seen[required]; !ok {
			errs = append(errs, fmt.Errorf("agents.%s: missing required tool %q", a.ID, required))
		}
	}
	return errs
}

// Order returns the tasks sorted so that every task follows its context.
// Ties keep file order.
func (c *Crew) Order() ([]Task, error) {
	position := make(map[string]int, len(c.Tasks))
	for i, t := range c.Tasks {
		position[t.ID] = i
	}
	indegree := make(map[string]int, len(c.Tasks))
	dependents := map[string][]string{}
	for _, t := range c.Tasks {
		for _, dep := range mergeContext(nil, t.Context) {
			if _, ok := position[dep]; !ok {
				return nil, fmt.Errorf("crew: task %s depends on unknown task %s", t.ID, dep)
			}
			indegree[t.ID]++
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}
	var ready []string
	for _, t := range c.Tasks {
		if indegree[t.ID] == 0 {
			ready = append(ready, t.ID)
		}
	}
	var ordered []Task
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return position[ready[i]] < position[ready[j]] })
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, c.Tasks[position[id]])
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if len(ordered) != len(c.Tasks) {
		var stuck []string
		for _, t := range c.Tasks {
			if indegree[t.ID] > 0 {
				stuck = append(stuck, t.ID)
			}
		}
		return nil, fmt.Errorf("crew: task context forms a cycle through %s", strings.Join(stuck, ", "))
	}
	return ordered, nil
}

// mergeContext appends adds to existing, skipping blanks and duplicates.
func mergeContext(existing, adds []string) []string {
	if len(adds) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing)+len(adds))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	for _, id := range adds {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		existing = append(existing, id)
	}
	return existing
}

// Report captures validation results for a crew definition.
type Report struct {
	AgentsPath string
	TasksPath  string
	Errors     []error
}

// ValidateFiles loads and validates a crew from disk.
func ValidateFiles(agentsPath, tasksPath string, knownTools []string) (*Report, error) {
	c, err := Load(agentsPath, tasksPath)
	if err != nil {
		return nil, err
	}
	return &Report{
		AgentsPath: agentsPath,
		TasksPath:  tasksPath,
		Errors:     c.Validate(knownTools),
	}, nil
}

// IsValid reports whether the validation passed.
func (r *Report) IsValid() bool {
	return r != nil && len(r.Errors) == 0
}
