// internal/config/config.go
//
// This package handles configuration and the .cellsim directory structure.
// Every project that runs the simulator gets a .cellsim/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ProjectDirName is the name of the directory we create in each project
	ProjectDirName = ".cellsim"

	defaultReportFile = "manufacturing_report.md"
)

// Environment overrides, read after an optional .env file in the project dir.
const (
	EnvScenario = "CELLSIM_SCENARIO"
	EnvReport   = "CELLSIM_REPORT"
	EnvLogLevel = "CELLSIM_LOG_LEVEL"
	EnvTracing  = "CELLSIM_TRACING"
)

const defaultProjectConfigYAML = `# cellsim project configuration
version: 1

# Scenario JSON to simulate. Leave empty to use the built-in widget cell demo.
scenario: ""

# Markdown report written after every run.
report: manufacturing_report.md

# Crew definitions for the four agent roles and their tasks.
agents: .cellsim/crew/agents.yaml
tasks: .cellsim/crew/tasks.yaml

logging:
  level: info
  format: text
  # file writes to .cellsim/logs/cellsim.log; stderr or a path also work.
  output: file

tracing:
  enabled: false
  # stdout, file (.cellsim/logs/traces.json) or noop
  exporter: file

history:
  enabled: true
  path: .cellsim/state/history.db
`

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// HistoryConfig controls the sqlite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ProjectConfig models .cellsim/config.yaml.
type ProjectConfig struct {
	Version  int           `yaml:"version"`
	Scenario string        `yaml:"scenario"`
	Report   string        `yaml:"report"`
	Agents   string        `yaml:"agents"`
	Tasks    string        `yaml:"tasks"`
	Logging  LoggingConfig `yaml:"logging"`
	Tracing  TracingConfig `yaml:"tracing"`
	History  HistoryConfig `yaml:"history"`
}

// Config holds the runtime configuration for one project.
type Config struct {
	// ProjectDir is the directory where the user ran `cellsim` from
	ProjectDir string

	// CellsimDir is ProjectDir/.cellsim
	CellsimDir string

	Project ProjectConfig
}

// InitProjectDir creates the .cellsim directory structure in the given
// project directory.
//
// Structure created:
// .cellsim/
// ├── config.yaml
// ├── crew/       <- agents.yaml and tasks.yaml
// ├── logs/       <- cellsim.log, incidents.log, traces.json
// ├── reports/    <- archived reports per run
// └── state/      <- last-run.json and history.db
func InitProjectDir(projectDir string) error {
	root := filepath.Join(projectDir, ProjectDirName)
	dirs := []string{
		filepath.Join(root, "crew"),
		filepath.Join(root, "logs"),
		filepath.Join(root, "reports"),
		filepath.Join(root, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig loads .cellsim/config.yaml (defaults when missing) and applies
// environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve project dir: %w", err)
	}
	cfg := &Config{
		ProjectDir: abs,
		CellsimDir: filepath.Join(abs, ProjectDirName),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := loadDotEnv(abs); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.CellsimDir, "logs")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.CellsimDir, "state")
}

// ReportsDir returns the directory holding archived reports
func (c *Config) ReportsDir() string {
	return filepath.Join(c.CellsimDir, "reports")
}

// CrewDir returns the directory holding the crew YAML files
func (c *Config) CrewDir() string {
	return filepath.Join(c.CellsimDir, "crew")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.CellsimDir, "config.yaml")
}

// LogPath is the default destination of the structured log.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "cellsim.log")
}

// IncidentLogPath is the Exception agent's incident journal.
func (c *Config) IncidentLogPath() string {
	return filepath.Join(c.LogsDir(), "incidents.log")
}

// TracePath is where the file trace exporter appends spans.
func (c *Config) TracePath() string {
	return filepath.Join(c.LogsDir(), "traces.json")
}

// LastRunPath is the JSON snapshot of the most recent run.
func (c *Config) LastRunPath() string {
	return filepath.Join(c.StateDir(), "last-run.json")
}

// ScenarioPath returns the configured scenario file, or "" for the built-in
// scenario.
func (c *Config) ScenarioPath() string {
	return c.Project.Scenario
}

// ReportPath returns where the markdown report is written.
func (c *Config) ReportPath() string {
	return c.Project.Report
}

// AgentsPath returns the crew agents file.
func (c *Config) AgentsPath() string {
	return c.Project.Agents
}

// TasksPath returns the crew tasks file.
func (c *Config) TasksPath() string {
	return c.Project.Tasks
}

// HistoryPath returns the sqlite history database path.
func (c *Config) HistoryPath() string {
	return c.Project.History.Path
}

// LogOutput resolves logging.output to "stderr" or a file path.
func (c *Config) LogOutput() string {
	switch out := c.Project.Logging.Output; out {
	case "", "file":
		return c.LogPath()
	case "stderr", "stdout":
		return out
	default:
		return resolvePath(c.ProjectDir, out)
	}
}

// SetScenario updates the scenario path and persists the value back to
// .cellsim/config.yaml.
func (c *Config) SetScenario(path string) error {
	c.Project.Scenario = strings.TrimSpace(path)
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Project.normalize(c.ProjectDir)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func loadDotEnv(projectDir string) error {
	path := filepath.Join(projectDir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvScenario); ok {
		c.Project.Scenario = resolvePath(c.ProjectDir, v)
	}
	if v, ok := os.LookupEnv(EnvReport); ok && strings.TrimSpace(v) != "" {
		c.Project.Report = resolvePath(c.ProjectDir, v)
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Project.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv(EnvTracing); ok && strings.TrimSpace(v) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvTracing, err)
		}
		c.Project.Tracing.Enabled = enabled
	}
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	pc.History.Enabled = true
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Report) == "" {
		pc.Report = defaultReportFile
	}
	if strings.TrimSpace(pc.Agents) == "" {
		pc.Agents = filepath.Join(ProjectDirName, "crew", "agents.yaml")
	}
	if strings.TrimSpace(pc.Tasks) == "" {
		pc.Tasks = filepath.Join(ProjectDirName, "crew", "tasks.yaml")
	}
	if pc.Logging.Level == "" {
		pc.Logging.Level = "info"
	}
	if pc.Logging.Format == "" {
		pc.Logging.Format = "text"
	}
	if pc.Logging.Output == "" {
		pc.Logging.Output = "file"
	}
	if pc.Tracing.Exporter == "" {
		pc.Tracing.Exporter = "file"
	}
	if strings.TrimSpace(pc.History.Path) == "" {
		pc.History.Path = filepath.Join(ProjectDirName, "state", "history.db")
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Scenario = resolvePath(base, pc.Scenario)
	pc.Report = resolvePath(base, pc.Report)
	pc.Agents = resolvePath(base, pc.Agents)
	pc.Tasks = resolvePath(base, pc.Tasks)
	pc.History.Path = resolvePath(base, pc.History.Path)
	pc.Logging.Level = normalizeValue(pc.Logging.Level)
	pc.Logging.Format = normalizeValue(pc.Logging.Format)
	pc.Logging.Output = strings.TrimSpace(pc.Logging.Output)
	pc.Tracing.Exporter = normalizeValue(pc.Tracing.Exporter)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	switch pc.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch pc.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}
	switch pc.Tracing.Exporter {
	case "stdout", "file", "noop":
	default:
		return fmt.Errorf("tracing.exporter must be one of stdout, file, noop")
	}
	if pc.Report == "" {
		return fmt.Errorf("report path is required")
	}
	if pc.History.Enabled && pc.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	return nil
}

func normalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.CellsimDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure cellsim dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
