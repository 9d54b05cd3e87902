// cmd/cellsim/main.go
//
// This is the entry point for the cellsim CLI.
// `cellsim run` simulates the configured scenario in the current project;
// the other subcommands inspect, validate or replay what a run produced.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/kingrea/cellsim/internal/config"
)

// errUsage marks errors caused by bad invocation; main exits 2 for them.
var errUsage = errors.New("usage")

// cli carries the process streams so commands can be exercised in tests.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name    string
	args    string
	summary string
	run     func(c *cli, ctx context.Context, args []string) error
}

// commands returns the subcommand table in help order.
func commands() []command {
	return []command{
		{"init", "[--project dir] [--scenario file] [--example]", "create .cellsim/ with the default config and crew", (*cli).initCommand},
		{"run", "[--project dir] [--scenario file] [--report file] [--pretty] [--quiet]", "simulate the scenario and write the report", (*cli).runCommand},
		{"report", "[--project dir] [--pretty]", "re-render the report of the last run", (*cli).reportCommand},
		{"validate-scenario", "<file>", "check a scenario file without running it", (*cli).validateScenarioCommand},
		{"validate-crew", "[--project dir]", "check agents.yaml and tasks.yaml against the role contracts", (*cli).validateCrewCommand},
		{"crew", "[--project dir]", "list agents and tasks in execution order", (*cli).crewCommand},
		{"tools", "[--agent id] [--json]", "list the agent tools", (*cli).toolsCommand},
		{"call", "<tool> [--project dir] [--arg key=value]... [--json args]", "run one tool against a fresh session", (*cli).callCommand},
		{"history", "[--project dir] [--limit n]", "list recorded runs", (*cli).historyCommand},
		{"incidents", "[--project dir] [-n lines]", "show the tail of the incident log", (*cli).incidentsCommand},
		{"watch", "[--project dir]", "replay the last run in a terminal UI", (*cli).watchCommand},
		{"serve-mcp", "[--project dir] [--scenario file]", "serve the agent tools over MCP on stdio", (*cli).serveMCPCommand},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	err := c.execute(ctx, os.Args[1:])
	stop()
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		die("%v", err)
	}
}

func (c *cli) execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.usage(c.stderr)
		return fmt.Errorf("%w: a command is required", errUsage)
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		c.usage(c.stdout)
		return nil
	}
	for _, cmd := range commands() {
		if cmd.name == name {
			err := cmd.run(c, ctx, args[1:])
			if errors.Is(err, flag.ErrHelp) {
				return nil
			}
			return err
		}
	}
	c.usage(c.stderr)
	return fmt.Errorf("%w: unknown command %q", errUsage, name)
}

func (c *cli) usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: cellsim <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands() {
		fmt.Fprintf(w, "  %-18s %s\n", cmd.name, cmd.summary)
	}
}

// flags builds a subcommand flag set that reports errors instead of exiting.
func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		for _, cmd := range commands() {
			if cmd.name == name {
				fmt.Fprintf(c.stderr, "Usage: cellsim %s %s\n", cmd.name, cmd.args)
			}
		}
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func projectFlag(fs *flag.FlagSet) *string {
	return fs.String("project", "", "path to the project directory (defaults to cwd)")
}

// loadProject resolves the project directory, creates .cellsim/ when it is
// missing and loads its configuration.
func loadProject(projectDir string) (*config.Config, error) {
	project := strings.TrimSpace(projectDir)
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	if err := config.InitProjectDir(absoluteProject); err != nil {
		return nil, fmt.Errorf("init %s: %w", config.ProjectDirName, err)
	}
	cfg, err := config.NewConfig(absoluteProject)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type keyValueFlag map[string]string

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	var pairs []string
	for key, value := range *kv {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	return strings.Join(pairs, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return fmt.Errorf("argument key is empty in %q", value)
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[key] = parts[1]
	return nil
}
