package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/cellsim/internal/logbook"
	"github.com/kingrea/cellsim/internal/logging"
	"github.com/kingrea/cellsim/internal/mcpserver"
	"github.com/kingrea/cellsim/internal/runstore"
	"github.com/kingrea/cellsim/internal/tools"
	"github.com/kingrea/cellsim/internal/tui"
)

func (c *cli) watchCommand(ctx context.Context, args []string) error {
	fs := c.flags("watch")
	project := projectFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadProject(*project)
	if err != nil {
		return err
	}
	snap, err := runstore.NewRepository(cfg.LastRunPath()).Load()
	if errors.Is(err, runstore.ErrRunNotFound) {
		return fmt.Errorf("no run to replay yet; start one with `cellsim run`")
	}
	if err != nil {
		return err
	}
	journal, err := logbook.New(cfg.IncidentLogPath())
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		tui.NewApp(snap, tui.WithLogbook(journal)),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(c.stdin),
		tea.WithOutput(c.stdout),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

func (c *cli) serveMCPCommand(ctx context.Context, args []string) error {
	fs := c.flags("serve-mcp")
	project := projectFlag(fs)
	scenarioPath := fs.String("scenario", "", "scenario JSON file (overrides the project config)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := loadProject(*project)
	if err != nil {
		return err
	}

	// stdout carries the protocol, so logs never go there.
	output := cfg.LogOutput()
	if strings.EqualFold(strings.TrimSpace(output), "stdout") {
		output = "stderr"
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Project.Logging.Level,
		Format: cfg.Project.Logging.Format,
		Output: output,
	})
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
	registry, err := tools.NewRegistry(logger)
	if err != nil {
		return err
	}
	session := tools.NewSession(scen, tools.WithJournal(journal), tools.WithSessionLogger(logger))
	server := mcpserver.New(registry, session, logger)

	logger.Info("serving MCP on stdio", "scenario", scen.Name(), "tools", len(registry.List()))
	if err := server.Serve(ctx, c.stdin, c.stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
