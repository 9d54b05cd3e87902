// Package mcpserver exposes the agent tools to an external LLM orchestrator
// over the Model Context Protocol. It holds no business logic; every call
// goes through the tools registry against one shared session.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kingrea/cellsim/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server binds the tool registry to an MCP server.
type Server struct {
	mcp      *server.MCPServer
	registry *tools.Registry
	session  *tools.Session
	logger   *slog.Logger
}

// New creates the MCP server with every registered tool. A nil logger
// discards output.
func New(registry *tools.Registry, session *tools.Session, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		registry: registry,
		session:  session,
		logger:   logger,
	}
	s.mcp = server.NewMCPServer(
		"cellsim",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions(registry, session)),
	)
	for _, t := range registry.List() {
		def := mcp.NewToolWithRawSchema(t.Name, fmt.Sprintf("[%s] %s", t.Agent, t.Description), t.Parameters)
		s.mcp.AddTool(def, s.Handler(t.Name))
	}
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Handler returns the MCP handler for the named tool.
func (s *Server) Handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		res, err := s.registry.Execute(ctx, s.session, name, args)
		if err != nil {
			return nil, fmt.Errorf("mcpserver: %s: %w", name, err)
		}
		s.logger.Info("mcp tool call", "tool", name, "is_error", res.IsError)
		if res.IsError {
			return mcp.NewToolResultError(res.Content), nil
		}
		return mcp.NewToolResultText(res.Content), nil
	}
}

// Serve speaks MCP over the given streams until ctx is cancelled or in
// reaches EOF.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcpserver: serve: %w", err)
	}
	return nil
}

func instructions(registry *tools.Registry, session *tools.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You control the simulated manufacturing cell %q.\n", session.Scenario().Name())
	b.WriteString("Tools are grouped by the agent that owns them. Call them in task order:\n")
	b.WriteString("plan the orders, coordinate robots unit by unit, detect anomalies and\n")
	b.WriteString("apply recovery before inspecting each unit, then report progress.\n")
	agents := map[string][]string{}
	var order []string
	for _, t := range registry.List() {
		if _, ok := agents[t.Agent]; !ok {
			order = append(order, t.Agent)
		}
		agents[t.Agent] = append(agents[t.Agent], t.Name)
	}
	for _, agent := range order {
		fmt.Fprintf(&b, "\n%s: %s", agent, strings.Join(agents[agent], ", "))
	}
	return b.String()
}
