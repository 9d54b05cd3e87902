// Package tools exposes the agents' deterministic tool functions. Each tool
// reads the scenario and a shared Session, validates its JSON arguments
// against a schema and returns a short text result.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrToolNotFound is returned when a tool name is not registered.
var ErrToolNotFound = errors.New("tool not found")

// Result is the outcome of a tool call. IsError marks a result the caller
// should treat as a failed call; Content is always human readable.
type Result struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Handler implements one tool against a session.
type Handler func(ctx context.Context, s *Session, args json.RawMessage) (string, error)

// Tool is one registered tool.
type Tool struct {
	Name        string          `json:"name"`
	Agent       string          `json:"agent"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`

	handler Handler
	schema  *jsonschema.Schema
}

func compile(t *Tool) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(t.Parameters)); err != nil {
		return fmt.Errorf("tools: add schema resource for %q: %w", t.Name, err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("tools: compile schema for %q: %w", t.Name, err)
	}
	t.schema = compiled
	return nil
}

// Registry holds the tool set in declaration order.
type Registry struct {
	tools  []*Tool
	byName map[string]*Tool
	logger *slog.Logger
}

// NewRegistry builds the registry of every tool. A nil logger discards
// output.
func NewRegistry(logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Registry{byName: map[string]*Tool{}, logger: logger}
	for _, t := range catalog() {
		if _, exists := r.byName[t.Name]; exists {
			return nil, fmt.Errorf("tools: %q already registered", t.Name)
		}
		if err := compile(t); err != nil {
			return nil, err
		}
		r.tools = append(r.tools, t)
		r.byName[t.Name] = t
	}
	return r, nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (*Tool, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("tools: %q: %w", name, ErrToolNotFound)
	}
	return t, nil
}

// List returns every tool in declaration order.
func (r *Registry) List() []*Tool {
	out := make([]*Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns every tool name in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name
	}
	return names
}

// ForAgent returns the tools owned by agentID.
func (r *Registry) ForAgent(agentID string) []*Tool {
	var out []*Tool
	for _, t := range r.tools {
		if t.Agent == agentID {
			out = append(out, t)
		}
	}
	return out
}

// Execute validates args and runs the named tool. Argument and handler
// failures are reported as error results; only an unknown tool name is
// returned as an error.
func (r *Registry) Execute(ctx context.Context, s *Session, name string, args json.RawMessage) (*Result, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(args)) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	var v any
	if err := json.Unmarshal(args, &v); err != nil {
		return &Result{IsError: true, Content: fmt.Sprintf("invalid JSON: %v", err)}, nil
	}
	if err := t.schema.Validate(v); err != nil {
		return &Result{IsError: true, Content: fmt.Sprintf("schema validation failed: %v", err)}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Tool: name, Agent: t.Agent, At: s.clock()})
	content, err := t.handler(ctx, s, args)
	if err != nil {
		r.logger.Warn("tool call failed", "tool", name, "agent", t.Agent, "error", err)
		return &Result{IsError: true, Content: err.Error()}, nil
	}
	r.logger.Debug("tool call", "tool", name, "agent", t.Agent)
	return &Result{Content: content}, nil
}

func decode(args json.RawMessage, into any) error {
	if err := json.Unmarshal(args, into); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func schema(properties string, required ...string) json.RawMessage {
	req, _ := json.Marshal(required)
	if len(required) == 0 {
		req = []byte("[]")
	}
	return json.RawMessage(fmt.Sprintf(`{"type":"object","properties":{%s},"required":%s,"additionalProperties":false}`, properties, req))
}
