package primitive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPConfig configures a connection to a stdio-transport MCP server whose
// tools are surfaced as primitives.
type MCPConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
	Filter  []string // empty means expose every tool the server advertises
}

// MCPSource lazily connects to an MCP server and exposes its tools as
// Primitives, each delegating Execute back over the MCP session.
type MCPSource struct {
	cfg MCPConfig

	mu        sync.Mutex
	mcpClient *client.Client
	connected bool
	filterSet map[string]bool
}

// NewMCPSource creates an MCPSource; the connection is established lazily
// on the first call to Discover.
func NewMCPSource(cfg MCPConfig) *MCPSource {
	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, name := range cfg.Filter {
			filterSet[name] = true
		}
	}
	return &MCPSource{cfg: cfg, filterSet: filterSet}
}

// Discover connects (if not already connected) and returns Primitives for
// every tool the MCP server advertises, filtered by cfg.Filter.
func (s *MCPSource) Discover(ctx context.Context) ([]Primitive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		if err := s.connect(ctx); err != nil {
			return nil, fmt.Errorf("mcp %s: connect: %w", s.cfg.Name, err)
		}
	}

	listResp, err := s.mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp %s: list tools: %w", s.cfg.Name, err)
	}

	var out []Primitive
	for _, t := range listResp.Tools {
		if s.filterSet != nil && !s.filterSet[t.Name] {
			continue
		}
		out = append(out, &mcpPrimitive{
			source:      s,
			name:        t.Name,
			description: t.Description,
			schema:      convertMCPSchema(t.InputSchema),
		})
	}
	return out, nil
}

func (s *MCPSource) connect(ctx context.Context) error {
	c, err := client.NewStdioMCPClient(s.cfg.Command, envSlice(s.cfg.Env), s.cfg.Args...)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "sprout", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return err
	}

	s.mcpClient = c
	s.connected = true
	slog.Info("connected to mcp source", "name", s.cfg.Name, "command", s.cfg.Command)
	return nil
}

// Close tears down the MCP connection.
func (s *MCPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mcpClient == nil {
		return nil
	}
	err := s.mcpClient.Close()
	s.mcpClient = nil
	s.connected = false
	return err
}

func (s *MCPSource) call(ctx context.Context, name string, args map[string]any) (Result, error) {
	s.mu.Lock()
	c := s.mcpClient
	s.mu.Unlock()
	if c == nil {
		return failf("mcp %s: not connected", s.cfg.Name), nil
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := c.CallTool(ctx, req)
	if err != nil {
		return fail(fmt.Errorf("mcp call %s: %w", name, err)), nil
	}

	var texts []string
	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	output := ""
	for i, t := range texts {
		if i > 0 {
			output += "\n"
		}
		output += t
	}

	if resp.IsError {
		return Result{Output: output, Success: false, Error: output}, nil
	}
	return ok(output), nil
}

// mcpPrimitive adapts one MCP server tool to the Primitive contract.
type mcpPrimitive struct {
	source      *MCPSource
	name        string
	description string
	schema      map[string]any
}

func (p *mcpPrimitive) Name() string               { return p.name }
func (p *mcpPrimitive) Description() string        { return p.description }
func (p *mcpPrimitive) Schema() map[string]any      { return p.schema }
func (p *mcpPrimitive) Execute(ctx context.Context, args map[string]any, _ Env) (Result, error) {
	return p.source.call(ctx, p.name, args)
}

func convertMCPSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]any{"type": "object"}
	}
	return result
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
