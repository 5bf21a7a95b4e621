package catalog

import (
	"calbot/app/config"
	"calbot/app/service/calendar"
	"calbot/app/service/conflict"
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/client"
	"github.com/samber/do"
	"github.com/tmc/langchaingo/llms"
)

var _ do.Shutdownable = (*Service)(nil)

// Tool is one callable catalog entry. Parameters holds a JSON schema for the
// tool's arguments, in the shape both the chat completion API and MCP expect.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Run         func(ctx context.Context, args map[string]any) (string, error)
}

// Service keeps the tool catalog: the built-in calendar operations plus any
// tools imported from external MCP servers. Tools are looked up by name;
// registration order is preserved for the definitions handed to the model.
type Service struct {
	tools map[string]Tool
	order []string

	mcpClients []client.MCPClient
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	s := &Service{
		tools: make(map[string]Tool),
	}

	builtin := builtinTools(
		do.MustInvoke[*calendar.Service](di),
		do.MustInvoke[*conflict.Service](di),
	)
	for _, tool := range builtin {
		s.register(tool)
	}

	if err := s.initMCPClients(cfg.MCPClients); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) register(tool Tool) {
	if _, exists := s.tools[tool.Name]; exists {
		slog.Warn("Tool is already registered, skipping", "name", tool.Name)
		return
	}

	s.tools[tool.Name] = tool
	s.order = append(s.order, tool.Name)
}

// Execute runs one registered tool by name. Callers are expected to soften a
// returned error into ordinary tool output rather than aborting the
// conversation.
func (s *Service) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := s.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}

	return tool.Run(ctx, args)
}

// Definitions renders the catalog for the chat completion API, in
// registration order.
func (s *Service) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(s.order))

	for _, name := range s.order {
		tool := s.tools[name]

		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	return defs
}

// Tools returns the catalog entries in registration order.
func (s *Service) Tools() []Tool {
	out := make([]Tool, 0, len(s.order))

	for _, name := range s.order {
		out = append(out, s.tools[name])
	}

	return out
}

func (s *Service) Shutdown() error {
	for _, mcpClient := range s.mcpClients {
		if err := mcpClient.Close(); err != nil {
			slog.Warn("Failed to close MCP client", "error", err)
		}
	}

	return nil
}
