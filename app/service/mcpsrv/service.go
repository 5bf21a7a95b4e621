package mcpsrv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"calbot/app/config"
	"calbot/app/service/catalog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type toolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

var _ toolExecutor = (*catalog.Service)(nil)

// Service exposes the tool catalog over the Model Context Protocol, so other
// assistants can drive the same calendar tools the built-in agent uses.
type Service struct {
	cfg *config.Config
	srv *mcpserver.MCPServer
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)
	catalogSvc := do.MustInvoke[*catalog.Service](di)

	srv := mcpserver.NewMCPServer("calbot", "1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	for _, tool := range catalogSvc.Tools() {
		schema, err := json.Marshal(tool.Parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema for tool %s: %w", tool.Name, err)
		}

		srv.AddTool(
			mcp.NewToolWithRawSchema(tool.Name, tool.Description, schema),
			toolHandler(catalogSvc, tool.Name),
		)
	}

	return &Service{
		cfg: cfg,
		srv: srv,
	}, nil
}

// toolHandler bridges one catalog tool into the MCP surface. Execution
// failures become error results, never protocol errors, so the calling model
// can read them and adjust.
func toolHandler(executor toolExecutor, name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := executor.Execute(ctx, name, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(result), nil
	}
}

func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.MCP.Enabled {
		slog.Debug("MCP server is disabled")
		return nil
	}

	web := mcpserver.NewStreamableHTTPServer(s.srv)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("MCP server listening", "addr", s.cfg.MCP.Addr)

		if err := web.Start(s.cfg.MCP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve MCP: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return web.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
