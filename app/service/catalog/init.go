package catalog

import (
	"calbot/app/config"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Service) initMCPClients(servers []config.MCPClient) error {
	for _, server := range servers {
		mcpClient, err := client.NewStdioMCPClient(
			server.Command,
			nil,
			server.Args...,
		)
		if err != nil {
			return fmt.Errorf("failed to create MCP client for %s: %w", server.Name, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		initRequest := mcp.InitializeRequest{}
		initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		initRequest.Params.ClientInfo = mcp.Implementation{
			Name:    "calbot",
			Version: "1.0.0",
		}

		if _, err = mcpClient.Initialize(ctx, initRequest); err != nil {
			return fmt.Errorf("failed to initialize MCP client %s: %w", server.Name, err)
		}

		toolsResponse, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			return fmt.Errorf("failed to list tools from %s: %w", server.Name, err)
		}

		for _, mcpTool := range toolsResponse.Tools {
			s.register(newMCPTool(mcpClient, server.Name, mcpTool))
		}

		s.mcpClients = append(s.mcpClients, mcpClient)

		slog.Info("Connected MCP tool server",
			"name", server.Name,
			"tools", len(toolsResponse.Tools),
		)
	}

	return nil
}
