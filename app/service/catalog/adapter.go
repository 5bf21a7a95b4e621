package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// newMCPTool wraps one tool of an external MCP server as a catalog entry. The
// server name prefixes the tool name so tools from different servers cannot
// collide.
func newMCPTool(mcpClient client.MCPClient, serverName string, tool mcp.Tool) Tool {
	parameters := map[string]any{
		"type":       tool.InputSchema.Type,
		"properties": tool.InputSchema.Properties,
	}
	if len(tool.InputSchema.Required) > 0 {
		parameters["required"] = tool.InputSchema.Required
	}

	return Tool{
		Name:        fmt.Sprintf("%s_%s", serverName, tool.Name),
		Description: tool.Description,
		Parameters:  parameters,
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			callRequest := mcp.CallToolRequest{
				Request: mcp.Request{
					Method: "tools/call",
				},
			}

			callRequest.Params.Name = tool.Name
			callRequest.Params.Arguments = args

			response, err := mcpClient.CallTool(ctx, callRequest)
			if err != nil {
				return "", fmt.Errorf("MCP tool call failed: %w", err)
			}

			var result strings.Builder
			for _, content := range response.Content {
				if textContent, ok := content.(mcp.TextContent); ok {
					result.WriteString(textContent.Text)
					result.WriteString("\n")
				}
			}

			return strings.TrimSpace(result.String()), nil
		},
	}
}
