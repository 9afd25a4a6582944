package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// MCPBridge connects to one owner-configured MCP server (spec.md §4.5
// supplement — a read-only calendar or notes server, say) and merges its
// tools into the catalog for the turn. Grounded on the teacher's
// internal/mcp connect/list-tools/call-tool lifecycle in manager_connect.go,
// narrowed from the teacher's multi-server manager to one bridge per
// owner-registered server.
type MCPBridge struct {
	serverName string
	client     *mcpclient.Client
	timeout    time.Duration
}

// ConnectMCPBridge starts the transport and performs the MCP initialize
// handshake; the server's tools are listed later, by Definitions.
func ConnectMCPBridge(ctx context.Context, serverName, url string) (*MCPBridge, error) {
	client, err := mcpclient.NewSSEMCPClient(url)
	if err != nil {
		return nil, fmt.Errorf("mcp %s: create client: %w", serverName, err)
	}
	if err := client.Start(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("mcp %s: start transport: %w", serverName, err)
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "jarvis-assistant", Version: "1.0.0"}
	if _, err := client.Initialize(ctx, initReq); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("mcp %s: initialize: %w", serverName, err)
	}

	return &MCPBridge{serverName: serverName, client: client, timeout: 30 * time.Second}, nil
}

func (b *MCPBridge) Close() error {
	return b.client.Close()
}

// Definitions discovers the server's tools and wraps each as a Definition,
// prefixed with the server name to avoid colliding with the core catalog.
func (b *MCPBridge) Definitions(ctx context.Context) ([]Definition, error) {
	resp, err := b.client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp %s: list tools: %w", b.serverName, err)
	}

	defs := make([]Definition, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		t := t
		defs = append(defs, Definition{
			Name:        b.serverName + "_" + t.Name,
			Description: t.Description,
			Schema:      schemaToMap(t.InputSchema),
			Execute: func(ctx context.Context, args map[string]interface{}) *Result {
				callCtx, cancel := context.WithTimeout(ctx, b.timeout)
				defer cancel()

				req := mcpgo.CallToolRequest{}
				req.Params.Name = t.Name
				req.Params.Arguments = args

				res, err := b.client.CallTool(callCtx, req)
				if err != nil {
					return Errorf("mcp tool %s: %v", t.Name, err)
				}

				var b strings.Builder
				for _, c := range res.Content {
					if tc, ok := c.(mcpgo.TextContent); ok {
						b.WriteString(tc.Text)
					}
				}
				if res.IsError {
					return &Result{ForLLM: b.String(), IsError: true}
				}
				return &Result{ForLLM: b.String()}
			},
		})
	}
	return defs, nil
}

func schemaToMap(s mcpgo.ToolInputSchema) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": s.Properties,
		"required":   s.Required,
	}
}
