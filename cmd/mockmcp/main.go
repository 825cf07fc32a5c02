// Command mockmcp is a tiny standalone MCP server fixture for running
// internal/datasource/mcpsource against a live server, distinct from the
// modelcontextprotocol/go-sdk client the adapter itself uses. No test in
// this module starts it. Grounded in
// gavlooth-codeloom's pkg/mcp/server.go (server.NewMCPServer +
// mcpServer.AddTool registration) and its server_transport_test.go
// (server.NewSSEServer over an http.Server), built on mark3labs/mcp-go
// rather than the client SDK so the test fixture and the adapter under
// test never share an implementation.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	flag.Parse()

	mcpServer := server.NewMCPServer("mockmcp", "0.1.0", server.WithToolCapabilities(true))
	registerTools(mcpServer)

	httpSrv := &http.Server{Addr: *addr}
	sseHandler := server.NewSSEServer(mcpServer,
		server.WithBaseURL("http://127.0.0.1"+*addr),
		server.WithUseFullURLForMessageEndpoint(true),
		server.WithHTTPServer(httpSrv),
	)

	mux := http.NewServeMux()
	mux.Handle("/sse", sseHandler.SSEHandler())
	mux.Handle("/message", sseHandler.MessageHandler())
	httpSrv.Handler = mux

	log.Printf("mockmcp serving on %s", *addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("mockmcp: %v", err)
	}
}

// registerTools wires the two fixture tools an mcpsource adapter pointed
// at this server can dispatch against: a deterministic echo tool and a
// row-shaped lookup tool that mimics a small read-only data source.
func registerTools(s *server.MCPServer) {
	s.AddTool(mcp.Tool{
		Name:        "echo",
		Description: "Echoes the supplied text back as the tool result.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{"type": "string"},
			},
			Required: []string{"text"},
		},
	}, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, _ := req.Params.Arguments["text"].(string)
		return textResult(text), nil
	})

	s.AddTool(mcp.Tool{
		Name:        "lookup_user",
		Description: "Returns a fixture user row for the given id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{"type": "string"},
			},
			Required: []string{"id"},
		},
	}, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := req.Params.Arguments["id"].(string)
		return textResult(`{"id":"` + id + `","name":"fixture-user"}`), nil
	})
}

// textResult wraps s as a single text content block, the CallToolResult
// shape gavlooth-codeloom's handlers return.
func textResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: s},
		},
	}
}
