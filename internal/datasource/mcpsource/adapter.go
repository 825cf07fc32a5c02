// Package mcpsource implements the tool/resource Data Source Adapter (C2)
// for MCP connections, using the official modelcontextprotocol/go-sdk
// client. Grounded in the teacher's pkg/mcp/client.go (one *mcpsdk.Client
// + *mcpsdk.ClientSession per server, a streamable-HTTP transport built
// from connection detail, bearer-token auth via an http.RoundTripper
// wrapper) and pkg/mcp/executor.go's tool-call dispatch, retargeted from a
// fixed multi-server registry to one adapter per connection record.
package mcpsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/riverfold/querymind/internal/datasource"
	"github.com/riverfold/querymind/internal/model"
)

const (
	connectTimeout = 5 * time.Second
	callTimeout    = 60 * time.Second
)

// Adapter implements datasource.Adapter for an MCP server reached over
// JSON-RPC 2.0 (the go-sdk client speaks the wire protocol; this package
// only supplies the transport and dispatch).
type Adapter struct {
	id, name string
	endpoint string
	bearer   string
}

// New builds an MCP Adapter from a connection record. DetailJSON carries
// "url" (the MCP server endpoint); Secret, when present, is sent as a
// bearer token per spec.md §4.1.
func New(conn *model.ConnectionRecord) (datasource.Adapter, error) {
	url, _ := conn.DetailJSON["url"].(string)
	if url == "" {
		url = fmt.Sprintf("http://%s:%d", conn.Host, conn.Port)
	}
	return &Adapter{id: conn.ID, name: conn.Name, endpoint: url, bearer: conn.Secret}, nil
}

func (a *Adapter) ID() string             { return a.id }
func (a *Adapter) Name() string           { return a.name }
func (a *Adapter) Kind() model.SourceKind { return model.SourceKindMCP }
func (a *Adapter) Close() error           { return nil }

type bearerTransport struct {
	base  http.RoundTripper
	token string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func (a *Adapter) httpClient(timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if a.bearer != "" {
		client.Transport = &bearerTransport{token: a.bearer}
	}
	return client
}

func (a *Adapter) connect(ctx context.Context, timeout time.Duration) (*mcpsdk.ClientSession, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	transport := &mcpsdk.StreamableClientTransport{Endpoint: a.endpoint, HTTPClient: a.httpClient(timeout)}
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "querymind", Version: "1.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// IsAvailable attempts a connect-and-list-tools round trip; never returns
// an error.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	session, err := a.connect(ctx, connectTimeout)
	if err != nil {
		return false
	}
	defer session.Close() //nolint:errcheck
	_, err = session.ListTools(ctx, nil)
	return err == nil
}

// ExtractSchema implements C1 for MCP: tools/list and resources/list.
func (a *Adapter) ExtractSchema(ctx context.Context) (*model.SourceSchema, error) {
	session, err := a.connect(ctx, callTimeout)
	if err != nil {
		return nil, err
	}
	defer session.Close() //nolint:errcheck

	schema := &model.SourceSchema{SourceID: a.id, SourceName: a.name, SourceKind: model.SourceKindMCP}

	toolsRes, err := session.ListTools(ctx, nil)
	if err == nil {
		for _, t := range toolsRes.Tools {
			var schemaJSON string
			if t.InputSchema != nil {
				if b, err := json.Marshal(t.InputSchema); err == nil {
					schemaJSON = string(b)
				}
			}
			schema.Tools = append(schema.Tools, model.MCPTool{
				Name: t.Name, Description: t.Description, InputSchemaJSON: schemaJSON,
			})
		}
	}

	resRes, err := session.ListResources(ctx, nil)
	if err == nil {
		for _, r := range resRes.Resources {
			schema.Resources = append(schema.Resources, model.MCPResource{
				URI: r.URI, Name: r.Name, Description: r.Description, MimeType: r.MIMEType,
			})
		}
	}

	return schema, nil
}

// Execute dispatches MCP_TOOL_CALL to tools/call and MCP_RESOURCE_READ to
// resources/read, per spec.md §4.2: tool calls return rows = [result].
func (a *Adapter) Execute(ctx context.Context, req model.DataRequest) (model.ExecutionResult, error) {
	if req.Kind != model.RequestKindMCPToolCall && req.Kind != model.RequestKindMCPResourceRead {
		return model.ExecutionResult{}, &datasource.ErrInvalidRequestKind{Adapter: model.SourceKindMCP, Request: req.Kind}
	}

	start := time.Now()
	session, err := a.connect(ctx, callTimeout)
	if err != nil {
		return model.ExecutionResult{Success: false, ErrorMessage: err.Error()}, nil
	}
	defer session.Close() //nolint:errcheck

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var row map[string]any
	switch req.Kind {
	case model.RequestKindMCPToolCall:
		res, err := session.CallTool(callCtx, &mcpsdk.CallToolParams{Name: req.ToolName, Arguments: req.Arguments})
		if err != nil {
			return model.ExecutionResult{Success: false, ErrorMessage: err.Error()}, nil
		}
		if res.IsError {
			return model.ExecutionResult{Success: false, ErrorMessage: extractText(res)}, nil
		}
		row = map[string]any{"result": extractText(res)}
	case model.RequestKindMCPResourceRead:
		res, err := session.ReadResource(callCtx, &mcpsdk.ReadResourceParams{URI: req.URI})
		if err != nil {
			return model.ExecutionResult{Success: false, ErrorMessage: err.Error()}, nil
		}
		row = map[string]any{"uri": req.URI, "contents": resourceContentsAsAny(res)}
	}

	rows := []map[string]any{row}
	return model.ExecutionResult{
		Success: true, Rows: rows, Columns: columnsOf(row),
		RowCount: 1, ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}

func extractText(res *mcpsdk.CallToolResult) string {
	var out string
	for _, c := range res.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			out += tc.Text
		}
	}
	return out
}

func resourceContentsAsAny(res *mcpsdk.ReadResourceResult) []map[string]any {
	out := make([]map[string]any, 0, len(res.Contents))
	for _, c := range res.Contents {
		out = append(out, map[string]any{"uri": c.URI, "mimeType": c.MIMEType, "text": c.Text})
	}
	return out
}

func columnsOf(row map[string]any) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	return cols
}
