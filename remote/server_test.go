package remote

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var objectSchema = map[string]any{"type": "object"}

// newTestServer builds an MCP server with a small fixed tool set.
func newTestServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "fixture", Title: "Fixture Server", Version: "v1.4.0"}, nil)

	server.AddTool(&mcp.Tool{Name: "echo", Description: "Echo text back", InputSchema: objectSchema},
		func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				Text string `json:"text"`
			}
			if len(req.Params.Arguments) > 0 {
				if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
					return nil, err
				}
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: args.Text}}}, nil
		})

	server.AddTool(&mcp.Tool{Name: "fail", Description: "Always reports an error", InputSchema: objectSchema},
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "quota exhausted"}},
			}, nil
		})

	server.AddTool(&mcp.Tool{Name: "snapshot", Description: "Returns an image", InputSchema: objectSchema},
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{Content: []mcp.Content{
				&mcp.TextContent{Text: "here it is"},
				&mcp.ImageContent{Data: []byte("\x89PNG"), MIMEType: "image/png"},
			}}, nil
		})

	server.AddTool(&mcp.Tool{Name: "slow", Description: "Blocks until cancelled", InputSchema: objectSchema},
		func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "late"}}}, nil
			}
		})

	server.AddResource(&mcp.Resource{URI: "mem://readme", Name: "readme", MIMEType: "text/plain"},
		func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, MIMEType: "text/plain", Text: "hello"},
			}}, nil
		})

	server.AddPrompt(&mcp.Prompt{Name: "greet", Description: "Greets someone"},
		func(context.Context, *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return &mcp.GetPromptResult{Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: "hi"}},
			}}, nil
		})

	return server
}

// memoryTransports connects each call to server over in-memory pipes and
// counts how often it was asked for a transport.
type memoryTransports struct {
	server *mcp.Server
	calls  atomic.Int32
}

func (m *memoryTransports) factory(ctx context.Context, _ Descriptor) (mcp.Transport, error) {
	m.calls.Add(1)
	clientT, serverT := mcp.NewInMemoryTransports()
	if _, err := m.server.Connect(ctx, serverT, nil); err != nil {
		return nil, err
	}
	return clientT, nil
}
