package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolcall/content"
	"github.com/jonwraymond/toolcall/logging"
	"github.com/jonwraymond/toolcall/toolerr"
)

// DefaultCallTimeout bounds each operation when no timeout is configured.
const DefaultCallTimeout = 60 * time.Second

// Capabilities describes what the host process may do.
type Capabilities struct {
	// Subprocess reports whether child-process transports are permitted.
	Subprocess bool
}

// Manifest is the capability set of a server.
type Manifest struct {
	Title     string          `json:"title,omitempty"`
	Version   string          `json:"version,omitempty"`
	Tools     []*mcp.Tool     `json:"tools,omitempty"`
	Resources []*mcp.Resource `json:"resources,omitempty"`
	Prompts   []*mcp.Prompt   `json:"prompts,omitempty"`
}

// CallResult is the raw result of a tool call.
type CallResult struct {
	Content    []content.Block `json:"content"`
	IsError    bool            `json:"isError,omitempty"`
	Structured any             `json:"structuredContent,omitempty"`
}

// Err returns a RemoteToolError when the server flagged the result as an
// error, and nil otherwise. The result is preserved as the error body.
func (r *CallResult) Err(tool string) *toolerr.Error {
	if r == nil || !r.IsError {
		return nil
	}
	var texts []string
	for _, b := range r.Content {
		if b.Type == content.TypeText && b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	msg := strings.Join(texts, "\n")
	if msg == "" {
		msg = fmt.Sprintf("tool %s reported an error", tool)
	}
	return &toolerr.Error{Kind: toolerr.KindRemoteToolError, Message: msg, Body: r}
}

// Option configures a Client.
type Option func(*Client)

// WithHostCapabilities sets what the host permits.
func WithHostCapabilities(caps Capabilities) Option {
	return func(c *Client) { c.caps = caps }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCallTimeout bounds each operation. Non-positive values keep the default.
// Expiry of this deadline is reported as a TransportError, not as a
// cancelled call. Only cancellation of the caller's context yields Cancelled.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTransportFactory replaces how transports are built.
func WithTransportFactory(f TransportFactory) Option {
	return func(c *Client) {
		if f != nil {
			c.factory = f
		}
	}
}

// WithHTTPClient sets the HTTP client of the default HTTP transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithImplementation sets the client name and version sent to servers.
func WithImplementation(name, version string) Option {
	return func(c *Client) {
		c.impl = &mcp.Implementation{Name: name, Version: version}
	}
}

// Client performs capability discovery and tool calls against remote
// servers.
//
// Contract:
// - Concurrency: safe for concurrent use; calls share no session state.
// - Context: every operation honors ctx and propagates it to the transport.
// - Errors: every returned error is a *toolerr.Error.
type Client struct {
	caps       Capabilities
	logger     *slog.Logger
	timeout    time.Duration
	factory    TransportFactory
	httpClient *http.Client
	impl       *mcp.Implementation
}

// New creates a Client. Subprocess transports are disabled unless
// WithHostCapabilities enables them.
func New(opts ...Option) *Client {
	c := &Client{
		logger:  logging.NewNop(),
		timeout: DefaultCallTimeout,
		impl:    &mcp.Implementation{Name: "toolcall", Version: "1.0.0"},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.factory == nil {
		c.factory = DefaultTransports(c.httpClient)
	}
	return c
}

// Capabilities returns the host capabilities the client enforces.
func (c *Client) Capabilities() Capabilities {
	return c.caps
}

// ListTools lists the server's tools.
func (c *Client) ListTools(ctx context.Context, d Descriptor) ([]*mcp.Tool, error) {
	var tools []*mcp.Tool
	err := c.withSession(ctx, d, "list tools", func(ctx context.Context, s *mcp.ClientSession) error {
		var err error
		tools, err = listTools(ctx, s)
		return err
	})
	return tools, err
}

// ListResources lists the server's resources. Servers that do not declare
// resources yield an empty list.
func (c *Client) ListResources(ctx context.Context, d Descriptor) ([]*mcp.Resource, error) {
	var resources []*mcp.Resource
	err := c.withSession(ctx, d, "list resources", func(ctx context.Context, s *mcp.ClientSession) error {
		if !declares(s, capResources) {
			return nil
		}
		var err error
		resources, err = listResources(ctx, s)
		return err
	})
	return resources, err
}

// ListPrompts lists the server's prompts. Servers that do not declare
// prompts yield an empty list.
func (c *Client) ListPrompts(ctx context.Context, d Descriptor) ([]*mcp.Prompt, error) {
	var prompts []*mcp.Prompt
	err := c.withSession(ctx, d, "list prompts", func(ctx context.Context, s *mcp.ClientSession) error {
		if !declares(s, capPrompts) {
			return nil
		}
		var err error
		prompts, err = listPrompts(ctx, s)
		return err
	})
	return prompts, err
}

// ListCapabilities discovers tools, resources and prompts over a single
// connection. A failure listing resources or prompts is logged and leaves
// that list empty; a failure listing tools fails the call.
func (c *Client) ListCapabilities(ctx context.Context, d Descriptor) (Manifest, error) {
	var m Manifest
	err := c.withSession(ctx, d, "list capabilities", func(ctx context.Context, s *mcp.ClientSession) error {
		if ir := s.InitializeResult(); ir != nil && ir.ServerInfo != nil {
			m.Title = ir.ServerInfo.Title
			if m.Title == "" {
				m.Title = ir.ServerInfo.Name
			}
			m.Version = strings.TrimPrefix(ir.ServerInfo.Version, "v")
		}

		var err error
		if declares(s, capTools) {
			if m.Tools, err = listTools(ctx, s); err != nil {
				return err
			}
		}
		if declares(s, capResources) {
			if m.Resources, err = listResources(ctx, s); err != nil {
				c.logger.Warn("list resources failed", "server", d.ServerName(), "error", err)
				m.Resources = nil
			}
		}
		if declares(s, capPrompts) {
			if m.Prompts, err = listPrompts(ctx, s); err != nil {
				c.logger.Warn("list prompts failed", "server", d.ServerName(), "error", err)
				m.Prompts = nil
			}
		}
		return ctx.Err()
	})
	return m, err
}

// CallTool invokes a tool. A result the server flags as an error is returned
// with IsError set and a nil error.
func (c *Client) CallTool(ctx context.Context, d Descriptor, name string, args map[string]any) (*CallResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	var out *CallResult
	err := c.withSession(ctx, d, "call tool "+name, func(ctx context.Context, s *mcp.ClientSession) error {
		res, err := s.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
		if err != nil {
			return err
		}
		out = &CallResult{
			Content:    content.FromMCP(res.Content),
			IsError:    res.IsError,
			Structured: res.StructuredContent,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// withSession validates d, connects, runs fn and closes the session.
func (c *Client) withSession(ctx context.Context, d Descriptor, op string, fn func(context.Context, *mcp.ClientSession) error) error {
	if err := Validate(d, c.caps); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return cancelled(d, op, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logger := c.logger.With("server", d.ServerName(), "transport", string(d.Transport()), "op", op)
	start := time.Now()

	transport, err := c.factory(callCtx, d)
	if err != nil {
		return c.classify(ctx, callCtx, d, "create transport", err)
	}

	session, err := mcp.NewClient(c.impl, nil).Connect(callCtx, transport, nil)
	if err != nil {
		logger.Debug("connect failed", "error", err)
		return c.classify(ctx, callCtx, d, "connect", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Debug("session close failed", "error", cerr)
		}
	}()

	if err := fn(callCtx, session); err != nil {
		logger.Debug("request failed", "error", err, "elapsed", time.Since(start))
		return c.classify(ctx, callCtx, d, op, err)
	}
	logger.Debug("request completed", "elapsed", time.Since(start))
	return nil
}

// classify converts err into a *toolerr.Error. Cancellation of the caller's
// context wins over everything else; expiry of the per-call deadline alone
// is a transport failure.
func (c *Client) classify(parent, callCtx context.Context, d Descriptor, op string, err error) error {
	if perr := parent.Err(); perr != nil {
		return cancelled(d, op, perr)
	}
	if te, ok := toolerr.As(err); ok {
		return te
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return toolerr.Wrap(toolerr.KindTransportError, err,
			fmt.Sprintf("%s %q: timed out after %s", op, d.ServerName(), c.timeout))
	}
	msg := err.Error()
	if isAuthFailure(msg) {
		return toolerr.Wrap(toolerr.KindTransportError, err,
			fmt.Sprintf("%s %q: authorization failed: %s", op, d.ServerName(), msg))
	}
	return toolerr.Wrap(toolerr.KindTransportError, err, fmt.Sprintf("%s %q: %s", op, d.ServerName(), msg))
}

func cancelled(d Descriptor, op string, err error) error {
	return toolerr.Wrap(toolerr.KindCancelled, err, fmt.Sprintf("%s %q: %v", op, d.ServerName(), err))
}

func isAuthFailure(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "401") || strings.Contains(lower, "403") || strings.Contains(lower, "unauthorized")
}

type capability int

const (
	capTools capability = iota
	capResources
	capPrompts
)

// declares reports whether the server advertised a capability. Servers that
// send no capabilities are assumed to offer tools only.
func declares(s *mcp.ClientSession, which capability) bool {
	ir := s.InitializeResult()
	if ir == nil || ir.Capabilities == nil {
		return which == capTools
	}
	switch which {
	case capTools:
		return ir.Capabilities.Tools != nil
	case capResources:
		return ir.Capabilities.Resources != nil
	case capPrompts:
		return ir.Capabilities.Prompts != nil
	}
	return false
}

func listTools(ctx context.Context, s *mcp.ClientSession) ([]*mcp.Tool, error) {
	return paginate(func(cursor string) ([]*mcp.Tool, string, error) {
		res, err := s.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, "", err
		}
		return res.Tools, res.NextCursor, nil
	})
}

func listResources(ctx context.Context, s *mcp.ClientSession) ([]*mcp.Resource, error) {
	return paginate(func(cursor string) ([]*mcp.Resource, string, error) {
		res, err := s.ListResources(ctx, &mcp.ListResourcesParams{Cursor: cursor})
		if err != nil {
			return nil, "", err
		}
		return res.Resources, res.NextCursor, nil
	})
}

func listPrompts(ctx context.Context, s *mcp.ClientSession) ([]*mcp.Prompt, error) {
	return paginate(func(cursor string) ([]*mcp.Prompt, string, error) {
		res, err := s.ListPrompts(ctx, &mcp.ListPromptsParams{Cursor: cursor})
		if err != nil {
			return nil, "", err
		}
		return res.Prompts, res.NextCursor, nil
	})
}

// maxPages stops a server that keeps returning cursors.
const maxPages = 100

func paginate[T any](fetch func(cursor string) ([]T, string, error)) ([]T, error) {
	var (
		out    []T
		cursor string
	)
	for range maxPages {
		page, next, err := fetch(cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if next == "" {
			return out, nil
		}
		cursor = next
	}
	return out, nil
}
