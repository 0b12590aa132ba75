package remote

import (
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolcall/toolerr"
)

// TransportFactory builds the MCP transport for a validated descriptor.
// ctx bounds the lifetime of the call the transport is built for.
type TransportFactory func(ctx context.Context, d Descriptor) (mcp.Transport, error)

// DefaultTransports returns the factory used when none is configured:
// stdio descriptors run as child processes, HTTP descriptors use the
// streamable HTTP transport over httpClient.
func DefaultTransports(httpClient *http.Client) TransportFactory {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return func(ctx context.Context, d Descriptor) (mcp.Transport, error) {
		switch d := d.(type) {
		case StdioDescriptor:
			// The process is killed when ctx is done.
			cmd := exec.CommandContext(ctx, d.Command, d.Args...)
			cmd.Env = MergeEnv(os.Environ(), d.Env)
			return &mcp.CommandTransport{Command: cmd}, nil
		case HTTPDescriptor:
			headers, err := d.RequestHeaders()
			if err != nil {
				return nil, err
			}
			return &mcp.StreamableClientTransport{
				Endpoint:   d.URL,
				HTTPClient: withHeaders(httpClient, headers),
			}, nil
		default:
			return nil, toolerr.New(toolerr.KindTransportUnsupported, "Unsupported MCP connection type: %T", d)
		}
	}
}

// MergeEnv overlays extra on base, a list of KEY=VALUE pairs. Keys in extra
// replace their base entries; new keys are appended in sorted order.
func MergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if _, replaced := extra[k]; replaced {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}

func basicCredentials(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

func withHeaders(base *http.Client, headers map[string]string) *http.Client {
	if len(headers) == 0 {
		return base
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	c := *base
	c.Transport = &headerTransport{base: rt, headers: headers}
	return &c
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
