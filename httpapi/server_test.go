package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolcall/catalog"
	"github.com/jonwraymond/toolcall/content"
	"github.com/jonwraymond/toolcall/dispatch"
	"github.com/jonwraymond/toolcall/executor"
	"github.com/jonwraymond/toolcall/executor/notebook"
	"github.com/jonwraymond/toolcall/httpapi"
	"github.com/jonwraymond/toolcall/remote"
	"github.com/jonwraymond/toolcall/storage/memory"
	"github.com/jonwraymond/toolcall/toolerr"
)

var pixel = []byte{0x89, 'P', 'N', 'G'}

func newMediaServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "media", Version: "v2.1.0"}, nil)
	server.AddTool(&mcp.Tool{Name: "snapshot", InputSchema: map[string]any{"type": "object"}},
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{Content: []mcp.Content{
				&mcp.TextContent{Text: "captured"},
				&mcp.ImageContent{Data: pixel, MIMEType: "image/png"},
			}}, nil
		})
	server.AddTool(&mcp.Tool{Name: "boom", InputSchema: map[string]any{"type": "object"}},
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "disk full"}},
			}, nil
		})
	return server
}

type fixture struct {
	srv       *httptest.Server
	artifacts *memory.Store
	catalog   *catalog.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mcpServer := newMediaServer()
	factory := func(ctx context.Context, _ remote.Descriptor) (mcp.Transport, error) {
		clientT, serverT := mcp.NewInMemoryTransports()
		if _, err := mcpServer.Connect(ctx, serverT, nil); err != nil {
			return nil, err
		}
		return clientT, nil
	}
	client := remote.New(remote.WithTransportFactory(factory))

	nb, err := notebook.New(notebook.NewMemoryStore(), nil)
	require.NoError(t, err)
	reg := executor.NewRegistry()
	reg.MustRegister(nb)

	cat := catalog.New(catalog.WithRemoteClient(client))
	require.NoError(t, cat.AddExecutor(nb))

	artifacts := memory.New()
	normalizer := content.NewNormalizer(artifacts)
	normalizer.URLFor = httpapi.ArtifactURL
	promReg := prometheus.NewRegistry()
	d := dispatch.New(
		dispatch.WithRegistry(reg),
		dispatch.WithRemoteClient(client),
		dispatch.WithServers(dispatch.NewServers(map[string]remote.Descriptor{
			"media": remote.HTTPDescriptor{Name: "media", URL: "https://mcp.example.com/media"},
		})),
		dispatch.WithNormalizer(normalizer),
		dispatch.WithManifests(cat),
		dispatch.WithMetrics(dispatch.NewMetrics(promReg)),
	)

	api := httpapi.New(d,
		httpapi.WithCatalog(cat),
		httpapi.WithArtifacts(artifacts),
		httpapi.WithGatherer(promReg),
	)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, artifacts: artifacts, catalog: cat}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestDispatchWithRawArguments(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/v1/dispatch", `{"calls":[
		{"id":"c1","name":"notebook____createDocument","arguments":"{\"title\":\"Plan\",\"content\":\"Draft\"}","topicId":"t1"},
		{"id":"c2","namespace":"nope","operation":"x"}
	]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Outcomes []dispatch.Outcome `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Outcomes, 2)

	assert.Equal(t, "c1", out.Outcomes[0].CallID)
	assert.Equal(t, dispatch.PhaseSucceeded, out.Outcomes[0].Phase)
	assert.Contains(t, out.Outcomes[0].Result.Content, "Plan")

	assert.Equal(t, dispatch.PhaseFailed, out.Outcomes[1].Phase)
	require.NotNil(t, out.Outcomes[1].Result.Error)
	assert.Equal(t, toolerr.KindAPINotFound, out.Outcomes[1].Result.Error.Kind)

	resp, body = f.do(t, http.MethodGet, "/v1/calls/c1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec dispatch.Record
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, dispatch.PhaseSucceeded, rec.Phase)
	assert.False(t, rec.Loading)
}

func TestGetCallUnknown(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/v1/calls/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"type":"ApiNotFound"`)
}

func TestInvokeBuiltin(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/v1/builtin/notebook/createDocument",
		`{"args":{"title":"T","content":"C"},"context":{"messageId":"m1","topicId":"t1"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res executor.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Success)

	resp, body = f.do(t, http.MethodPost, "/v1/builtin/notebook/deleteEverything", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "ApiNotFound")
}

func TestInvokeBuiltinBadJSON(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodPost, "/v1/builtin/notebook/createDocument", `{"args":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServers(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/v1/servers", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"servers":["media"]}`, string(body))

	resp, body = f.do(t, http.MethodPost, "/v1/servers/media/capabilities", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m remote.Manifest
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "2.1.0", m.Version)
	assert.Len(t, m.Tools, 2)

	resp, _ = f.do(t, http.MethodPost, "/v1/servers/ghost/capabilities", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallToolPersistsArtifacts(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/v1/servers/media/tools/snapshot", `{"args":{}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var norm dispatch.Normalized
	require.NoError(t, json.Unmarshal(body, &norm))
	require.Len(t, norm.Artifacts, 1)
	assert.Contains(t, norm.Text, "captured")
	assert.Equal(t, 1, f.artifacts.Len())

	resp, data := f.do(t, http.MethodGet, "/v1/artifacts/"+norm.Artifacts[0].ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.Equal(pixel, data))

	resp, _ = f.do(t, http.MethodGet, "/v1/artifacts/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRenderedArtifactLinkResolves(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, http.MethodPost, "/v1/servers/media/tools/snapshot", `{}`)
	var norm dispatch.Normalized
	require.NoError(t, json.Unmarshal(body, &norm))

	m := regexp.MustCompile(`!\[\]\(([^)]+)\)`).FindStringSubmatch(norm.Text)
	require.Len(t, m, 2, "no image link in %q", norm.Text)
	assert.Equal(t, httpapi.ArtifactPath+norm.Artifacts[0].ID, m[1])

	resp, data := f.do(t, http.MethodGet, m[1], "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pixel, data)
}

func TestCallToolRemoteError(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/v1/servers/media/tools/boom", `{}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var out struct {
		Error  toolerr.Error       `json:"error"`
		Result dispatch.Normalized `json:"result"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, toolerr.KindRemoteToolError, out.Error.Kind)
	assert.True(t, out.Result.IsError)
	assert.Contains(t, out.Result.Text, "disk full")
	assert.Zero(t, f.artifacts.Len())
}

func TestListTools(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/v1/tools", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "notebook____createDocument")

	resp, body = f.do(t, http.MethodGet, "/v1/tools?q=document&limit=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Tools []catalog.Hit `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.LessOrEqual(t, len(out.Tools), 2)

	resp, _ = f.do(t, http.MethodGet, "/v1/tools?q=x&limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/dispatch", `{"calls":[{"id":"c1","namespace":"notebook","operation":"listDocuments"}]}`)

	resp, body := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "toolcall_dispatch_total")
}

func TestStatus(t *testing.T) {
	tests := map[toolerr.Kind]int{
		toolerr.KindAPINotFound:          http.StatusNotFound,
		toolerr.KindMethodNotImplemented: http.StatusNotImplemented,
		toolerr.KindTransportUnsupported: http.StatusUnprocessableEntity,
		toolerr.KindTransportError:       http.StatusBadGateway,
		toolerr.KindRemoteToolError:      http.StatusBadGateway,
		toolerr.KindPluginServerError:    http.StatusInternalServerError,
		toolerr.KindCancelled:            http.StatusRequestTimeout,
	}
	for kind, want := range tests {
		assert.Equal(t, want, httpapi.Status(kind), string(kind))
	}
}
