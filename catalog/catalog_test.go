package catalog_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolcall/catalog"
	"github.com/jonwraymond/toolcall/executor/notebook"
	"github.com/jonwraymond/toolcall/remote"
	"github.com/jonwraymond/toolcall/toolname"
)

var longOperation = "summarize_every_open_pull_request_in_the_repository_and_post_digest"

func newNotebook(t *testing.T) *notebook.Executor {
	t.Helper()
	ex, err := notebook.New(notebook.NewMemoryStore(), nil)
	require.NoError(t, err)
	return ex
}

func newServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "github", Version: "v1.0.0"}, nil)
	handler := func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "ok"}}}, nil
	}
	server.AddTool(&mcp.Tool{
		Name:        "list_issues",
		Description: "List open issues of a repository",
		InputSchema: map[string]any{"type": "object"},
	}, handler)
	server.AddTool(&mcp.Tool{
		Name:        longOperation,
		Description: "Summarize pull requests",
		InputSchema: map[string]any{"type": "object"},
	}, handler)
	return server
}

type memoryTransports struct {
	server *mcp.Server
	fail   atomic.Bool
}

func (m *memoryTransports) factory(ctx context.Context, _ remote.Descriptor) (mcp.Transport, error) {
	if m.fail.Load() {
		return nil, errors.New("connection refused")
	}
	clientT, serverT := mcp.NewInMemoryTransports()
	if _, err := m.server.Connect(ctx, serverT, nil); err != nil {
		return nil, err
	}
	return clientT, nil
}

func newRemoteCatalog(t *testing.T) (*catalog.Catalog, *memoryTransports) {
	t.Helper()
	mt := &memoryTransports{server: newServer()}
	client := remote.New(remote.WithTransportFactory(mt.factory))
	return catalog.New(catalog.WithRemoteClient(client)), mt
}

var githubServer = remote.HTTPDescriptor{Name: "github", URL: "https://mcp.example.com/github"}

func TestAddExecutor(t *testing.T) {
	cat := catalog.New()
	require.NoError(t, cat.AddExecutor(newNotebook(t)))

	tools := cat.Tools()
	require.Len(t, tools, 4)
	for _, e := range tools {
		assert.Equal(t, "notebook", e.Namespace)
		assert.Equal(t, catalog.SourceBuiltin, e.Source)
		assert.Equal(t, toolname.Encode("notebook", e.Operation, ""), e.WireName)
		assert.NotNil(t, e.InputSchema)
	}
	assert.ElementsMatch(t,
		[]string{"createDocument", "getDocument", "updateDocument", "listDocuments"},
		cat.Manifest("notebook"))

	namespaces, err := cat.Namespaces()
	require.NoError(t, err)
	assert.Contains(t, namespaces, "notebook")
}

func TestAddExecutorTwice(t *testing.T) {
	cat := catalog.New()
	require.NoError(t, cat.AddExecutor(newNotebook(t)))
	err := cat.AddExecutor(newNotebook(t))
	assert.ErrorIs(t, err, catalog.ErrNamespaceExists)
}

func TestRefreshRemote(t *testing.T) {
	cat, _ := newRemoteCatalog(t)

	m, err := cat.RefreshRemote(context.Background(), "github", githubServer)
	require.NoError(t, err)
	assert.Len(t, m.Tools, 2)
	assert.False(t, cat.Stale("github", githubServer))

	names := cat.FunctionNames()
	assert.Contains(t, names, "github____list_issues")

	var hashed string
	for _, n := range names {
		if strings.Contains(n, toolname.HashPrefix) {
			hashed = n
		}
	}
	require.NotEmpty(t, hashed, "long operation should be hashed")
	assert.Less(t, len(hashed), toolname.MaxLength)

	e, ok := cat.Lookup(hashed)
	require.True(t, ok)
	assert.Equal(t, longOperation, e.Operation)
	assert.Equal(t, catalog.SourceRemote, e.Source)
}

func TestCatalogResolvesHashedNames(t *testing.T) {
	cat, _ := newRemoteCatalog(t)
	_, err := cat.RefreshRemote(context.Background(), "github", githubServer)
	require.NoError(t, err)

	r := &toolname.Resolver{Manifests: cat}
	parts, ok := r.Resolve(toolname.Encode("github", longOperation, ""))
	require.True(t, ok)
	assert.Equal(t, longOperation, parts.Operation)
}

func TestRefreshRemoteFailureKeepsEntries(t *testing.T) {
	cat, mt := newRemoteCatalog(t)
	_, err := cat.RefreshRemote(context.Background(), "github", githubServer)
	require.NoError(t, err)

	mt.fail.Store(true)
	_, err = cat.RefreshRemote(context.Background(), "github", githubServer)
	require.Error(t, err)
	assert.Len(t, cat.Manifest("github"), 2)
}

func TestRefreshRemoteWithoutClient(t *testing.T) {
	_, err := catalog.New().RefreshRemote(context.Background(), "github", githubServer)
	assert.ErrorIs(t, err, catalog.ErrNoRemoteClient)
}

func TestStaleOnDescriptorChange(t *testing.T) {
	cat, _ := newRemoteCatalog(t)
	assert.True(t, cat.Stale("github", githubServer))
	_, err := cat.RefreshRemote(context.Background(), "github", githubServer)
	require.NoError(t, err)

	moved := githubServer
	moved.URL = "https://mcp.example.com/v2/github"
	assert.True(t, cat.Stale("github", moved))
}

func TestAddRemoteCollidesWithBuiltin(t *testing.T) {
	cat := catalog.New()
	require.NoError(t, cat.AddExecutor(newNotebook(t)))
	err := cat.AddRemote("notebook", remote.Manifest{Tools: []*mcp.Tool{{Name: "x"}}})
	assert.ErrorIs(t, err, catalog.ErrNamespaceExists)
}

func TestAddRemoteReplaces(t *testing.T) {
	cat := catalog.New()
	require.NoError(t, cat.AddRemote("svc", remote.Manifest{Tools: []*mcp.Tool{{Name: "a"}, {Name: "b"}}}))
	require.NoError(t, cat.AddRemote("svc", remote.Manifest{Tools: []*mcp.Tool{{Name: "c"}, nil}}))
	assert.Equal(t, []string{"c"}, cat.Manifest("svc"))
}

func TestRemove(t *testing.T) {
	cat := catalog.New()
	require.NoError(t, cat.AddRemote("svc", remote.Manifest{Tools: []*mcp.Tool{{Name: "a"}}}))
	cat.Remove("svc")
	assert.Empty(t, cat.Manifest("svc"))
	assert.Empty(t, cat.Tools())
	_, ok := cat.Lookup("svc____a")
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	cat, _ := newRemoteCatalog(t)
	require.NoError(t, cat.AddExecutor(newNotebook(t)))
	_, err := cat.RefreshRemote(context.Background(), "github", githubServer)
	require.NoError(t, err)

	hits, err := cat.Search("issues", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "list_issues", hits[0].Operation)
	assert.Equal(t, 1, hits[0].Score)
}

func TestDescribe(t *testing.T) {
	cat := catalog.New()
	require.NoError(t, cat.AddRemote("svc", remote.Manifest{Tools: []*mcp.Tool{
		{Name: "ping", Description: "Checks the service"},
	}}))

	doc, err := cat.Describe("svc", "ping", tooldoc.DetailSummary)
	require.NoError(t, err)
	assert.Contains(t, doc.Summary, "Checks")

	_, err = cat.Describe("svc", "missing", tooldoc.DetailSummary)
	assert.ErrorIs(t, err, catalog.ErrToolNotFound)
}

func TestNamespaceTooLong(t *testing.T) {
	cat := catalog.New()
	ns := strings.Repeat("n", toolname.MaxNamespaceLength+1)
	err := cat.AddRemote(ns, remote.Manifest{Tools: []*mcp.Tool{{Name: "a"}}})
	assert.ErrorIs(t, err, catalog.ErrNamespaceTooLong)
	assert.Empty(t, cat.Tools())

	ns = strings.Repeat("n", toolname.MaxNamespaceLength)
	require.NoError(t, cat.AddRemote(ns, remote.Manifest{Tools: []*mcp.Tool{{Name: longOperation}}}))
	names := cat.FunctionNames()
	require.Len(t, names, 1)
	assert.Less(t, len(names[0]), toolname.MaxLength)
}
