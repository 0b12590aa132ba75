package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolcall/executor"
	"github.com/jonwraymond/toolcall/logging"
	"github.com/jonwraymond/toolcall/remote"
	"github.com/jonwraymond/toolcall/toolname"
)

// Errors returned by Catalog.
var (
	ErrNamespaceExists = errors.New("namespace already in catalog")
	ErrNoRemoteClient  = errors.New("catalog has no remote client")
	ErrToolNotFound    = errors.New("tool not found")

	// ErrNamespaceTooLong is returned for namespaces whose wire names could
	// exceed toolname.MaxLength.
	ErrNamespaceTooLong = errors.New("namespace too long")
)

// Source tells where a tool runs.
type Source string

// Sources.
const (
	SourceBuiltin Source = "builtin"
	SourceRemote  Source = "remote"
)

// Entry is one tool in the catalog.
type Entry struct {
	Namespace   string `json:"namespace"`
	Operation   string `json:"operation"`
	WireName    string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"parameters,omitempty"`
	Source      Source `json:"source"`
}

// ID returns the tooldiscovery id of e.
func (e Entry) ID() string {
	return e.Namespace + ":" + e.Operation
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithRemoteClient sets the client used by RefreshRemote.
func WithRemoteClient(c *remote.Client) Option {
	return func(cat *Catalog) { cat.client = c }
}

// WithLogger sets the catalog logger.
func WithLogger(l *slog.Logger) Option {
	return func(cat *Catalog) { cat.logger = l }
}

// Catalog is the searchable tool list.
type Catalog struct {
	mu      sync.RWMutex
	idx     index.Index
	docs    *tooldoc.InMemoryStore
	entries map[string][]Entry
	sources map[string]Source
	keys    map[string]string // namespace -> descriptor key of the last refresh

	client *remote.Client
	logger *slog.Logger
}

// New creates an empty Catalog.
func New(opts ...Option) *Catalog {
	idx := index.NewInMemoryIndex(index.IndexOptions{
		Searcher: search.NewBM25Searcher(search.BM25Config{}),
	})
	var docs tooldoc.Store = tooldoc.NewInMemoryStore(tooldoc.StoreOptions{Index: idx})
	c := &Catalog{
		idx:     idx,
		docs:    docs.(*tooldoc.InMemoryStore),
		entries: make(map[string][]Entry),
		sources: make(map[string]Source),
		keys:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

// AddExecutor adds the operations of ex. Operation metadata is taken from
// executor.Describer when ex implements it.
func (c *Catalog) AddExecutor(ex executor.Executor) error {
	ns := ex.Identifier()
	if err := checkNamespace(ns); err != nil {
		return err
	}

	docs := map[string]executor.APIDoc{}
	if d, ok := ex.(executor.Describer); ok {
		for _, doc := range d.DescribeAPIs() {
			docs[doc.Name] = doc
		}
	}

	entries := make([]Entry, 0, len(ex.ListAPIs()))
	for _, api := range ex.ListAPIs() {
		doc := docs[api]
		schema := any(doc.InputSchema)
		if doc.InputSchema == nil {
			schema = map[string]any{"type": "object"}
		}
		entries = append(entries, Entry{
			Namespace:   ns,
			Operation:   api,
			WireName:    toolname.Encode(ns, api, ""),
			Description: doc.Description,
			InputSchema: schema,
			Source:      SourceBuiltin,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.sources[ns]; exists {
		return fmt.Errorf("%w: %s", ErrNamespaceExists, ns)
	}
	for i, e := range entries {
		if err := c.idx.RegisterTool(toModelTool(e), model.NewLocalBackend(ns)); err != nil {
			c.unindexEntries(entries[:i], SourceBuiltin)
			return fmt.Errorf("catalog: index %s: %w", e.ID(), err)
		}
	}
	c.registerDocsLocked(entries)
	c.entries[ns] = entries
	c.sources[ns] = SourceBuiltin
	return nil
}

// AddRemote records the tools of a remote server under namespace,
// replacing what was known before.
func (c *Catalog) AddRemote(namespace string, m remote.Manifest) error {
	if err := checkNamespace(namespace); err != nil {
		return err
	}
	entries := make([]Entry, 0, len(m.Tools))
	for _, t := range m.Tools {
		if t == nil || t.Name == "" {
			continue
		}
		e := Entry{
			Namespace:   namespace,
			Operation:   t.Name,
			WireName:    toolname.Encode(namespace, t.Name, ""),
			Description: t.Description,
			InputSchema: t.InputSchema,
			Source:      SourceRemote,
		}
		if e.InputSchema == nil {
			e.InputSchema = map[string]any{"type": "object"}
		}
		entries = append(entries, e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if src, exists := c.sources[namespace]; exists && src != SourceRemote {
		return fmt.Errorf("%w: %s", ErrNamespaceExists, namespace)
	}
	prev := c.entries[namespace]
	c.unindexLocked(namespace)
	if err := c.idx.RegisterToolsFromMCP(namespace, modelTools(entries)); err != nil {
		c.unindexEntries(entries, SourceRemote)
		c.restoreLocked(namespace, prev)
		return fmt.Errorf("catalog: index %s: %w", namespace, err)
	}
	c.registerDocsLocked(entries)
	c.entries[namespace] = entries
	c.sources[namespace] = SourceRemote
	return nil
}

// RefreshRemote lists the capabilities of d and records its tools under
// namespace. On failure the previous entries stay in place.
func (c *Catalog) RefreshRemote(ctx context.Context, namespace string, d remote.Descriptor) (remote.Manifest, error) {
	if c.client == nil {
		return remote.Manifest{}, ErrNoRemoteClient
	}
	m, err := c.client.ListCapabilities(ctx, d)
	if err != nil {
		c.logger.Warn("remote refresh failed", "namespace", namespace, "server", d.ServerName(), "error", err)
		return remote.Manifest{}, err
	}
	if err := c.AddRemote(namespace, m); err != nil {
		return remote.Manifest{}, err
	}
	c.mu.Lock()
	c.keys[namespace] = d.Key()
	c.mu.Unlock()
	c.logger.Info("remote tools refreshed", "namespace", namespace, "tools", len(m.Tools))
	return m, nil
}

// Stale reports whether namespace was never refreshed from d, or was last
// refreshed from a different descriptor.
func (c *Catalog) Stale(namespace string, d remote.Descriptor) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[namespace] != d.Key()
}

// Remove drops namespace from the catalog.
func (c *Catalog) Remove(namespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unindexLocked(namespace)
	delete(c.entries, namespace)
	delete(c.sources, namespace)
	delete(c.keys, namespace)
}

func (c *Catalog) unindexLocked(namespace string) {
	c.unindexEntries(c.entries[namespace], c.sources[namespace])
}

func (c *Catalog) unindexEntries(entries []Entry, src Source) {
	kind := model.BackendKindLocal
	if src == SourceRemote {
		kind = model.BackendKindMCP
	}
	for _, e := range entries {
		if err := c.idx.UnregisterBackend(e.ID(), kind, e.Namespace); err != nil {
			c.logger.Debug("unindex failed", "id", e.ID(), "error", err)
		}
	}
}

// restoreLocked puts back the remote entries of namespace after a failed
// replacement. If that fails too, the namespace is dropped so the entry
// table never lists tools the index does not know.
func (c *Catalog) restoreLocked(namespace string, prev []Entry) {
	if len(prev) == 0 {
		return
	}
	if err := c.idx.RegisterToolsFromMCP(namespace, modelTools(prev)); err != nil {
		c.logger.Warn("restoring previous tools failed", "namespace", namespace, "error", err)
		c.unindexEntries(prev, SourceRemote)
		delete(c.entries, namespace)
		delete(c.sources, namespace)
		delete(c.keys, namespace)
		return
	}
	c.registerDocsLocked(prev)
}

func (c *Catalog) registerDocsLocked(entries []Entry) {
	for _, e := range entries {
		if e.Description == "" {
			continue
		}
		if err := c.docs.RegisterDoc(e.ID(), tooldoc.DocEntry{Summary: e.Description}); err != nil {
			c.logger.Debug("register doc failed", "id", e.ID(), "error", err)
		}
	}
}

func checkNamespace(ns string) error {
	if len(ns) > toolname.MaxNamespaceLength {
		return fmt.Errorf("%w: %q has %d characters, limit is %d", ErrNamespaceTooLong, ns, len(ns), toolname.MaxNamespaceLength)
	}
	return nil
}

func modelTools(entries []Entry) []model.Tool {
	out := make([]model.Tool, len(entries))
	for i, e := range entries {
		out[i] = toModelTool(e)
	}
	return out
}

// Manifest returns the operation names of namespace in catalog order.
func (c *Catalog) Manifest(namespace string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := c.entries[namespace]
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Operation
	}
	return out
}

// Lookup finds the entry behind a wire name.
func (c *Catalog) Lookup(wireName string) (Entry, bool) {
	parts, ok := toolname.Parse(wireName)
	if !ok {
		return Entry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries[parts.Namespace] {
		if e.WireName == wireName || e.Operation == parts.Operation {
			return e, true
		}
	}
	return Entry{}, false
}

// Tools returns every entry, sorted by namespace then catalog order.
func (c *Catalog) Tools() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	namespaces := make([]string, 0, len(c.entries))
	for ns := range c.entries {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	var out []Entry
	for _, ns := range namespaces {
		out = append(out, c.entries[ns]...)
	}
	return out
}

// FunctionNames returns the wire name of every tool.
func (c *Catalog) FunctionNames() []string {
	tools := c.Tools()
	out := make([]string, len(tools))
	for i, e := range tools {
		out[i] = e.WireName
	}
	return out
}

// Namespaces lists indexed namespaces.
func (c *Catalog) Namespaces() ([]string, error) {
	return c.idx.ListNamespaces()
}

// Hit is a search result.
type Hit struct {
	Entry
	Score int `json:"rank"`
}

// Search runs a BM25 query over names, descriptions and tags.
func (c *Catalog) Search(query string, limit int) ([]Hit, error) {
	summaries, err := c.idx.Search(query, limit)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Hit, 0, len(summaries))
	for i, s := range summaries {
		for _, e := range c.entries[s.Namespace] {
			if e.Operation == s.Name {
				out = append(out, Hit{Entry: e, Score: i + 1})
				break
			}
		}
	}
	return out, nil
}

// Describe returns the documentation of a tool.
func (c *Catalog) Describe(namespace, operation string, level tooldoc.DetailLevel) (tooldoc.ToolDoc, error) {
	doc, err := c.docs.DescribeTool(namespace+":"+operation, level)
	if err != nil {
		return tooldoc.ToolDoc{}, fmt.Errorf("%w: %s:%s: %v", ErrToolNotFound, namespace, operation, err)
	}
	return doc, nil
}

func toModelTool(e Entry) model.Tool {
	return model.Tool{
		Tool: mcp.Tool{
			Name:        e.Operation,
			Description: e.Description,
			InputSchema: e.InputSchema,
		},
		Namespace: e.Namespace,
		Tags:      model.NormalizeTags([]string{string(e.Source), e.Namespace}),
	}
}

var _ toolname.ManifestSource = (*Catalog)(nil)
