// Package notebook is a builtin executor that keeps documents scoped to a
// conversation topic.
package notebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonwraymond/toolcall/executor"
)

// Identifier is the namespace of the notebook executor.
const Identifier = "notebook"

// Operation names.
const (
	APICreateDocument = "createDocument"
	APIGetDocument    = "getDocument"
	APIUpdateDocument = "updateDocument"
	APIListDocuments  = "listDocuments"
)

// APIs is the declared operation enumeration.
var APIs = []string{APICreateDocument, APIGetDocument, APIUpdateDocument, APIListDocuments}

// DefaultType is used when createDocument receives no type.
const DefaultType = "note"

// ErrTitleRequired is returned when a document would have an empty title.
var ErrTitleRequired = errors.New("title is required")

// CreateParams are the createDocument arguments.
type CreateParams struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

// GetParams are the getDocument arguments.
type GetParams struct {
	ID string `json:"id"`
}

// UpdateParams are the updateDocument arguments.
type UpdateParams struct {
	ID      string  `json:"id"`
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// DocumentState is the plugin state of single-document operations.
type DocumentState struct {
	Document Document `json:"document"`
}

// ListState is the plugin state of listDocuments.
type ListState struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
}

// Executor implements the notebook operations.
type Executor struct {
	*executor.Base
	store  Store
	titler cases.Caser
}

// New creates a notebook executor over store.
func New(store Store, logger *slog.Logger) (*Executor, error) {
	if store == nil {
		return nil, fmt.Errorf("notebook: store is required")
	}
	e := &Executor{
		store:  store,
		titler: cases.Title(language.Und),
	}

	base, err := executor.NewBase(Identifier, APIs, map[string]executor.Method{
		APICreateDocument: executor.Bind(e.createDocument),
		APIGetDocument:    executor.Bind(e.getDocument),
		APIUpdateDocument: executor.Bind(e.updateDocument),
		APIListDocuments:  executor.Bind(e.listDocuments),
	}, executor.WithLogger(logger), executor.WithDocs(apiDocs...))
	if err != nil {
		return nil, err
	}
	e.Base = base
	return e, nil
}

func (e *Executor) createDocument(ctx context.Context, p CreateParams, cc executor.Context) (executor.Result, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return executor.Result{}, ErrTitleRequired
	}
	docType := strings.TrimSpace(p.Type)
	if docType == "" {
		docType = DefaultType
	}

	doc, err := e.store.Create(ctx, Document{
		TopicID: cc.TopicID,
		Title:   title,
		Content: p.Content,
		Type:    docType,
	})
	if err != nil {
		return executor.Result{}, err
	}

	content := fmt.Sprintf("Created %s %q (id: %s).", e.titler.String(doc.Type), doc.Title, doc.ID)
	return executor.OK(content, DocumentState{Document: doc}), nil
}

func (e *Executor) getDocument(ctx context.Context, p GetParams, cc executor.Context) (executor.Result, error) {
	doc, err := e.store.Get(ctx, cc.TopicID, p.ID)
	if err != nil {
		return executor.Result{}, fmt.Errorf("%w: %s", err, p.ID)
	}
	content := fmt.Sprintf("# %s\n\n%s", doc.Title, doc.Content)
	return executor.OK(content, DocumentState{Document: doc}), nil
}

func (e *Executor) updateDocument(ctx context.Context, p UpdateParams, cc executor.Context) (executor.Result, error) {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return executor.Result{}, ErrTitleRequired
	}
	doc, err := e.store.Update(ctx, cc.TopicID, p.ID, Patch{Title: p.Title, Content: p.Content})
	if err != nil {
		return executor.Result{}, fmt.Errorf("%w: %s", err, p.ID)
	}
	return executor.OK(fmt.Sprintf("Updated %q.", doc.Title), DocumentState{Document: doc}), nil
}

func (e *Executor) listDocuments(ctx context.Context, _ struct{}, cc executor.Context) (executor.Result, error) {
	docs, err := e.store.List(ctx, cc.TopicID)
	if err != nil {
		return executor.Result{}, err
	}
	if len(docs) == 0 {
		return executor.OK("No documents in this topic.", ListState{Documents: docs}), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d document", len(docs))
	if len(docs) > 1 {
		b.WriteString("s")
	}
	b.WriteString(":")
	for i, doc := range docs {
		fmt.Fprintf(&b, "\n%d. %s (%s, id: %s)", i+1, doc.Title, doc.Type, doc.ID)
	}
	return executor.OK(b.String(), ListState{Documents: docs, Total: len(docs)}), nil
}

var apiDocs = []executor.APIDoc{
	{
		Name:        APICreateDocument,
		Description: "Create a document in the current topic's notebook.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":   map[string]any{"type": "string", "description": "Document title"},
				"content": map[string]any{"type": "string", "description": "Markdown body"},
				"type":    map[string]any{"type": "string", "description": "Document kind, e.g. note or report"},
			},
			"required": []any{"title", "content"},
		},
	},
	{
		Name:        APIGetDocument,
		Description: "Read a notebook document by id.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"id": map[string]any{"type": "string"}},
			"required":   []any{"id"},
		},
	},
	{
		Name:        APIUpdateDocument,
		Description: "Change the title or content of a notebook document.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":      map[string]any{"type": "string"},
				"title":   map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
			"required": []any{"id"},
		},
	},
	{
		Name:        APIListDocuments,
		Description: "List the documents in the current topic's notebook.",
		InputSchema: map[string]any{"type": "object"},
	},
}

var _ executor.Executor = (*Executor)(nil)
