package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/jonwraymond/toolcall/logging"
	"github.com/jonwraymond/toolcall/toolerr"
)

// Construction errors.
var (
	ErrIdentifierRequired = errors.New("executor identifier is required")
	ErrDuplicateAPI       = errors.New("api declared twice")
	ErrUndeclaredMethod   = errors.New("method bound to undeclared api")
	ErrUnboundAPI         = errors.New("api declared without a method")
)

// BaseOption configures a Base.
type BaseOption func(*Base)

// WithLogger sets the logger used for recovered faults.
func WithLogger(logger *slog.Logger) BaseOption {
	return func(b *Base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithDocs attaches operation metadata.
func WithDocs(docs ...APIDoc) BaseOption {
	return func(b *Base) {
		for _, d := range docs {
			b.docs[d.Name] = d
		}
	}
}

// AllowUnbound lets declared operations exist without a bound method.
// Invoking one yields MethodNotImplemented instead of failing construction.
func AllowUnbound() BaseOption {
	return func(b *Base) {
		b.allowUnbound = true
	}
}

// Base carries the operation table and the shared Invoke behavior. Concrete
// executors embed *Base.
type Base struct {
	identifier   string
	apis         []string
	apiSet       map[string]struct{}
	methods      map[string]Method
	docs         map[string]APIDoc
	allowUnbound bool
	logger       *slog.Logger
}

// NewBase validates and builds an operation table for identifier.
//
// apis is the declared enumeration; methods binds each operation to its
// implementation. Every method must belong to a declared api, and every api
// must be bound unless AllowUnbound is given.
func NewBase(identifier string, apis []string, methods map[string]Method, opts ...BaseOption) (*Base, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrIdentifierRequired
	}

	b := &Base{
		identifier: identifier,
		apis:       make([]string, 0, len(apis)),
		apiSet:     make(map[string]struct{}, len(apis)),
		methods:    make(map[string]Method, len(methods)),
		docs:       make(map[string]APIDoc),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, api := range apis {
		if _, dup := b.apiSet[api]; dup {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateAPI, identifier, api)
		}
		b.apiSet[api] = struct{}{}
		b.apis = append(b.apis, api)
	}

	for name, m := range methods {
		if _, ok := b.apiSet[name]; !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUndeclaredMethod, identifier, name)
		}
		if m != nil {
			b.methods[name] = m
		}
	}

	if !b.allowUnbound {
		var unbound []string
		for _, api := range b.apis {
			if _, ok := b.methods[api]; !ok {
				unbound = append(unbound, api)
			}
		}
		if len(unbound) > 0 {
			return nil, fmt.Errorf("%w: %s.{%s}", ErrUnboundAPI, identifier, strings.Join(unbound, ", "))
		}
	}

	return b, nil
}

// MustBase is NewBase that panics on error. Intended for package-level
// executor construction where a divergent table is a programming error.
func MustBase(identifier string, apis []string, methods map[string]Method, opts ...BaseOption) *Base {
	b, err := NewBase(identifier, apis, methods, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

// Identifier returns the executor namespace.
func (b *Base) Identifier() string {
	return b.identifier
}

// HasAPI reports whether name is declared.
func (b *Base) HasAPI(name string) bool {
	_, ok := b.apiSet[name]
	return ok
}

// ListAPIs returns declared operations in declaration order.
func (b *Base) ListAPIs() []string {
	out := make([]string, len(b.apis))
	copy(out, b.apis)
	return out
}

// DescribeAPIs returns metadata for every declared operation. Operations
// without attached docs get a name-only entry with an open object schema.
func (b *Base) DescribeAPIs() []APIDoc {
	out := make([]APIDoc, 0, len(b.apis))
	for _, api := range b.apis {
		doc, ok := b.docs[api]
		if !ok {
			doc = APIDoc{Name: api}
		}
		if doc.InputSchema == nil {
			doc.InputSchema = map[string]any{"type": "object"}
		}
		out = append(out, doc)
	}
	return out
}

// Invoke runs the named operation and converts every failure into a Result.
func (b *Base) Invoke(ctx context.Context, name string, args map[string]any, cc Context) (res Result) {
	if ctx.Err() != nil {
		return Stopped()
	}
	if !b.HasAPI(name) {
		return Fail(toolerr.New(toolerr.KindAPINotFound, "Unknown API: %s", name))
	}
	method, ok := b.methods[name]
	if !ok {
		return Fail(toolerr.New(toolerr.KindMethodNotImplemented, "Method not implemented: %s", name))
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("executor method panicked",
				"executor", b.identifier,
				"api", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res = Fail(&toolerr.Error{
				Kind:    toolerr.KindPluginServerError,
				Message: fmt.Sprintf("panic in %s.%s: %v", b.identifier, name, r),
				Body:    r,
			})
		}
	}()

	if args == nil {
		args = map[string]any{}
	}

	out, err := method(ctx, args, cc)
	if err != nil {
		if toolerr.IsCancellation(err) && ctx.Err() != nil {
			return Stopped()
		}
		if te, ok := toolerr.As(err); ok {
			return Fail(te)
		}
		return Fail(toolerr.Wrap(toolerr.KindPluginServerError, err, ""))
	}
	return out
}

var _ Executor = (*Base)(nil)
var _ Describer = (*Base)(nil)
