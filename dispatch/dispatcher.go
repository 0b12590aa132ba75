package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/toolcall/content"
	"github.com/jonwraymond/toolcall/executor"
	"github.com/jonwraymond/toolcall/logging"
	"github.com/jonwraymond/toolcall/remote"
	"github.com/jonwraymond/toolcall/toolerr"
	"github.com/jonwraymond/toolcall/toolname"
)

// Normalized is the result of a remote tool call after content
// normalization.
type Normalized struct {
	Blocks     []content.Block    `json:"content"`
	Text       string             `json:"text"`
	Artifacts  []content.Artifact `json:"artifacts,omitempty"`
	Structured any                `json:"structuredContent,omitempty"`
	IsError    bool               `json:"isError,omitempty"`
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry sets the in-process executors.
func WithRegistry(r *executor.Registry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// WithRemoteClient sets the client used for remote servers.
func WithRemoteClient(c *remote.Client) Option {
	return func(d *Dispatcher) { d.remote = c }
}

// WithServers sets the namespace to server table.
func WithServers(s *Servers) Option {
	return func(d *Dispatcher) { d.servers = s }
}

// WithNormalizer sets the content normalizer for remote results.
func WithNormalizer(n *content.Normalizer) Option {
	return func(d *Dispatcher) { d.normalizer = n }
}

// WithSideChannel sets where plugin state, errors and loading flags go.
func WithSideChannel(s SideChannel) Option {
	return func(d *Dispatcher) { d.side = s }
}

// WithConversation sets the receiver of successful call content.
func WithConversation(c Conversation) Option {
	return func(d *Dispatcher) { d.conv = c }
}

// WithManifests adds operation lists for namespaces that are not in-process
// executors, typically remote servers known to a catalog.
func WithManifests(m toolname.ManifestSource) Option {
	return func(d *Dispatcher) { d.manifests = m }
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithBaseURL sets the base used to render relative artifact URLs.
func WithBaseURL(u string) Option {
	return func(d *Dispatcher) { d.baseURL = u }
}

// WithMaxConcurrency bounds how many calls of one DispatchAll batch run at
// once. Zero means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(d *Dispatcher) { d.maxConcurrency = n }
}

// Dispatcher runs tool calls.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: cancellation is checked at entry and propagated to executors
//   and remote transports.
// - Errors: failures are reported in Outcome.Result; nothing panics out.
type Dispatcher struct {
	registry       *executor.Registry
	remote         *remote.Client
	servers        *Servers
	normalizer     *content.Normalizer
	side           SideChannel
	conv           Conversation
	manifests      toolname.ManifestSource
	resolver       *toolname.Resolver
	logger         *slog.Logger
	metrics        *Metrics
	baseURL        string
	maxConcurrency int
}

// New creates a Dispatcher. Unset collaborators get in-memory defaults; the
// default remote client does not permit subprocess transports.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	d.applyDefaults()
	d.resolver = &toolname.Resolver{
		Manifests: toolname.ManifestFunc(d.manifest),
		Logger:    d.logger,
	}
	return d
}

func (d *Dispatcher) applyDefaults() {
	d.logger = logging.OrNop(d.logger)
	if d.registry == nil {
		d.registry = executor.NewRegistry()
	}
	if d.remote == nil {
		d.remote = remote.New(remote.WithLogger(d.logger))
	}
	if d.servers == nil {
		d.servers = NewServers(nil)
	}
	if d.normalizer == nil {
		d.normalizer = content.NewNormalizer(nil)
	}
	if d.side == nil {
		d.side = NewMemoryStore()
	}
	if d.conv == nil {
		d.conv = nopConversation{}
	}
}

// Registry returns the in-process executors.
func (d *Dispatcher) Registry() *executor.Registry { return d.registry }

// Servers returns the remote server table.
func (d *Dispatcher) Servers() *Servers { return d.servers }

// SideChannel returns the per-call store.
func (d *Dispatcher) SideChannel() SideChannel { return d.side }

// manifest returns the known operations of namespace.
func (d *Dispatcher) manifest(namespace string) []string {
	if ex, ok := d.registry.Resolve(namespace); ok {
		return ex.ListAPIs()
	}
	if d.manifests != nil {
		return d.manifests.Manifest(namespace)
	}
	return nil
}

// Resolve maps call to its namespace and logical operation.
func (d *Dispatcher) Resolve(call Call) (namespace, operation string) {
	if _, ok := toolname.Parse(call.Name); ok {
		parts, _ := d.resolver.Resolve(call.Name)
		return parts.Namespace, parts.Operation
	}
	operation = call.Operation
	if operation == "" {
		operation = call.Name
	}
	if call.Namespace == "" || operation == "" {
		return call.Namespace, operation
	}
	parts, _ := d.resolver.Resolve(call.Namespace + toolname.Separator + operation)
	return parts.Namespace, parts.Operation
}

type runFunc func(ctx context.Context) executor.Result

// route picks the executor or remote server for a call. It performs no
// writes.
func (d *Dispatcher) route(namespace, operation string, call Call) (runFunc, *toolerr.Error) {
	if ex, ok := d.registry.Resolve(namespace); ok {
		if !ex.HasAPI(operation) {
			return nil, toolerr.New(toolerr.KindAPINotFound, "Unknown API: %s", operation)
		}
		return func(ctx context.Context) executor.Result {
			return ex.Invoke(ctx, operation, call.Args, call.Context())
		}, nil
	}
	if desc, ok := d.servers.Get(namespace); ok {
		return func(ctx context.Context) executor.Result {
			return d.runRemote(ctx, desc, operation, call.Args)
		}, nil
	}
	if namespace == "" {
		return nil, toolerr.New(toolerr.KindAPINotFound, "Unknown API: %s", operation)
	}
	return nil, toolerr.New(toolerr.KindAPINotFound, "Unknown API: %s%s%s", namespace, toolname.Separator, operation)
}

// Dispatch runs one call through its full lifecycle and returns the settled
// outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (out Outcome) {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	start := time.Now()
	ns, op := d.Resolve(call)
	out = Outcome{CallID: call.ID, Namespace: ns, Operation: op, Phase: PhasePending}
	logger := d.logger.With("call_id", call.ID, "namespace", ns, "operation", op)

	run, rerr := d.route(ns, op, call)
	if rerr != nil {
		logger.Warn("tool call not routable", "error", rerr)
		out.Phase = PhaseFailed
		out.Result = executor.Fail(rerr)
		d.metrics.observe("unknown", out.Phase, time.Since(start))
		return out
	}

	// Settle writes must land even when ctx is cancelled.
	store := context.WithoutCancel(ctx)

	if err := ctx.Err(); err != nil {
		logger.Debug("tool call cancelled before start")
		out.Phase = PhaseCancelled
		out.Result = executor.Stopped()
		d.write(logger, "set phase", d.side.SetPhase(store, call.ID, PhaseCancelled))
		d.write(logger, "clear loading", d.side.SetLoading(store, call.ID, false))
		d.metrics.observe(ns, out.Phase, time.Since(start))
		return out
	}

	d.metrics.start()
	out.Phase = PhaseRunning
	d.write(logger, "set phase", d.side.SetPhase(store, call.ID, PhaseRunning))
	d.write(logger, "set loading", d.side.SetLoading(store, call.ID, true))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool call panicked", "panic", r, "stack", string(debug.Stack()))
			te := &toolerr.Error{Kind: toolerr.KindPluginServerError, Message: fmt.Sprintf("panic: %v", r), Body: r}
			out.Phase = PhaseFailed
			out.Result = executor.Fail(te)
			d.write(logger, "set plugin error", d.side.SetPluginError(store, call.ID, te))
		}
		d.write(logger, "set phase", d.side.SetPhase(store, call.ID, out.Phase))
		d.write(logger, "clear loading", d.side.SetLoading(store, call.ID, false))
		d.metrics.done()
		d.metrics.observe(ns, out.Phase, time.Since(start))
		logger.Debug("tool call settled", "phase", out.Phase.String(), "elapsed", time.Since(start))
	}()

	res := run(ctx)
	out.Result = res

	switch {
	case res.Stop:
		out.Phase = PhaseCancelled
	case res.Success:
		out.Phase = PhaseSucceeded
		if err := d.conv.UpdateContent(store, call.MessageID, call.ID, res.Content); err != nil {
			logger.Error("apply tool content failed", "message_id", call.MessageID, "error", err)
		}
		if res.State != nil {
			d.write(logger, "set plugin state", d.side.SetPluginState(store, call.ID, res.State))
		}
	default:
		out.Phase = PhaseFailed
		if res.Error == nil {
			res.Error = toolerr.New(toolerr.KindPluginServerError, "%s failed without an error", op)
			out.Result = res
		}
		logger.Info("tool call failed", "kind", string(res.Error.Kind), "error", res.Error.Message)
		d.write(logger, "set plugin error", d.side.SetPluginError(store, call.ID, res.Error))
	}
	return out
}

func (d *Dispatcher) write(logger *slog.Logger, what string, err error) {
	if err != nil {
		logger.Warn("side channel write failed", "op", what, "error", err)
	}
}

// DispatchAll runs calls concurrently. Outcomes are returned in input order;
// their effects are applied as each call completes.
func (d *Dispatcher) DispatchAll(ctx context.Context, calls []Call) []Outcome {
	out := make([]Outcome, len(calls))
	var g errgroup.Group
	if d.maxConcurrency > 0 {
		g.SetLimit(d.maxConcurrency)
	}
	for i, call := range calls {
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		g.Go(func() error {
			out[i] = d.Dispatch(ctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// InvokeBuiltin runs an in-process operation directly, without lifecycle
// tracking. Hashed operation names are resolved against the executor's
// declared operations.
func (d *Dispatcher) InvokeBuiltin(ctx context.Context, identifier, operation string, args map[string]any, cc executor.Context) executor.Result {
	ex, ok := d.registry.Resolve(identifier)
	if !ok {
		return executor.Fail(toolerr.New(toolerr.KindAPINotFound, "Unknown API: %s%s%s", identifier, toolname.Separator, operation))
	}
	if toolname.IsHashed(operation) {
		parts, _ := d.resolver.Resolve(identifier + toolname.Separator + operation)
		operation = parts.Operation
	}
	return ex.Invoke(ctx, operation, args, cc)
}

// ListRemoteCapabilities discovers the tools, resources and prompts of a
// server.
func (d *Dispatcher) ListRemoteCapabilities(ctx context.Context, desc remote.Descriptor) (remote.Manifest, error) {
	return d.remote.ListCapabilities(ctx, desc)
}

// CallRemoteTool calls a remote tool and normalizes its content. A result
// the server flags as an error is returned un-normalized together with a
// RemoteToolError.
func (d *Dispatcher) CallRemoteTool(ctx context.Context, desc remote.Descriptor, name string, args map[string]any) (Normalized, error) {
	res, err := d.remote.CallTool(ctx, desc, name, args)
	if err != nil {
		return Normalized{}, err
	}
	if te := res.Err(name); te != nil {
		return Normalized{
			Blocks:     res.Content,
			Text:       content.ToString(res.Content, d.baseURL),
			Structured: res.Structured,
			IsError:    true,
		}, te
	}

	blocks := d.normalizer.Normalize(ctx, res.Content)
	if err := ctx.Err(); err != nil {
		return Normalized{}, toolerr.Wrap(toolerr.KindCancelled, err, fmt.Sprintf("call tool %s: %v", name, err))
	}
	return Normalized{
		Blocks:     blocks,
		Text:       content.ToString(blocks, d.baseURL),
		Artifacts:  content.Artifacts(blocks),
		Structured: res.Structured,
	}, nil
}

func (d *Dispatcher) runRemote(ctx context.Context, desc remote.Descriptor, tool string, args map[string]any) executor.Result {
	norm, err := d.CallRemoteTool(ctx, desc, tool, args)
	if err != nil {
		if toolerr.KindOf(err, toolerr.KindTransportError) == toolerr.KindCancelled {
			return executor.Stopped()
		}
		return executor.Fail(toolerr.From(err, toolerr.KindTransportError))
	}
	return executor.OK(norm.Text, norm)
}
