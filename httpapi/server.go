// Package httpapi exposes a dispatcher over JSON/HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /metrics
//	POST /v1/dispatch
//	GET  /v1/calls/{id}
//	POST /v1/builtin/{identifier}/{operation}
//	GET  /v1/servers
//	POST /v1/servers/{name}/capabilities
//	POST /v1/servers/{name}/tools/{tool}
//	GET  /v1/tools?q=&limit=
//	GET  /v1/artifacts/{id}
//
// Failures are written as a toolerr.Error body under "error", with the
// HTTP status derived from its kind.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/toolcall/catalog"
	"github.com/jonwraymond/toolcall/content"
	"github.com/jonwraymond/toolcall/dispatch"
	"github.com/jonwraymond/toolcall/executor"
	"github.com/jonwraymond/toolcall/logging"
	"github.com/jonwraymond/toolcall/storage"
	"github.com/jonwraymond/toolcall/toolerr"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 4 << 20

// DefaultSearchLimit applies to /v1/tools when limit is absent.
const DefaultSearchLimit = 20

// ArtifactPath is the route prefix persisted artifacts are served under.
const ArtifactPath = "/v1/artifacts/"

// ArtifactURL returns the path that serves a. It is meant for
// content.Normalizer.URLFor so rendered links point back at this server.
func ArtifactURL(a content.Artifact) string {
	return ArtifactPath + a.ID
}

// Option configures a Server.
type Option func(*Server)

// WithCatalog enables /v1/tools.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithArtifacts enables /v1/artifacts.
func WithArtifacts(st storage.Store) Option {
	return func(s *Server) { s.artifacts = st }
}

// WithGatherer sets what /metrics exposes. Defaults to the prometheus
// default gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server serves the HTTP API.
type Server struct {
	dispatcher *dispatch.Dispatcher
	catalog    *catalog.Catalog
	artifacts  storage.Store
	gatherer   prometheus.Gatherer
	logger     *slog.Logger
}

// New creates a Server around d.
func New(d *dispatch.Dispatcher, opts ...Option) *Server {
	s := &Server{dispatcher: d}
	for _, opt := range opts {
		opt(s)
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(api chi.Router) {
		api.Post("/dispatch", s.dispatch)
		api.Get("/calls/{id}", s.getCall)
		api.Post("/builtin/{identifier}/{operation}", s.invokeBuiltin)
		api.Route("/servers", func(r chi.Router) {
			r.Get("/", s.listServers)
			r.Post("/{name}/capabilities", s.listCapabilities)
			r.Post("/{name}/tools/{tool}", s.callTool)
		})
		api.Get("/tools", s.listTools)
		api.Get("/artifacts/{id}", s.getArtifact)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// wireCall accepts model-produced arguments either as an object or as the
// raw JSON string the model emitted.
type wireCall struct {
	dispatch.Call
	Arguments *string `json:"arguments,omitempty"`
}

type dispatchRequest struct {
	Calls []wireCall `json:"calls"`
}

type dispatchResponse struct {
	Outcomes []dispatch.Outcome `json:"outcomes"`
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	calls := make([]dispatch.Call, len(req.Calls))
	for i, wc := range req.Calls {
		calls[i] = wc.Call
		if wc.Arguments != nil {
			calls[i].Args = dispatch.ParseArgs(*wc.Arguments)
		}
	}
	writeJSON(w, http.StatusOK, dispatchResponse{Outcomes: s.dispatcher.DispatchAll(r.Context(), calls)})
}

func (s *Server) getCall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok, err := s.dispatcher.SideChannel().Get(r.Context(), id)
	switch {
	case err != nil:
		writeError(w, toolerr.Wrap(toolerr.KindPluginServerError, err, ""))
	case !ok:
		writeError(w, toolerr.New(toolerr.KindAPINotFound, "Unknown call: %s", id))
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

type builtinRequest struct {
	Args    map[string]any   `json:"args"`
	Context executor.Context `json:"context"`
}

func (s *Server) invokeBuiltin(w http.ResponseWriter, r *http.Request) {
	var req builtinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res := s.dispatcher.InvokeBuiltin(r.Context(),
		chi.URLParam(r, "identifier"), chi.URLParam(r, "operation"), req.Args, req.Context)
	status := http.StatusOK
	if res.Error != nil {
		status = Status(res.Error.Kind)
	}
	writeJSON(w, status, res)
}

func (s *Server) listServers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"servers": s.dispatcher.Servers().Names()})
}

func (s *Server) listCapabilities(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	desc, ok := s.dispatcher.Servers().Get(name)
	if !ok {
		writeError(w, toolerr.New(toolerr.KindAPINotFound, "Unknown server: %s", name))
		return
	}
	m, err := s.dispatcher.ListRemoteCapabilities(r.Context(), desc)
	if err != nil {
		writeError(w, toolerr.From(err, toolerr.KindTransportError))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type toolRequest struct {
	Args map[string]any `json:"args"`
}

type toolErrorResponse struct {
	Error  *toolerr.Error      `json:"error"`
	Result dispatch.Normalized `json:"result"`
}

func (s *Server) callTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	desc, ok := s.dispatcher.Servers().Get(name)
	if !ok {
		writeError(w, toolerr.New(toolerr.KindAPINotFound, "Unknown server: %s", name))
		return
	}
	var req toolRequest
	if !decodeBody(w, r, &req) {
		return
	}
	norm, err := s.dispatcher.CallRemoteTool(r.Context(), desc, chi.URLParam(r, "tool"), req.Args)
	if err != nil {
		te := toolerr.From(err, toolerr.KindTransportError)
		if norm.IsError {
			writeJSON(w, Status(te.Kind), toolErrorResponse{Error: te, Result: norm})
			return
		}
		writeError(w, te)
		return
	}
	writeJSON(w, http.StatusOK, norm)
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, toolerr.New(toolerr.KindMethodNotImplemented, "tool catalog is not enabled"))
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusOK, map[string]any{"tools": s.catalog.Tools()})
		return
	}
	limit := DefaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	hits, err := s.catalog.Search(q, limit)
	if err != nil {
		writeError(w, toolerr.Wrap(toolerr.KindPluginServerError, err, ""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": hits})
}

func (s *Server) getArtifact(w http.ResponseWriter, r *http.Request) {
	if s.artifacts == nil {
		writeError(w, toolerr.New(toolerr.KindMethodNotImplemented, "artifact storage is not enabled"))
		return
	}
	id := chi.URLParam(r, "id")
	obj, err := s.artifacts.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, toolerr.New(toolerr.KindAPINotFound, "Unknown artifact: %s", id))
		return
	}
	if err != nil {
		writeError(w, toolerr.Wrap(toolerr.KindPluginServerError, err, ""))
		return
	}
	if obj.MIMEType != "" {
		w.Header().Set("Content-Type", obj.MIMEType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
}

// Status maps an error kind to an HTTP status code.
func Status(kind toolerr.Kind) int {
	switch kind {
	case toolerr.KindAPINotFound:
		return http.StatusNotFound
	case toolerr.KindMethodNotImplemented:
		return http.StatusNotImplemented
	case toolerr.KindTransportUnsupported:
		return http.StatusUnprocessableEntity
	case toolerr.KindTransportError, toolerr.KindRemoteToolError:
		return http.StatusBadGateway
	case toolerr.KindCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, e *toolerr.Error) {
	writeJSON(w, Status(e.Kind), map[string]*toolerr.Error{"error": e})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
