// Package toolerr defines the closed error taxonomy shared by executors, the
// remote tool client, the content normalizer and the dispatcher.
package toolerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a tool failure. The set is closed.
type Kind string

const (
	// KindAPINotFound: the operation is not in the executor's enumeration.
	KindAPINotFound Kind = "ApiNotFound"

	// KindMethodNotImplemented: the operation is declared but not bound.
	KindMethodNotImplemented Kind = "MethodNotImplemented"

	// KindTransportUnsupported: the descriptor cannot be served in this host
	// or is incomplete. Never retried.
	KindTransportUnsupported Kind = "TransportUnsupported"

	// KindTransportError: spawn, connection or network failure.
	KindTransportError Kind = "TransportError"

	// KindRemoteToolError: the remote server reported a domain failure.
	KindRemoteToolError Kind = "RemoteToolError"

	// KindPluginServerError: an in-process executor method failed.
	KindPluginServerError Kind = "PluginServerError"

	// KindCancelled marks cancellation. Results carry it as Stop=true, never
	// as a stored error.
	KindCancelled Kind = "Cancelled"
)

// Sentinel errors, one per kind, for errors.Is checks.
var (
	ErrAPINotFound          = errors.New("api not found")
	ErrMethodNotImplemented = errors.New("method not implemented")
	ErrTransportUnsupported = errors.New("transport unsupported")
	ErrTransport            = errors.New("transport error")
	ErrRemoteTool           = errors.New("remote tool error")
	ErrPluginServer         = errors.New("plugin server error")
	ErrCancelled            = errors.New("cancelled")
)

var sentinels = map[Kind]error{
	KindAPINotFound:          ErrAPINotFound,
	KindMethodNotImplemented: ErrMethodNotImplemented,
	KindTransportUnsupported: ErrTransportUnsupported,
	KindTransportError:       ErrTransport,
	KindRemoteToolError:      ErrRemoteTool,
	KindPluginServerError:    ErrPluginServer,
	KindCancelled:            ErrCancelled,
}

// Error is the uniform error shape attached to failed tool results.
type Error struct {
	// Kind classifies the failure.
	Kind Kind `json:"type"`

	// Message is the human-readable message shown next to the call.
	Message string `json:"message"`

	// Body preserves the original failure payload, if any.
	Body any `json:"body,omitempty"`

	// Err is the underlying error, if any. Not serialized.
	Err error `json:"-"`
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around err. The message defaults to
// err's text and the body to err itself.
func Wrap(kind Kind, err error, message string) *Error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &Error{Kind: kind, Message: message, Body: err, Err: err}
}

// WithBody returns a copy of e with Body set.
func (e *Error) WithBody(body any) *Error {
	out := *e
	out.Body = body
	return &out
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && target == sentinel
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// KindOf classifies err. Context cancellation and deadlines are KindCancelled;
// unclassified errors default to fallback.
func KindOf(err error, fallback Kind) Kind {
	if err == nil {
		return ""
	}
	if te, ok := As(err); ok {
		return te.Kind
	}
	if IsCancellation(err) {
		return KindCancelled
	}
	return fallback
}

// From converts any error into an *Error, using fallback for errors that do
// not carry a kind.
func From(err error, fallback Kind) *Error {
	if err == nil {
		return nil
	}
	if te, ok := As(err); ok {
		return te
	}
	return Wrap(KindOf(err, fallback), err, "")
}

// IsCancellation reports whether err stems from context cancellation or an
// expired deadline.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrCancelled)
}

// Retryable reports whether a caller's own retry policy may retry kind.
// This module never retries internally.
func Retryable(kind Kind) bool {
	return kind == KindTransportError
}
