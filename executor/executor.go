package executor

import (
	"context"

	"github.com/jonwraymond/toolcall/toolerr"
)

// Context is the per-call ambient data handed to an operation. It is built
// fresh for each dispatch and never mutated during the call. Cancellation
// travels in the accompanying context.Context.
type Context struct {
	// MessageID is the conversation message the call belongs to.
	MessageID string `json:"messageId"`

	// OperationID identifies the enclosing user-initiated operation (turn).
	OperationID string `json:"operationId,omitempty"`

	// TopicID scopes the call to a topic, when the conversation has one.
	TopicID string `json:"topicId,omitempty"`
}

// Result is the uniform outcome of an operation.
//
// When Success is true, Content and State are meaningful. When Success is
// false, Error is meaningful unless Stop is set. Stop marks an abandoned call
// and is never a domain error.
type Result struct {
	Success bool           `json:"success"`
	Content string         `json:"content,omitempty"`
	State   any            `json:"state,omitempty"`
	Error   *toolerr.Error `json:"error,omitempty"`
	Stop    bool           `json:"stop,omitempty"`
}

// OK returns a successful Result.
func OK(content string, state any) Result {
	return Result{Success: true, Content: content, State: state}
}

// Fail returns a failed Result carrying err.
func Fail(err *toolerr.Error) Result {
	return Result{Success: false, Error: err}
}

// Stopped returns the Result of a call abandoned due to cancellation.
func Stopped() Result {
	return Result{Success: false, Stop: true}
}

// Method implements one operation.
type Method func(ctx context.Context, args map[string]any, cc Context) (Result, error)

// Executor is an in-process tool family.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Invoke must honor cancellation at entry.
// - Errors: Invoke never panics and never returns faults outside Result.
// - Ownership: args are read-only; the returned Result is caller-owned.
type Executor interface {
	// Identifier returns the namespace this executor owns.
	Identifier() string

	// HasAPI reports whether name is a declared operation.
	HasAPI(name string) bool

	// ListAPIs returns the declared operations in declaration order.
	ListAPIs() []string

	// Invoke runs the named operation.
	Invoke(ctx context.Context, name string, args map[string]any, cc Context) Result
}

// APIDoc describes one operation for catalogs and model tool schemas.
type APIDoc struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Describer is implemented by executors that publish operation metadata.
type Describer interface {
	DescribeAPIs() []APIDoc
}
