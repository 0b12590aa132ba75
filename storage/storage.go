// Package storage defines artifact stores for normalized tool output.
//
// Implementations live in subpackages: memory for tests and single-process
// use, sqlite for durable local storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/toolcall/content"
)

// ErrNotFound is returned by Get for unknown artifact ids.
var ErrNotFound = errors.New("artifact not found")

// ErrEmptyKey is returned by Put when the key is blank.
var ErrEmptyKey = errors.New("artifact key is required")

// Object is a stored artifact with its payload.
type Object struct {
	content.Artifact
	MIMEType  string
	Data      []byte
	CreatedAt time.Time
}

// Store is a readable artifact store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get returns ErrNotFound for unknown ids.
// - Ownership: Put copies data; Get returns caller-owned bytes.
type Store interface {
	content.Storage
	Get(ctx context.Context, id string) (Object, error)
	Close() error
}
