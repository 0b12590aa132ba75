// Package memory is an in-process artifact store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/toolcall/content"
	"github.com/jonwraymond/toolcall/storage"
)

// Store keeps artifacts in a map.
type Store struct {
	mu      sync.RWMutex
	objects map[string]storage.Object

	// FailPut, when set, is consulted before each Put; a non-nil error
	// fails that Put.
	FailPut func(key, mimeType string) error
}

// New creates an empty Store.
func New() *Store {
	return &Store{objects: make(map[string]storage.Object)}
}

// Put stores a copy of data under a new id.
func (s *Store) Put(ctx context.Context, key string, data []byte, mimeType string) (content.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return content.Artifact{}, err
	}
	if strings.TrimSpace(key) == "" {
		return content.Artifact{}, storage.ErrEmptyKey
	}
	if s.FailPut != nil {
		if err := s.FailPut(key, mimeType); err != nil {
			return content.Artifact{}, err
		}
	}

	obj := storage.Object{
		Artifact:  content.Artifact{ID: uuid.NewString(), Key: key},
		MIMEType:  mimeType,
		Data:      append([]byte(nil), data...),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.objects[obj.ID] = obj
	s.mu.Unlock()
	return obj.Artifact, nil
}

// Get returns the artifact with id.
func (s *Store) Get(ctx context.Context, id string) (storage.Object, error) {
	if err := ctx.Err(); err != nil {
		return storage.Object{}, err
	}
	s.mu.RLock()
	obj, ok := s.objects[id]
	s.mu.RUnlock()
	if !ok {
		return storage.Object{}, storage.ErrNotFound
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return obj, nil
}

// Len returns the number of stored artifacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

var _ storage.Store = (*Store)(nil)
