package notebook

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDocumentNotFound is returned when a document does not exist in the
// caller's topic.
var ErrDocumentNotFound = errors.New("document not found")

// Document is a notebook entry.
type Document struct {
	ID        string    `json:"id"`
	TopicID   string    `json:"topicId,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Patch holds optional document updates.
type Patch struct {
	Title   *string
	Content *string
}

// Store persists notebook documents.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: lookups of unknown ids (or ids from another topic) return ErrDocumentNotFound.
type Store interface {
	Create(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, topicID, id string) (Document, error)
	Update(ctx context.Context, topicID, id string, patch Patch) (Document, error)
	List(ctx context.Context, topicID string) ([]Document, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
	now  func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]Document),
		now:  time.Now,
	}
}

// Create stores doc, assigning an id and timestamps.
func (s *MemoryStore) Create(_ context.Context, doc Document) (Document, error) {
	now := s.now().UTC()
	doc.ID = uuid.NewString()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()
	return doc, nil
}

// Get returns the document with id in topicID.
func (s *MemoryStore) Get(_ context.Context, topicID, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok || doc.TopicID != topicID {
		return Document{}, ErrDocumentNotFound
	}
	return doc, nil
}

// Update applies patch to the document with id in topicID.
func (s *MemoryStore) Update(_ context.Context, topicID, id string, patch Patch) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok || doc.TopicID != topicID {
		return Document{}, ErrDocumentNotFound
	}
	if patch.Title != nil {
		doc.Title = *patch.Title
	}
	if patch.Content != nil {
		doc.Content = *patch.Content
	}
	doc.UpdatedAt = s.now().UTC()
	s.docs[id] = doc
	return doc, nil
}

// List returns the documents of topicID, oldest first.
func (s *MemoryStore) List(_ context.Context, topicID string) ([]Document, error) {
	s.mu.RLock()
	out := make([]Document, 0)
	for _, doc := range s.docs {
		if doc.TopicID == topicID {
			out = append(out, doc)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
