package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/jonwraymond/toolcall/toolerr"
)

// SideChannel stores per-call lifecycle data outside the message body.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use; writes for
//   different call ids never affect each other.
// - Errors: Get reports a missing call with ok=false and a nil error.
// - Ownership: State values are stored as given and must not be mutated
//   after being handed over.
type SideChannel interface {
	SetPhase(ctx context.Context, callID string, phase Phase) error
	SetLoading(ctx context.Context, callID string, loading bool) error
	SetPluginState(ctx context.Context, callID string, state any) error
	SetPluginError(ctx context.Context, callID string, err *toolerr.Error) error
	Get(ctx context.Context, callID string) (Record, bool, error)
	Delete(ctx context.Context, callID string) error
}

const shardCount = 16

// MemoryStore is a sharded in-process SideChannel.
type MemoryStore struct {
	shards [shardCount]memoryShard
	now    func() time.Time
}

type memoryShard struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for i := range s.shards {
		s.shards[i].records = make(map[string]*Record)
	}
	return s
}

func (s *MemoryStore) shard(callID string) *memoryShard {
	return &s.shards[xxhash.Sum64String(callID)%shardCount]
}

func (s *MemoryStore) update(callID string, fn func(*Record)) {
	sh := s.shard(callID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	rec, ok := sh.records[callID]
	if !ok {
		rec = &Record{CallID: callID}
		sh.records[callID] = rec
	}
	fn(rec)
	rec.UpdatedAt = s.now().UTC()
}

// SetPhase implements SideChannel.
func (s *MemoryStore) SetPhase(_ context.Context, callID string, phase Phase) error {
	s.update(callID, func(r *Record) { r.Phase = phase })
	return nil
}

// SetLoading implements SideChannel.
func (s *MemoryStore) SetLoading(_ context.Context, callID string, loading bool) error {
	s.update(callID, func(r *Record) { r.Loading = loading })
	return nil
}

// SetPluginState implements SideChannel.
func (s *MemoryStore) SetPluginState(_ context.Context, callID string, state any) error {
	s.update(callID, func(r *Record) { r.State = state })
	return nil
}

// SetPluginError implements SideChannel.
func (s *MemoryStore) SetPluginError(_ context.Context, callID string, err *toolerr.Error) error {
	s.update(callID, func(r *Record) { r.Error = err })
	return nil
}

// Get implements SideChannel.
func (s *MemoryStore) Get(_ context.Context, callID string) (Record, bool, error) {
	sh := s.shard(callID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	rec, ok := sh.records[callID]
	if !ok {
		return Record{}, false, nil
	}
	return *rec, true, nil
}

// Delete implements SideChannel.
func (s *MemoryStore) Delete(_ context.Context, callID string) error {
	sh := s.shard(callID)
	sh.mu.Lock()
	delete(sh.records, callID)
	sh.mu.Unlock()
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.records)
		sh.mu.Unlock()
	}
	return n
}

var _ SideChannel = (*MemoryStore)(nil)
