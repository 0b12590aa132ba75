// Package redisstore is a dispatch.SideChannel backed by Redis hashes, for
// deployments where several processes dispatch calls of the same
// conversation.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/jonwraymond/toolcall/dispatch"
	"github.com/jonwraymond/toolcall/toolerr"
)

const (
	fieldPhase     = "phase"
	fieldLoading   = "loading"
	fieldState     = "state"
	fieldError     = "error"
	fieldUpdatedAt = "updated_at"
)

// DefaultPrefix is prepended to every call key.
const DefaultPrefix = "toolcall:call:"

// Store implements dispatch.SideChannel using one Redis hash per call.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires call records ttl after their last write.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient creates a Store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(callID string) string {
	return s.prefix + callID
}

func (s *Store) hset(ctx context.Context, callID string, values ...any) error {
	values = append(values, fieldUpdatedAt, s.now().UTC().UnixMilli())

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(callID), values...)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(callID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: write %s: %w", callID, err)
	}
	return nil
}

// SetPhase implements dispatch.SideChannel.
func (s *Store) SetPhase(ctx context.Context, callID string, phase dispatch.Phase) error {
	return s.hset(ctx, callID, fieldPhase, phase.String())
}

// SetLoading implements dispatch.SideChannel.
func (s *Store) SetLoading(ctx context.Context, callID string, loading bool) error {
	return s.hset(ctx, callID, fieldLoading, strconv.FormatBool(loading))
}

// SetPluginState implements dispatch.SideChannel. State is stored as JSON.
func (s *Store) SetPluginState(ctx context.Context, callID string, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redisstore: marshal state: %w", err)
	}
	return s.hset(ctx, callID, fieldState, data)
}

// SetPluginError implements dispatch.SideChannel. A body that cannot be
// encoded as JSON is stored as its string form.
func (s *Store) SetPluginError(ctx context.Context, callID string, e *toolerr.Error) error {
	data, err := json.Marshal(e)
	if err != nil {
		flat := *e
		flat.Body = fmt.Sprint(e.Body)
		if data, err = json.Marshal(&flat); err != nil {
			return fmt.Errorf("redisstore: marshal error: %w", err)
		}
	}
	return s.hset(ctx, callID, fieldError, data)
}

// Get implements dispatch.SideChannel.
func (s *Store) Get(ctx context.Context, callID string) (dispatch.Record, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key(callID)).Result()
	if err != nil && !errors.Is(err, backend.Nil) {
		return dispatch.Record{}, false, fmt.Errorf("redisstore: read %s: %w", callID, err)
	}
	if len(fields) == 0 {
		return dispatch.Record{}, false, nil
	}

	rec := dispatch.Record{CallID: callID}
	if v, ok := fields[fieldPhase]; ok {
		if phase, ok := dispatch.ParsePhase(v); ok {
			rec.Phase = phase
		}
	}
	if v, ok := fields[fieldLoading]; ok {
		rec.Loading, _ = strconv.ParseBool(v)
	}
	if v, ok := fields[fieldState]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &rec.State); err != nil {
			return dispatch.Record{}, false, fmt.Errorf("redisstore: decode state: %w", err)
		}
	}
	if v, ok := fields[fieldError]; ok && v != "" {
		var te toolerr.Error
		if err := json.Unmarshal([]byte(v), &te); err != nil {
			return dispatch.Record{}, false, fmt.Errorf("redisstore: decode error: %w", err)
		}
		rec.Error = &te
	}
	if v, ok := fields[fieldUpdatedAt]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			rec.UpdatedAt = time.UnixMilli(ms).UTC()
		}
	}
	return rec, true, nil
}

// Delete implements dispatch.SideChannel.
func (s *Store) Delete(ctx context.Context, callID string) error {
	return s.client.Del(ctx, s.key(callID)).Err()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ dispatch.SideChannel = (*Store)(nil)
