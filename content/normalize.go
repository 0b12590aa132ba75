package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/toolcall/logging"
)

// Artifact is a persisted binary payload.
type Artifact struct {
	ID  string `json:"id"`
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
}

// Storage persists binary payloads.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: implementations must honor cancellation.
// - Errors: a failed Put must not leave a partially visible artifact.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (Artifact, error)
}

// ErrNoStorage is reported for binary blocks when no Storage is configured.
var ErrNoStorage = errors.New("no artifact storage configured")

// DefaultPrefix is the root of artifact keys.
const DefaultPrefix = "files"

// DefaultConcurrency bounds concurrent Put calls per Normalize.
const DefaultConcurrency = 4

// Normalizer persists binary blocks.
type Normalizer struct {
	Storage     Storage
	Prefix      string
	Concurrency int
	Logger      *slog.Logger

	// URLFor builds the link of a persisted artifact when the storage did
	// not return one. Without it the storage key is used.
	URLFor func(Artifact) string

	// Now and NewID are replaceable for deterministic keys.
	Now   func() time.Time
	NewID func() string
}

// NewNormalizer returns a Normalizer with defaults applied.
func NewNormalizer(storage Storage) *Normalizer {
	return &Normalizer{Storage: storage}
}

func (n *Normalizer) applyDefaults() (prefix string, limit int, now func() time.Time, newID func() string, logger *slog.Logger) {
	prefix, limit, now, newID, logger = n.Prefix, n.Concurrency, n.Now, n.NewID, n.Logger
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return
}

// Normalize returns a copy of blocks with every binary block persisted.
// The result always has len(blocks) entries in the original order; a block
// that could not be persisted is replaced with an error block.
func (n *Normalizer) Normalize(ctx context.Context, blocks []Block) []Block {
	prefix, limit, now, newID, logger := n.applyDefaults()

	out := make([]Block, len(blocks))
	copy(out, blocks)

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range out {
		if !out[i].Binary() {
			continue
		}
		g.Go(func() error {
			b := out[i]
			key := ArtifactKey(prefix, b.Type, b.MIMEType, now(), newID())
			art, err := n.put(ctx, key, b)
			if err != nil {
				logger.Warn("artifact persistence failed", "index", i, "type", string(b.Type), "error", err)
				out[i] = ErrorBlock(fmt.Sprintf("failed to persist %s: %v", b.Type, err))
				return nil
			}
			b.ArtifactID = art.ID
			b.Key = art.Key
			b.URL = art.URL
			if b.URL == "" && n.URLFor != nil {
				b.URL = n.URLFor(art)
			}
			if b.URL == "" {
				b.URL = art.Key
			}
			b.Data = nil
			out[i] = b
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (n *Normalizer) put(ctx context.Context, key string, b Block) (Artifact, error) {
	if n.Storage == nil {
		return Artifact{}, ErrNoStorage
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	art, err := n.Storage.Put(ctx, key, b.Data, b.MIMEType)
	if err != nil {
		return Artifact{}, err
	}
	if art.Key == "" {
		art.Key = key
	}
	return art, nil
}

// Artifacts returns the artifacts referenced by blocks.
func Artifacts(blocks []Block) []Artifact {
	var out []Artifact
	for _, b := range blocks {
		if b.ArtifactID != "" {
			out = append(out, Artifact{ID: b.ArtifactID, Key: b.Key, URL: b.URL})
		}
	}
	return out
}

// ArtifactKey builds the storage key of a binary block:
// {prefix}/mcp/{images|audio}/{YYYY-MM-DD}/{id}.{ext}.
func ArtifactKey(prefix string, t Type, mimeType string, at time.Time, id string) string {
	dir, fallback := "images", "png"
	if t == TypeAudio {
		dir, fallback = "audio", "mp3"
	}
	return fmt.Sprintf("%s/mcp/%s/%s/%s.%s", prefix, dir, at.UTC().Format(time.DateOnly), id, extension(mimeType, fallback))
}

func extension(mimeType, fallback string) string {
	_, sub, ok := strings.Cut(mimeType, "/")
	if !ok {
		return fallback
	}
	sub, _, _ = strings.Cut(sub, ";")
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return fallback
	}
	return sub
}
