// Package sqlite is a durable artifact store on modernc.org/sqlite, a
// pure-Go SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonwraymond/toolcall/content"
	"github.com/jonwraymond/toolcall/storage"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	key        TEXT NOT NULL UNIQUE,
	mime_type  TEXT NOT NULL DEFAULT '',
	data       BLOB NOT NULL,
	created_at INTEGER NOT NULL
)`

// Store persists artifacts in a single SQLite table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and ensures the schema.
// The parent directory must exist.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != MemoryPath {
		dir := filepath.Dir(path)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, fmt.Errorf("sqlite.Open: parent directory %q does not exist", dir)
		}
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: open %q: %w", path, err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.Open: migrate %q: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Put inserts an artifact. Keys are unique.
func (s *Store) Put(ctx context.Context, key string, data []byte, mimeType string) (content.Artifact, error) {
	if strings.TrimSpace(key) == "" {
		return content.Artifact{}, storage.ErrEmptyKey
	}
	if data == nil {
		data = []byte{}
	}
	art := content.Artifact{ID: uuid.NewString(), Key: key}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, key, mime_type, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		art.ID, key, mimeType, data, s.now().UTC().UnixMilli())
	if err != nil {
		return content.Artifact{}, fmt.Errorf("sqlite: put %q: %w", key, err)
	}
	return art, nil
}

// Get loads the artifact with id.
func (s *Store) Get(ctx context.Context, id string) (storage.Object, error) {
	var (
		obj     storage.Object
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, key, mime_type, data, created_at FROM artifacts WHERE id = ?`, id,
	).Scan(&obj.ID, &obj.Key, &obj.MIMEType, &obj.Data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Object{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Object{}, fmt.Errorf("sqlite: get %q: %w", id, err)
	}
	obj.CreatedAt = time.UnixMilli(created).UTC()
	return obj, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ storage.Store = (*Store)(nil)
