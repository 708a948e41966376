package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// SQLiteStore is the SQLite-backed key/value store.
// Thread-safe; the engine runs one operation at a time but callers such as
// the CLI signal handler may touch it concurrently.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// NewSQLiteStore creates a new in-memory store. State is lost on Close;
// use NewSQLiteStoreWithDSN with a file path for durable storage.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the value stored under key, or ("", false, nil) when absent.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, overwriting any previous value.
func (s *SQLiteStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes key from the store.
func (s *SQLiteStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// likeEscaper neutralizes LIKE wildcards; session tokens are full of
// underscores.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Keys returns the keys matching prefix in lexical order.
func (s *SQLiteStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT key FROM kv WHERE key LIKE ? || '%' ESCAPE '\' ORDER BY key`, likeEscaper.Replace(prefix))
	if err != nil {
		return nil, fmt.Errorf("keys %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Export serializes the full namespace to JSON bytes.
// This is a portable export that doesn't depend on sqlite3 serialization APIs.
func (s *SQLiteStore) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT key, value FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	defer rows.Close()

	data := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		data[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return json.Marshal(data)
}

// Import restores the namespace from an exported JSON byte slice.
// Clears all existing entries and re-inserts from the export.
func (s *SQLiteStore) Import(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(data) == 0 {
		return nil
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("import unmarshal: %w", err)
	}

	if _, err := s.db.Exec(`DELETE FROM kv`); err != nil {
		return fmt.Errorf("clear kv: %w", err)
	}

	now := time.Now().UnixMilli()
	for k, v := range entries {
		if _, err := s.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)`, k, v, now); err != nil {
			return fmt.Errorf("import key %s: %w", k, err)
		}
	}

	return nil
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
