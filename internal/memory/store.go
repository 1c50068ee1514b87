// Package memory provides the agent's persistent memory collaborator:
// a namespaced key/value store with full-text search, backed by SQLite.
// The agent core consumes it through Get/Set/Delete/Search; it never
// persists anything directly itself.
package memory

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one stored memory record.
type Entry struct {
	Namespace string
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Store is a SQLite-backed memory store. All public methods are safe
// for concurrent use (SQLite serializes writes).
type Store struct {
	db         *sql.DB
	logger     *slog.Logger
	ftsEnabled bool
}

// NewStore opens (or creates) the store at dbPath. ":memory:" gives an
// ephemeral store, which the tests use.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, logger: logger.With("component", "memory")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Full-text search degrades gracefully when this SQLite build
	// lacks FTS5: Search falls back to LIKE matching.
	s.ftsEnabled = s.tryEnableFTS()
	if !s.ftsEnabled {
		s.logger.Warn("FTS5 not available — memory search will use slower LIKE matching")
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (namespace, key)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// tryEnableFTS creates the FTS5 index table. Returns false when the
// build has no FTS5 support.
func (s *Store) tryEnableFTS() bool {
	_, err := s.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
			namespace, key, value
		);
	`)
	return err == nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Set stores or replaces a value.
func (s *Store) Set(namespace, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO memories (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, namespace, key, value, now)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", namespace, key, err)
	}

	if s.ftsEnabled {
		// Keep the index in sync: delete any stale row, then insert.
		_, _ = s.db.Exec(`DELETE FROM memories_fts WHERE namespace = ? AND key = ?`, namespace, key)
		_, _ = s.db.Exec(`INSERT INTO memories_fts (namespace, key, value) VALUES (?, ?, ?)`,
			namespace, key, value)
	}
	return nil
}

// Get returns the stored value, or ("", nil) when the key is absent.
func (s *Store) Get(namespace, key string) (string, error) {
	var value string
	err := s.db.QueryRow(`
		SELECT value FROM memories WHERE namespace = ? AND key = ?
	`, namespace, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(namespace, key string) error {
	if _, err := s.db.Exec(`DELETE FROM memories WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", namespace, key, err)
	}
	if s.ftsEnabled {
		_, _ = s.db.Exec(`DELETE FROM memories_fts WHERE namespace = ? AND key = ?`, namespace, key)
	}
	return nil
}

// Search returns entries whose value matches the query, newest first,
// capped at limit (default 10).
func (s *Store) Search(namespace, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows *sql.Rows
	var err error
	if s.ftsEnabled {
		rows, err = s.db.Query(`
			SELECT m.namespace, m.key, m.value, m.updated_at
			FROM memories_fts f
			JOIN memories m ON m.namespace = f.namespace AND m.key = f.key
			WHERE memories_fts MATCH ? AND f.namespace = ?
			ORDER BY m.updated_at DESC
			LIMIT ?
		`, ftsQuote(query), namespace, limit)
	} else {
		rows, err = s.db.Query(`
			SELECT namespace, key, value, updated_at
			FROM memories
			WHERE namespace = ? AND value LIKE ?
			ORDER BY updated_at DESC
			LIMIT ?
		`, namespace, "%"+query+"%", limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", namespace, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.Namespace, &e.Key, &e.Value, &ts); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Keys lists the keys in a namespace, sorted.
func (s *Store) Keys(namespace string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT key FROM memories WHERE namespace = ? ORDER BY key
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", namespace, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ftsQuote wraps each query term in double quotes so user text cannot
// inject FTS5 query syntax.
func ftsQuote(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
