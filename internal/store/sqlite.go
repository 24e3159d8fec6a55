package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/pagelens/pagelens/internal/sanitize"
	"github.com/pagelens/pagelens/internal/selection"
)

const configKey = "config"

// SQLiteStore is the durable Store implementation.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite creates (or opens) the store database at path, creating parent
// directories as needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS credentials (
			provider TEXT PRIMARY KEY,
			value    TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS history (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT UNIQUE NOT NULL,
			created_at TEXT NOT NULL,
			text       TEXT NOT NULL,
			result     TEXT NOT NULL,
			context    TEXT NOT NULL,
			provider   TEXT NOT NULL,
			model      TEXT NOT NULL
		);`)
	return err
}

// LoadConfig merges the stored config JSON over defaults. Read failures
// degrade to defaults.
func (s *SQLiteStore) LoadConfig() Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, configKey).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Warn().Err(err).Msg("config read failed, using defaults")
		}
		return DefaultConfig()
	}
	return mergeConfig([]byte(raw))
}

// SaveConfig validates and persists the full configuration (full replace).
func (s *SQLiteStore) SaveConfig(cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		configKey, string(raw))
	return err
}

// Credential returns the stored API key for a provider.
func (s *SQLiteStore) Credential(provider string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM credentials WHERE provider = ?`, provider).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// SaveCredential validates the key shape and stores (or overwrites) a
// provider's API key.
func (s *SQLiteStore) SaveCredential(provider, value string) error {
	if provider == "" {
		return fmt.Errorf("provider is required")
	}
	if err := sanitize.APIKey(provider, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO credentials (provider, value) VALUES (?, ?)
		 ON CONFLICT(provider) DO UPDATE SET value = excluded.value`,
		provider, value)
	return err
}

// DeleteCredential removes a provider's API key.
func (s *SQLiteStore) DeleteCredential(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM credentials WHERE provider = ?`, provider)
	return err
}

// AppendHistory inserts an entry and evicts beyond the configured cap,
// oldest first.
func (s *SQLiteStore) AppendHistory(entry HistoryEntry) error {
	limit := s.LoadConfig().MaxHistoryItems

	ctxJSON, err := json.Marshal(entry.Context)
	if err != nil {
		return fmt.Errorf("failed to encode history context: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT INTO history (id, created_at, text, result, context, provider, model)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.Text, entry.Result, string(ctxJSON), entry.Provider, entry.Model)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	// FIFO eviction by insertion order.
	_, err = s.db.Exec(
		`DELETE FROM history WHERE seq NOT IN
		 (SELECT seq FROM history ORDER BY seq DESC LIMIT ?)`, limit)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}

// History returns entries most-recent-first.
func (s *SQLiteStore) History() ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, created_at, text, result, context, provider, model
		 FROM history ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var createdAt, ctxJSON string
		if err := rows.Scan(&e.ID, &createdAt, &e.Text, &e.Result, &ctxJSON, &e.Provider, &e.Model); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
		var ctx selection.Context
		if err := json.Unmarshal([]byte(ctxJSON), &ctx); err == nil {
			e.Context = ctx
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteHistory removes a single entry by ID.
func (s *SQLiteStore) DeleteHistory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM history WHERE id = ?`, id)
	return err
}

// ClearHistory removes all entries.
func (s *SQLiteStore) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM history`)
	return err
}

// Export serializes config and history. Credentials are never included.
func (s *SQLiteStore) Export() ([]byte, error) {
	history, err := s.History()
	if err != nil {
		return nil, err
	}
	return buildExport(s.LoadConfig(), history)
}

// Import validates the version marker, then replaces config and history.
// Credentials are never imported.
func (s *SQLiteStore) Import(data []byte) error {
	doc, err := parseImport(data)
	if err != nil {
		return err
	}
	if err := s.SaveConfig(doc.Config); err != nil {
		return fmt.Errorf("import config: %w", err)
	}
	if err := s.ClearHistory(); err != nil {
		return err
	}
	// Oldest first so insertion order matches the original chronology.
	for i := len(doc.History) - 1; i >= 0; i-- {
		if err := s.AppendHistory(doc.History[i]); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
