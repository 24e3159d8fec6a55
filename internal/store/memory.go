package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pagelens/pagelens/internal/sanitize"
)

// MemoryStore is an in-memory Store used in tests and as a fallback when no
// database path is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	config      []byte // stored config JSON, nil when unset
	credentials map[string]string
	history     []HistoryEntry // most-recent-first
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{credentials: make(map[string]string)}
}

// LoadConfig merges the stored config over defaults.
func (s *MemoryStore) LoadConfig() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mergeConfig(s.config)
}

// SaveConfig validates and stores the full configuration.
func (s *MemoryStore) SaveConfig(cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = raw
	return nil
}

// Credential returns the stored API key for a provider.
func (s *MemoryStore) Credential(provider string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.credentials[provider]
	return v, ok
}

// SaveCredential validates the key shape and stores a provider's API key.
func (s *MemoryStore) SaveCredential(provider, value string) error {
	if provider == "" {
		return fmt.Errorf("provider is required")
	}
	if err := sanitize.APIKey(provider, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[provider] = value
	return nil
}

// DeleteCredential removes a provider's API key.
func (s *MemoryStore) DeleteCredential(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.credentials, provider)
	return nil
}

// AppendHistory prepends an entry and evicts the oldest beyond the cap.
func (s *MemoryStore) AppendHistory(entry HistoryEntry) error {
	limit := s.LoadConfig().MaxHistoryItems

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]HistoryEntry{entry}, s.history...)
	if len(s.history) > limit {
		s.history = s.history[:limit]
	}
	return nil
}

// History returns entries most-recent-first.
func (s *MemoryStore) History() ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out, nil
}

// DeleteHistory removes a single entry by ID.
func (s *MemoryStore) DeleteHistory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.history {
		if e.ID == id {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return nil
		}
	}
	return nil
}

// ClearHistory removes all entries.
func (s *MemoryStore) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	return nil
}

// Export serializes config and history with credentials redacted.
func (s *MemoryStore) Export() ([]byte, error) {
	history, err := s.History()
	if err != nil {
		return nil, err
	}
	return buildExport(s.LoadConfig(), history)
}

// Import validates the version marker, then replaces config and history.
func (s *MemoryStore) Import(data []byte) error {
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
	for i := len(doc.History) - 1; i >= 0; i-- {
		if err := s.AppendHistory(doc.History[i]); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
