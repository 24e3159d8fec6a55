// Package store persists user configuration, per-provider credentials, and
// the bounded query history.
//
// DESIGN: Credentials live in their own table, separate from configuration,
// and are never written to exports. LoadConfig always returns a complete
// object: stored values are merged over hardcoded defaults, and read failures
// degrade to defaults instead of propagating. Write failures are surfaced.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pagelens/pagelens/internal/sanitize"
	"github.com/pagelens/pagelens/internal/selection"
	"github.com/pagelens/pagelens/internal/template"
)

// ExportVersion marks the export document format. Imports with an
// unrecognized version are rejected before anything is applied.
const ExportVersion = 1

// Config is the user-facing configuration singleton.
type Config struct {
	Provider        string         `json:"provider"`
	Model           string         `json:"model"`
	Endpoint        string         `json:"endpoint,omitempty"`
	DefaultPrompt   string         `json:"defaultPrompt"`
	CustomPrompts   []CustomPrompt `json:"customPrompts"`
	Theme           string         `json:"theme"`
	DisplayLocation string         `json:"displayLocation"`
	AutoCopy        bool           `json:"autoCopy"`
	SaveHistory     bool           `json:"saveHistory"`
	MaxHistoryItems int            `json:"maxHistoryItems"`
}

// CustomPrompt is a named, user-defined prompt template.
type CustomPrompt struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// HistoryEntry is one processed query/result pair. Entries are immutable once
// written.
type HistoryEntry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Text      string            `json:"text"`
	Result    string            `json:"result"`
	Context   selection.Context `json:"context"`
	Provider  string            `json:"provider"`
	Model     string            `json:"model"`
}

// Export is the JSON document produced by Store.Export. Credentials are
// always redacted.
type Export struct {
	Version     int            `json:"version"`
	Timestamp   time.Time      `json:"timestamp"`
	Config      Config         `json:"config"`
	History     []HistoryEntry `json:"history"`
	Credentials string         `json:"credentials"` // always "[REDACTED]"
}

// Store is the persistence contract the core depends on.
type Store interface {
	// LoadConfig returns the full configuration, defaults filled in. It
	// never fails outward; unreadable state degrades to defaults.
	LoadConfig() Config

	// SaveConfig validates and persists the full configuration.
	SaveConfig(cfg Config) error

	// Credential returns the stored API key for a provider.
	Credential(provider string) (string, bool)

	// SaveCredential stores (or overwrites) a provider's API key.
	SaveCredential(provider, value string) error

	// DeleteCredential removes a provider's API key.
	DeleteCredential(provider string) error

	// AppendHistory inserts an entry and evicts the oldest entries beyond
	// the configured cap (FIFO by insertion order).
	AppendHistory(entry HistoryEntry) error

	// History returns entries most-recent-first.
	History() ([]HistoryEntry, error)

	// DeleteHistory removes a single entry by ID.
	DeleteHistory(id string) error

	// ClearHistory removes all entries.
	ClearHistory() error

	// Export serializes config and history with credentials redacted.
	Export() ([]byte, error)

	// Import validates the version marker and applies config and history.
	Import(data []byte) error

	// Close releases underlying resources.
	Close() error
}

// DefaultConfig returns the hardcoded defaults merged under stored values.
func DefaultConfig() Config {
	return Config{
		Provider:        "openai",
		Model:           "gpt-4o-mini",
		DefaultPrompt:   "Explain the following text from {context.title}:\n{text}",
		CustomPrompts:   []CustomPrompt{},
		Theme:           "system",
		DisplayLocation: "popup",
		AutoCopy:        false,
		SaveHistory:     true,
		MaxHistoryItems: 100,
	}
}

// mergeConfig overlays stored JSON onto the defaults so unset fields never
// surface as zero values.
func mergeConfig(stored []byte) Config {
	cfg := DefaultConfig()
	if len(stored) == 0 {
		return cfg
	}
	if err := json.Unmarshal(stored, &cfg); err != nil {
		return DefaultConfig()
	}
	if cfg.MaxHistoryItems < 1 || cfg.MaxHistoryItems > 1000 {
		cfg.MaxHistoryItems = DefaultConfig().MaxHistoryItems
	}
	if cfg.CustomPrompts == nil {
		cfg.CustomPrompts = []CustomPrompt{}
	}
	return cfg
}

// validateConfig rejects configurations that would fail at use time.
// Templates are checked here, at save time, not when a request runs.
func validateConfig(cfg Config) error {
	switch cfg.Provider {
	case "openai", "anthropic", "deepseek", "custom":
	default:
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if cfg.Provider == "custom" {
		if err := sanitize.EndpointURL(cfg.Endpoint); err != nil {
			return fmt.Errorf("custom provider: %w", err)
		}
	}
	if err := template.Validate(cfg.DefaultPrompt); err != nil {
		return fmt.Errorf("default prompt: %w", err)
	}
	for _, p := range cfg.CustomPrompts {
		if p.Name == "" {
			return fmt.Errorf("custom prompt has no name")
		}
		if err := template.Validate(p.Template); err != nil {
			return fmt.Errorf("custom prompt %q: %w", p.Name, err)
		}
	}
	if cfg.MaxHistoryItems < 1 || cfg.MaxHistoryItems > 1000 {
		return fmt.Errorf("maxHistoryItems must be between 1 and 1000")
	}
	return nil
}

// buildExport assembles the redacted export document.
func buildExport(cfg Config, history []HistoryEntry) ([]byte, error) {
	if history == nil {
		history = []HistoryEntry{}
	}
	return json.MarshalIndent(Export{
		Version:     ExportVersion,
		Timestamp:   time.Now().UTC(),
		Config:      cfg,
		History:     history,
		Credentials: "[REDACTED]",
	}, "", "  ")
}

// parseImport validates the version marker and decodes the document.
func parseImport(data []byte) (*Export, error) {
	var doc Export
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("import is not valid JSON: %w", err)
	}
	if doc.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported import version %d", doc.Version)
	}
	return &doc, nil
}
