package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/selection"
)

// openStores builds one store of each backend over a fresh database so every
// test runs against both.
func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "pagelens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func entry(i int) HistoryEntry {
	return HistoryEntry{
		ID:        fmt.Sprintf("id-%03d", i),
		Timestamp: time.Date(2026, 8, 1, 12, 0, i, 0, time.UTC),
		Text:      fmt.Sprintf("text %d", i),
		Result:    fmt.Sprintf("result %d", i),
		Context:   selection.Context{Title: "Wikipedia", Hostname: "en.wikipedia.org"},
		Provider:  "openai",
		Model:     "gpt-4o-mini",
	}
}

func TestLoadConfig_DefaultsWhenEmpty(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			cfg := s.LoadConfig()
			assert.Equal(t, DefaultConfig(), cfg)
			assert.NotEmpty(t, cfg.DefaultPrompt)
			assert.Equal(t, 100, cfg.MaxHistoryItems)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			want := DefaultConfig()
			want.Provider = "anthropic"
			want.Model = "claude-3-5-sonnet-latest"
			want.Theme = "dark"
			want.MaxHistoryItems = 25
			want.CustomPrompts = []CustomPrompt{{Name: "eli5", Template: "Explain like I'm five: {text}"}}

			require.NoError(t, s.SaveConfig(want))
			assert.Equal(t, want, s.LoadConfig())

			// Saving again is idempotent.
			require.NoError(t, s.SaveConfig(want))
			assert.Equal(t, want, s.LoadConfig())
		})
	}
}

func TestSaveConfig_Validation(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			bad := DefaultConfig()
			bad.Provider = "grok"
			assert.Error(t, s.SaveConfig(bad))

			bad = DefaultConfig()
			bad.Provider = "custom" // no endpoint
			assert.Error(t, s.SaveConfig(bad))

			bad = DefaultConfig()
			bad.DefaultPrompt = "no placeholder here"
			assert.Error(t, s.SaveConfig(bad))

			bad = DefaultConfig()
			bad.MaxHistoryItems = 5000
			assert.Error(t, s.SaveConfig(bad))

			// Failed saves must not clobber the stored configuration.
			assert.Equal(t, DefaultConfig(), s.LoadConfig())
		})
	}
}

func TestCredentials_SeparateFromConfig(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok := s.Credential("openai")
			assert.False(t, ok)

			require.NoError(t, s.SaveCredential("openai", "sk-secret-123"))
			got, ok := s.Credential("openai")
			assert.True(t, ok)
			assert.Equal(t, "sk-secret-123", got)

			// Overwrite.
			require.NoError(t, s.SaveCredential("openai", "sk-rotated"))
			got, _ = s.Credential("openai")
			assert.Equal(t, "sk-rotated", got)

			require.NoError(t, s.DeleteCredential("openai"))
			_, ok = s.Credential("openai")
			assert.False(t, ok)
		})
	}
}

func TestSaveCredential_RejectsMalformedKeys(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			// Shape problems surface at save time, not at call time.
			assert.Error(t, s.SaveCredential("openai", "totally-wrong-shape"))
			assert.Error(t, s.SaveCredential("openai", "sk-with space"))
			assert.Error(t, s.SaveCredential("anthropic", "sk-plain-openai-prefix"))
			assert.Error(t, s.SaveCredential("openai", ""))
			assert.Error(t, s.SaveCredential("", "sk-abc"))

			// Nothing malformed was persisted.
			_, ok := s.Credential("openai")
			assert.False(t, ok)

			// Custom endpoints accept any non-empty token.
			assert.NoError(t, s.SaveCredential("custom", "local-token"))
		})
	}
}

func TestHistory_MostRecentFirst(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				require.NoError(t, s.AppendHistory(entry(i)))
			}
			got, err := s.History()
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, "id-002", got[0].ID)
			assert.Equal(t, "id-000", got[2].ID)
			assert.Equal(t, "Wikipedia", got[0].Context.Title)
		})
	}
}

func TestHistory_CapEvictsOldest(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MaxHistoryItems = 5
			require.NoError(t, s.SaveConfig(cfg))

			for i := 0; i < 12; i++ {
				require.NoError(t, s.AppendHistory(entry(i)))
			}

			got, err := s.History()
			require.NoError(t, err)
			require.Len(t, got, 5)
			// The five most recent survive, newest first.
			for i, e := range got {
				assert.Equal(t, fmt.Sprintf("id-%03d", 11-i), e.ID)
			}
		})
	}
}

func TestHistory_DeleteAndClear(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				require.NoError(t, s.AppendHistory(entry(i)))
			}

			require.NoError(t, s.DeleteHistory("id-001"))
			got, err := s.History()
			require.NoError(t, err)
			require.Len(t, got, 2)
			for _, e := range got {
				assert.NotEqual(t, "id-001", e.ID)
			}

			require.NoError(t, s.ClearHistory())
			got, err = s.History()
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestExport_RedactsCredentials(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveCredential("openai", "sk-super-secret-value"))
			require.NoError(t, s.AppendHistory(entry(0)))

			data, err := s.Export()
			require.NoError(t, err)

			assert.NotContains(t, string(data), "sk-super-secret-value")

			var doc Export
			require.NoError(t, json.Unmarshal(data, &doc))
			assert.Equal(t, ExportVersion, doc.Version)
			assert.Equal(t, "[REDACTED]", doc.Credentials)
			require.Len(t, doc.History, 1)
		})
	}
}

func TestImport_RoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Theme = "dark"
			require.NoError(t, s.SaveConfig(cfg))
			for i := 0; i < 3; i++ {
				require.NoError(t, s.AppendHistory(entry(i)))
			}
			data, err := s.Export()
			require.NoError(t, err)

			for destName, dest := range openStores(t) {
				t.Run("into "+destName, func(t *testing.T) {
					require.NoError(t, dest.Import(data))
					assert.Equal(t, "dark", dest.LoadConfig().Theme)

					got, err := dest.History()
					require.NoError(t, err)
					require.Len(t, got, 3)
					// Ordering survives the round trip.
					assert.Equal(t, "id-002", got[0].ID)
				})
			}
		})
	}
}

func TestImport_RejectsBadDocuments(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Import([]byte(`not json`))
			assert.Error(t, err)

			err = s.Import([]byte(`{"version":99,"config":{},"history":[]}`))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "version")
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagelens.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Theme = "dark"
	require.NoError(t, s.SaveConfig(cfg))
	require.NoError(t, s.SaveCredential("openai", "sk-keep"))
	require.NoError(t, s.AppendHistory(entry(0)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "dark", s.LoadConfig().Theme)
	key, ok := s.Credential("openai")
	assert.True(t, ok)
	assert.Equal(t, "sk-keep", key)
	got, err := s.History()
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestMergeConfig_IgnoresCorruptStoredValue(t *testing.T) {
	assert.Equal(t, DefaultConfig(), mergeConfig([]byte(`{broken`)))
	assert.Equal(t, DefaultConfig(), mergeConfig(nil))

	cfg := mergeConfig([]byte(`{"theme":"dark"}`))
	assert.Equal(t, "dark", cfg.Theme)
	// Unset fields keep their defaults.
	assert.Equal(t, "openai", cfg.Provider)
	assert.True(t, strings.Contains(cfg.DefaultPrompt, "{text}"))
}
