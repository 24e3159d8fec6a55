// Package config loads the daemon's runtime configuration from YAML.
//
// DESIGN: Load always produces a complete configuration: hardcoded defaults
// are applied first, then the file's values overwrite them, then Validate
// rejects anything out of range. A missing file yields pure defaults, so the
// daemon starts with zero setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pagelens/pagelens/internal/monitoring"
)

// Config is the daemon's runtime configuration.
type Config struct {
	Server  ServerConfig            `yaml:"server"`
	Logging monitoring.LoggerConfig `yaml:"logging"`
	Store   StoreConfig             `yaml:"store"`
	LLM     LLMConfig               `yaml:"llm"`
}

// ServerConfig contains local HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StoreConfig locates the persistent store.
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite file; ":memory:" for an in-memory store
}

// LLMConfig contains provider call settings.
type LLMConfig struct {
	Timeout time.Duration `yaml:"timeout"` // per-request deadline for provider calls
}

// envVarRe matches ${VAR} and ${VAR:-default}.
var envVarRe = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Server: ServerConfig{
			Port:         18040,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Logging: monitoring.LoggerConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Store: StoreConfig{
			Path: filepath.Join(home, ".config", "pagelens", "pagelens.db"),
		},
		LLM: LLMConfig{
			Timeout: 60 * time.Second,
		},
	}
}

// Load reads configuration from a YAML file merged over defaults. An empty
// path yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML over the defaults, with ${VAR:-default} env var
// expansion.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandEnv expands ${VAR} and ${VAR:-default} references.
func expandEnv(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) > 2 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	return nil
}
