// Package config provides configuration loading and structs for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kotae/internal/chunk"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/vector"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool             `yaml:"debug"`
	Server    ServerConfig     `yaml:"server"`
	Storage   StorageConfig    `yaml:"storage"`
	Embedding embedding.Config `yaml:"embedding"`
	LLM       llm.Config       `yaml:"llm"`
	Chunking  chunk.Config     `yaml:"chunking"`
	Retrieval RetrievalConfig  `yaml:"retrieval"`
	Watch     WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths and backend selection for persistence.
type StorageConfig struct {
	IndexType    string `yaml:"index_type"`
	DatabasePath string `yaml:"database_path"`
	HistoryPath  string `yaml:"history_path"`
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	TopK    int `yaml:"top_k"`
	MaxTopK int `yaml:"max_top_k"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, expands
// paths, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.HistoryPath = expandPath(cfg.Storage.HistoryPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with all defaults applied, for running without a
// config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Validate checks cross-field constraints not covered by defaults.
func (c *Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	switch vector.IndexType(c.Storage.IndexType) {
	case vector.IndexTypeMemory, vector.IndexTypeSQLite:
	default:
		return fmt.Errorf("storage: unknown index_type %q", c.Storage.IndexType)
	}
	if c.Retrieval.TopK > c.Retrieval.MaxTopK {
		return fmt.Errorf("retrieval: top_k %d exceeds max_top_k %d", c.Retrieval.TopK, c.Retrieval.MaxTopK)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
