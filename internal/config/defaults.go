package config

import (
	"github.com/hyperjump/kotae/internal/chunk"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/vector"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.IndexType == "" {
		cfg.Storage.IndexType = string(vector.IndexTypeSQLite)
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".kotae/data/index.db"
	}
	if cfg.Storage.HistoryPath == "" {
		cfg.Storage.HistoryPath = ".kotae/data/history.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = embedding.ProviderOllama
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 60
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = llm.ProviderOllama
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 120
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 512
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 50
	}
	if cfg.Chunking.Strategy == "" {
		cfg.Chunking.Strategy = chunk.StrategyParagraph
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = 50
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
