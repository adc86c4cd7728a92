package embedding

import (
	"fmt"
	"time"
)

// Provider names accepted in configuration.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config selects and configures an embedding provider.
type Config struct {
	Provider    string `yaml:"provider"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimensions  int    `yaml:"dimensions"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// NewProvider creates the embedding provider named by cfg.Provider.
func NewProvider(cfg Config) (Provider, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaProvider(OllamaConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		}), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			APIKeyEnv: cfg.APIKeyEnv,
			Model:     cfg.Model,
			Timeout:   timeout,
			BatchSize: cfg.BatchSize,
		})
	case ProviderMock:
		return NewMockProvider(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: ollama, openai, mock)", cfg.Provider)
	}
}
