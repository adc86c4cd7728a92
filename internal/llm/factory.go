package llm

import (
	"fmt"
	"time"
)

// Provider names accepted in configuration.
const (
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// Config selects and configures a generation provider.
type Config struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// NewProvider creates the generation provider named by cfg.Provider.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaProvider(OllamaConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		}), nil
	case ProviderMock:
		return NewMockProvider(""), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: ollama, mock)", cfg.Provider)
	}
}
