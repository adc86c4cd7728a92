package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Ollama defaults.
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "nomic-embed-text"
	defaultOllamaTimeout = 60 * time.Second
)

// OllamaProvider generates embeddings through a local Ollama server.
// The API embeds one prompt per request, so batches are sent sequentially and
// the whole batch fails on the first error.
type OllamaProvider struct {
	baseURL    string
	model      string
	client     *http.Client
	dimensions int
}

// OllamaConfig configures the Ollama embedding provider.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewOllamaProvider creates an Ollama embedding provider. Zero fields take
// defaults.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultOllamaTimeout
	}
	return &OllamaProvider{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedBatch embeds each text in order. Any failure aborts the batch with no
// partial result.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := p.embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d of %d: %w", i+1, len(texts), err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (p *OllamaProvider) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(b))
	}
	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}
	if p.dimensions == 0 {
		p.dimensions = len(out.Embedding)
	} else if len(out.Embedding) != p.dimensions {
		return nil, fmt.Errorf("embedding dimension changed: got %d, expected %d", len(out.Embedding), p.dimensions)
	}
	return out.Embedding, nil
}

// Dimensions returns the dimension observed on the first successful embed, or 0.
func (p *OllamaProvider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op; the HTTP client holds no persistent resources.
func (p *OllamaProvider) Close() error {
	return nil
}
