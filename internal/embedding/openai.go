package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// OpenAI defaults.
const (
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultOpenAIModel     = "text-embedding-3-small"
	DefaultOpenAIKeyEnv    = "OPENAI_API_KEY"
	defaultOpenAITimeout   = 30 * time.Second
	defaultOpenAIBatchSize = 64
)

// OpenAIProvider generates embeddings through an OpenAI-compatible
// /embeddings endpoint. Inputs are sent in one request per batch window.
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	client     *http.Client
	dimensions int
}

// OpenAIConfig configures the OpenAI-compatible embedding provider.
type OpenAIConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// NewOpenAIProvider creates an OpenAI embedding provider. The API key is read
// from the environment variable named by APIKeyEnv; a missing key is a
// construction error, not a call-time surprise.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultOpenAIKeyEnv
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultOpenAITimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultOpenAIBatchSize
	}
	return &OpenAIProvider{
		baseURL:   cfg.BaseURL,
		apiKey:    key,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type openaiEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds texts in windows of the configured batch size. Any window
// failure aborts the whole batch.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		window, err := p.embedWindow(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		copy(embeddings[start:end], window)
	}
	return embeddings, nil
}

func (p *OpenAIProvider) embedWindow(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openaiEmbedRequest{Input: texts, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embeddings API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings API returned status %d: %s", resp.StatusCode, string(b))
	}
	var out openaiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(out.Data), len(texts))
	}
	// Data order is not guaranteed; place each vector by its index.
	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embeddings API returned out-of-range index %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("embeddings API returned no vector for input %d", i)
		}
		if p.dimensions == 0 {
			p.dimensions = len(v)
		} else if len(v) != p.dimensions {
			return nil, fmt.Errorf("embedding dimension changed: got %d, expected %d", len(v), p.dimensions)
		}
	}
	return vectors, nil
}

// Dimensions returns the dimension observed on the first successful embed, or 0.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op; the HTTP client holds no persistent resources.
func (p *OpenAIProvider) Close() error {
	return nil
}
