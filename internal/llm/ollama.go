package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default Ollama settings.
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "llama3.2"
	DefaultOllamaTimeout = 120 * time.Second
)

// OllamaProvider generates answers through a local Ollama server. The client
// carries no transport-level timeout: a streaming body read must be bounded
// by the caller's context, not cut off mid-stream. Generate applies the
// configured timeout itself.
type OllamaProvider struct {
	baseURL     string
	model       string
	temperature float64
	timeout     time.Duration
	client      *http.Client
}

// OllamaConfig configures an OllamaProvider. Zero values fall back to
// defaults.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// NewOllamaProvider creates a provider backed by an Ollama server.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultOllamaTimeout
	}
	return &OllamaProvider{
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		client:      &http.Client{},
	}
}

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (p *OllamaProvider) options() map[string]interface{} {
	if p.temperature == 0 {
		return nil
	}
	return map[string]interface{}{"temperature": p.temperature}
}

// Generate returns the complete answer in one response, bounded by the
// configured timeout.
func (p *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	resp, err := p.send(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama error: %s", result.Error)
	}
	return result.Response, nil
}

// Stream starts a streaming generation. The returned TokenStream yields
// each fragment from the NDJSON response body.
func (p *OllamaProvider) Stream(ctx context.Context, prompt string) (TokenStream, error) {
	resp, err := p.send(ctx, prompt, true)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ollamaTokenStream{body: resp.Body, scanner: scanner}, nil
}

func (p *OllamaProvider) send(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	reqBody := ollamaGenerateRequest{
		Model:   p.model,
		Prompt:  prompt,
		Stream:  stream,
		Options: p.options(),
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ollama at %s: %w", p.baseURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return resp, nil
}

// Close is a no-op; the underlying http.Client needs no teardown.
func (p *OllamaProvider) Close() error {
	return nil
}

type ollamaTokenStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// Recv returns the next fragment, or io.EOF after the final message.
func (s *ollamaTokenStream) Recv(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for !s.done {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", fmt.Errorf("read ollama stream: %w", err)
			}
			return "", io.EOF
		}
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaGenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("decode ollama stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}
		if chunk.Done {
			s.done = true
		}
		if chunk.Response != "" {
			return chunk.Response, nil
		}
	}
	return "", io.EOF
}

func (s *ollamaTokenStream) Close() error {
	return s.body.Close()
}
