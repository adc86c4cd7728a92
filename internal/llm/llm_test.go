package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name         string
		contextBlock string
		query        string
		want         string
	}{
		{
			name:         "with context",
			contextBlock: "[Source 1 | score=0.900]\nGo is a language.",
			query:        "What is Go?",
			want:         "Context:\n[Source 1 | score=0.900]\nGo is a language.\n\nUser: What is Go?\nAI:",
		},
		{
			name:  "without context",
			query: "What is Go?",
			want:  "User: What is Go?\nAI:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildPrompt(tt.contextBlock, tt.query); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"response":"Go is a language.","done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL})
	defer p.Close()

	answer, err := p.Generate(context.Background(), "What is Go?")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "Go is a language." {
		t.Errorf("got %q", answer)
	}
}

func TestOllamaGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL})
	if _, err := p.Generate(context.Background(), "hello"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestOllamaStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lines := []string{
			`{"response":"Go ","done":false}`,
			`{"response":"is ","done":false}`,
			`{"response":"fun.","done":true}`,
		}
		w.Write([]byte(strings.Join(lines, "\n")))
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL})
	stream, err := p.Stream(context.Background(), "tell me")
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer stream.Close()

	var got []string
	for {
		token, err := stream.Recv(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		got = append(got, token)
	}
	if strings.Join(got, "") != "Go is fun." {
		t.Errorf("got tokens %v", got)
	}
}

func TestOllamaGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if _, err := p.Generate(context.Background(), "hello"); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestOllamaStreamOutlivesGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte(`{"response":"slow ","done":false}` + "\n"))
		flusher.Flush()
		// Longer than the configured timeout; only Generate is bounded
		// by it, a stream runs until the caller's context ends.
		time.Sleep(150 * time.Millisecond)
		w.Write([]byte(`{"response":"finish.","done":true}` + "\n"))
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	stream, err := p.Stream(context.Background(), "tell me")
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer stream.Close()

	var got []string
	for {
		token, err := stream.Recv(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		got = append(got, token)
	}
	if strings.Join(got, "") != "slow finish." {
		t.Errorf("got tokens %v", got)
	}
}

func TestOllamaStreamCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"partial","done":false}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL})
	stream, err := p.Stream(context.Background(), "tell me")
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer stream.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := stream.Recv(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMockProviderStream(t *testing.T) {
	p := NewMockProvider("one two three")
	stream, err := p.Stream(context.Background(), "q")
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer stream.Close()

	var parts []string
	for {
		token, err := stream.Recv(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		parts = append(parts, token)
	}
	if strings.Join(parts, "") != "one two three" {
		t.Errorf("got %v", parts)
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "bard"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	p, err := NewProvider(Config{Provider: ProviderMock})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Close()
}
