package llm

import (
	"context"
	"io"
	"strings"
)

// MockProvider returns canned answers for tests and offline development.
// Streaming splits the answer into word-sized fragments.
type MockProvider struct {
	// Answer is returned by Generate and streamed by Stream. When empty a
	// generic placeholder is used.
	Answer string

	// Err, when set, is returned by Generate and by the first Recv of a
	// stream.
	Err error
}

// NewMockProvider returns a mock provider with a fixed answer.
func NewMockProvider(answer string) *MockProvider {
	return &MockProvider{Answer: answer}
}

func (p *MockProvider) answer() string {
	if p.Answer == "" {
		return "This is a mock answer."
	}
	return p.Answer
}

// Generate returns the configured answer.
func (p *MockProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.Err != nil {
		return "", p.Err
	}
	return p.answer(), nil
}

// Stream yields the answer word by word.
func (p *MockProvider) Stream(ctx context.Context, prompt string) (TokenStream, error) {
	if p.Err != nil {
		return &mockTokenStream{err: p.Err}, nil
	}
	words := strings.SplitAfter(p.answer(), " ")
	return &mockTokenStream{tokens: words}, nil
}

// Close is a no-op for MockProvider.
func (p *MockProvider) Close() error {
	return nil
}

type mockTokenStream struct {
	tokens []string
	next   int
	err    error
}

func (s *mockTokenStream) Recv(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	if s.next >= len(s.tokens) {
		return "", io.EOF
	}
	token := s.tokens[s.next]
	s.next++
	return token, nil
}

func (s *mockTokenStream) Close() error {
	return nil
}
