package llm

import "context"

// Provider generates answers from prompts.
type Provider interface {
	// Generate returns the complete answer for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Stream returns a TokenStream that yields answer fragments as the
	// model produces them.
	Stream(ctx context.Context, prompt string) (TokenStream, error)

	// Close releases resources held by the provider.
	Close() error
}

// TokenStream yields answer fragments one at a time. Recv returns io.EOF
// when the model has finished. Callers must Close the stream when done,
// including after an error.
type TokenStream interface {
	Recv(ctx context.Context) (string, error)
	Close() error
}
