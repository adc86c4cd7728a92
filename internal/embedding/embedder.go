// Package embedding converts text into fixed-dimension vectors via an external
// embedding model.
package embedding

import "context"

// Provider produces vector embeddings for text. One provider instance always
// returns vectors of the same dimension.
type Provider interface {
	// EmbedBatch returns one vector per input text, same length and order as
	// texts. A batch either succeeds as a whole or fails as a whole; a partial
	// result is never returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size, or 0 if not yet known
	// (some providers learn it from the first response).
	Dimensions() int

	Close() error
}
