package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// DefaultMockDimensions matches the dimension of common small sentence
// embedding models.
const DefaultMockDimensions = 384

// MockProvider is a deterministic embedder for tests and offline development.
// The same text always produces the same unit-length vector, so similarity
// search behaves consistently without a model server.
type MockProvider struct {
	dimensions int
}

// NewMockProvider returns a mock embedder of the given dimension.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = DefaultMockDimensions
	}
	return &MockProvider{dimensions: dimensions}
}

// EmbedBatch derives one deterministic vector per text.
func (p *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = p.embed(text)
	}
	return embeddings, nil
}

func (p *MockProvider) embed(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	emb := make([]float32, p.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(seed%100003)*float64(i+1)) * 0.1)
	}
	// Normalize to unit length so cosine scores are well behaved.
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	}
	return emb
}

// Dimensions returns the configured dimension.
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op for MockProvider.
func (p *MockProvider) Close() error {
	return nil
}
