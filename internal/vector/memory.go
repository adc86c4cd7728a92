package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// MemoryIndex is a volatile in-process index using brute-force cosine search.
// Vectors, documents, and metadata are kept in parallel slices; Add is atomic
// with respect to Search, so a concurrent reader never observes a partially
// inserted batch.
type MemoryIndex struct {
	dimensions int
	vectors    [][]float32
	documents  []string
	metadatas  []map[string]interface{}
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory index. dimensions fixes the vector
// dimension for every record; zero means adopt the dimension of the first Add.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions < 0 {
		return nil, fmt.Errorf("dimensions must not be negative")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Add appends records. All three slices must have the same length and every
// vector the index dimension; on any violation nothing is stored.
func (m *MemoryIndex) Add(ctx context.Context, vectors [][]float32, documents []string, metadatas []map[string]interface{}) error {
	if len(vectors) != len(documents) || len(vectors) != len(metadatas) {
		return fmt.Errorf("vectors (%d), documents (%d), and metadatas (%d) length mismatch",
			len(vectors), len(documents), len(metadatas))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Adopt the first batch's dimension only after the whole batch
	// validates, so a rejected batch never pins the index dimension.
	expected := m.dimensions
	if expected == 0 && len(vectors) > 0 {
		expected = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != expected {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), expected)
		}
	}
	if len(vectors) > 0 {
		m.dimensions = expected
	}
	for i, v := range vectors {
		vec := make([]float32, len(v))
		copy(vec, v)
		m.vectors = append(m.vectors, vec)
		m.documents = append(m.documents, documents[i])
		m.metadatas = append(m.metadatas, metadatas[i])
	}
	return nil
}

// Search scores every stored record against query and returns the topK best,
// similarity descending. The sort is stable so equal scores keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, topK int) ([]models.RetrievalResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dimensions > 0 && len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if topK <= 0 || len(m.vectors) == 0 {
		return nil, nil
	}
	results := make([]models.RetrievalResult, len(m.vectors))
	for i, vec := range m.vectors {
		results[i] = models.RetrievalResult{
			Text:     m.documents[i],
			Score:    Cosine(query, vec),
			Metadata: m.metadatas[i],
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// Size returns the number of stored records.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
