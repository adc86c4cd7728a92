// Package vector provides vector index storage and cosine similarity search.
package vector

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Index stores (vector, document text, metadata) records and answers
// nearest-neighbor queries by cosine similarity. Records are owned by the
// index and immutable once added.
type Index interface {
	// Add stores the given records. vectors, documents, and metadatas must have
	// equal length; a mismatch is an error and nothing is stored. On success all
	// records become visible to subsequent Search calls together.
	Add(ctx context.Context, vectors [][]float32, documents []string, metadatas []map[string]interface{}) error

	// Search returns at most topK records ranked by cosine similarity descending.
	// Ties keep insertion order so retrieval is deterministic.
	Search(ctx context.Context, query []float32, topK int) ([]models.RetrievalResult, error)

	// Size returns the number of stored records.
	Size() int

	Close() error
}

// HashLookup is implemented by persistent indexes that can answer whether a
// chunk with the given content hash has already been stored. Ingestion uses it
// for deduplication; callers must treat its absence as "nothing is a duplicate".
type HashLookup interface {
	ExistsByHash(ctx context.Context, hash string) (bool, error)
}
