package vector

import "fmt"

// IndexType selects the vector index backend.
type IndexType string

const (
	// IndexTypeMemory keeps records in process memory; contents are lost on exit.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeSQLite persists records to a SQLite database and supports
	// content-hash existence lookups for deduplicated ingestion.
	IndexTypeSQLite IndexType = "sqlite"
)

// NewIndex creates a vector index of the given type. dbPath is only used for
// the sqlite backend. dimensions may be 0 to adopt the dimension of the first
// added batch.
func NewIndex(indexType string, dbPath string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeSQLite:
		return NewSQLiteIndex(dbPath, dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, sqlite)", indexType)
	}
}
