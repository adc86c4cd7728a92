package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteIndex is a persistent index backed by SQLite. Each record row carries
// the embedding as a little-endian float32 blob, the document text, the
// metadata as JSON, and the content hash in its own indexed column for
// deduplication lookups. SQLite has no native nearest-neighbor query, so
// Search scans the records and scores them with the same cosine convention as
// MemoryIndex; callers see one ranking semantics regardless of backend.
type SQLiteIndex struct {
	db *sql.DB

	mu         sync.Mutex
	dimensions int
}

// NewSQLiteIndex opens or creates the database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func NewSQLiteIndex(dbPath string, dimensions int) (*SQLiteIndex, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteIndex{db: db, dimensions: dimensions}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		document TEXT NOT NULL,
		metadata TEXT,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_content_hash ON records(content_hash);
	`
	_, err := db.Exec(schema)
	return err
}

// Type returns the index type identifier.
func (s *SQLiteIndex) Type() string {
	return string(IndexTypeSQLite)
}

// Add upserts records with generated IDs inside a single transaction, so a
// failed batch leaves no partial rows behind.
func (s *SQLiteIndex) Add(ctx context.Context, vectors [][]float32, documents []string, metadatas []map[string]interface{}) error {
	if len(vectors) != len(documents) || len(vectors) != len(metadatas) {
		return fmt.Errorf("vectors (%d), documents (%d), and metadatas (%d) length mismatch",
			len(vectors), len(documents), len(metadatas))
	}
	if err := s.checkDimensions(vectors); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, content_hash, document, metadata, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range vectors {
		metadataJSON, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		hash, _ := metadatas[i]["content_hash"].(string)
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), hash, documents[i], string(metadataJSON), float32SliceToBytes(vectors[i]),
		); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// checkDimensions validates every vector against the index dimension,
// adopting the first batch's dimension only after the whole batch passes, so
// a rejected batch never pins the index to its dimension.
func (s *SQLiteIndex) checkDimensions(vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expected := s.dimensions
	if expected == 0 {
		if len(vectors) == 0 {
			return nil
		}
		expected = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != expected {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), expected)
		}
	}
	if len(vectors) > 0 {
		s.dimensions = expected
	}
	return nil
}

// Search scans all records in insertion order, scores each against query, and
// returns the topK best similarity-descending. The stable sort keeps insertion
// order for equal scores.
func (s *SQLiteIndex) Search(ctx context.Context, query []float32, topK int) ([]models.RetrievalResult, error) {
	s.mu.Lock()
	dimensions := s.dimensions
	s.mu.Unlock()
	if dimensions > 0 && len(query) != dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), dimensions)
	}
	if topK <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT document, metadata, embedding FROM records ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var results []models.RetrievalResult
	for rows.Next() {
		var document, metadataJSON string
		var blob []byte
		if err := rows.Scan(&document, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var metadata map[string]interface{}
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		results = append(results, models.RetrievalResult{
			Text:     document,
			Score:    Cosine(query, bytesToFloat32Slice(blob)),
			Metadata: metadata,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// ExistsByHash reports whether a record with the given content hash is stored.
func (s *SQLiteIndex) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM records WHERE content_hash = ? LIMIT 1`, hash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup content hash: %w", err)
	}
	return true, nil
}

// Size returns the number of stored records, or 0 if the count fails.
func (s *SQLiteIndex) Size() int {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// Close closes the underlying database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
