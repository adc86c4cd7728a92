// Package models defines core data structures for documents, chunks, and retrieval results.
package models

// Page is one page of extracted document text. Number is 1-based.
type Page struct {
	Number int    `json:"page"`
	Text   string `json:"text"`
}

// ChunkMetadata identifies where a chunk came from and fingerprints its content.
type ChunkMetadata struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Page         int    `json:"page"`
	ContentHash  string `json:"content_hash"`
}

// Chunk is a bounded segment of document text produced by splitting.
// Chunks are immutable once created.
type Chunk struct {
	Text string        `json:"text"`
	Meta ChunkMetadata `json:"metadata"`
}

// Ingestion report statuses.
const (
	IngestSuccess = "success"
	IngestSkipped = "skipped"
	IngestFailed  = "failed"
)

// IngestionReport summarizes one document ingestion.
type IngestionReport struct {
	Status         string `json:"status"`
	DocumentID     string `json:"document_id"`
	ChunksIngested int    `json:"chunks_ingested"`
	ChunksSkipped  int    `json:"chunks_skipped"`
	Reason         string `json:"reason,omitempty"`
}
