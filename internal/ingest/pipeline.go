// Package ingest turns documents into deduplicated, embedded chunks in the
// vector index.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunk"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// Pipeline ingests documents: split into chunks, drop duplicates, embed the
// remainder in one batch, and store everything with a single index write.
type Pipeline struct {
	splitter  *chunk.Splitter
	embedder  embedding.Provider
	index     vector.Index
	extractor *extract.Extractor
	logger    *zap.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(splitter *chunk.Splitter, embedder embedding.Provider, index vector.Index, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		splitter:  splitter,
		embedder:  embedder,
		index:     index,
		extractor: extract.NewExtractor(),
		logger:    logger,
	}
}

// IngestFile extracts the file at path and ingests its pages. The document
// ID is derived from the path, so re-ingesting the same file is a no-op
// beyond any new content.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (models.IngestionReport, error) {
	docID := DocumentID(path)
	pages, err := p.extractor.Extract(path)
	if err != nil {
		return models.IngestionReport{}, fmt.Errorf("extract %s: %w", path, err)
	}
	return p.IngestPages(ctx, docID, filepath.Base(path), pages)
}

// IngestUpload extracts in-memory file content and ingests its pages. The
// document ID is derived from the file name.
func (p *Pipeline) IngestUpload(ctx context.Context, filename string, content []byte) (models.IngestionReport, error) {
	docID := DocumentID(filename)
	pages, err := p.extractor.ExtractBytes(content, strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return models.IngestionReport{}, fmt.Errorf("extract %s: %w", filename, err)
	}
	return p.IngestPages(ctx, docID, filepath.Base(filename), pages)
}

// IngestPages splits, deduplicates, embeds, and stores the given pages.
// Content-level outcomes (nothing to index, everything a duplicate) are
// reported in the returned status; only infrastructure failures return an
// error.
func (p *Pipeline) IngestPages(ctx context.Context, docID, docName string, pages []models.Page) (models.IngestionReport, error) {
	chunks := p.split(docID, docName, pages)
	if len(chunks) == 0 {
		p.logger.Warn("no extractable text", zap.String("document", docName))
		return models.IngestionReport{
			Status:     models.IngestFailed,
			DocumentID: docID,
			Reason:     "no extractable text",
		}, nil
	}

	fresh, skipped, err := p.dedupe(ctx, chunks)
	if err != nil {
		return models.IngestionReport{}, err
	}
	if len(fresh) == 0 {
		p.logger.Info("all chunks already indexed",
			zap.String("document", docName),
			zap.Int("skipped", skipped))
		return models.IngestionReport{
			Status:        models.IngestSkipped,
			DocumentID:    docID,
			ChunksSkipped: skipped,
			Reason:        "all chunks are duplicates",
		}, nil
	}

	// Embed everything before storing anything, so a mid-batch failure
	// leaves no partial state in the index.
	texts := make([]string, len(fresh))
	for i, c := range fresh {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return models.IngestionReport{}, fmt.Errorf("embed document %s: %w", docName, err)
	}

	metadatas := make([]map[string]interface{}, len(fresh))
	for i, c := range fresh {
		metadatas[i] = map[string]interface{}{
			"content_hash":  c.Meta.ContentHash,
			"document_id":   c.Meta.DocumentID,
			"document_name": c.Meta.DocumentName,
			"page":          c.Meta.Page,
			"type":          "document",
		}
	}
	if err := p.index.Add(ctx, vectors, texts, metadatas); err != nil {
		return models.IngestionReport{}, fmt.Errorf("index document %s: %w", docName, err)
	}

	p.logger.Info("document ingested",
		zap.String("document", docName),
		zap.Int("ingested", len(fresh)),
		zap.Int("skipped", skipped))
	return models.IngestionReport{
		Status:         models.IngestSuccess,
		DocumentID:     docID,
		ChunksIngested: len(fresh),
		ChunksSkipped:  skipped,
	}, nil
}

// split chunks each page in order and drops whitespace-only chunks.
func (p *Pipeline) split(docID, docName string, pages []models.Page) []models.Chunk {
	var chunks []models.Chunk
	for _, page := range pages {
		for _, text := range p.splitter.Split(page.Text) {
			if strings.TrimSpace(text) == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				Text: text,
				Meta: models.ChunkMetadata{
					DocumentID:   docID,
					DocumentName: docName,
					Page:         page.Number,
					ContentHash:  Hash(text),
				},
			})
		}
	}
	return chunks
}

// dedupe filters out chunks whose content hash is already in the index or
// repeats within this document. The index check requires a backend with
// hash lookup; the in-memory index only deduplicates within the batch.
func (p *Pipeline) dedupe(ctx context.Context, chunks []models.Chunk) (fresh []models.Chunk, skipped int, err error) {
	lookup, _ := p.index.(vector.HashLookup)
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if _, dup := seen[c.Meta.ContentHash]; dup {
			skipped++
			continue
		}
		seen[c.Meta.ContentHash] = struct{}{}

		if lookup != nil {
			exists, err := lookup.ExistsByHash(ctx, c.Meta.ContentHash)
			if err != nil {
				return nil, 0, fmt.Errorf("check content hash: %w", err)
			}
			if exists {
				skipped++
				continue
			}
		}
		fresh = append(fresh, c)
	}
	return fresh, skipped, nil
}
