// Package retrieval answers queries over the indexed corpus: embed the
// query, rank chunks by similarity, and generate an answer grounded in the
// retrieved context.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// Pipeline runs retrieval-augmented queries.
type Pipeline struct {
	embedder embedding.Provider
	index    vector.Index
	llm      llm.Provider
	logger   *zap.Logger
}

// NewPipeline creates a retrieval pipeline.
func NewPipeline(embedder embedding.Provider, index vector.Index, provider llm.Provider, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		embedder: embedder,
		index:    index,
		llm:      provider,
		logger:   logger,
	}
}

// Retrieve embeds the query and returns up to topK chunks ranked by
// similarity, best first.
func (p *Pipeline) Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievalResult, error) {
	vectors, err := p.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := p.index.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

// Answer runs the full query flow and returns the generated answer with
// its sources. An empty index produces an answer with no context and no
// sources.
func (p *Pipeline) Answer(ctx context.Context, query string, topK int) (models.QueryResponse, error) {
	results, err := p.Retrieve(ctx, query, topK)
	if err != nil {
		return models.QueryResponse{}, err
	}

	prompt := llm.BuildPrompt(ContextBlock(results), query)
	answer, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return models.QueryResponse{}, fmt.Errorf("generate answer: %w", err)
	}

	p.logger.Debug("query answered",
		zap.Int("sources", len(results)),
		zap.Int("answer_len", len(answer)))
	return models.QueryResponse{Answer: answer, Sources: results}, nil
}

// ContextBlock renders retrieval results as the context section of the
// prompt. Each source gets a bracketed header with its rank, score, and
// metadata, followed by the chunk text.
func ContextBlock(results []models.RetrievalResult) string {
	if len(results) == 0 {
		return ""
	}
	blocks := make([]string, len(results))
	for i, r := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "[Source %d | score=%.3f", i+1, r.Score)
		for _, k := range sortedKeys(r.Metadata) {
			fmt.Fprintf(&b, " | %s=%v", k, r.Metadata[k])
		}
		b.WriteString("]\n")
		b.WriteString(r.Text)
		blocks[i] = b.String()
	}
	return strings.Join(blocks, "\n\n")
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
