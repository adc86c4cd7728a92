package models

import "fmt"

// RetrievalResult is one retrieved chunk with its similarity score.
// Results are always ordered by score descending; that ordering is part of the contract.
type RetrievalResult struct {
	Text     string                 `json:"text"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// QueryRequest is a question against the indexed corpus.
type QueryRequest struct {
	Query     string `json:"query"`
	TopK      int    `json:"top_k,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Validate checks the request and normalizes TopK against the given default and ceiling.
func (q *QueryRequest) Validate(defaultTopK, maxTopK int) error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}

// QueryResponse is a synchronous answer with its supporting sources.
type QueryResponse struct {
	Answer  string            `json:"answer"`
	Sources []RetrievalResult `json:"sources"`
}
