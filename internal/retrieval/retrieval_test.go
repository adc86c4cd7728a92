package retrieval

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

func seedIndex(t *testing.T, embedder embedding.Provider, texts ...string) vector.Index {
	t.Helper()
	index, _ := vector.NewMemoryIndex(embedder.Dimensions())
	vecs, err := embedder.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed seed texts: %v", err)
	}
	metas := make([]map[string]interface{}, len(texts))
	for i := range metas {
		metas[i] = map[string]interface{}{"document_name": "seed.txt", "page": 1}
	}
	if err := index.Add(context.Background(), vecs, texts, metas); err != nil {
		t.Fatalf("seed index: %v", err)
	}
	return index
}

func TestRetrieveRanksOwnTextFirst(t *testing.T) {
	embedder := embedding.NewMockProvider(32)
	index := seedIndex(t, embedder, "gophers burrow underground", "ships sail the sea")
	p := NewPipeline(embedder, index, llm.NewMockProvider(""), zap.NewNop())

	results, err := p.Retrieve(context.Background(), "gophers burrow underground", 2)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Text != "gophers burrow underground" {
		t.Errorf("expected exact match first, got %q", results[0].Text)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not ordered by score descending")
	}
}

func TestAnswerIncludesSources(t *testing.T) {
	embedder := embedding.NewMockProvider(16)
	index := seedIndex(t, embedder, "relevant content")
	p := NewPipeline(embedder, index, llm.NewMockProvider("the answer"), zap.NewNop())

	resp, err := p.Answer(context.Background(), "a question", 3)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if resp.Answer != "the answer" {
		t.Errorf("got answer %q", resp.Answer)
	}
	if len(resp.Sources) != 1 {
		t.Errorf("expected 1 source, got %d", len(resp.Sources))
	}
}

func TestAnswerEmptyIndex(t *testing.T) {
	embedder := embedding.NewMockProvider(16)
	index, _ := vector.NewMemoryIndex(16)
	p := NewPipeline(embedder, index, llm.NewMockProvider("no context answer"), zap.NewNop())

	resp, err := p.Answer(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(resp.Sources))
	}
}

func TestContextBlock(t *testing.T) {
	results := []models.RetrievalResult{
		{Text: "first chunk", Score: 0.91, Metadata: map[string]interface{}{"page": 2, "document_name": "a.pdf"}},
		{Text: "second chunk", Score: 0.5, Metadata: nil},
	}
	want := "[Source 1 | score=0.910 | document_name=a.pdf | page=2]\nfirst chunk\n\n" +
		"[Source 2 | score=0.500]\nsecond chunk"
	if got := ContextBlock(results); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestContextBlockEmpty(t *testing.T) {
	if got := ContextBlock(nil); got != "" {
		t.Errorf("expected empty block, got %q", got)
	}
}

func collectEvents(t *testing.T, s *AnswerStream, ctx context.Context) []models.StreamEvent {
	t.Helper()
	var events []models.StreamEvent
	for {
		ev, ok := s.Next(ctx)
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}

func TestStreamEventOrder(t *testing.T) {
	embedder := embedding.NewMockProvider(16)
	index := seedIndex(t, embedder, "some context")
	p := NewPipeline(embedder, index, llm.NewMockProvider("streamed answer"), zap.NewNop())

	s := p.Stream(context.Background(), "a question", 3)
	defer s.Close()
	events := collectEvents(t, s, context.Background())

	if len(events) < 3 {
		t.Fatalf("expected tokens, sources, and done, got %d events", len(events))
	}
	for _, ev := range events[:len(events)-2] {
		if ev.Type != models.EventToken {
			t.Errorf("expected token event, got %s", ev.Type)
		}
	}
	if events[len(events)-2].Type != models.EventSources {
		t.Errorf("expected sources before done, got %s", events[len(events)-2].Type)
	}
	if events[len(events)-1].Type != models.EventDone {
		t.Errorf("expected done last, got %s", events[len(events)-1].Type)
	}
}

func TestStreamCancellationStillTerminates(t *testing.T) {
	embedder := embedding.NewMockProvider(16)
	index := seedIndex(t, embedder, "some context")
	p := NewPipeline(embedder, index, llm.NewMockProvider("a long streamed answer"), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	s := p.Stream(ctx, "a question", 3)
	defer s.Close()

	first, ok := s.Next(ctx)
	if !ok || first.Type != models.EventToken {
		t.Fatalf("expected a first token, got %+v ok=%v", first, ok)
	}
	cancel()

	events := collectEvents(t, s, ctx)
	if len(events) != 2 {
		t.Fatalf("expected sources and done after cancel, got %d events", len(events))
	}
	if events[0].Type != models.EventSources || events[1].Type != models.EventDone {
		t.Errorf("got event types %s, %s", events[0].Type, events[1].Type)
	}
}

type failingIndex struct{ vector.Index }

func (failingIndex) Search(ctx context.Context, query []float32, topK int) ([]models.RetrievalResult, error) {
	return nil, errors.New("index offline")
}

func TestStreamSetupFailureEmitsErrorAndDone(t *testing.T) {
	embedder := embedding.NewMockProvider(16)
	p := NewPipeline(embedder, failingIndex{}, llm.NewMockProvider(""), zap.NewNop())

	s := p.Stream(context.Background(), "a question", 3)
	defer s.Close()
	events := collectEvents(t, s, context.Background())

	if len(events) != 2 {
		t.Fatalf("expected error and done, got %d events", len(events))
	}
	if events[0].Type != models.EventError || events[0].Message == "" {
		t.Errorf("expected error event with message, got %+v", events[0])
	}
	if events[1].Type != models.EventDone {
		t.Errorf("expected done last, got %s", events[1].Type)
	}

	// The stream stays terminal once done is delivered.
	for i := 0; i < 3; i++ {
		if _, ok := s.Next(context.Background()); ok {
			t.Fatal("expected no events after done")
		}
	}
}
