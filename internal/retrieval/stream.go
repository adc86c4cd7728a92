package retrieval

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

// Stream starts a streaming answer for the query. It never returns an
// error: retrieval or generation failures surface as an error event on the
// returned stream, so consumers handle exactly one shape.
func (p *Pipeline) Stream(ctx context.Context, query string, topK int) *AnswerStream {
	results, err := p.Retrieve(ctx, query, topK)
	if err != nil {
		p.logger.Warn("stream setup failed", zap.Error(err))
		return failedStream(err)
	}

	prompt := llm.BuildPrompt(ContextBlock(results), query)
	tokens, err := p.llm.Stream(ctx, prompt)
	if err != nil {
		p.logger.Warn("stream setup failed", zap.Error(err))
		return failedStream(err)
	}
	return &AnswerStream{tokens: tokens, sources: results}
}

// AnswerStream yields stream events one at a time: zero or more token
// events, then either one sources or one error event, then exactly one
// done event. Cancellation is normal termination, so sources and done are
// still delivered after the context ends.
type AnswerStream struct {
	tokens  llm.TokenStream
	sources []models.RetrievalResult
	pending []models.StreamEvent
	done    bool
}

// failedStream carries only the error and done events. It is already
// terminal: there is no token stream to pull from.
func failedStream(err error) *AnswerStream {
	return &AnswerStream{
		pending: []models.StreamEvent{
			models.ErrorEvent(err.Error()),
			models.DoneEvent(),
		},
		done: true,
	}
}

// Next returns the following event. The second return value is false once
// the done event has been delivered.
func (s *AnswerStream) Next(ctx context.Context) (models.StreamEvent, bool) {
	if len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending = s.pending[1:]
		return ev, true
	}
	if s.done {
		return models.StreamEvent{}, false
	}

	token, err := s.tokens.Recv(ctx)
	switch {
	case err == nil:
		return models.TokenEvent(token), true
	case errors.Is(err, io.EOF),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		// Finished or cancelled: deliver sources, then done.
		s.finish(models.SourcesEvent(s.sources))
	default:
		s.finish(models.ErrorEvent(err.Error()))
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, true
}

func (s *AnswerStream) finish(ev models.StreamEvent) {
	s.pending = append(s.pending, ev, models.DoneEvent())
	s.done = true
}

// Close releases the underlying token stream. Safe to call at any point.
func (s *AnswerStream) Close() error {
	if s.tokens == nil {
		return nil
	}
	return s.tokens.Close()
}
