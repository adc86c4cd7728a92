package models

// Stream event types, in the order a consumer may observe them:
// zero or more "token" events, then either one "sources" or one "error" event,
// then exactly one "done" event.
const (
	EventToken   = "token"
	EventSources = "sources"
	EventError   = "error"
	EventDone    = "done"
)

// StreamEvent is one element of a streaming answer. Value carries the token text
// for token events and the retrieval results for sources events; Message carries
// the error text for error events.
type StreamEvent struct {
	Type    string      `json:"type"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message,omitempty"`
}

// TokenEvent wraps one generated answer fragment.
func TokenEvent(token string) StreamEvent {
	return StreamEvent{Type: EventToken, Value: token}
}

// SourcesEvent wraps the ranked retrieval results, emitted after all tokens.
func SourcesEvent(sources []RetrievalResult) StreamEvent {
	return StreamEvent{Type: EventSources, Value: sources}
}

// ErrorEvent reports a mid-stream failure; it replaces the sources event.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Message: message}
}

// DoneEvent is the terminal marker, always emitted exactly once and last.
func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}
