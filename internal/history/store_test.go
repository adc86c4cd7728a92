package history

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateSession(ctx, "What is Go?")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if created.Title != "What is Go?" {
		t.Errorf("got title %q", created.Title)
	}

	got, err := s.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID != created.ID || got.Title != created.Title {
		t.Errorf("got %+v, want %+v", got, created)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSession(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSessionTitleTruncated(t *testing.T) {
	s := newTestStore(t)
	long := strings.Repeat("q", 200)

	created, err := s.CreateSession(context.Background(), long)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if len(created.Title) != titleMaxLen+len("...") {
		t.Errorf("title not truncated: %d chars", len(created.Title))
	}
	if !strings.HasSuffix(created.Title, "...") {
		t.Errorf("expected ellipsis suffix, got %q", created.Title)
	}
}

func TestMessagesChronological(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "hello")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := s.AddMessage(ctx, session.ID, RoleUser, "hello"); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if _, err := s.AddMessage(ctx, session.ID, RoleAssistant, "hi there"); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	messages, err := s.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != RoleUser || messages[1].Role != RoleAssistant {
		t.Errorf("messages out of order: %s, %s", messages[0].Role, messages[1].Role)
	}
}

func TestListSessionsEmpty(t *testing.T) {
	s := newTestStore(t)
	sessions, err := s.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions))
	}
}
