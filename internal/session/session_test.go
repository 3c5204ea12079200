package session

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"courserag/internal/domain"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore(5)
	ctx := context.Background()
	id := s.Create()
	if id == "" {
		t.Fatal("empty session id")
	}
	if err := s.Append(ctx, id, domain.Turn{User: "hi", Assistant: "hello"}); err != nil {
		t.Fatal(err)
	}
	turns, err := s.History(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 || turns[0].User != "hi" || turns[0].Assistant != "hello" {
		t.Errorf("turns = %+v", turns)
	}
}

func TestMemoryStoreEvictsOldestTurn(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	id := s.Create()
	for i := 0; i < 4; i++ {
		if err := s.Append(ctx, id, domain.Turn{User: fmt.Sprintf("q%d", i), Assistant: fmt.Sprintf("a%d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	turns, _ := s.History(ctx, id)
	if len(turns) != 2 {
		t.Fatalf("history = %d turns, want 2", len(turns))
	}
	if turns[0].User != "q2" || turns[1].User != "q3" {
		t.Errorf("kept wrong turns: %+v", turns)
	}
}

func TestMemoryStoreSessionsIndependent(t *testing.T) {
	s := NewMemoryStore(5)
	ctx := context.Background()
	a, b := s.Create(), s.Create()
	_ = s.Append(ctx, a, domain.Turn{User: "only in a", Assistant: "x"})
	turns, _ := s.History(ctx, b)
	if len(turns) != 0 {
		t.Errorf("session b sees %d turns", len(turns))
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := OpenSQLiteStore(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()
	id := s.Create()
	for i := 0; i < 3; i++ {
		if err := s.Append(ctx, id, domain.Turn{User: fmt.Sprintf("q%d", i), Assistant: fmt.Sprintf("a%d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	turns, err := s.History(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 {
		t.Fatalf("history = %d turns, want 2", len(turns))
	}
	if turns[0].User != "q1" || turns[1].User != "q2" {
		t.Errorf("window = %+v", turns)
	}
}

func TestFormatHistory(t *testing.T) {
	got := FormatHistory([]domain.Turn{
		{User: "hi", Assistant: "hello"},
		{User: "more", Assistant: "sure"},
	})
	want := "User: hi\nAssistant: hello\nUser: more\nAssistant: sure"
	if got != want {
		t.Errorf("formatted history = %q", got)
	}
	if FormatHistory(nil) != "" {
		t.Error("empty history should format to empty string")
	}
}
