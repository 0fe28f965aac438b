package archive

import (
	"context"
	"testing"
)

func TestInMemorySaveTurn(t *testing.T) {
	s := NewInMemoryStore()
	err := s.SaveTurn(context.Background(), Record{SessionID: "s1", Role: "user", Content: "q"})
	if err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}
	err = s.SaveTurn(context.Background(), Record{SessionID: "s1", Role: "assistant", Content: "a"})
	if err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	got := s.Session("s1")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Fatalf("SaveTurn should fill ID and CreatedAt: %+v", got[0])
	}
	if got[0].Role != "user" || got[1].Role != "assistant" {
		t.Fatalf("order lost: %+v", got)
	}
}

func TestFactoryDefaultsToInMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "  ")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("empty database URL should yield the in-memory store, got %T", s)
	}
}
