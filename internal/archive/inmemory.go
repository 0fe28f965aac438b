package archive

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process archive for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string][]Record)}
}

func (s *InMemoryStore) SaveTurn(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.records[record.SessionID] = append(s.records[record.SessionID], record)
	return nil
}

// Session returns the archived turns for a session, oldest first. Test and
// inspection helper; the request path never reads the archive.
func (s *InMemoryStore) Session(sessionID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.records[sessionID]
	out := make([]Record, len(arr))
	copy(out, arr)
	return out
}

func (s *InMemoryStore) Close() error { return nil }
