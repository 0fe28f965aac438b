package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCapacity  = 6
	DefaultRetention = 24 * time.Hour
)

// Message is a single role-tagged conversational turn. Immutable once stored.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// RoleContent is the projection of a Message fed to the upstream provider.
type RoleContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// session is a fixed-capacity ring of messages. Guarded by its own mutex so
// traffic on one session never blocks another.
type session struct {
	mu    sync.Mutex
	ring  []Message
	head  int // index of the oldest message
	count int
}

func (s *session) push(m Message) {
	if s.count < len(s.ring) {
		s.ring[(s.head+s.count)%len(s.ring)] = m
		s.count++
		return
	}
	// Full: overwrite the oldest slot.
	s.ring[s.head] = m
	s.head = (s.head + 1) % len(s.ring)
}

func (s *session) snapshot(limit int) []Message {
	if limit <= 0 || limit > s.count {
		limit = s.count
	}
	out := make([]Message, 0, limit)
	for i := s.count - limit; i < s.count; i++ {
		out = append(out, s.ring[(s.head+i)%len(s.ring)])
	}
	return out
}

func (s *session) newest() (time.Time, bool) {
	if s.count == 0 {
		return time.Time{}, false
	}
	return s.ring[(s.head+s.count-1)%len(s.ring)].Timestamp, true
}

// Store keeps per-session conversation memory in process memory. Sessions are
// created lazily on first append and removed by the retention sweep.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	capacity  int
	retention time.Duration
	onSweep   func(removed int)
}

func NewStore(capacity int, retention time.Duration) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		sessions:  make(map[string]*session),
		capacity:  capacity,
		retention: retention,
	}
}

// SetSweepHook registers a callback invoked after each sweep that removed at
// least one session.
func (st *Store) SetSweepHook(hook func(removed int)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.onSweep = hook
}

// NewSessionKey returns an unpredictable opaque session identifier.
func (st *Store) NewSessionKey() string {
	return uuid.NewString()
}

// Append records a turn for the session, creating it if absent and evicting
// the oldest turn once the session is at capacity.
func (st *Store) Append(sessionKey, role, content string) {
	st.mu.Lock()
	s, ok := st.sessions[sessionKey]
	if !ok {
		s = &session{ring: make([]Message, st.capacity)}
		st.sessions[sessionKey] = s
	}
	st.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.push(Message{Role: role, Content: content, Timestamp: time.Now().UTC()})
}

// Messages returns up to limit most recent messages in append order. A limit
// of zero or less means all. Unknown sessions yield an empty slice.
func (st *Store) Messages(sessionKey string, limit int) []Message {
	st.mu.RLock()
	s, ok := st.sessions[sessionKey]
	st.mu.RUnlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(limit)
}

// RoleContentPairs projects the full session history into the wire shape sent
// to the upstream provider.
func (st *Store) RoleContentPairs(sessionKey string) []RoleContent {
	msgs := st.Messages(sessionKey, 0)
	if len(msgs) == 0 {
		return nil
	}
	out := make([]RoleContent, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, RoleContent{Role: m.Role, Content: m.Content})
	}
	return out
}

// Clear empties the session's history and reports whether it existed.
func (st *Store) Clear(sessionKey string) bool {
	st.mu.RLock()
	s, ok := st.sessions[sessionKey]
	st.mu.RUnlock()
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = 0
	s.count = 0
	return true
}

// Len reports the number of known sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// SweepExpired removes every session whose newest message is older than the
// retention window as of now, and returns how many were removed. Empty
// sessions (cleared and never re-used) are removed as well. Each removal takes
// the registry lock briefly; in-flight appends on other sessions proceed.
func (st *Store) SweepExpired(now time.Time) int {
	st.mu.RLock()
	keys := make([]string, 0, len(st.sessions))
	for k := range st.sessions {
		keys = append(keys, k)
	}
	st.mu.RUnlock()

	removed := 0
	for _, k := range keys {
		st.mu.RLock()
		s, ok := st.sessions[k]
		st.mu.RUnlock()
		if !ok {
			continue
		}

		s.mu.Lock()
		newest, has := s.newest()
		expired := !has || now.Sub(newest) > st.retention
		s.mu.Unlock()
		if !expired {
			continue
		}

		st.mu.Lock()
		// Re-check under the write lock: a concurrent append may have revived it.
		if cur, ok := st.sessions[k]; ok && cur == s {
			cur.mu.Lock()
			newest, has = cur.newest()
			if !has || now.Sub(newest) > st.retention {
				delete(st.sessions, k)
				removed++
			}
			cur.mu.Unlock()
		}
		st.mu.Unlock()
	}

	st.mu.RLock()
	hook := st.onSweep
	st.mu.RUnlock()
	if hook != nil && removed > 0 {
		hook(removed)
	}
	return removed
}

// StartJanitor runs SweepExpired on a ticker until the context is cancelled.
func (st *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.SweepExpired(time.Now().UTC())
			}
		}
	}()
}
