package history

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAppendEvictsOldest(t *testing.T) {
	st := NewStore(3, time.Hour)
	key := st.NewSessionKey()

	for i := 0; i < 5; i++ {
		st.Append(key, RoleUser, fmt.Sprintf("m%d", i))
	}

	msgs := st.Messages(key, 0)
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want capacity 3", len(msgs))
	}
	for i, want := range []string{"m2", "m3", "m4"} {
		if msgs[i].Content != want {
			t.Fatalf("msgs[%d] = %q, want %q", i, msgs[i].Content, want)
		}
	}
}

func TestAppendUnderCapacityKeepsOrder(t *testing.T) {
	st := NewStore(6, time.Hour)
	st.Append("s", RoleUser, "q1")
	st.Append("s", RoleAssistant, "a1")

	msgs := st.Messages("s", 0)
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Fatalf("unexpected order: %+v", msgs)
	}
	if msgs[0].Timestamp.IsZero() {
		t.Fatalf("timestamp should be set")
	}
}

func TestMessagesLimit(t *testing.T) {
	st := NewStore(6, time.Hour)
	for i := 0; i < 4; i++ {
		st.Append("s", RoleUser, fmt.Sprintf("m%d", i))
	}
	msgs := st.Messages("s", 2)
	if len(msgs) != 2 || msgs[0].Content != "m2" || msgs[1].Content != "m3" {
		t.Fatalf("limit projection wrong: %+v", msgs)
	}
}

func TestMessagesUnknownSession(t *testing.T) {
	st := NewStore(6, time.Hour)
	if msgs := st.Messages("nope", 0); len(msgs) != 0 {
		t.Fatalf("unknown session should yield empty, got %+v", msgs)
	}
}

func TestRoleContentPairs(t *testing.T) {
	st := NewStore(6, time.Hour)
	st.Append("s", RoleUser, "hello")
	st.Append("s", RoleAssistant, "hi")

	pairs := st.RoleContentPairs("s")
	if len(pairs) != 2 {
		t.Fatalf("len = %d, want 2", len(pairs))
	}
	if pairs[0] != (RoleContent{Role: RoleUser, Content: "hello"}) {
		t.Fatalf("pairs[0] = %+v", pairs[0])
	}
}

func TestClear(t *testing.T) {
	st := NewStore(6, time.Hour)
	if st.Clear("nope") {
		t.Fatalf("Clear() on unknown session should be false")
	}

	st.Append("s", RoleUser, "hello")
	if !st.Clear("s") {
		t.Fatalf("Clear() on known session should be true")
	}
	if msgs := st.Messages("s", 0); len(msgs) != 0 {
		t.Fatalf("cleared session should read empty, got %+v", msgs)
	}
}

func TestSweepExpired(t *testing.T) {
	st := NewStore(6, time.Hour)
	st.Append("old", RoleUser, "stale")
	st.Append("fresh", RoleUser, "recent")

	removed := st.SweepExpired(time.Now().UTC().Add(2 * time.Hour))
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	st.Append("old", RoleUser, "stale")
	st.Append("fresh", RoleUser, "recent")
	removed = st.SweepExpired(time.Now().UTC().Add(30 * time.Minute))
	if removed != 0 {
		t.Fatalf("in-window sessions should survive, removed %d", removed)
	}
	if len(st.Messages("fresh", 0)) != 1 {
		t.Fatalf("surviving session lost messages")
	}
}

func TestSweepHook(t *testing.T) {
	st := NewStore(6, time.Minute)
	var got int
	st.SetSweepHook(func(removed int) { got = removed })

	st.Append("s", RoleUser, "x")
	st.SweepExpired(time.Now().UTC().Add(time.Hour))
	if got != 1 {
		t.Fatalf("hook removed = %d, want 1", got)
	}
}

func TestNewSessionKeyUnique(t *testing.T) {
	st := NewStore(6, time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		k := st.NewSessionKey()
		if k == "" || seen[k] {
			t.Fatalf("duplicate or empty key %q", k)
		}
		seen[k] = true
	}
}

func TestConcurrentAppendsStayBounded(t *testing.T) {
	st := NewStore(4, time.Hour)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			key := fmt.Sprintf("s%d", g%4)
			for i := 0; i < 50; i++ {
				st.Append(key, RoleUser, "x")
				st.Messages(key, 0)
			}
		}(g)
	}
	wg.Wait()

	for g := 0; g < 4; g++ {
		if n := len(st.Messages(fmt.Sprintf("s%d", g), 0)); n != 4 {
			t.Fatalf("session s%d len = %d, want 4", g, n)
		}
	}
}
