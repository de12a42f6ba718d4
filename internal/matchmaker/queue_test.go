package matchmaker

import (
	"sync"
	"testing"
	"time"

	"github.com/kapu/connect4-arena-go/internal/arena"
	"github.com/kapu/connect4-arena-go/pkg/c4dto"
)

type fakeConn struct {
	mu   sync.Mutex
	sent []any
}

func (c *fakeConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeConn) matched(t *testing.T) *c4dto.Matched {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.sent {
		if m, ok := v.(c4dto.Matched); ok {
			return &m
		}
	}
	return nil
}

func newTestQueue(botFallback time.Duration) *Queue {
	return New(arena.NewManager(arena.Options{}, nil), botFallback)
}

func TestJoinPairsInArrivalOrder(t *testing.T) {
	q := newTestQueue(0)
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	if q.Join("alice", c1) {
		t.Fatal("first entrant should wait")
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
	if !q.Join("bob", c2) {
		t.Fatal("second entrant should pair immediately")
	}
	if q.Len() != 0 {
		t.Fatalf("len = %d, want 0", q.Len())
	}

	m1 := c1.matched(t)
	m2 := c2.matched(t)
	if m1 == nil || m2 == nil {
		t.Fatal("both entrants should receive matched")
	}
	if m1.YouAre != 1 || m2.YouAre != 2 {
		t.Fatalf("seats = %d,%d; first in keeps seat 1", m1.YouAre, m2.YouAre)
	}
	if m1.GameID != m2.GameID {
		t.Fatal("pair landed in different games")
	}
	if m1.Opponent.Username != "bob" || m2.Opponent.Username != "alice" {
		t.Fatalf("opponents = %q,%q", m1.Opponent.Username, m2.Opponent.Username)
	}
}

func TestJoinTwiceIsNoop(t *testing.T) {
	q := newTestQueue(0)
	c1 := &fakeConn{}

	q.Join("alice", c1)
	if q.Join("alice", c1) {
		t.Fatal("re-join should not pair with itself")
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
}

func TestSameUsernameOnSecondConnectionIsNoop(t *testing.T) {
	q := newTestQueue(0)
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	q.Join("alice", c1)
	if q.Join("alice", c2) {
		t.Fatal("pending player must not be paired against themselves")
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
	if m := c1.matched(t); m != nil {
		t.Fatalf("matched while alone in queue: %+v", m)
	}
	if m := c2.matched(t); m != nil {
		t.Fatalf("second connection matched: %+v", m)
	}

	// a different player still pairs against the original entry
	c3 := &fakeConn{}
	if !q.Join("bob", c3) {
		t.Fatal("bob should pair with alice")
	}
	m := c1.matched(t)
	if m == nil || m.Opponent.Username != "bob" {
		t.Fatalf("alice matched = %+v, want opponent bob", m)
	}
}

func TestLeave(t *testing.T) {
	q := newTestQueue(0)
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	q.Join("alice", c1)
	if !q.Leave(c1) {
		t.Fatal("leave should remove the waiting entrant")
	}
	if q.Leave(c1) {
		t.Fatal("second leave should be a no-op")
	}
	if q.Join("bob", c2) {
		t.Fatal("bob should wait; alice already left")
	}
}

func TestBotFallbackAfterWait(t *testing.T) {
	q := newTestQueue(20 * time.Millisecond)
	c1 := &fakeConn{}

	q.Join("alice", c1)
	time.Sleep(80 * time.Millisecond)

	if q.Len() != 0 {
		t.Fatalf("len = %d, want 0 after fallback", q.Len())
	}
	m := c1.matched(t)
	if m == nil {
		t.Fatal("entrant never matched with the bot")
	}
	if !m.Opponent.IsBot {
		t.Fatalf("opponent = %+v, want bot", m.Opponent)
	}
}

func TestLeaveDisarmsFallback(t *testing.T) {
	q := newTestQueue(20 * time.Millisecond)
	c1 := &fakeConn{}

	q.Join("alice", c1)
	q.Leave(c1)
	time.Sleep(80 * time.Millisecond)

	if m := c1.matched(t); m != nil {
		t.Fatalf("matched after leaving: %+v", m)
	}
}
