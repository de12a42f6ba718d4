// Package matchmaker pairs waiting participants in arrival order and falls
// back to a bot opponent when nobody shows up within the wait threshold.
package matchmaker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/connect4-arena-go/internal/arena"
	"github.com/kapu/connect4-arena-go/internal/obslog"
)

// DefaultBotFallback is how long an entrant waits before getting a bot game.
const DefaultBotFallback = 30 * time.Second

type entry struct {
	username  string
	transport arena.Transport
	timer     *time.Timer
}

// Queue is the FIFO matchmaking pool. Pairing happens eagerly on join, so
// the queue holds at most unpaired entrants.
type Queue struct {
	mu          sync.Mutex
	sessions    *arena.Manager
	botFallback time.Duration

	waiting     []*entry
	byUser      map[string]*entry
	byTransport map[arena.Transport]*entry
}

// New builds a queue feeding matched pairs into sessions. A non-positive
// botFallback disables the bot fallback entirely.
func New(sessions *arena.Manager, botFallback time.Duration) *Queue {
	return &Queue{
		sessions:    sessions,
		botFallback: botFallback,
		byUser:      make(map[string]*entry),
		byTransport: make(map[arena.Transport]*entry),
	}
}

// Len reports how many entrants are currently waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// Join enters the pool. If another entrant is already waiting the two are
// paired immediately and matched reports true. A player with a pending entry
// cannot join again, whichever connection the second attempt arrives on.
func (q *Queue) Join(username string, t arena.Transport) (matched bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.byUser[username]; ok {
		return false
	}

	if len(q.waiting) > 0 {
		head := q.waiting[0]
		q.removeLocked(head)
		obslog.L().Info("queue_pair",
			zap.String("player1", head.username), zap.String("player2", username))
		q.sessions.CreateSession(
			arena.SeatSpec{Username: head.username, Transport: head.transport},
			arena.SeatSpec{Username: username, Transport: t},
		)
		return true
	}

	e := &entry{username: username, transport: t}
	if q.botFallback > 0 {
		e.timer = time.AfterFunc(q.botFallback, func() { q.fallback(e) })
	}
	q.waiting = append(q.waiting, e)
	q.byUser[username] = e
	q.byTransport[t] = e
	obslog.L().Info("queue_join",
		zap.String("username", username), zap.Int("waiting", len(q.waiting)))
	return false
}

// Leave withdraws the entrant bound to t. Reports whether anything was
// removed.
func (q *Queue) Leave(t arena.Transport) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.byTransport[t]
	if !ok {
		return false
	}
	q.removeLocked(e)
	obslog.L().Info("queue_leave", zap.String("username", e.username))
	return true
}

func (q *Queue) fallback(e *entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.byTransport[e.transport] != e {
		return // already paired or withdrawn
	}
	q.removeLocked(e)
	obslog.L().Info("queue_bot_fallback", zap.String("username", e.username))
	q.sessions.CreateBotSession(arena.SeatSpec{Username: e.username, Transport: e.transport})
}

func (q *Queue) removeLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	delete(q.byUser, e.username)
	delete(q.byTransport, e.transport)
	for i, w := range q.waiting {
		if w == e {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			break
		}
	}
}
