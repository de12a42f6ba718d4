// Package arena owns every in-progress session: move application, disconnect
// and forfeiture handling, and the post-game rematch negotiation. All state is
// in-memory; a process restart loses in-progress sessions by design.
package arena

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/connect4-arena-go/internal/board"
	"github.com/kapu/connect4-arena-go/internal/bot"
	"github.com/kapu/connect4-arena-go/internal/obslog"
	"github.com/kapu/connect4-arena-go/pkg/c4dto"
)

// BotName is the display name given to the automated opponent's seat.
const BotName = "BOT"

// Options tunes the registry. Zero values fall back to production defaults.
type Options struct {
	Rows              int
	Cols              int
	ForfeitTimeout    time.Duration // grace window before a disconnect forfeits
	RematchWindow     time.Duration // decision window after a rematch offer
	RematchStartDelay time.Duration // pause before the rematch session spawns
	SessionLinger     time.Duration // how long a concluded session stays addressable
}

func (o Options) withDefaults() Options {
	if o.Rows <= 0 {
		o.Rows = board.DefaultRows
	}
	if o.Cols <= 0 {
		o.Cols = board.DefaultCols
	}
	if o.ForfeitTimeout <= 0 {
		o.ForfeitTimeout = 30 * time.Second
	}
	if o.RematchWindow <= 0 {
		o.RematchWindow = 10 * time.Second
	}
	if o.RematchStartDelay <= 0 {
		o.RematchStartDelay = 400 * time.Millisecond
	}
	if o.SessionLinger <= 0 {
		o.SessionLinger = 60 * time.Second
	}
	return o
}

type seatRef struct {
	session *Session
	idx     int // 1 or 2
}

// Manager is the session registry. A single mutex serializes every
// state-mutating operation, so moves, disconnects, rematch responses and
// timer firings never interleave within a session.
type Manager struct {
	mu   sync.Mutex
	opts Options
	rec  Recorder

	sessions    map[string]*Session
	byTransport map[Transport]seatRef
	byToken     map[string]seatRef
}

// NewManager builds a registry. rec may be nil when no analytics sink is
// wired.
func NewManager(opts Options, rec Recorder) *Manager {
	return &Manager{
		opts:        opts.withDefaults(),
		rec:         rec,
		sessions:    make(map[string]*Session),
		byTransport: make(map[Transport]seatRef),
		byToken:     make(map[string]seatRef),
	}
}

func (m *Manager) record(kind string, payload any) {
	if m.rec != nil {
		m.rec.Record(kind, payload)
	}
}

// SessionCount reports how many sessions (including concluded, lingering
// ones) the registry currently holds.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Lookup returns the session with the given id, or nil.
func (m *Manager) Lookup(gameID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[gameID]
}

// CreateSession starts a fresh game between two participants and notifies
// both live transports of the match.
func (m *Manager) CreateSession(a, b SeatSpec) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createSessionLocked(a, b)
}

// CreateBotSession starts a game between one human participant and the
// automated opponent.
func (m *Manager) CreateBotSession(a SeatSpec) *Session {
	return m.CreateSession(a, SeatSpec{Username: BotName, IsBot: true})
}

func (m *Manager) createSessionLocked(a, b SeatSpec) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		Game:      board.NewGame(m.opts.Rows, m.opts.Cols),
		CreatedAt: time.Now(),
	}
	specs := [2]SeatSpec{a, b}
	for i, spec := range specs {
		seat := &Seat{
			Username:       spec.Username,
			Transport:      spec.Transport,
			IsBot:          spec.IsBot,
			ReconnectToken: uuid.NewString(),
		}
		sess.Seats[i] = seat
		ref := seatRef{session: sess, idx: i + 1}
		m.byToken[seat.ReconnectToken] = ref
		if seat.Transport != nil {
			m.byTransport[seat.Transport] = ref
		}
	}
	m.sessions[sess.ID] = sess

	state := publicState(sess)
	startedAt := time.Now().UnixMilli()
	for idx := 1; idx <= 2; idx++ {
		seat := sess.seat(idx)
		opp := sess.seat(otherIdx(idx))
		m.sendToSeat(seat, c4dto.Matched{
			Type:           c4dto.TypeMatched,
			GameID:         sess.ID,
			YouAre:         idx,
			Opponent:       c4dto.SeatInfo{Username: opp.Username, IsBot: opp.IsBot},
			ReconnectToken: seat.ReconnectToken,
			StartedAt:      startedAt,
			GameState:      state,
		})
	}

	m.record(FactGameStarted, GameStartedFact{
		GameID:    sess.ID,
		Players:   [2]string{a.Username, b.Username},
		IsBotGame: a.IsBot || b.IsBot,
		StartedAt: time.Now(),
	})
	obslog.L().Info("session_create",
		zap.String("game_id", sess.ID),
		zap.String("player1", a.Username),
		zap.String("player2", b.Username),
		zap.Bool("bot_game", a.IsBot || b.IsBot),
	)
	return sess
}

// resolveSeatLocked maps a credential (preferred) or transport handle to a
// seat index within sess, or 0 when the caller cannot be identified.
func (m *Manager) resolveSeatLocked(sess *Session, token string, from Transport) int {
	if token != "" {
		if ref, ok := m.byToken[token]; ok && ref.session == sess {
			return ref.idx
		}
		return 0
	}
	if from != nil {
		if ref, ok := m.byTransport[from]; ok && ref.session == sess {
			return ref.idx
		}
	}
	return 0
}

// ApplyMove applies one column drop for the caller identified by token or
// transport handle. On success both seats receive the move and a full state
// snapshot; if the mover leaves a bot on turn, the bot's reply is computed
// and applied within the same step.
func (m *Manager) ApplyMove(gameID, token string, from Transport, col int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.sessions[gameID]
	if sess == nil {
		return ErrUnknownSession
	}
	idx := m.resolveSeatLocked(sess, token, from)
	if idx == 0 {
		return ErrUnknownPlayer
	}
	if sess.Game.Status == board.StatusOngoing && sess.Game.Current != board.Player(idx) {
		return board.ErrWrongTurn
	}
	if err := m.playLocked(sess, idx, col); err != nil {
		return err
	}
	// bot replies are part of the same logical step; nothing may interleave
	for sess.Game.Status == board.StatusOngoing {
		next := int(sess.Game.Current)
		seat := sess.seat(next)
		if seat == nil || !seat.IsBot {
			break
		}
		botCol, ok := bot.ChooseMove(sess.Game, sess.Game.Current)
		if !ok {
			break
		}
		if err := m.playLocked(sess, next, botCol); err != nil {
			obslog.L().Error("bot_move_rejected",
				zap.String("game_id", sess.ID), zap.Int("col", botCol), zap.Error(err))
			break
		}
	}
	return nil
}

func (m *Manager) playLocked(sess *Session, idx, col int) error {
	res, err := sess.Game.PlayMove(col, board.Player(idx))
	if err != nil {
		return err
	}
	m.broadcast(sess, c4dto.MoveMade{
		Type:       c4dto.TypeMoveMade,
		GameID:     sess.ID,
		Player:     idx,
		Col:        res.Col,
		Row:        res.Row,
		NextPlayer: int(sess.Game.Current),
	})
	m.broadcast(sess, publicState(sess))
	m.record(FactMoveMade, MoveMadeFact{
		GameID:    sess.ID,
		Player:    idx,
		Col:       res.Col,
		Row:       res.Row,
		MoveIndex: len(sess.Game.Moves),
	})
	obslog.L().Debug("move",
		zap.String("game_id", sess.ID),
		zap.Int("player", idx),
		zap.Int("col", res.Col),
		zap.Int("row", res.Row),
	)
	if res.Finished {
		m.finalizeLocked(sess, "normal")
	}
	return nil
}

// finalizeLocked records the terminal fact, broadcasts game_over, cancels
// every timer the session owns, and either destroys the session (forfeit) or
// leaves it lingering so a rematch can still be negotiated.
func (m *Manager) finalizeLocked(sess *Session, reason string) {
	g := sess.Game
	winner := int(g.Winner)
	result := "win"
	winnerName := ""
	if g.Draw {
		result = "draw"
		winner = 0
	} else if s := sess.seat(winner); s != nil {
		winnerName = s.Username
	}

	m.record(FactGameEnded, GameEndedFact{
		GameID:       sess.ID,
		Players:      [2]string{sess.Seats[0].Username, sess.Seats[1].Username},
		Winner:       winner,
		WinnerName:   winnerName,
		Result:       result,
		Reason:       reason,
		Moves:        append([]board.Move(nil), g.Moves...),
		WinningCells: append([]board.Cell(nil), g.WinningCells...),
		StartedAt:    g.StartedAt,
		EndedAt:      g.EndedAt,
	})

	m.broadcast(sess, c4dto.GameOver{
		Type:         c4dto.TypeGameOver,
		GameID:       sess.ID,
		Result:       result,
		Winner:       winner,
		WinnerName:   winnerName,
		FinalBoard:   boardSnapshot(g),
		Moves:        moveRecords(g.Moves),
		WinningCells: cellRefs(g.WinningCells),
	})
	obslog.L().Info("session_end",
		zap.String("game_id", sess.ID),
		zap.String("result", result),
		zap.String("reason", reason),
		zap.String("winner", winnerName),
	)

	for i := range sess.forfeit {
		if sess.forfeit[i] != nil {
			sess.forfeit[i].Stop()
			sess.forfeit[i] = nil
		}
	}

	if reason == "forfeit" {
		m.destroySessionLocked(sess)
		return
	}
	// keep the concluded session addressable for the rematch protocol
	var linger *time.Timer
	linger = time.AfterFunc(m.opts.SessionLinger, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.sessions[sess.ID] != sess || sess.linger != linger {
			return
		}
		if sess.rematch != nil {
			return // rematch resolution tears the session down instead
		}
		m.destroySessionLocked(sess)
	})
	sess.linger = linger
}

// destroySessionLocked removes the session and every index entry and stops
// any timer it still owns. No timer fires against a destroyed session: every
// callback re-checks membership under the lock.
func (m *Manager) destroySessionLocked(sess *Session) {
	for i := range sess.forfeit {
		if sess.forfeit[i] != nil {
			sess.forfeit[i].Stop()
			sess.forfeit[i] = nil
		}
	}
	if sess.rematch != nil {
		if sess.rematch.timer != nil {
			sess.rematch.timer.Stop()
		}
		sess.rematch = nil
	}
	if sess.linger != nil {
		sess.linger.Stop()
		sess.linger = nil
	}
	for _, seat := range sess.Seats {
		delete(m.byToken, seat.ReconnectToken)
		if seat.Transport != nil {
			if ref, ok := m.byTransport[seat.Transport]; ok && ref.session == sess {
				delete(m.byTransport, seat.Transport)
			}
		}
	}
	delete(m.sessions, sess.ID)
}

// HandleDisconnect clears the seat bound to the closed transport, warns the
// opponent, and arms the forfeiture timer. Unknown transports are ignored.
func (m *Manager) HandleDisconnect(t Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, ok := m.byTransport[t]
	if !ok {
		return
	}
	delete(m.byTransport, t)
	sess, idx := ref.session, ref.idx
	seat := sess.seat(idx)
	seat.Transport = nil

	if sess.Game.Status != board.StatusOngoing {
		return
	}

	deadline := time.Now().Add(m.opts.ForfeitTimeout)
	m.sendToSeat(sess.seat(otherIdx(idx)), c4dto.OpponentDisconnected{
		Type:        c4dto.TypeOpponentDisconnected,
		Username:    seat.Username,
		ReconnectBy: deadline.UnixMilli(),
	})
	obslog.L().Info("seat_disconnect",
		zap.String("game_id", sess.ID),
		zap.Int("seat", idx),
		zap.String("username", seat.Username),
	)

	if sess.forfeit[idx-1] != nil {
		return // timer already running; do not shorten the window
	}
	var timer *time.Timer
	timer = time.AfterFunc(m.opts.ForfeitTimeout, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.sessions[sess.ID] != sess || sess.forfeit[idx-1] != timer {
			return
		}
		sess.forfeit[idx-1] = nil
		if sess.Game.Status != board.StatusOngoing {
			return
		}
		sess.Game.Forfeit(board.Player(otherIdx(idx)))
		obslog.L().Info("seat_forfeit",
			zap.String("game_id", sess.ID),
			zap.Int("seat", idx),
			zap.String("username", seat.Username),
		)
		m.finalizeLocked(sess, "forfeit")
	})
	sess.forfeit[idx-1] = timer
}

// HandleReconnect rebinds the seat owning the credential to a new transport,
// cancels its pending forfeiture, and resends the full state. Returns the
// session id, or false when no active session holds the credential.
func (m *Manager) HandleReconnect(token string, t Transport) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, ok := m.byToken[token]
	if !ok {
		return "", false
	}
	sess, idx := ref.session, ref.idx
	seat := sess.seat(idx)

	if sess.forfeit[idx-1] != nil {
		sess.forfeit[idx-1].Stop()
		sess.forfeit[idx-1] = nil
	}
	if seat.Transport != nil {
		delete(m.byTransport, seat.Transport)
	}
	seat.Transport = t
	m.byTransport[t] = ref

	m.sendToSeat(seat, c4dto.Ack{Type: c4dto.TypeRejoined, GameID: sess.ID})
	m.sendToSeat(seat, publicState(sess))
	m.sendToSeat(sess.seat(otherIdx(idx)), c4dto.OpponentRejoined{
		Type:     c4dto.TypeOpponentRejoined,
		Username: seat.Username,
	})
	obslog.L().Info("seat_rejoin",
		zap.String("game_id", sess.ID),
		zap.Int("seat", idx),
		zap.String("username", seat.Username),
	)
	return sess.ID, true
}

func (m *Manager) sendToSeat(seat *Seat, v any) {
	if seat == nil || seat.Transport == nil {
		return
	}
	_ = seat.Transport.Send(v)
}

func (m *Manager) broadcast(sess *Session, v any) {
	for _, seat := range sess.Seats {
		m.sendToSeat(seat, v)
	}
}
