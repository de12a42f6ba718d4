package arena

import (
	"errors"
	"time"

	"github.com/kapu/connect4-arena-go/internal/board"
)

// Transport delivers outbound messages to one connected client. Delivery is
// best-effort and must never block the caller for long; implementations
// swallow write failures. The interface value doubles as the connection
// identity key inside the registry, so implementations must be comparable
// (pointer receivers).
type Transport interface {
	Send(v any) error
}

// Recorder receives analytics facts. Implementations must not call back into
// the registry.
type Recorder interface {
	Record(kind string, payload any)
}

// Fact kinds handed to the Recorder.
const (
	FactGameStarted = "GameStarted"
	FactMoveMade    = "MoveMade"
	FactGameEnded   = "GameEnded"
)

type GameStartedFact struct {
	GameID    string    `json:"gameId"`
	Players   [2]string `json:"players"`
	IsBotGame bool      `json:"isBotGame"`
	StartedAt time.Time `json:"startedAt"`
}

type MoveMadeFact struct {
	GameID    string `json:"gameId"`
	Player    int    `json:"player"`
	Col       int    `json:"col"`
	Row       int    `json:"row"`
	MoveIndex int    `json:"moveIndex"`
}

type GameEndedFact struct {
	GameID       string       `json:"gameId"`
	Players      [2]string    `json:"players"`
	Winner       int          `json:"winner"` // 0 on draw
	WinnerName   string       `json:"winnerName,omitempty"`
	Result       string       `json:"result"` // "win" or "draw"
	Reason       string       `json:"reason"` // "normal" or "forfeit"
	Moves        []board.Move `json:"moves"`
	WinningCells []board.Cell `json:"winningCells,omitempty"`
	StartedAt    time.Time    `json:"startedAt"`
	EndedAt      time.Time    `json:"endedAt"`
}

// SeatSpec describes one participant when creating a session.
type SeatSpec struct {
	Username  string
	Transport Transport
	IsBot     bool
}

// Seat is one of the two fixed player slots in a session. Transport is nil
// while the player is disconnected. ReconnectToken is the private credential
// a client presents to reclaim the seat.
type Seat struct {
	Username       string
	Transport      Transport
	IsBot          bool
	ReconnectToken string
}

// Session binds one game to exactly two seats. Seats are addressed 1 and 2,
// matching board.Player1 and board.Player2.
type Session struct {
	ID        string
	Game      *board.Game
	Seats     [2]*Seat
	CreatedAt time.Time

	forfeit [2]*time.Timer
	rematch *negotiation
	linger  *time.Timer
}

func (s *Session) seat(idx int) *Seat {
	if idx < 1 || idx > 2 {
		return nil
	}
	return s.Seats[idx-1]
}

func otherIdx(idx int) int { return 3 - idx }

// negotiation tracks one pending rematch window for a finished session.
// A nil response means undecided.
type negotiation struct {
	responses [2]*bool
	timer     *time.Timer
}

func (n *negotiation) decided() bool {
	return n.responses[0] != nil && n.responses[1] != nil
}

func (n *negotiation) bothAccepted() bool {
	return n.responses[0] != nil && *n.responses[0] &&
		n.responses[1] != nil && *n.responses[1]
}

// Protocol rejections. Reported to the originating caller, never fatal, and
// never mutate state. Turn and column rejections surface as the board
// package's sentinels.
var (
	ErrUnknownSession = errors.New("game not found")
	ErrUnknownPlayer  = errors.New("unknown player")
	ErrOpponentGone   = errors.New("opponent not connected")
	ErrStillOngoing   = errors.New("game still in progress")
)
