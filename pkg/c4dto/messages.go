// Package c4dto defines the JSON wire records exchanged with game clients.
// Every outbound record carries a "type" discriminator; inbound traffic is a
// single envelope with type-specific fields.
package c4dto

// Outbound message types.
const (
	TypeHello                = "hello"
	TypeAuthOK               = "auth_ok"
	TypeError                = "error"
	TypeQueued               = "queued"
	TypeLeftQueue            = "left_queue"
	TypeCreateBotAck         = "create_bot_ack"
	TypeMatched              = "matched"
	TypeMoveMade             = "move_made"
	TypeGameState            = "game_state"
	TypeInvalidMove          = "invalid_move"
	TypeGameOver             = "game_over"
	TypeOpponentDisconnected = "opponent_disconnected"
	TypeOpponentRejoined     = "opponent_rejoined"
	TypeRejoined             = "rejoined"
	TypeRejoinOK             = "rejoin_ok"
	TypeRematchOffer         = "rematch_offer"
	TypeRematchOfferSent     = "rematch_offer_sent"
	TypeRematchStatus        = "rematch_status"
	TypeRematchResponseAck   = "rematch_response_received"
	TypeRematchResult        = "rematch_result"
)

// Inbound message types.
const (
	TypeAuth           = "auth"
	TypeJoinQueue      = "join_queue"
	TypeLeaveQueue     = "leave_queue"
	TypeCreateBot      = "create_bot"
	TypePlayMove       = "play_move"
	TypeRejoin         = "rejoin"
	TypeRematchOfferIn = "rematch_offer"
	TypeRematchRespond = "rematch_response"
)

// ClientMessage is the inbound envelope. Fields are populated per Type.
type ClientMessage struct {
	Type           string `json:"type"`
	Username       string `json:"username,omitempty"`
	GameID         string `json:"gameId,omitempty"`
	Col            *int   `json:"col,omitempty"`
	ReconnectToken string `json:"reconnectToken,omitempty"`
	Accept         *bool  `json:"accept,omitempty"`
	Accepted       *bool  `json:"accepted,omitempty"`
}

// AcceptFlag tolerates clients that send either "accept" or "accepted".
func (m *ClientMessage) AcceptFlag() bool {
	if m.Accept != nil {
		return *m.Accept
	}
	if m.Accepted != nil {
		return *m.Accepted
	}
	return false
}

type Hello struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type AuthOK struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Ack struct {
	Type   string `json:"type"`
	GameID string `json:"gameId,omitempty"`
}

// SeatInfo is the public view of one seat.
type SeatInfo struct {
	Username string `json:"username"`
	IsBot    bool   `json:"isBot"`
}

// CellRef is a board coordinate on the wire.
type CellRef struct {
	Col int `json:"c"`
	Row int `json:"r"`
}

// MoveRecord is one applied move in a state snapshot or history record.
type MoveRecord struct {
	Player    int   `json:"player"`
	Col       int   `json:"col"`
	Row       int   `json:"row"`
	MoveIndex int   `json:"moveIndex"`
	TS        int64 `json:"ts"`
}

// GameState is the full public snapshot of a session.
type GameState struct {
	Type          string              `json:"type"`
	GameID        string              `json:"gameId"`
	Board         [][]int             `json:"board"`
	CurrentPlayer int                 `json:"currentPlayer"`
	Moves         []MoveRecord        `json:"moves"`
	Status        string              `json:"status"`
	Winner        int                 `json:"winner"`
	Draw          bool                `json:"draw"`
	WinningCells  []CellRef           `json:"winningCells"`
	Players       map[string]SeatInfo `json:"players"`
}

// Matched announces a freshly created session to one seat.
type Matched struct {
	Type           string    `json:"type"`
	GameID         string    `json:"gameId"`
	YouAre         int       `json:"youAre"`
	Opponent       SeatInfo  `json:"opponent"`
	ReconnectToken string    `json:"reconnectToken"`
	StartedAt      int64     `json:"startedAt"`
	GameState      GameState `json:"game_state"`
}

type MoveMade struct {
	Type       string `json:"type"`
	GameID     string `json:"gameId"`
	Player     int    `json:"player"`
	Col        int    `json:"col"`
	Row        int    `json:"row"`
	NextPlayer int    `json:"nextPlayer"`
}

type GameOver struct {
	Type         string       `json:"type"`
	GameID       string       `json:"gameId"`
	Result       string       `json:"result"` // "win" or "draw"
	Winner       int          `json:"winner"`
	WinnerName   string       `json:"winnerName,omitempty"`
	FinalBoard   [][]int      `json:"finalBoard"`
	Moves        []MoveRecord `json:"moves"`
	WinningCells []CellRef    `json:"winningCells"`
}

type OpponentDisconnected struct {
	Type        string `json:"type"`
	Username    string `json:"username"`
	ReconnectBy int64  `json:"reconnectBy"`
}

type OpponentRejoined struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type RematchOffer struct {
	Type   string `json:"type"`
	From   string `json:"from"`
	GameID string `json:"gameId"`
}

type RematchStatus struct {
	Type     string `json:"type"`
	From     string `json:"from"`
	Accepted bool   `json:"accepted"`
}

type RematchResult struct {
	Type     string `json:"type"`
	GameID   string `json:"gameId"`
	Accepted bool   `json:"accepted"`
}
