package board

import (
	"errors"
	"time"
)

const (
	DefaultRows = 6
	DefaultCols = 7
)

// Player identifies a side on the board. Zero means an empty cell.
type Player int8

const (
	None    Player = 0
	Player1 Player = 1
	Player2 Player = 2
)

// Other returns the opposing side.
func (p Player) Other() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return None
	}
}

// Status represents a game lifecycle state.
type Status string

const (
	StatusOngoing  Status = "ongoing"
	StatusFinished Status = "finished"
)

// Cell is a board coordinate, column-major like the column stacks.
type Cell struct {
	Col int `json:"c"`
	Row int `json:"r"`
}

// Move is one applied drop.
type Move struct {
	Player Player    `json:"player"`
	Col    int       `json:"col"`
	Row    int       `json:"row"`
	Index  int       `json:"moveIndex"`
	TS     time.Time `json:"ts"`
}

// Rejections returned by PlayMove. State is untouched on any of these.
var (
	ErrInvalidColumn = errors.New("invalid column")
	ErrColumnFull    = errors.New("column is full")
	ErrGameFinished  = errors.New("game already finished")
	ErrWrongTurn     = errors.New("not your turn")
)

// Game is the state machine for a single game. Columns holds one stack per
// column; a disc at Columns[c][r] sits so that every row below r is occupied.
// Mutated only through PlayMove, never resurrected once finished.
type Game struct {
	Rows    int
	Cols    int
	Columns [][]Player

	Current      Player
	Moves        []Move
	Status       Status
	Winner       Player
	Draw         bool
	WinningCells []Cell

	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time
}

// NewGame creates an empty ongoing game. Non-positive dimensions fall back to
// the standard 6x7.
func NewGame(rows, cols int) *Game {
	if rows <= 0 {
		rows = DefaultRows
	}
	if cols <= 0 {
		cols = DefaultCols
	}
	g := &Game{
		Rows:      rows,
		Cols:      cols,
		Columns:   make([][]Player, cols),
		Current:   Player1,
		Status:    StatusOngoing,
		CreatedAt: time.Now(),
	}
	for c := range g.Columns {
		g.Columns[c] = make([]Player, 0, rows)
	}
	return g
}

// MoveResult reports a successful PlayMove.
type MoveResult struct {
	Col          int
	Row          int
	Finished     bool
	Winner       Player
	Draw         bool
	WinningCells []Cell
	Next         Player
}

// PlayMove drops the current side's disc into col. When mover is not None it
// must equal the side to move. On a terminal move the game becomes immutably
// finished; otherwise the turn flips.
func (g *Game) PlayMove(col int, mover Player) (*MoveResult, error) {
	if g.Status != StatusOngoing {
		return nil, ErrGameFinished
	}
	if col < 0 || col >= g.Cols {
		return nil, ErrInvalidColumn
	}
	if g.ColumnFull(col) {
		return nil, ErrColumnFull
	}
	if mover != None && mover != g.Current {
		return nil, ErrWrongTurn
	}

	if g.StartedAt.IsZero() {
		g.StartedAt = time.Now()
	}

	side := g.Current
	row := len(g.Columns[col])
	g.Columns[col] = append(g.Columns[col], side)
	g.Moves = append(g.Moves, Move{
		Player: side,
		Col:    col,
		Row:    row,
		Index:  len(g.Moves) + 1,
		TS:     time.Now(),
	})

	res := &MoveResult{Col: col, Row: row}

	if g.checkWin(col, row, side) {
		g.Status = StatusFinished
		g.Winner = side
		g.EndedAt = time.Now()
		g.WinningCells = g.winningRun(col, row, side)
		res.Finished = true
		res.Winner = side
		res.WinningCells = g.WinningCells
		return res, nil
	}

	if g.BoardFull() {
		g.Status = StatusFinished
		g.Draw = true
		g.EndedAt = time.Now()
		res.Finished = true
		res.Draw = true
		return res, nil
	}

	g.Current = side.Other()
	res.Next = g.Current
	return res, nil
}

// Forfeit ends an ongoing game in favor of winner without a move being
// played. No-op once finished.
func (g *Game) Forfeit(winner Player) {
	if g.Status != StatusOngoing || winner == None {
		return
	}
	g.Status = StatusFinished
	g.Winner = winner
	g.EndedAt = time.Now()
}

// CellAt returns the occupant of (col, row), or None for empty or out of range.
func (g *Game) CellAt(col, row int) Player {
	if !g.inBounds(col, row) {
		return None
	}
	if row >= len(g.Columns[col]) {
		return None
	}
	return g.Columns[col][row]
}

func (g *Game) inBounds(col, row int) bool {
	return col >= 0 && col < g.Cols && row >= 0 && row < g.Rows
}

// ColumnFull reports whether col cannot take another disc. Out-of-range
// columns count as full.
func (g *Game) ColumnFull(col int) bool {
	if col < 0 || col >= g.Cols {
		return true
	}
	return len(g.Columns[col]) >= g.Rows
}

// BoardFull reports whether every column is at the row limit.
func (g *Game) BoardFull() bool {
	for c := range g.Columns {
		if len(g.Columns[c]) < g.Rows {
			return false
		}
	}
	return true
}

// LegalColumns lists playable columns in natural order.
func (g *Game) LegalColumns() []int {
	out := make([]int, 0, g.Cols)
	for c := 0; c < g.Cols; c++ {
		if !g.ColumnFull(c) {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns an independent deep copy, for simulation against a disposable
// instance without touching the authoritative one.
func (g *Game) Clone() *Game {
	cp := *g
	cp.Columns = make([][]Player, len(g.Columns))
	for c := range g.Columns {
		cp.Columns[c] = append(make([]Player, 0, g.Rows), g.Columns[c]...)
	}
	cp.Moves = append([]Move(nil), g.Moves...)
	cp.WinningCells = append([]Cell(nil), g.WinningCells...)
	return &cp
}

// IsWinningMove reports whether dropping p's disc into col would complete a
// run of four. Simulated on a copy; the receiver is never mutated.
func (g *Game) IsWinningMove(col int, p Player) bool {
	if g.ColumnFull(col) || p == None {
		return false
	}
	sim := g.Clone()
	row := len(sim.Columns[col])
	sim.Columns[col] = append(sim.Columns[col], p)
	return sim.checkWin(col, row, p)
}

// WithMove returns a copy with p's disc placed in col, ignoring turn order and
// termination. Nil when the column cannot take a disc. Used by the decision
// procedure to explore follow-up positions.
func (g *Game) WithMove(col int, p Player) *Game {
	if g.ColumnFull(col) || p == None {
		return nil
	}
	sim := g.Clone()
	sim.Columns[col] = append(sim.Columns[col], p)
	return sim
}

var axes = [4][2]int{
	{1, 0},  // horizontal
	{0, 1},  // vertical
	{1, 1},  // diagonal up-right
	{1, -1}, // diagonal down-right
}

func (g *Game) countDirection(col, row, dc, dr int, p Player) int {
	n := 0
	c, r := col+dc, row+dr
	for g.inBounds(c, r) && g.CellAt(c, r) == p {
		n++
		c += dc
		r += dr
	}
	return n
}

func (g *Game) checkWin(col, row int, p Player) bool {
	for _, a := range axes {
		total := 1 + g.countDirection(col, row, a[0], a[1], p) + g.countDirection(col, row, -a[0], -a[1], p)
		if total >= 4 {
			return true
		}
	}
	return false
}

// winningRun returns the canonical four winning cells: along the winning axis,
// walk back to the start of the contiguous run, collect it in order, and take
// the lowest four-cell slice that contains the just-placed cell.
func (g *Game) winningRun(col, row int, p Player) []Cell {
	for _, a := range axes {
		dc, dr := a[0], a[1]
		total := 1 + g.countDirection(col, row, dc, dr, p) + g.countDirection(col, row, -dc, -dr, p)
		if total < 4 {
			continue
		}
		startC, startR := col, row
		for g.inBounds(startC-dc, startR-dr) && g.CellAt(startC-dc, startR-dr) == p {
			startC -= dc
			startR -= dr
		}
		ordered := make([]Cell, 0, total)
		c, r := startC, startR
		for g.inBounds(c, r) && g.CellAt(c, r) == p {
			ordered = append(ordered, Cell{Col: c, Row: r})
			c += dc
			r += dr
		}
		for i := 0; i+4 <= len(ordered); i++ {
			slice := ordered[i : i+4]
			for _, s := range slice {
				if s.Col == col && s.Row == row {
					return append([]Cell(nil), slice...)
				}
			}
		}
		return append([]Cell(nil), ordered[:4]...)
	}
	return nil
}
