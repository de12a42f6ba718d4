package arena

import (
	"github.com/kapu/connect4-arena-go/internal/board"
	"github.com/kapu/connect4-arena-go/pkg/c4dto"
)

// boardSnapshot renders the column stacks as a dense cols x rows grid of
// player numbers, empty cells as 0.
func boardSnapshot(g *board.Game) [][]int {
	grid := make([][]int, g.Cols)
	for c := 0; c < g.Cols; c++ {
		grid[c] = make([]int, g.Rows)
		for r := 0; r < g.Rows; r++ {
			grid[c][r] = int(g.CellAt(c, r))
		}
	}
	return grid
}

func moveRecords(moves []board.Move) []c4dto.MoveRecord {
	out := make([]c4dto.MoveRecord, len(moves))
	for i, mv := range moves {
		out[i] = c4dto.MoveRecord{
			Player:    int(mv.Player),
			Col:       mv.Col,
			Row:       mv.Row,
			MoveIndex: mv.Index,
			TS:        mv.TS.UnixMilli(),
		}
	}
	return out
}

func cellRefs(cells []board.Cell) []c4dto.CellRef {
	out := make([]c4dto.CellRef, len(cells))
	for i, c := range cells {
		out[i] = c4dto.CellRef{Col: c.Col, Row: c.Row}
	}
	return out
}

// publicState builds the full snapshot both seats can see. There is no
// hidden information in this game, so one serialization serves everyone.
func publicState(sess *Session) c4dto.GameState {
	g := sess.Game
	players := make(map[string]c4dto.SeatInfo, 2)
	players["1"] = c4dto.SeatInfo{Username: sess.Seats[0].Username, IsBot: sess.Seats[0].IsBot}
	players["2"] = c4dto.SeatInfo{Username: sess.Seats[1].Username, IsBot: sess.Seats[1].IsBot}
	state := c4dto.GameState{
		Type:          c4dto.TypeGameState,
		GameID:        sess.ID,
		Board:         boardSnapshot(g),
		CurrentPlayer: int(g.Current),
		Moves:         moveRecords(g.Moves),
		Status:        string(g.Status),
		Winner:        int(g.Winner),
		Draw:          g.Draw,
		WinningCells:  cellRefs(g.WinningCells),
		Players:       players,
	}
	return state
}
