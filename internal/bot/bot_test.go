package bot

import (
	"testing"

	"github.com/kapu/connect4-arena-go/internal/board"
)

func place(g *board.Game, col int, p board.Player) {
	g.Columns[col] = append(g.Columns[col], p)
}

func TestTakesImmediateWin(t *testing.T) {
	g := board.NewGame(0, 0)
	place(g, 0, board.Player2)
	place(g, 1, board.Player2)
	place(g, 2, board.Player2)
	g.Current = board.Player2

	col, ok := ChooseMove(g, board.Player2)
	if !ok || col != 3 {
		t.Fatalf("ChooseMove = %d,%v, want 3", col, ok)
	}
}

func TestWinBeatsBlock(t *testing.T) {
	// both sides threaten; the bot must prefer its own win over the block
	g := board.NewGame(0, 0)
	place(g, 0, board.Player1)
	place(g, 1, board.Player1)
	place(g, 2, board.Player1)
	place(g, 4, board.Player2)
	place(g, 4, board.Player2)
	place(g, 4, board.Player2)
	g.Current = board.Player2

	col, ok := ChooseMove(g, board.Player2)
	if !ok || col != 4 {
		t.Fatalf("ChooseMove = %d,%v, want winning column 4", col, ok)
	}
}

func TestBlocksOpponentWin(t *testing.T) {
	g := board.NewGame(0, 0)
	place(g, 0, board.Player1)
	place(g, 1, board.Player1)
	place(g, 2, board.Player1)
	g.Current = board.Player2

	col, ok := ChooseMove(g, board.Player2)
	if !ok || col != 3 {
		t.Fatalf("ChooseMove = %d,%v, want blocking column 3", col, ok)
	}
}

func TestBuildsThreatOverCenter(t *testing.T) {
	// two in a row at 0,1: extending at 2 creates a completable three and
	// must beat the bare center preference; column 3 would create one threat
	// too, but 2 is encountered first
	g := board.NewGame(0, 0)
	place(g, 0, board.Player2)
	place(g, 1, board.Player2)
	place(g, 6, board.Player1)
	place(g, 6, board.Player1)
	g.Current = board.Player2

	col, ok := ChooseMove(g, board.Player2)
	if !ok || col != 2 {
		t.Fatalf("ChooseMove = %d,%v, want threat-building column 2", col, ok)
	}
}

func TestMaximizesThreatCount(t *testing.T) {
	// discs at 2,3: columns 1 and 4 each make an open three worth two
	// completions, everything else at most zero; the first column reaching
	// the maximum wins the tie
	g := board.NewGame(0, 0)
	place(g, 2, board.Player2)
	place(g, 3, board.Player2)
	place(g, 6, board.Player1)
	place(g, 6, board.Player1)
	g.Current = board.Player2

	col, ok := ChooseMove(g, board.Player2)
	if !ok || col != 1 {
		t.Fatalf("ChooseMove = %d,%v, want 1 (two-threat column, first found)", col, ok)
	}
}

func TestPrefersCenterOnEmptyBoard(t *testing.T) {
	g := board.NewGame(0, 0)
	col, ok := ChooseMove(g, board.Player2)
	if !ok || col != 3 {
		t.Fatalf("ChooseMove = %d,%v, want center 3", col, ok)
	}
}

func TestNoMoveOnFullBoard(t *testing.T) {
	g := board.NewGame(0, 0)
	side := board.Player1
	for c := 0; c < g.Cols; c++ {
		for r := 0; r < g.Rows; r++ {
			place(g, c, side)
			side = side.Other()
		}
	}
	if _, ok := ChooseMove(g, board.Player2); ok {
		t.Fatal("expected no move on a full board")
	}
}

func TestCenterOrder(t *testing.T) {
	got := centerOrder(7)
	want := []int{3, 2, 4, 1, 5, 0, 6}
	if len(got) != len(want) {
		t.Fatalf("centerOrder(7) = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("centerOrder(7) = %v, want %v", got, want)
		}
	}
}
