package board

import (
	"errors"
	"testing"
)

func mustPlay(t *testing.T, g *Game, col int) *MoveResult {
	t.Helper()
	res, err := g.PlayMove(col, None)
	if err != nil {
		t.Fatalf("PlayMove(%d): %v", col, err)
	}
	return res
}

func TestHorizontalWin(t *testing.T) {
	g := NewGame(0, 0)
	// p1 drops 0,1,2,3; p2 wastes moves in column 6 in between
	for _, col := range []int{0, 6, 1, 6, 2, 6} {
		mustPlay(t, g, col)
	}
	res := mustPlay(t, g, 3)
	if !res.Finished || res.Winner != Player1 {
		t.Fatalf("expected player1 win, got %+v", res)
	}
	if g.Status != StatusFinished {
		t.Fatalf("status = %q, want finished", g.Status)
	}
	want := []Cell{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	if len(res.WinningCells) != 4 {
		t.Fatalf("winning cells: %v", res.WinningCells)
	}
	for i, c := range want {
		if res.WinningCells[i] != c {
			t.Fatalf("winning cells = %v, want %v", res.WinningCells, want)
		}
	}
}

func TestVerticalWin(t *testing.T) {
	g := NewGame(0, 0)
	for _, col := range []int{4, 0, 4, 0, 4, 0} {
		mustPlay(t, g, col)
	}
	res := mustPlay(t, g, 4)
	if !res.Finished || res.Winner != Player1 {
		t.Fatalf("expected vertical win for player1, got %+v", res)
	}
}

func TestDiagonalWins(t *testing.T) {
	// up-right diagonal for player1: (0,0) (1,1) (2,2) (3,3)
	g := NewGame(0, 0)
	for _, col := range []int{0, 1, 1, 2, 2, 3, 2, 3, 3, 5} {
		mustPlay(t, g, col)
	}
	res := mustPlay(t, g, 3) // p1 lands at (3,3)
	if !res.Finished || res.Winner != Player1 {
		t.Fatalf("expected up-right diagonal win, got %+v", res)
	}

	// down-right diagonal for player1: (0,3) (1,2) (2,1) (3,0)
	g2 := NewGame(0, 0)
	for _, col := range []int{3, 2, 2, 1, 1, 0, 1, 0, 0, 5} {
		mustPlay(t, g2, col)
	}
	res2 := mustPlay(t, g2, 0) // p1 lands at (0,3)
	if !res2.Finished || res2.Winner != Player1 {
		t.Fatalf("expected down-right diagonal win, got %+v", res2)
	}
}

func TestDrawDetection(t *testing.T) {
	g := NewGame(0, 0)
	// row-major fill yields a checkerboard on an odd width, which cannot
	// contain a run of four
	var last *MoveResult
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			last = mustPlay(t, g, c)
		}
	}
	if !g.BoardFull() {
		t.Fatal("board should be full")
	}
	if !last.Finished || !last.Draw || last.Winner != None {
		t.Fatalf("expected draw, got %+v", last)
	}
	if _, err := g.PlayMove(0, None); !errors.Is(err, ErrGameFinished) {
		t.Fatalf("err = %v, want ErrGameFinished", err)
	}
}

func TestRejections(t *testing.T) {
	g := NewGame(0, 0)
	if _, err := g.PlayMove(-1, None); !errors.Is(err, ErrInvalidColumn) {
		t.Fatalf("err = %v, want ErrInvalidColumn", err)
	}
	if _, err := g.PlayMove(7, None); !errors.Is(err, ErrInvalidColumn) {
		t.Fatalf("err = %v, want ErrInvalidColumn", err)
	}
	if _, err := g.PlayMove(0, Player2); !errors.Is(err, ErrWrongTurn) {
		t.Fatalf("err = %v, want ErrWrongTurn", err)
	}
	for i := 0; i < g.Rows; i++ {
		mustPlay(t, g, 0)
	}
	if _, err := g.PlayMove(0, None); !errors.Is(err, ErrColumnFull) {
		t.Fatalf("err = %v, want ErrColumnFull", err)
	}
	// rejections never mutate
	if len(g.Moves) != g.Rows {
		t.Fatalf("moves = %d, want %d", len(g.Moves), g.Rows)
	}
}

func TestTurnAlternation(t *testing.T) {
	g := NewGame(0, 0)
	want := Player1
	for _, col := range []int{0, 1, 2, 3, 4, 5, 6, 0, 1} {
		if g.Current != want {
			t.Fatalf("current = %v, want %v", g.Current, want)
		}
		res := mustPlay(t, g, col)
		if res.Next != want.Other() {
			t.Fatalf("next = %v, want %v", res.Next, want.Other())
		}
		want = want.Other()
	}
}

func TestGravityInvariant(t *testing.T) {
	g := NewGame(0, 0)
	for _, col := range []int{3, 3, 3, 2, 4, 2} {
		mustPlay(t, g, col)
	}
	for c := 0; c < g.Cols; c++ {
		h := len(g.Columns[c])
		if h > g.Rows {
			t.Fatalf("column %d overflows: %d", c, h)
		}
		for r := 0; r < g.Rows; r++ {
			occupied := g.CellAt(c, r) != None
			if occupied != (r < h) {
				t.Fatalf("gravity violated at (%d,%d)", c, r)
			}
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := NewGame(0, 0)
	mustPlay(t, g, 3)
	cp := g.Clone()
	mustPlay(t, cp, 3)
	if len(g.Columns[3]) != 1 || len(cp.Columns[3]) != 2 {
		t.Fatalf("clone shares state: %d vs %d", len(g.Columns[3]), len(cp.Columns[3]))
	}
	if g.Current == cp.Current {
		t.Fatal("clone shares turn state")
	}
}

func TestIsWinningMoveDoesNotMutate(t *testing.T) {
	g := NewGame(0, 0)
	for _, col := range []int{0, 6, 1, 6, 2, 5} {
		mustPlay(t, g, col)
	}
	if !g.IsWinningMove(3, Player1) {
		t.Fatal("expected column 3 to win for player1")
	}
	if g.IsWinningMove(3, Player2) {
		t.Fatal("column 3 should not win for player2")
	}
	if len(g.Columns[3]) != 0 || g.Status != StatusOngoing {
		t.Fatal("IsWinningMove mutated the game")
	}
}
