// Package bot picks columns for the automated opponent. The policy is a fixed
// priority ladder evaluated on disposable board copies, so it is safe to call
// concurrently for independent games.
package bot

import (
	"github.com/kapu/connect4-arena-go/internal/board"
)

// ChooseMove returns the column the side p should play, or false when the
// board has no legal move left. Priority order: take an immediate win, block
// the opponent's immediate win, maximize the number of next-turn winning
// columns, then prefer center-outward, then the first legal column.
func ChooseMove(g *board.Game, p board.Player) (int, bool) {
	opp := p.Other()
	legal := g.LegalColumns()

	for _, c := range legal {
		if g.IsWinningMove(c, p) {
			return c, true
		}
	}

	for _, c := range legal {
		if g.IsWinningMove(c, opp) {
			return c, true
		}
	}

	bestCol, bestThreats := -1, -1
	for _, c := range legal {
		sim := g.WithMove(c, p)
		if sim == nil {
			continue
		}
		threats := 0
		for _, c2 := range sim.LegalColumns() {
			if sim.IsWinningMove(c2, p) {
				threats++
			}
		}
		if threats > bestThreats {
			bestThreats = threats
			bestCol = c
		}
	}
	if bestThreats > 0 && bestCol >= 0 {
		return bestCol, true
	}

	for _, c := range centerOrder(g.Cols) {
		if !g.ColumnFull(c) {
			return c, true
		}
	}

	if len(legal) > 0 {
		return legal[0], true
	}
	return 0, false
}

// centerOrder lists columns center first, spreading outward; for the standard
// 7-wide board this is 3, 2, 4, 1, 5, 0, 6.
func centerOrder(cols int) []int {
	out := make([]int, 0, cols)
	center := cols / 2
	out = append(out, center)
	for d := 1; len(out) < cols; d++ {
		if center-d >= 0 {
			out = append(out, center-d)
		}
		if center+d < cols {
			out = append(out, center+d)
		}
	}
	return out
}
