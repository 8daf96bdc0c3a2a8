package game

const WinLength = 5

// axes are horizontal, vertical, diagonal-down and diagonal-up.
var axes = [4]Direction{{DR: 0, DC: 1}, {DR: 1, DC: 0}, {DR: 1, DC: 1}, {DR: 1, DC: -1}}

func isOwnLine(g *Grid, row, col int, owner Owner) bool {
	p, ok := g.At(row, col)
	return ok && p.Owner == owner && p.Kind == KindLine
}

// IsWinningCell reports whether the line-piece at (row, col) belongs to owner
// and sits on a run of at least WinLength of owner's line-pieces.
func IsWinningCell(g *Grid, row, col int, owner Owner) bool {
	return len(winningRun(g, row, col, owner)) >= WinLength
}

func winningRun(g *Grid, row, col int, owner Owner) []Cell {
	if !isOwnLine(g, row, col, owner) {
		return nil
	}
	for _, d := range axes {
		run := []Cell{{Row: row, Col: col}}
		for _, sign := range [2]int{1, -1} {
			r, c := row+d.DR*sign, col+d.DC*sign
			for isOwnLine(g, r, c, owner) {
				run = append(run, Cell{Row: r, Col: c})
				r += d.DR * sign
				c += d.DC * sign
			}
		}
		if len(run) >= WinLength {
			return run
		}
	}
	return nil
}

func HasWinningLine(g *Grid, owner Owner) bool {
	return WinningLine(g, owner) != nil
}

// WinningLine returns the cells of the first winning run found in row-major
// order, or nil.
func WinningLine(g *Grid, owner Owner) []Cell {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if run := winningRun(g, r, c, owner); run != nil {
				return run
			}
		}
	}
	return nil
}
