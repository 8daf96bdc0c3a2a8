package game

import "fmt"

const Size = 10

type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// FallbackCell is the center-most cell, returned when a move is requested
// on a full grid.
var FallbackCell = Cell{Row: Size / 2, Col: Size / 2}

func InBounds(row, col int) bool {
	return row >= 0 && row < Size && col >= 0 && col < Size
}

// Grid is a value type: assigning or passing it by value copies every piece.
type Grid [Size][Size]Piece

func (g *Grid) Occupied(row, col int) bool {
	return InBounds(row, col) && !g[row][col].Empty()
}

// At returns the piece at (row, col) and whether the cell is occupied.
// Off-grid cells read as empty.
func (g *Grid) At(row, col int) (Piece, bool) {
	if !InBounds(row, col) {
		return Piece{}, false
	}
	p := g[row][col]
	return p, !p.Empty()
}

func (g *Grid) Place(row, col int, p Piece) error {
	if !InBounds(row, col) {
		return fmt.Errorf("place %d,%d: %w", row, col, ErrOutOfRange)
	}
	if !p.Owner.Valid() {
		return fmt.Errorf("place %d,%d: piece has no owner", row, col)
	}
	if !g[row][col].Empty() {
		return fmt.Errorf("place %d,%d: %w", row, col, ErrOccupied)
	}
	g[row][col] = p
	return nil
}

func (g *Grid) Remove(row, col int) error {
	if !InBounds(row, col) {
		return fmt.Errorf("remove %d,%d: %w", row, col, ErrOutOfRange)
	}
	if g[row][col].Empty() {
		return fmt.Errorf("remove %d,%d: %w", row, col, ErrEmptyCell)
	}
	g[row][col] = Piece{}
	return nil
}

func (g *Grid) Reset() {
	*g = Grid{}
}

func (g *Grid) Clone() Grid {
	return *g
}

// EmptyCells lists every empty cell in row-major order.
func (g *Grid) EmptyCells() []Cell {
	var cells []Cell
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if g[r][c].Empty() {
				cells = append(cells, Cell{Row: r, Col: c})
			}
		}
	}
	return cells
}

func (g *Grid) Full() bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if g[r][c].Empty() {
				return false
			}
		}
	}
	return true
}

func (g *Grid) Count(owner Owner, kind Kind) int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if p := g[r][c]; p.Owner == owner && p.Kind == kind {
				n++
			}
		}
	}
	return n
}
