package game

import "testing"

// fixedRand always returns the same values, which makes jitter and tie-breaks
// deterministic.
type fixedRand struct {
	f float64
	i int
}

func (r fixedRand) Float64() float64 { return r.f }

func (r fixedRand) Intn(n int) int {
	if r.i >= n {
		return n - 1
	}
	return r.i
}

func line(o Owner) Piece { return Piece{Owner: o, Kind: KindLine} }

func charger(o Owner, d Direction) Piece { return Piece{Owner: o, Kind: KindCharger, Dir: d} }

func converter(o Owner) Piece { return Piece{Owner: o, Kind: KindConverter} }

func mustPlace(t testing.TB, g *Grid, row, col int, p Piece) {
	t.Helper()
	if err := g.Place(row, col, p); err != nil {
		t.Fatalf("place %d,%d: %v", row, col, err)
	}
}
