package game

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPlaceRejectsOccupiedAndOffGrid(t *testing.T) {
	var g Grid
	mustPlace(t, &g, 3, 3, line(Player1))

	if err := g.Place(3, 3, line(Player2)); !errors.Is(err, ErrOccupied) {
		t.Fatalf("expected ErrOccupied, got %v", err)
	}
	if p, _ := g.At(3, 3); p.Owner != Player1 {
		t.Fatalf("occupied cell was overwritten: %+v", p)
	}
	for _, c := range []Cell{{-1, 0}, {0, -1}, {Size, 0}, {0, Size}} {
		if err := g.Place(c.Row, c.Col, line(Player1)); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("place %v: expected ErrOutOfRange, got %v", c, err)
		}
	}
	if err := g.Place(1, 1, Piece{Kind: KindLine}); err == nil {
		t.Fatal("expected error for ownerless piece")
	}
}

func TestRemoveAndReset(t *testing.T) {
	var g Grid
	mustPlace(t, &g, 0, 0, line(Player1))
	mustPlace(t, &g, 9, 9, converter(Player2))

	if err := g.Remove(0, 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := g.Remove(0, 0); !errors.Is(err, ErrEmptyCell) {
		t.Fatalf("expected ErrEmptyCell, got %v", err)
	}
	if err := g.Remove(10, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	g.Reset()
	if len(g.EmptyCells()) != Size*Size {
		t.Fatalf("reset left %d occupied cells", Size*Size-len(g.EmptyCells()))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	var g Grid
	mustPlace(t, &g, 2, 2, line(Player1))
	clone := g.Clone()

	clone[2][2].Owner = Player2
	clone[2][2].Converted = true
	mustPlace(t, &clone, 4, 4, charger(Player2, Left))

	if p, _ := g.At(2, 2); p.Owner != Player1 || p.Converted {
		t.Fatalf("original mutated through clone: %+v", p)
	}
	if g.Occupied(4, 4) {
		t.Fatal("placement on clone leaked into original")
	}
}

func TestEmptyCellsRowMajorAndFull(t *testing.T) {
	var g Grid
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if r == 7 && c == 2 || r == 1 && c == 8 {
				continue
			}
			mustPlace(t, &g, r, c, charger(Player1, Up))
		}
	}
	empty := g.EmptyCells()
	if len(empty) != 2 || empty[0] != (Cell{1, 8}) || empty[1] != (Cell{7, 2}) {
		t.Fatalf("unexpected empty cells %v", empty)
	}
	if g.Full() {
		t.Fatal("grid with empty cells reported full")
	}
	mustPlace(t, &g, 1, 8, line(Player1))
	mustPlace(t, &g, 7, 2, line(Player1))
	if !g.Full() {
		t.Fatal("expected full grid")
	}
	if n := g.Count(Player1, KindCharger); n != Size*Size-2 {
		t.Fatalf("expected %d chargers, got %d", Size*Size-2, n)
	}
}

func TestHandValidate(t *testing.T) {
	cases := []struct {
		name string
		hand Hand
		ok   bool
	}{
		{"line", Hand{Kind: KindLine}, true},
		{"converter", Hand{Kind: KindConverter}, true},
		{"charger", Hand{Kind: KindCharger, Dir: Down}, true},
		{"charger without direction", Hand{Kind: KindCharger}, false},
		{"charger diagonal", Hand{Kind: KindCharger, Dir: Direction{DR: 1, DC: 1}}, false},
		{"line with direction", Hand{Kind: KindLine, Dir: Up}, false},
		{"unknown kind", Hand{Kind: Kind(9)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.hand.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidHand) {
				t.Fatalf("expected ErrInvalidHand, got %v", err)
			}
		})
	}
}

func TestHandPieceDropsDirectionForNonChargers(t *testing.T) {
	p := Hand{Kind: KindConverter, Dir: Left}.Piece(Player2)
	if !p.Dir.IsZero() || p.Owner != Player2 || p.Kind != KindConverter {
		t.Fatalf("unexpected piece %+v", p)
	}
	p = Hand{Kind: KindCharger, Dir: Left}.Piece(Player1)
	if p.Dir != Left {
		t.Fatalf("charger lost its direction: %+v", p)
	}
}

func TestPieceJSONUsesNames(t *testing.T) {
	data, err := json.Marshal(charger(Player2, Right))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"owner":2,"kind":"charger","dir":"right"}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}

	var h Hand
	if err := json.Unmarshal([]byte(`{"kind":"converter"}`), &h); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if h.Kind != KindConverter || !h.Dir.IsZero() {
		t.Fatalf("unexpected hand %+v", h)
	}
	if err := json.Unmarshal([]byte(`{"kind":"wizard"}`), &h); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
