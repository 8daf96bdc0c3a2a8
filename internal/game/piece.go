package game

import "fmt"

type Owner int

const (
	OwnerNone Owner = iota
	Player1
	Player2
)

func (o Owner) Opponent() Owner {
	switch o {
	case Player1:
		return Player2
	case Player2:
		return Player1
	}
	return OwnerNone
}

func (o Owner) Valid() bool {
	return o == Player1 || o == Player2
}

type Kind int

const (
	KindLine Kind = iota
	KindCharger
	KindConverter
)

var kindNames = [...]string{"line", "charger", "converter"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown piece kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if string(text) == name {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown piece kind %q", text)
}

// Direction is a unit step. The zero value means "no direction".
type Direction struct {
	DR int
	DC int
}

var (
	Up    = Direction{DR: -1}
	Down  = Direction{DR: 1}
	Left  = Direction{DC: -1}
	Right = Direction{DC: 1}
)

// Directions lists the charger directions in draw order.
var Directions = []Direction{Up, Down, Left, Right}

var directionNames = map[Direction]string{
	Up:    "up",
	Down:  "down",
	Left:  "left",
	Right: "right",
}

func (d Direction) IsZero() bool {
	return d.DR == 0 && d.DC == 0
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	if d.IsZero() {
		return "none"
	}
	return fmt.Sprintf("(%d,%d)", d.DR, d.DC)
}

func (d Direction) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	name, ok := directionNames[d]
	if !ok {
		return nil, fmt.Errorf("direction %v is not orthogonal", d)
	}
	return []byte(name), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Direction{}
		return nil
	}
	for dir, name := range directionNames {
		if string(text) == name {
			*d = dir
			return nil
		}
	}
	return fmt.Errorf("unknown direction %q", text)
}

// Piece is stored by value inside a Grid; the zero Piece is an empty cell.
type Piece struct {
	Owner     Owner     `json:"owner"`
	Kind      Kind      `json:"kind"`
	Dir       Direction `json:"dir,omitempty"`
	Converted bool      `json:"converted,omitempty"`
}

func (p Piece) Empty() bool {
	return p.Owner == OwnerNone
}

func (p Piece) IsLine() bool {
	return !p.Empty() && p.Kind == KindLine
}

// Hand is the piece the acting side is about to place.
type Hand struct {
	Kind Kind      `json:"kind"`
	Dir  Direction `json:"dir,omitempty"`
}

func (h Hand) Validate() error {
	switch h.Kind {
	case KindCharger:
		if _, ok := directionNames[h.Dir]; !ok {
			return fmt.Errorf("%w: charger needs an orthogonal direction", ErrInvalidHand)
		}
	case KindLine, KindConverter:
		if !h.Dir.IsZero() {
			return fmt.Errorf("%w: %s takes no direction", ErrInvalidHand, h.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidHand, int(h.Kind))
	}
	return nil
}

func (h Hand) Piece(owner Owner) Piece {
	p := Piece{Owner: owner, Kind: h.Kind}
	if h.Kind == KindCharger {
		p.Dir = h.Dir
	}
	return p
}

func (h Hand) String() string {
	if h.Kind == KindCharger {
		return fmt.Sprintf("%s:%s", h.Kind, h.Dir)
	}
	return h.Kind.String()
}
