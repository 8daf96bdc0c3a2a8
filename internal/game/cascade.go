package game

// MaxCascadePasses bounds batch resolution.
const MaxCascadePasses = 10

type EffectKind string

const (
	EffectCapture EffectKind = "capture"
	EffectConvert EffectKind = "convert"
)

// Effect is one triggered skill. Targets holds the captured cell for a
// capture and the converted cells for a conversion.
type Effect struct {
	Kind    EffectKind `json:"kind"`
	Origin  Cell       `json:"origin"`
	Owner   Owner      `json:"owner"`
	Targets []Cell     `json:"targets"`
}

type CascadeResult struct {
	Effects []Effect
	Passes  int
	Settled bool
}

var lateral = [2]Direction{Left, Right}

// effectAt reports the effect the piece at (row, col) would trigger on the
// current grid. It never mutates g.
func effectAt(g *Grid, row, col int) (Effect, bool) {
	p, ok := g.At(row, col)
	if !ok {
		return Effect{}, false
	}
	origin := Cell{Row: row, Col: col}

	switch p.Kind {
	case KindCharger:
		if p.Dir.IsZero() {
			return Effect{}, false
		}
		tr, tc := row+p.Dir.DR, col+p.Dir.DC
		if target, ok := g.At(tr, tc); ok && target.Owner != p.Owner {
			return Effect{
				Kind:    EffectCapture,
				Origin:  origin,
				Owner:   p.Owner,
				Targets: []Cell{{Row: tr, Col: tc}},
			}, true
		}
	case KindConverter:
		var targets []Cell
		for _, d := range lateral {
			tr, tc := row+d.DR, col+d.DC
			if target, ok := g.At(tr, tc); ok && target.Owner != p.Owner {
				targets = append(targets, Cell{Row: tr, Col: tc})
			}
		}
		if len(targets) > 0 {
			return Effect{Kind: EffectConvert, Origin: origin, Owner: p.Owner, Targets: targets}, true
		}
	}
	return Effect{}, false
}

func applyEffect(g *Grid, e Effect) {
	switch e.Kind {
	case EffectCapture:
		for _, t := range e.Targets {
			g[t.Row][t.Col] = Piece{}
		}
	case EffectConvert:
		for _, t := range e.Targets {
			g[t.Row][t.Col].Owner = e.Owner
			g[t.Row][t.Col].Converted = true
		}
	}
	g[e.Origin.Row][e.Origin.Col] = Piece{}
}

// ResolveNextStep fires the first triggerable effect in row-major order and
// applies it to g in place. It reports false when nothing fired.
func ResolveNextStep(g *Grid) (Effect, bool) {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if e, ok := effectAt(g, r, c); ok {
				applyEffect(g, e)
				return e, true
			}
		}
	}
	return Effect{}, false
}

// ResolveToFixpoint applies every triggerable effect pass after pass until a
// pass changes nothing or MaxCascadePasses is reached. Effects within a pass
// see the mutations of the cells visited before them.
func ResolveToFixpoint(g *Grid) CascadeResult {
	var res CascadeResult
	for res.Passes < MaxCascadePasses {
		res.Passes++
		changed := false
		for r := 0; r < Size; r++ {
			for c := 0; c < Size; c++ {
				if e, ok := effectAt(g, r, c); ok {
					applyEffect(g, e)
					res.Effects = append(res.Effects, e)
					changed = true
				}
			}
		}
		if !changed {
			res.Settled = true
			return res
		}
	}
	res.Settled = !HasPendingEffect(g)
	return res
}

func HasPendingEffect(g *Grid) bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if _, ok := effectAt(g, r, c); ok {
				return true
			}
		}
	}
	return false
}
