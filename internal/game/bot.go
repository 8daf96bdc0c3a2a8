package game

import (
	"math"

	"go.uber.org/zap"
)

const (
	positionWeight = 2
	jitterScale    = 5
)

// Bot picks a cell by scoring every empty cell one ply deep: win first,
// then must-defend cells, then captures, conversions and line potential.
type Bot struct {
	rng    Rand
	logger *zap.Logger
}

func NewBot(rng Rand, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{rng: rng, logger: logger}
}

type CellScore struct {
	Cell    Cell    `json:"cell"`
	Base    int     `json:"base"`
	Total   float64 `json:"total"`
	Outcome Outcome `json:"outcome"`
}

// PositionBias favours cells near the center of the grid.
func PositionBias(row, col int) float64 {
	center := float64(Size-1) / 2
	dist := math.Abs(float64(row)-center) + math.Abs(float64(col)-center)
	return (Size - dist) * positionWeight
}

// Scores evaluates every empty cell in row-major order. Total is the base
// score plus position bias and random jitter.
func (b *Bot) Scores(g *Grid, hand Hand, me Owner) []CellScore {
	opp := me.Opponent()
	empty := g.EmptyCells()
	scores := make([]CellScore, 0, len(empty))
	for _, cell := range empty {
		ev, err := Evaluate(g, cell.Row, cell.Col, hand, me, opp)
		if err != nil {
			b.logger.Error("evaluate failed", zap.Stringer("cell", cell), zap.Error(err))
			continue
		}
		if !ev.Cascade.Settled {
			b.logger.Warn("cascade hit pass bound",
				zap.Stringer("cell", cell),
				zap.Stringer("hand", hand),
				zap.Int("passes", ev.Cascade.Passes),
				zap.Int("effects", len(ev.Cascade.Effects)))
		}
		total := float64(ev.Score) + PositionBias(cell.Row, cell.Col) + b.rng.Float64()*jitterScale
		scores = append(scores, CellScore{Cell: cell, Base: ev.Score, Total: total, Outcome: ev.Outcome})
	}
	return scores
}

func (b *Bot) ChooseMove(g *Grid, hand Hand, me Owner) Cell {
	return b.Pick(b.Scores(g, hand, me))
}

// Pick returns a uniformly random cell among those with the highest Total.
func (b *Bot) Pick(scores []CellScore) Cell {
	if len(scores) == 0 {
		return FallbackCell
	}
	best := math.Inf(-1)
	for _, s := range scores {
		if s.Total > best {
			best = s.Total
		}
	}
	var tied []Cell
	for _, s := range scores {
		if s.Total == best {
			tied = append(tied, s.Cell)
		}
	}
	return tied[b.rng.Intn(len(tied))]
}
