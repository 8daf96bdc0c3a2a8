package game

import "fmt"

const (
	WinScore    = 9000000
	DefendScore = 8000000

	ConvertBonus       = 15000
	CaptureBonus       = 12000
	OpponentLineWeight = 20
)

type Outcome string

const (
	OutcomeScored Outcome = "scored"
	OutcomeWin    Outcome = "win"
	OutcomeDefend Outcome = "defend"
)

type Evaluation struct {
	Score   int
	Outcome Outcome
	Cascade CascadeResult
}

// Evaluate scores placing hand for me at the empty cell (row, col) of live.
// live is never modified; all simulation happens on copies.
func Evaluate(live *Grid, row, col int, hand Hand, me, opp Owner) (Evaluation, error) {
	virtual := live.Clone()
	if err := virtual.Place(row, col, hand.Piece(me)); err != nil {
		return Evaluation{}, fmt.Errorf("evaluate: %w", err)
	}
	cascade := ResolveToFixpoint(&virtual)

	if HasWinningLine(&virtual, me) {
		return Evaluation{Score: WinScore, Outcome: OutcomeWin, Cascade: cascade}, nil
	}
	if isCriticalDefence(live, row, col, opp) {
		return Evaluation{Score: DefendScore, Outcome: OutcomeDefend, Cascade: cascade}, nil
	}

	score := 0
	switch hand.Kind {
	case KindConverter:
		score += countStolenLines(live, &virtual, me) * ConvertBonus
	case KindCharger:
		if !hand.Dir.IsZero() {
			score += countDestroyedLines(live, &virtual, opp) * CaptureBonus
		}
	}
	score += lineScore(&virtual, me, opp)
	return Evaluation{Score: score, Outcome: OutcomeScored, Cascade: cascade}, nil
}

// isCriticalDefence reports whether opp would win by dropping a line-piece at
// (row, col). Opponent chargers and converters are not considered.
func isCriticalDefence(live *Grid, row, col int, opp Owner) bool {
	test := live.Clone()
	test[row][col] = Piece{Owner: opp, Kind: KindLine}
	return HasWinningLine(&test, opp)
}

func countStolenLines(before, after *Grid, me Owner) int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			old := before[r][c]
			if old.IsLine() && old.Owner != me && after[r][c].Owner == me {
				n++
			}
		}
	}
	return n
}

func countDestroyedLines(before, after *Grid, opp Owner) int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			old := before[r][c]
			if old.IsLine() && old.Owner == opp && after[r][c].Empty() {
				n++
			}
		}
	}
	return n
}

func lineScore(g *Grid, me, opp Owner) int {
	score := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			p := g[r][c]
			if !p.IsLine() {
				continue
			}
			switch p.Owner {
			case me:
				score += runScore(g, r, c, p.Owner)
			case opp:
				score -= runScore(g, r, c, p.Owner) * OpponentLineWeight
			}
		}
	}
	return score
}

// runScore grades every axis through (row, col). A side is blocked when it
// stops on the edge or on any occupied cell that is not owner's line-piece.
func runScore(g *Grid, row, col int, owner Owner) int {
	score := 0
	for _, d := range axes {
		count, blocked := 1, 0
		for _, sign := range [2]int{1, -1} {
			for i := 1; i < WinLength; i++ {
				r, c := row+d.DR*i*sign, col+d.DC*i*sign
				if !InBounds(r, c) {
					blocked++
					break
				}
				p := g[r][c]
				if p.IsLine() && p.Owner == owner {
					count++
					continue
				}
				if !p.Empty() {
					blocked++
				}
				break
			}
		}
		score += gradeRun(count, blocked)
	}
	return score
}

func gradeRun(count, blocked int) int {
	switch {
	case count >= WinLength:
		return 100000
	case count == 4:
		if blocked == 0 {
			return 10000
		}
		return 2000
	case count == 3:
		if blocked == 0 {
			return 1000
		}
		return 200
	case count == 2:
		return 50
	}
	return 0
}
