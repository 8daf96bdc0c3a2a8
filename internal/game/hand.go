package game

// OpeningHand is dealt to the first mover of every game.
var OpeningHand = Hand{Kind: KindLine}

// DrawHand deals 20% converters, 15% chargers with a uniform direction and
// 65% line-pieces.
func DrawHand(rng Rand) Hand {
	roll := rng.Float64() * 100
	switch {
	case roll < 20:
		return Hand{Kind: KindConverter}
	case roll < 35:
		return Hand{Kind: KindCharger, Dir: Directions[rng.Intn(len(Directions))]}
	}
	return Hand{Kind: KindLine}
}
