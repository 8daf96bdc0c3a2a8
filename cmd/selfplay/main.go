// Command selfplay runs bot-versus-bot games through the game manager and
// prints how they ended.
package main

import (
	"context"
	"fmt"
	"os"

	"skillgomoku/backend/internal/game"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// maxMoves stops games in which captures keep the grid from filling up.
// Such games are evicted as stalled.
const maxMoves = 500

type tally struct {
	games       int
	wins        map[game.Owner]int
	draws       int
	stalled     int
	moves       int
	captures    int
	conversions int
}

func main() {
	cmd := &cli.Command{
		Name:  "selfplay",
		Usage: "play the bot against itself and summarise the results",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Aliases: []string{"n"}, Value: 20, Usage: "number of games to play"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed (0 uses the clock)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every move"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger := zap.NewNop()
	if cmd.Bool("verbose") {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		logger = dev
	}
	defer logger.Sync()

	games := cmd.Int("games")
	if games <= 0 {
		return fmt.Errorf("--games must be positive, got %d", games)
	}

	manager := game.NewManager(game.Config{
		Rand:   game.NewRand(cmd.Int64("seed")),
		Logger: logger,
	})
	t := tally{wins: make(map[game.Owner]int)}
	for i := 0; i < games; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := playOne(manager, &t, logger); err != nil {
			return err
		}
	}

	fmt.Printf("games:            %d\n", t.games)
	fmt.Printf("player 1 wins:    %d\n", t.wins[game.Player1])
	fmt.Printf("player 2 wins:    %d\n", t.wins[game.Player2])
	fmt.Printf("draws:            %d\n", t.draws)
	fmt.Printf("stalled:          %d\n", t.stalled)
	fmt.Printf("avg moves/game:   %.1f\n", float64(t.moves)/float64(t.games))
	fmt.Printf("captures:         %d\n", t.captures)
	fmt.Printf("conversions:      %d\n", t.conversions)
	return nil
}

func playOne(manager *game.Manager, t *tally, logger *zap.Logger) error {
	g := manager.StartBotMatch()
	defer manager.Evict(g.ID)
	for n := 1; ; n++ {
		res, _, ok := manager.PlayBotTurn(g.ID)
		if !ok {
			return fmt.Errorf("game %s: bot could not move", g.ID)
		}
		t.moves++
		for _, f := range res.Frames {
			switch f.Effect.Kind {
			case game.EffectCapture:
				t.captures++
			case game.EffectConvert:
				t.conversions += len(f.Effect.Targets)
			}
		}
		logger.Debug("move", zap.String("game_id", g.ID), zap.Stringer("result", res))

		switch {
		case res.Winner != game.OwnerNone:
			t.wins[res.Winner]++
		case res.IsDraw:
			t.draws++
		case n >= maxMoves:
			t.stalled++
		default:
			continue
		}
		t.games++
		return nil
	}
}
