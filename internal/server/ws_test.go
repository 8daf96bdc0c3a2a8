package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"skillgomoku/backend/internal/game"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type wsMessage struct {
	Type     string      `json:"type"`
	Message  string      `json:"message"`
	GameID   string      `json:"gameId"`
	Opponent string      `json:"opponent"`
	Status   string      `json:"status"`
	Winner   string      `json:"winner"`
	Winning  []game.Cell `json:"winning"`
	Frames   []struct {
		Effect game.Effect `json:"effect"`
	} `json:"frames"`
}

func dialWS(t *testing.T, s *Server, query string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads messages until one of the given type arrives.
func next(t *testing.T, conn *websocket.Conn, typ string) wsMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func sendMove(t *testing.T, conn *websocket.Conn, row, col int) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": "move", "row": row, "col": col}); err != nil {
		t.Fatalf("write move: %v", err)
	}
}

// botGame starts a game against the bot for alice before any socket exists,
// so the test can arrange the grid and hand.
func botGame(t *testing.T, s *Server, arrange func(g *game.GameState)) (*game.GameState, *websocket.Conn) {
	t.Helper()
	g := s.Manager().StartBotGame("alice")
	arrange(g)
	// Publishes the arranged state through the manager lock.
	s.Manager().MarkConnected("alice")
	conn := dialWS(t, s, "username=alice&gameId="+g.ID)
	if init := next(t, conn, "init"); init.GameID != g.ID || init.Opponent != game.BotUsername {
		t.Fatalf("unexpected init %+v", init)
	}
	return g, conn
}

func TestWSFallsBackToBot(t *testing.T) {
	s := New(Config{BotFallbackAfter: 20 * time.Millisecond, Rand: game.NewRand(1), Logger: zap.NewNop()})
	conn := dialWS(t, s, "username=alice")

	next(t, conn, "waiting")
	init := next(t, conn, "init")
	if init.Opponent != game.BotUsername || init.Status != game.StatusActive {
		t.Fatalf("expected a bot game, got %+v", init)
	}
}

func TestWSMoveStreamsCascadeFrames(t *testing.T) {
	s := newTestServer(nil)
	_, conn := botGame(t, s, func(g *game.GameState) {
		g.Grid[0][1] = game.Piece{Owner: game.Player2, Kind: game.KindLine}
		g.Hand = game.Hand{Kind: game.KindCharger, Dir: game.Right}
	})

	sendMove(t, conn, 10, 0)
	if msg := next(t, conn, "error"); msg.Message != "cell is off the board" {
		t.Fatalf("unexpected error message %q", msg.Message)
	}
	sendMove(t, conn, 0, 1)
	if msg := next(t, conn, "error"); msg.Message != "cell is occupied" {
		t.Fatalf("unexpected error message %q", msg.Message)
	}

	sendMove(t, conn, 0, 0)
	state := next(t, conn, "state")
	if len(state.Frames) != 1 {
		t.Fatalf("expected one cascade frame, got %d", len(state.Frames))
	}
	e := state.Frames[0].Effect
	if e.Kind != game.EffectCapture || e.Origin != (game.Cell{Row: 0, Col: 0}) || len(e.Targets) != 1 || e.Targets[0] != (game.Cell{Row: 0, Col: 1}) {
		t.Fatalf("unexpected capture frame %+v", e)
	}
}

func TestWSWinningMove(t *testing.T) {
	s := newTestServer(nil)
	g, conn := botGame(t, s, func(g *game.GameState) {
		for c := 0; c < 4; c++ {
			g.Grid[5][c] = game.Piece{Owner: game.Player1, Kind: game.KindLine}
		}
	})

	sendMove(t, conn, 5, 4)
	state := next(t, conn, "state")
	if state.Winner != "alice" || state.Status != game.StatusFinished || len(state.Winning) != game.WinLength {
		t.Fatalf("expected alice to win with a five-cell line, got %+v", state)
	}
	snap, _ := s.Manager().Snapshot(g.ID)
	if snap.Reason != game.ReasonLine {
		t.Fatalf("unexpected reason %q", snap.Reason)
	}
}

func TestWSLeaveForfeits(t *testing.T) {
	s := newTestServer(nil)
	g, conn := botGame(t, s, func(*game.GameState) {})

	if err := conn.WriteJSON(map[string]string{"type": "leave"}); err != nil {
		t.Fatalf("write leave: %v", err)
	}
	next(t, conn, "left")
	snap, _ := s.Manager().Snapshot(g.ID)
	if snap.Status != game.StatusFinished || snap.Reason != game.ReasonForfeit || snap.Winner != game.BotUsername {
		t.Fatalf("leave should forfeit to the bot, got %s/%s/%q", snap.Status, snap.Reason, snap.Winner)
	}
}
