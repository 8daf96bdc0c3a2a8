package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusFinished = "finished"
)

const (
	ReasonLine        = "line"
	ReasonDraw        = "draw"
	ReasonForfeit     = "forfeit"
	ReasonStalled     = "stalled"
	BotUsername       = "bot"
	SecondBotUsername = "bot-2"
	maxCascadeSteps   = Size * Size
)

type GameState struct {
	ID            string
	Grid          Grid
	Hand          Hand
	Status        string
	Winner        string
	Reason        string
	StartedAt     time.Time
	EndedAt       time.Time
	Turn          Owner
	LastMoveAt    time.Time
	TurnStartedAt time.Time
	MoveCount     int
	Players       map[string]*Player
	VsBot         bool

	// disconnectedAt records when each human dropped; entries are removed
	// on reconnect.
	disconnectedAt map[string]time.Time
}

type Player struct {
	Username string
	Slot     Owner
	IsBot    bool
}

// PlayerFor returns the player holding slot.
func (g *GameState) PlayerFor(slot Owner) (*Player, bool) {
	for _, p := range g.Players {
		if p.Slot == slot {
			return p, true
		}
	}
	return nil, false
}

type Move struct {
	Username string
	GameID   string
	Row      int
	Col      int
}

// Frame is the grid right after one cascade step.
type Frame struct {
	Effect Effect `json:"effect"`
	Grid   Grid   `json:"grid"`
}

type MoveResult struct {
	Player  Owner
	Placed  Cell
	Hand    Hand
	Grid    Grid
	Frames  []Frame
	Winner  Owner
	IsDraw  bool
	Winning []Cell
}

type Config struct {
	ReconnectWindow time.Duration
	TurnTimeLimit   time.Duration
	Rand            Rand
	Logger          *zap.Logger
	OnFinish        func(*GameState)
}

type Manager struct {
	mu             sync.RWMutex
	waiting        *Player
	games          map[string]*GameState
	userToGame     map[string]string
	reconnectAfter time.Duration
	turnLimit      time.Duration
	rng            Rand
	bot            *Bot
	logger         *zap.Logger
	onFinish       func(*GameState)
}

func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = NewRand(0)
	}
	return &Manager{
		games:          make(map[string]*GameState),
		userToGame:     make(map[string]string),
		reconnectAfter: cfg.ReconnectWindow,
		turnLimit:      cfg.TurnTimeLimit,
		rng:            rng,
		bot:            NewBot(rng, logger.Named("bot")),
		logger:         logger,
		onFinish:       cfg.OnFinish,
	}
}

func (m *Manager) Bot() *Bot {
	return m.bot
}

func newGame(now time.Time, players map[string]*Player, vsBot bool) *GameState {
	return &GameState{
		ID:            uuid.NewString(),
		Status:        StatusActive,
		Turn:          Player1,
		Hand:          OpeningHand,
		StartedAt:     now,
		LastMoveAt:    now,
		TurnStartedAt: now,
		Players:       players,
		VsBot:         vsBot,
	}
}

func (m *Manager) AssignPlayer(username string) (*GameState, *Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rejoin existing game if present.
	if gid, ok := m.userToGame[username]; ok {
		if g, exists := m.games[gid]; exists && g.Status != StatusFinished {
			delete(g.disconnectedAt, username)
			p := g.Players[username]
			return g, p, false
		}
	}

	player := &Player{Username: username, Slot: Player1}
	if m.waiting == nil || m.waiting.Username == username {
		m.waiting = player
		return nil, player, true
	}

	opponent := m.waiting
	m.waiting = nil
	game := newGame(time.Now(), map[string]*Player{
		opponent.Username: opponent,
		player.Username:   {Username: username, Slot: Player2},
	}, false)
	m.games[game.ID] = game
	m.userToGame[player.Username] = game.ID
	m.userToGame[opponent.Username] = game.ID
	m.logger.Info("game started",
		zap.String("game_id", game.ID),
		zap.String("player1", opponent.Username),
		zap.String("player2", username))
	return game, game.Players[username], false
}

func (m *Manager) StartBotGame(human string) *GameState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gid, ok := m.userToGame[human]; ok {
		if g, exists := m.games[gid]; exists && g.Status != StatusFinished {
			return g
		}
	}
	if m.waiting != nil && m.waiting.Username == human {
		m.waiting = nil
	}

	game := newGame(time.Now(), map[string]*Player{
		human:       {Username: human, Slot: Player1},
		BotUsername: {Username: BotUsername, Slot: Player2, IsBot: true},
	}, true)
	m.games[game.ID] = game
	m.userToGame[human] = game.ID
	m.logger.Info("bot game started", zap.String("game_id", game.ID), zap.String("player", human))
	return game
}

// LeaveQueue removes username from the waiting queue and reports whether it
// was still waiting there.
func (m *Manager) LeaveQueue(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waiting == nil || m.waiting.Username != username {
		return false
	}
	m.waiting = nil
	return true
}

// StartBotMatch starts a game in which the bot plays both sides.
func (m *Manager) StartBotMatch() *GameState {
	m.mu.Lock()
	defer m.mu.Unlock()

	game := newGame(time.Now(), map[string]*Player{
		BotUsername:       {Username: BotUsername, Slot: Player1, IsBot: true},
		SecondBotUsername: {Username: SecondBotUsername, Slot: Player2, IsBot: true},
	}, true)
	m.games[game.ID] = game
	return game
}

func (m *Manager) HandleMove(move Move) (MoveResult, *GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	game, ok := m.games[move.GameID]
	if !ok {
		return MoveResult{}, nil, ErrGameNotFound
	}
	if game.Status == StatusFinished {
		return MoveResult{}, game, ErrGameFinished
	}
	player, ok := game.Players[move.Username]
	if !ok || game.Turn != player.Slot {
		return MoveResult{}, game, ErrInvalidTurn
	}
	res, err := m.play(game, player.Slot, Cell{Row: move.Row, Col: move.Col})
	return res, game, err
}

// PlayBotTurn lets the bot move if it holds the turn in the given game.
func (m *Manager) PlayBotTurn(gameID string) (MoveResult, *GameState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	game, ok := m.games[gameID]
	if !ok || game.Status != StatusActive {
		return MoveResult{}, game, false
	}
	p, ok := game.PlayerFor(game.Turn)
	if !ok || !p.IsBot {
		return MoveResult{}, game, false
	}
	res, err := m.autoPlay(game)
	if err != nil {
		m.logger.Error("bot move failed", zap.String("game_id", game.ID), zap.Error(err))
		return MoveResult{}, game, false
	}
	return res, game, true
}

func (m *Manager) autoPlay(game *GameState) (MoveResult, error) {
	cell := m.bot.ChooseMove(&game.Grid, game.Hand, game.Turn)
	return m.play(game, game.Turn, cell)
}

// play places the current hand for slot and drives the cascade on the live
// grid one step at a time. Callers hold m.mu.
func (m *Manager) play(game *GameState, slot Owner, at Cell) (MoveResult, error) {
	hand := game.Hand
	if err := game.Grid.Place(at.Row, at.Col, hand.Piece(slot)); err != nil {
		return MoveResult{}, err
	}
	now := time.Now()
	game.LastMoveAt = now
	game.MoveCount++

	res := MoveResult{Player: slot, Placed: at, Hand: hand}
	for step := 0; ; step++ {
		if step == maxCascadeSteps {
			m.logger.Warn("cascade did not settle",
				zap.String("game_id", game.ID),
				zap.Int("steps", step))
			break
		}
		effect, fired := ResolveNextStep(&game.Grid)
		if !fired {
			break
		}
		res.Frames = append(res.Frames, Frame{Effect: effect, Grid: game.Grid})
		if HasWinningLine(&game.Grid, slot) {
			break
		}
	}
	res.Grid = game.Grid

	for _, owner := range [2]Owner{slot, slot.Opponent()} {
		if line := WinningLine(&game.Grid, owner); line != nil {
			res.Winner = owner
			res.Winning = line
			name := BotUsername
			if winner, ok := game.PlayerFor(owner); ok {
				name = winner.Username
			}
			m.finish(game, name, ReasonLine, now)
			return res, nil
		}
	}
	if game.Grid.Full() {
		res.IsDraw = true
		m.finish(game, "", ReasonDraw, now)
		return res, nil
	}

	game.Turn = slot.Opponent()
	game.Hand = DrawHand(m.rng)
	game.TurnStartedAt = now
	return res, nil
}

func (m *Manager) finish(game *GameState, winner, reason string, at time.Time) {
	game.Status = StatusFinished
	game.Winner = winner
	game.Reason = reason
	game.EndedAt = at
	m.logger.Info("game finished",
		zap.String("game_id", game.ID),
		zap.String("winner", winner),
		zap.String("reason", reason),
		zap.Int("moves", game.MoveCount))
	if m.onFinish != nil {
		snapshot := *game
		go m.onFinish(&snapshot)
	}
}

// Snapshot returns a copy of the game that is safe to read without the lock.
func (m *Manager) Snapshot(gameID string) (GameState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[gameID]
	if !ok {
		return GameState{}, false
	}
	return *g, true
}

// GameForUser returns active game id for a username or fallback.
func (m *Manager) GameForUser(username, fallback string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.userToGame[username]; ok {
		return id
	}
	return fallback
}

// Forfeit ends the user's game in favour of the other side and drops the
// user from the waiting queue.
func (m *Manager) Forfeit(username string) (*GameState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waiting != nil && m.waiting.Username == username {
		m.waiting = nil
	}
	id, ok := m.userToGame[username]
	if !ok {
		return nil, false
	}
	delete(m.userToGame, username)
	g, exists := m.games[id]
	if !exists || g.Status == StatusFinished {
		return nil, false
	}
	m.finish(g, g.OpponentOf(username), ReasonForfeit, time.Now())
	return g, true
}

// MarkConnected clears a pending disconnect for the user's game.
func (m *Manager) MarkConnected(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.userToGame[username]; ok {
		if g, exists := m.games[id]; exists {
			delete(g.disconnectedAt, username)
		}
	}
}

// MarkDisconnected starts the reconnect window for the user.
func (m *Manager) MarkDisconnected(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.userToGame[username]
	if !ok {
		return
	}
	g, exists := m.games[id]
	if !exists || g.Status == StatusFinished {
		return
	}
	if g.disconnectedAt == nil {
		g.disconnectedAt = make(map[string]time.Time)
	}
	g.disconnectedAt[username] = time.Now()
}

// SweepDisconnects forfeits games in which a player stayed disconnected past
// the reconnect window. Auto-played moves do not extend the window.
func (m *Manager) SweepDisconnects() []*GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reconnectAfter <= 0 {
		return nil
	}
	now := time.Now()
	var forfeited []*GameState
	for _, g := range m.games {
		if g.Status == StatusFinished || !staleDisconnect(g, now, m.reconnectAfter) {
			continue
		}
		m.finish(g, findRemainingPlayer(g), ReasonForfeit, now)
		forfeited = append(forfeited, g)
	}
	return forfeited
}

func staleDisconnect(g *GameState, now time.Time, window time.Duration) bool {
	for _, at := range g.disconnectedAt {
		if now.Sub(at) > window {
			return true
		}
	}
	return false
}

// Evict drops a game from the manager. An unfinished game is closed as
// stalled first.
func (m *Manager) Evict(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return
	}
	if g.Status != StatusFinished {
		m.finish(g, "", ReasonStalled, time.Now())
	}
	delete(m.games, gameID)
	for name := range g.Players {
		if m.userToGame[name] == gameID {
			delete(m.userToGame, name)
		}
	}
}

type TimeoutMove struct {
	Game   *GameState
	Result MoveResult
}

// SweepTurnTimeouts plays a bot move on behalf of any side whose turn ran
// past the turn time limit.
func (m *Manager) SweepTurnTimeouts() []TimeoutMove {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.turnLimit <= 0 {
		return nil
	}
	now := time.Now()
	var played []TimeoutMove
	for _, g := range m.games {
		if g.Status != StatusActive || now.Sub(g.TurnStartedAt) <= m.turnLimit {
			continue
		}
		res, err := m.autoPlay(g)
		if err != nil {
			m.logger.Error("timeout move failed", zap.String("game_id", g.ID), zap.Error(err))
			continue
		}
		m.logger.Info("turn timed out, auto-played",
			zap.String("game_id", g.ID),
			zap.Int("player", int(res.Player)),
			zap.Stringer("cell", res.Placed))
		played = append(played, TimeoutMove{Game: g, Result: res})
	}
	return played
}

// findRemainingPlayer names the forfeit winner: a connected human, else the
// bot, else the human who dropped last.
func findRemainingPlayer(g *GameState) string {
	bot, last := "", ""
	var lastAt time.Time
	for name, p := range g.Players {
		if p.IsBot {
			bot = name
			continue
		}
		at, gone := g.disconnectedAt[name]
		if !gone {
			return name
		}
		if last == "" || at.After(lastAt) {
			last, lastAt = name, at
		}
	}
	if bot != "" {
		return bot
	}
	return last
}

// OpponentOf returns the name of the other player in the game.
func (g *GameState) OpponentOf(username string) string {
	for name := range g.Players {
		if name != username {
			return name
		}
	}
	return ""
}

func (r MoveResult) String() string {
	return fmt.Sprintf("player %d %s at %s: %d cascade steps", r.Player, r.Hand, r.Placed, len(r.Frames))
}
