package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"skillgomoku/backend/internal/analytics"
	"skillgomoku/backend/internal/game"
	"skillgomoku/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Server struct {
	router       *gin.Engine
	manager      *game.Manager
	store        storage.Store
	analytics    *analytics.Producer
	logger       *zap.Logger
	inMemoryWins map[string]int
	winMu        sync.Mutex
	connections  map[string]*wsClient
	connMu       sync.RWMutex
	botDelay     time.Duration
	sweepEvery   time.Duration
	frontendDir  string
}

type Config struct {
	BotFallbackAfter time.Duration
	ReconnectWindow  time.Duration
	TurnTimeLimit    time.Duration
	SweepInterval    time.Duration
	Store            storage.Store
	Analytics        *analytics.Producer
	Rand             game.Rand
	Logger           *zap.Logger
	FrontendDir      string
}

func New(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = time.Second
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	s := &Server{
		router:       router,
		store:        cfg.Store,
		analytics:    cfg.Analytics,
		logger:       logger,
		inMemoryWins: make(map[string]int),
		connections:  make(map[string]*wsClient),
		botDelay:     cfg.BotFallbackAfter,
		sweepEvery:   sweep,
		frontendDir:  cfg.FrontendDir,
	}
	s.manager = game.NewManager(game.Config{
		ReconnectWindow: cfg.ReconnectWindow,
		TurnTimeLimit:   cfg.TurnTimeLimit,
		Rand:            cfg.Rand,
		Logger:          logger.Named("manager"),
		OnFinish:        s.onFinish,
	})

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/leaderboard", s.handleLeaderboard)
	router.GET("/ws", s.handleWS)
	router.POST("/suggest", s.handleSuggest)

	if s.frontendDir != "" {
		router.StaticFile("/", s.frontendDir+"/index.html")
		router.Static("/static", s.frontendDir)
	}
	return s
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Manager() *game.Manager {
	return s.manager
}

func (s *Server) Run(ctx context.Context, addr string) error {
	go s.sweeper(ctx)
	srv := &http.Server{Addr: addr, Handler: s.router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) sweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, g := range s.manager.SweepDisconnects() {
			s.pushState(g.ID)
		}
		for _, tm := range s.manager.SweepTurnTimeouts() {
			s.broadcastState(tm.Game.ID, tm.Result)
			s.maybePlayBot(tm.Game.ID)
		}
	}
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	ctx := c.Request.Context()
	if s.store != nil {
		rows, err := s.store.GetLeaderboard(ctx, 10)
		if err == nil {
			c.JSON(http.StatusOK, rows)
			return
		}
		s.logger.Warn("leaderboard db error", zap.Error(err))
	}
	res := []storage.LeaderboardRow{}
	s.winMu.Lock()
	for k, v := range s.inMemoryWins {
		res = append(res, storage.LeaderboardRow{Username: k, Wins: v})
	}
	s.winMu.Unlock()
	c.JSON(http.StatusOK, res)
}

type suggestRequest struct {
	Grid  [][]*game.Piece `json:"grid" binding:"required"`
	Hand  game.Hand       `json:"hand"`
	Owner game.Owner      `json:"owner" binding:"required,oneof=1 2"`
}

type suggestResponse struct {
	Move   game.Cell        `json:"move"`
	Scores []game.CellScore `json:"scores"`
}

func (s *Server) handleSuggest(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Hand.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	grid, err := gridFromView(req.Grid)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bot := s.manager.Bot()
	scores := bot.Scores(&grid, req.Hand, req.Owner)
	c.JSON(http.StatusOK, suggestResponse{Move: bot.Pick(scores), Scores: scores})
}

type wsClient struct {
	username string
	conn     *websocket.Conn
	send     chan []byte
	server   *Server
	gameID   string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type clientMessage struct {
	Type string `json:"type"`
	Row  *int   `json:"row"`
	Col  *int   `json:"col"`
}

func (s *Server) handleWS(c *gin.Context) {
	username := c.Query("username")
	requestGameID := c.Query("gameId")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}
	if username == game.BotUsername || username == game.SecondBotUsername {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username reserved"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &wsClient{
		username: username,
		conn:     conn,
		send:     make(chan []byte, 16),
		server:   s,
		gameID:   requestGameID,
	}
	s.register(client)

	go client.writePump()
	go client.readPump()
}

func (s *Server) register(c *wsClient) {
	s.connMu.Lock()
	s.connections[c.username] = c
	s.connMu.Unlock()
}

func (s *Server) unregister(c *wsClient) {
	s.connMu.Lock()
	if s.connections[c.username] == c {
		delete(s.connections, c.username)
	}
	s.connMu.Unlock()
	close(c.send)
	c.conn.Close()
}

func (c *wsClient) writePump() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *wsClient) readPump() {
	defer c.server.unregister(c)
	s := c.server

	joined := false
	if c.gameID != "" {
		if g, ok := s.manager.Snapshot(c.gameID); ok {
			if _, exists := g.Players[c.username]; exists {
				joined = true
				s.manager.MarkConnected(c.username)
				s.pushInit(g.ID, c.username)
			}
		}
	}
	if !joined {
		g, _, waiting := s.manager.AssignPlayer(c.username)
		if waiting {
			c.sendJSON(gin.H{"type": "waiting", "message": "waiting for opponent"})
			time.AfterFunc(s.botDelay, func() {
				if s.manager.LeaveQueue(c.username) {
					g := s.manager.StartBotGame(c.username)
					s.pushInit(g.ID, c.username)
					s.maybePlayBot(g.ID)
				}
			})
		} else {
			s.pushInit(g.ID, c.username)
			if snap, ok := s.manager.Snapshot(g.ID); ok {
				for uname, pl := range snap.Players {
					if uname == c.username || pl.IsBot {
						continue
					}
					s.pushInit(g.ID, uname)
				}
			}
		}
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			s.manager.MarkDisconnected(c.username)
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "leave" {
			if g, ok := s.manager.Forfeit(c.username); ok {
				s.pushState(g.ID)
			}
			c.sendJSON(gin.H{"type": "left"})
			continue
		}
		if msg.Type != "move" || msg.Row == nil || msg.Col == nil {
			continue
		}
		move := game.Move{
			Username: c.username,
			GameID:   s.manager.GameForUser(c.username, c.gameID),
			Row:      *msg.Row,
			Col:      *msg.Col,
		}
		res, _, err := s.manager.HandleMove(move)
		if err != nil {
			c.sendJSON(gin.H{"type": "error", "message": moveErrorMessage(err)})
			continue
		}
		s.broadcastState(move.GameID, res)
		s.maybePlayBot(move.GameID)
	}
}

func moveErrorMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrOccupied):
		return "cell is occupied"
	case errors.Is(err, game.ErrOutOfRange):
		return "cell is off the board"
	}
	return err.Error()
}

// maybePlayBot lets the bot move if it holds the turn.
func (s *Server) maybePlayBot(gameID string) {
	res, g, ok := s.manager.PlayBotTurn(gameID)
	if !ok || g == nil {
		return
	}
	s.broadcastState(gameID, res)
}

func gridView(g game.Grid) [][]*game.Piece {
	view := make([][]*game.Piece, game.Size)
	for r := range view {
		view[r] = make([]*game.Piece, game.Size)
		for c := range view[r] {
			if p := g[r][c]; !p.Empty() {
				view[r][c] = &p
			}
		}
	}
	return view
}

func gridFromView(view [][]*game.Piece) (game.Grid, error) {
	var g game.Grid
	if len(view) != game.Size {
		return g, errors.New("grid must have 10 rows")
	}
	for r, row := range view {
		if len(row) != game.Size {
			return g, errors.New("grid rows must have 10 cells")
		}
		for c, p := range row {
			if p == nil {
				continue
			}
			if err := g.Place(r, c, *p); err != nil {
				return g, err
			}
		}
	}
	return g, nil
}

type frameView struct {
	Effect game.Effect     `json:"effect"`
	Grid   [][]*game.Piece `json:"grid"`
}

func (s *Server) pushInit(gameID, username string) {
	g, ok := s.manager.Snapshot(gameID)
	if !ok {
		return
	}
	var slot game.Owner
	if p, ok := g.Players[username]; ok {
		slot = p.Slot
	}
	s.sendToUser(username, gin.H{
		"type":      "init",
		"gameId":    g.ID,
		"grid":      gridView(g.Grid),
		"turn":      g.Turn,
		"hand":      g.Hand,
		"you":       username,
		"slot":      slot,
		"opponent":  g.OpponentOf(username),
		"status":    g.Status,
		"winner":    g.Winner,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) pushState(gameID string) {
	g, ok := s.manager.Snapshot(gameID)
	if !ok {
		return
	}
	s.broadcastState(gameID, game.MoveResult{Grid: g.Grid})
}

func (s *Server) broadcastState(gameID string, res game.MoveResult) {
	g, ok := s.manager.Snapshot(gameID)
	if !ok {
		return
	}
	frames := make([]frameView, 0, len(res.Frames))
	captures, conversions := 0, 0
	for _, f := range res.Frames {
		frames = append(frames, frameView{Effect: f.Effect, Grid: gridView(f.Grid)})
		switch f.Effect.Kind {
		case game.EffectCapture:
			captures++
		case game.EffectConvert:
			conversions += len(f.Effect.Targets)
		}
	}
	payload := gin.H{
		"type":    "state",
		"grid":    gridView(res.Grid),
		"frames":  frames,
		"placed":  res.Placed,
		"played":  res.Hand,
		"winning": res.Winning,
		"draw":    res.IsDraw,
		"turn":    g.Turn,
		"hand":    g.Hand,
		"status":  g.Status,
		"winner":  g.Winner,
	}
	for uname, p := range g.Players {
		if p.IsBot {
			continue
		}
		s.sendToUser(uname, payload)
	}
	if s.analytics != nil && res.Player != game.OwnerNone {
		s.analytics.Publish(context.Background(), analytics.EventMovePlayed, map[string]any{
			"gameId":      g.ID,
			"player":      int(res.Player),
			"hand":        res.Hand.String(),
			"captures":    captures,
			"conversions": conversions,
			"status":      g.Status,
			"winner":      g.Winner,
			"players":     humanPlayers(&g),
		})
	}
}

func (s *Server) sendToUser(username string, payload any) {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	client, ok := s.connections[username]
	if !ok {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("encode payload", zap.Error(err))
		return
	}
	select {
	case client.send <- data:
	default:
	}
}


func humanPlayers(g *game.GameState) []string {
	players := make([]string, 0, len(g.Players))
	for uname, p := range g.Players {
		if !p.IsBot {
			players = append(players, uname)
		}
	}
	return players
}

func (s *Server) onFinish(g *game.GameState) {
	if g.Winner != "" && g.Winner != game.BotUsername {
		s.winMu.Lock()
		s.inMemoryWins[g.Winner]++
		s.winMu.Unlock()
	}
	if s.store != nil {
		_ = s.store.SaveGame(context.Background(), storage.CompletedGame{
			ID:        g.ID,
			Winner:    g.Winner,
			Status:    g.Status,
			Reason:    g.Reason,
			Moves:     g.MoveCount,
			VsBot:     g.VsBot,
			StartedAt: g.StartedAt,
			EndedAt:   g.EndedAt,
		})
	}
	if s.analytics != nil {
		s.analytics.Publish(context.Background(), analytics.EventGameFinished, map[string]any{
			"gameId":    g.ID,
			"winner":    g.Winner,
			"reason":    g.Reason,
			"status":    g.Status,
			"moves":     g.MoveCount,
			"players":   humanPlayers(g),
			"duration":  g.EndedAt.Sub(g.StartedAt).Seconds(),
			"startedAt": g.StartedAt,
			"endedAt":   g.EndedAt,
		})
	}
}

func (c *wsClient) sendJSON(v any) {
	data, _ := json.Marshal(v)
	select {
	case c.send <- data:
	default:
	}
}
