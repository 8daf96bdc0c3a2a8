package analytics

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics aggregates events read back from the topic.
type Metrics struct {
	mu            sync.Mutex
	winnerCounts  map[string]int
	reasonCounts  map[string]int
	gameDurations []float64
	gamesPerDay   map[string]int
	gamesPerHour  map[string]int
	userGames     map[string]int
	totalGames    int
	totalMoves    int
	captures      int
	conversions   int
}

func NewMetrics() *Metrics {
	return &Metrics{
		winnerCounts: make(map[string]int),
		reasonCounts: make(map[string]int),
		gamesPerDay:  make(map[string]int),
		gamesPerHour: make(map[string]int),
		userGames:    make(map[string]int),
	}
}

func (m *Metrics) Record(e Event) {
	switch e.Event {
	case EventGameFinished:
		m.recordGameFinished(e.Payload, e.Timestamp)
	case EventMovePlayed:
		m.recordMove(e.Payload)
	}
}

func (m *Metrics) recordMove(payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalMoves++
	if n, ok := payload["captures"].(float64); ok {
		m.captures += int(n)
	}
	if n, ok := payload["conversions"].(float64); ok {
		m.conversions += int(n)
	}
}

func (m *Metrics) recordGameFinished(payload map[string]any, timestamp time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalGames++
	if winner, ok := payload["winner"].(string); ok && winner != "" && winner != "bot" {
		m.winnerCounts[winner]++
	}
	if reason, ok := payload["reason"].(string); ok && reason != "" {
		m.reasonCounts[reason]++
	}
	if duration, ok := payload["duration"].(float64); ok {
		m.gameDurations = append(m.gameDurations, duration)
	}

	m.gamesPerDay[timestamp.Format("2006-01-02")]++
	m.gamesPerHour[timestamp.Format("2006-01-02 15:00")]++

	if players, ok := payload["players"].([]any); ok {
		for _, p := range players {
			if username, ok := p.(string); ok && username != "bot" {
				m.userGames[username]++
			}
		}
	}
}

func (m *Metrics) AverageDuration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.averageDuration()
}

func (m *Metrics) averageDuration() float64 {
	if len(m.gameDurations) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range m.gameDurations {
		sum += d
	}
	return sum / float64(len(m.gameDurations))
}

// SkillsPerMove is the mean number of captures plus conversions per move.
func (m *Metrics) SkillsPerMove() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.totalMoves == 0 {
		return 0
	}
	return float64(m.captures+m.conversions) / float64(m.totalMoves)
}

func (m *Metrics) Log(logger *zap.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.Info("analytics summary",
		zap.Int("total_games", m.totalGames),
		zap.Int("total_moves", m.totalMoves),
		zap.Int("captures", m.captures),
		zap.Int("conversions", m.conversions),
		zap.Float64("avg_duration_seconds", m.averageDuration()),
		zap.Any("winners", m.winnerCounts),
		zap.Any("reasons", m.reasonCounts),
		zap.Any("games_per_day", m.gamesPerDay),
		zap.Any("games_per_hour", m.gamesPerHour),
		zap.Any("user_games", m.userGames))
}
