package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// CompletedGame is the result row written once a game ends. Grids are never
// stored.
type CompletedGame struct {
	ID        string
	Winner    string
	Status    string
	Reason    string
	Moves     int
	VsBot     bool
	StartedAt time.Time
	EndedAt   time.Time
}

type LeaderboardRow struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}

type Store interface {
	SaveGame(ctx context.Context, game CompletedGame) error
	GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
}

// querier is the subset of *pgx.Conn the store runs statements through.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PostgresStore struct {
	conn   *pgx.Conn
	db     querier
	logger *zap.Logger
}

const createGamesSQL = `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	winner TEXT,
	status TEXT,
	reason TEXT,
	moves INTEGER NOT NULL DEFAULT 0,
	vs_bot BOOLEAN NOT NULL DEFAULT FALSE,
	started_at TIMESTAMP,
	ended_at TIMESTAMP
);
`

const insertGameSQL = `INSERT INTO games (id, winner, status, reason, moves, vs_bot, started_at, ended_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ON CONFLICT (id) DO NOTHING`

// Bot wins never reach the leaderboard.
const leaderboardSQL = `
SELECT winner, COUNT(*) as wins
FROM games
WHERE winner IS NOT NULL AND winner <> '' AND winner NOT IN ('bot', 'bot-2')
GROUP BY winner
ORDER BY wins DESC
LIMIT $1`

func NewPostgresStore(ctx context.Context, url string, logger *zap.Logger) (*PostgresStore, error) {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{conn: conn, db: conn, logger: logger}, nil
}

func (p *PostgresStore) Close(ctx context.Context) {
	if p.conn != nil {
		_ = p.conn.Close(ctx)
	}
}

func (p *PostgresStore) EnsureTables(ctx context.Context) error {
	_, err := p.db.Exec(ctx, createGamesSQL)
	if err != nil {
		return fmt.Errorf("ensure tables: %w", err)
	}
	return nil
}

func (p *PostgresStore) SaveGame(ctx context.Context, game CompletedGame) error {
	if p == nil || p.db == nil {
		return nil
	}
	_, err := p.db.Exec(ctx, insertGameSQL,
		game.ID, game.Winner, game.Status, game.Reason, game.Moves, game.VsBot, game.StartedAt, game.EndedAt)
	if err != nil {
		p.logger.Error("failed to save game", zap.String("game_id", game.ID), zap.Error(err))
		return fmt.Errorf("save game %s: %w", game.ID, err)
	}
	return nil
}

func (p *PostgresStore) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	rows, err := p.db.Query(ctx, leaderboardSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()
	res := []LeaderboardRow{}
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.Username, &row.Wins); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		res = append(res, row)
	}
	return res, rows.Err()
}
