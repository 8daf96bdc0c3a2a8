package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type statement struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs   []statement
	queries []statement
	rows    [][2]any
	err     error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, statement{sql, args})
	return pgconn.CommandTag{}, f.err
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, statement{sql, args})
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRows{rows: f.rows, at: -1}, nil
}

type fakeRows struct {
	rows [][2]any
	at   int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.at][:], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.at++
	return r.at < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.at]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*int) = row[1].(int)
	return nil
}

func newFakeStore(db *fakeDB) *PostgresStore {
	return &PostgresStore{db: db, logger: zap.NewNop()}
}

func TestNewPostgresStoreRejectsBadURL(t *testing.T) {
	if _, err := NewPostgresStore(context.Background(), "postgres://%zz", nil); err == nil {
		t.Fatal("expected error for malformed connection string")
	}
}

func TestNilStoreSaveIsNoop(t *testing.T) {
	var p *PostgresStore
	if err := p.SaveGame(context.Background(), CompletedGame{ID: "g1"}); err != nil {
		t.Fatalf("SaveGame on nil store: %v", err)
	}
}

func TestSaveGameColumnOrder(t *testing.T) {
	db := &fakeDB{}
	started := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	ended := started.Add(3 * time.Minute)
	game := CompletedGame{
		ID:        "g1",
		Winner:    "alice",
		Status:    "finished",
		Reason:    "line",
		Moves:     23,
		VsBot:     true,
		StartedAt: started,
		EndedAt:   ended,
	}
	if err := newFakeStore(db).SaveGame(context.Background(), game); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	if len(db.execs) != 1 {
		t.Fatalf("expected one statement, got %d", len(db.execs))
	}
	stmt := db.execs[0]
	if !strings.Contains(stmt.sql, "(id, winner, status, reason, moves, vs_bot, started_at, ended_at)") {
		t.Fatalf("unexpected insert: %s", stmt.sql)
	}
	want := []any{"g1", "alice", "finished", "line", 23, true, started, ended}
	if len(stmt.args) != len(want) {
		t.Fatalf("expected %d args, got %d", len(want), len(stmt.args))
	}
	for i := range want {
		if stmt.args[i] != want[i] {
			t.Errorf("arg %d = %v, want %v", i+1, stmt.args[i], want[i])
		}
	}
}

func TestSaveGameWrapsError(t *testing.T) {
	boom := errors.New("boom")
	err := newFakeStore(&fakeDB{err: boom}).SaveGame(context.Background(), CompletedGame{ID: "g1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestGetLeaderboard(t *testing.T) {
	db := &fakeDB{rows: [][2]any{{"alice", 4}, {"bob", 2}}}
	rows, err := newFakeStore(db).GetLeaderboard(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if len(rows) != 2 || rows[0] != (LeaderboardRow{Username: "alice", Wins: 4}) {
		t.Fatalf("unexpected rows %+v", rows)
	}
	q := db.queries[0]
	if !strings.Contains(q.sql, "NOT IN ('bot', 'bot-2')") {
		t.Fatalf("leaderboard must exclude bots: %s", q.sql)
	}
	if len(q.args) != 1 || q.args[0] != 10 {
		t.Fatalf("unexpected limit args %v", q.args)
	}
}

func TestGetLeaderboardEmptyIsNotNil(t *testing.T) {
	rows, err := newFakeStore(&fakeDB{}).GetLeaderboard(context.Background(), 10)
	if err != nil || rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty slice, got %v, %v", rows, err)
	}
}

func TestEnsureTables(t *testing.T) {
	db := &fakeDB{}
	if err := newFakeStore(db).EnsureTables(context.Background()); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0].sql, "vs_bot BOOLEAN") {
		t.Fatalf("unexpected schema statement %+v", db.execs)
	}
}
