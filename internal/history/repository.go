package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kapu/connect4-arena-go/internal/arena"
)

// Repository persists completed games to postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the games table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	q := `CREATE TABLE IF NOT EXISTS connect4_games (
        game_id       TEXT PRIMARY KEY,
        player1       TEXT NOT NULL,
        player2       TEXT NOT NULL,
        winner        INT NOT NULL,
        winner_name   TEXT NOT NULL DEFAULT '',
        result        TEXT NOT NULL,
        reason        TEXT NOT NULL,
        moves         JSONB NOT NULL DEFAULT '[]',
        winning_cells JSONB NOT NULL DEFAULT '[]',
        started_at    TIMESTAMPTZ,
        ended_at      TIMESTAMPTZ,
        duration_ms   BIGINT NOT NULL DEFAULT 0
    )`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

// SaveCompleted upserts a finished game keyed by its id.
func (r *Repository) SaveCompleted(ctx context.Context, f arena.GameEndedFact) error {
	if r == nil || r.db == nil {
		return nil
	}

	movesRaw, _ := json.Marshal(f.Moves)
	cellsRaw, _ := json.Marshal(f.WinningCells)
	duration := f.EndedAt.Sub(f.StartedAt).Milliseconds()
	if f.StartedAt.IsZero() || duration < 0 {
		duration = 0
	}

	q := `INSERT INTO connect4_games (
        game_id, player1, player2, winner, winner_name,
        result, reason, moves, winning_cells,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
      ) ON CONFLICT (game_id) DO UPDATE SET
        player1=EXCLUDED.player1,
        player2=EXCLUDED.player2,
        winner=EXCLUDED.winner,
        winner_name=EXCLUDED.winner_name,
        result=EXCLUDED.result,
        reason=EXCLUDED.reason,
        moves=EXCLUDED.moves,
        winning_cells=EXCLUDED.winning_cells,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		f.GameID,
		f.Players[0], f.Players[1],
		f.Winner, f.WinnerName,
		f.Result, f.Reason,
		string(movesRaw), string(cellsRaw),
		nullTime(f.StartedAt), nullTime(f.EndedAt), duration,
	)
	return err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// CompletedGame is one row of the finished-games listing.
type CompletedGame struct {
	GameID     string    `json:"gameId"`
	Player1    string    `json:"player1"`
	Player2    string    `json:"player2"`
	Winner     int       `json:"winner"`
	WinnerName string    `json:"winnerName"`
	Result     string    `json:"result"`
	Reason     string    `json:"reason"`
	EndedAt    time.Time `json:"endedAt"`
	DurationMS int64     `json:"durationMs"`
}

// Completed lists the most recently finished games, newest first.
func (r *Repository) Completed(ctx context.Context, limit int) ([]CompletedGame, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT game_id, player1, player2, winner, winner_name, result, reason,
            COALESCE(ended_at, 'epoch'::timestamptz), duration_ms
          FROM connect4_games
          ORDER BY ended_at DESC NULLS LAST
          LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CompletedGame
	for rows.Next() {
		var g CompletedGame
		if err := rows.Scan(&g.GameID, &g.Player1, &g.Player2, &g.Winner,
			&g.WinnerName, &g.Result, &g.Reason, &g.EndedAt, &g.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// WinCounts aggregates win totals per player name, most wins first. Serves
// as the leaderboard source of truth when redis is out of sync. Ranks the
// same population as the redis path: human wins only.
func (r *Repository) WinCounts(ctx context.Context, topN int) ([]WinCount, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if topN <= 0 {
		topN = 50
	}
	q := `SELECT winner_name, COUNT(*) AS wins
          FROM connect4_games
          WHERE result = 'win' AND winner_name <> '' AND winner_name <> $2
          GROUP BY winner_name
          ORDER BY wins DESC, winner_name ASC
          LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, topN, arena.BotName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WinCount
	for rows.Next() {
		var w WinCount
		if err := rows.Scan(&w.Username, &w.Wins); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// WinCount is one leaderboard row.
type WinCount struct {
	Username string `json:"username"`
	Wins     int64  `json:"wins"`
}
