package history

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "c4:leaderboard:wins"

// Leaderboard keeps a win counter per player name in a redis sorted set, so
// the ranking endpoint does not hit postgres on every request.
type Leaderboard struct {
	rdb *redis.Client
}

func NewLeaderboard(redisURL string) (*Leaderboard, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Leaderboard{rdb: rdb}, nil
}

// NewLeaderboardWithClient wraps an existing client. Used by tests.
func NewLeaderboardWithClient(rdb *redis.Client) *Leaderboard {
	return &Leaderboard{rdb: rdb}
}

func (l *Leaderboard) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}

// RecordWin bumps the win counter for username.
func (l *Leaderboard) RecordWin(ctx context.Context, username string) error {
	if l == nil || l.rdb == nil || strings.TrimSpace(username) == "" {
		return nil
	}
	return l.rdb.ZIncrBy(ctx, leaderboardKey, 1, username).Err()
}

// Top returns up to topN players ordered by win count descending.
func (l *Leaderboard) Top(ctx context.Context, topN int) ([]WinCount, error) {
	if l == nil || l.rdb == nil {
		return nil, nil
	}
	if topN <= 0 {
		topN = 50
	}
	zs, err := l.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(topN-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]WinCount, 0, len(zs))
	for _, z := range zs {
		name, _ := z.Member.(string)
		out = append(out, WinCount{Username: name, Wins: int64(z.Score)})
	}
	return out, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
