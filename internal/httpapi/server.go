// Package httpapi serves the read-only query surface: liveness, the win
// leaderboard, and the finished-games listing.
package httpapi

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/connect4-arena-go/internal/arena"
	"github.com/kapu/connect4-arena-go/internal/history"
	"github.com/kapu/connect4-arena-go/internal/obslog"
)

const queryTimeout = 5 * time.Second

// Server answers REST queries. Repository and leaderboard are optional; the
// endpoints degrade to empty results when a backend is not wired.
type Server struct {
	sessions  *arena.Manager
	repo      *history.Repository
	lb        *history.Leaderboard
	startedAt time.Time
}

func NewServer(sessions *arena.Manager, repo *history.Repository, lb *history.Leaderboard) *Server {
	return &Server{sessions: sessions, repo: repo, lb: lb, startedAt: time.Now()}
}

// Handler is the fasthttp entry point.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		return
	}
	switch string(ctx.Path()) {
	case "/health":
		s.handleHealth(ctx)
	case "/leaderboard":
		s.handleLeaderboard(ctx)
	case "/games":
		s.handleGames(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{
		"status":         "ok",
		"activeSessions": s.sessions.SessionCount(),
		"uptimeSeconds":  int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleLeaderboard(ctx *fasthttp.RequestCtx) {
	topN := intQuery(ctx, "limit", 50)
	qctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.lb.Top(qctx, topN)
	if err != nil {
		obslog.L().Warn("leaderboard_redis_failed", zap.Error(err))
		rows = nil
	}
	if len(rows) == 0 {
		// redis empty (e.g. after a restart) or down; the durable store is
		// the source of truth
		rows, err = s.repo.WinCounts(qctx, topN)
		if err != nil {
			obslog.L().Error("leaderboard_query_failed", zap.Error(err))
			writeJSON(ctx, fasthttp.StatusInternalServerError, map[string]any{"error": "leaderboard unavailable"})
			return
		}
	}
	if rows == nil {
		rows = []history.WinCount{}
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{"leaderboard": rows})
}

func (s *Server) handleGames(ctx *fasthttp.RequestCtx) {
	limit := intQuery(ctx, "limit", 50)
	qctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	games, err := s.repo.Completed(qctx, limit)
	if err != nil {
		obslog.L().Error("games_query_failed", zap.Error(err))
		writeJSON(ctx, fasthttp.StatusInternalServerError, map[string]any{"error": "history unavailable"})
		return
	}
	if games == nil {
		games = []history.CompletedGame{}
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{"games": games})
}

func intQuery(ctx *fasthttp.RequestCtx, key string, def int) int {
	raw := string(ctx.QueryArgs().Peek(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(body)
}
