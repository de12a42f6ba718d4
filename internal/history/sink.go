// Package history is the analytics boundary: it turns session facts into a
// structured event log, durable postgres rows, and a redis leaderboard.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kapu/connect4-arena-go/internal/arena"
	"github.com/kapu/connect4-arena-go/internal/obslog"
)

// NewEventLogger opens a JSON-lines fact log at path. Each fact becomes one
// line, separate from the operational log.
func NewEventLogger(path string) (*zap.Logger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("event log path is empty")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(f), zapcore.InfoLevel)
	return zap.New(core), nil
}

// Sink consumes session facts. Repository and leaderboard are optional; the
// event log always runs (falling back to the operational logger when no
// dedicated one is given). Persistence happens off the caller's goroutine so
// a slow database never stalls move processing.
type Sink struct {
	events *zap.Logger
	repo   *Repository
	lb     *Leaderboard
}

func NewSink(repo *Repository, lb *Leaderboard, events *zap.Logger) *Sink {
	return &Sink{repo: repo, lb: lb, events: events}
}

func (s *Sink) eventLogger() *zap.Logger {
	if s.events != nil {
		return s.events
	}
	return obslog.L()
}

// Record implements the session registry's recorder hook.
func (s *Sink) Record(kind string, payload any) {
	s.eventLogger().Info("fact",
		zap.String("kind", kind),
		zap.Any("payload", payload),
	)
	if kind != arena.FactGameEnded {
		return
	}
	f, ok := payload.(arena.GameEndedFact)
	if !ok {
		return
	}
	go s.persist(f)
}

func (s *Sink) persist(f arena.GameEndedFact) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.repo != nil {
		if err := s.repo.SaveCompleted(ctx, f); err != nil {
			obslog.L().Error("game_save_failed",
				zap.String("game_id", f.GameID), zap.Error(err))
		}
	}
	if s.lb != nil && f.Result == "win" && f.WinnerName != "" && f.WinnerName != arena.BotName {
		if err := s.lb.RecordWin(ctx, f.WinnerName); err != nil {
			obslog.L().Error("leaderboard_update_failed",
				zap.String("winner", f.WinnerName), zap.Error(err))
		}
	}
}
