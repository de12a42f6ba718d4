package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/connect4-arena-go/internal/arena"
	appcfg "github.com/kapu/connect4-arena-go/internal/config"
	"github.com/kapu/connect4-arena-go/internal/history"
	"github.com/kapu/connect4-arena-go/internal/httpapi"
	"github.com/kapu/connect4-arena-go/internal/matchmaker"
	"github.com/kapu/connect4-arena-go/internal/obslog"
	"github.com/kapu/connect4-arena-go/internal/transport"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	// Both stores are optional; without them games simply are not persisted.
	var repo *history.Repository
	if cfg.DatabaseURL != "" {
		repo, err = history.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("repository init error: %v", err)
		}
		schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := repo.EnsureSchema(schemaCtx); err != nil {
			cancel()
			log.Fatalf("schema init error: %v", err)
		}
		cancel()
	}
	var lb *history.Leaderboard
	if cfg.RedisURL != "" {
		lb, err = history.NewLeaderboard(cfg.RedisURL)
		if err != nil {
			log.Fatalf("leaderboard init error: %v", err)
		}
	}

	events, err := history.NewEventLogger(cfg.EventLogPath)
	if err != nil {
		logger.Warn("event log unavailable, falling back to main log", zap.Error(err))
		events = nil
	}

	sessions := arena.NewManager(arena.Options{
		Rows:              cfg.BoardRows,
		Cols:              cfg.BoardCols,
		ForfeitTimeout:    cfg.ForfeitTimeout(),
		RematchWindow:     cfg.RematchWindow(),
		RematchStartDelay: cfg.RematchStartDelay(),
		SessionLinger:     cfg.SessionLinger(),
	}, history.NewSink(repo, lb, events))
	queue := matchmaker.New(sessions, cfg.QueueBotFallback())

	wsServer := &http.Server{
		Addr:    cfg.WSListenAddr,
		Handler: transport.NewServer(sessions, queue),
	}
	go func() {
		logger.Info("ws_listen", zap.String("addr", cfg.WSListenAddr))
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ws server error", zap.Error(err))
		}
	}()

	api := httpapi.NewServer(sessions, repo, lb)
	apiServer := &fasthttp.Server{Handler: api.Handler, Name: "connect4-arena"}
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.APIListenAddr))
		if err := apiServer.ListenAndServe(cfg.APIListenAddr); err != nil {
			logger.Fatal("api server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = wsServer.Shutdown(shutdownCtx)
	_ = apiServer.Shutdown()
	if events != nil {
		_ = events.Sync()
	}
	if lb != nil {
		_ = lb.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
}
