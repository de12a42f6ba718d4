package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// AppConfig holds every runtime knob. Values come from an optional yaml
// file (CONFIG_FILE) with environment variables taking precedence.
type AppConfig struct {
	WSListenAddr  string `yaml:"ws_listen_addr"`
	APIListenAddr string `yaml:"api_listen_addr"`

	RedisURL     string `yaml:"redis_url"`
	DatabaseURL  string `yaml:"database_url"`
	EventLogPath string `yaml:"event_log_path"`

	BoardRows int `yaml:"board_rows"`
	BoardCols int `yaml:"board_cols"`

	ForfeitTimeoutSec   int `yaml:"forfeit_timeout_sec"`
	RematchWindowSec    int `yaml:"rematch_window_sec"`
	RematchStartDelayMS int `yaml:"rematch_start_delay_ms"`
	SessionLingerSec    int `yaml:"session_linger_sec"`
	QueueBotFallbackSec int `yaml:"queue_bot_fallback_sec"`

	LeaderboardTopN int `yaml:"leaderboard_top_n"`
}

func defaults() *AppConfig {
	return &AppConfig{
		WSListenAddr:        ":8080",
		APIListenAddr:       ":8081",
		BoardRows:           6,
		BoardCols:           7,
		ForfeitTimeoutSec:   30,
		RematchWindowSec:    10,
		RematchStartDelayMS: 400,
		SessionLingerSec:    60,
		QueueBotFallbackSec: 30,
		LeaderboardTopN:     50,
		EventLogPath:        filepath.Join("data", "events.log"),
	}
}

func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("WS_LISTEN_ADDR")); v != "" {
		cfg.WSListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("API_LISTEN_ADDR")); v != "" {
		cfg.APIListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENT_LOG_FILE")); v != "" {
		cfg.EventLogPath = v
	}
	applyIntEnv("BOARD_ROWS", &cfg.BoardRows)
	applyIntEnv("BOARD_COLS", &cfg.BoardCols)
	applyIntEnv("FORFEIT_TIMEOUT_SEC", &cfg.ForfeitTimeoutSec)
	applyIntEnv("REMATCH_WINDOW_SEC", &cfg.RematchWindowSec)
	applyIntEnv("REMATCH_START_DELAY_MS", &cfg.RematchStartDelayMS)
	applyIntEnv("SESSION_LINGER_SEC", &cfg.SessionLingerSec)
	applyIntEnv("QUEUE_BOT_FALLBACK_SEC", &cfg.QueueBotFallbackSec)
	applyIntEnv("LEADERBOARD_TOP_N", &cfg.LeaderboardTopN)

	if cfg.WSListenAddr == "" {
		return nil, fmt.Errorf("WS_LISTEN_ADDR is required")
	}
	if cfg.BoardRows < 4 || cfg.BoardCols < 4 {
		return nil, fmt.Errorf("board must be at least 4x4, got %dx%d", cfg.BoardRows, cfg.BoardCols)
	}
	return cfg, nil
}

func applyIntEnv(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func (c *AppConfig) ForfeitTimeout() time.Duration {
	return time.Duration(c.ForfeitTimeoutSec) * time.Second
}

func (c *AppConfig) RematchWindow() time.Duration {
	return time.Duration(c.RematchWindowSec) * time.Second
}

func (c *AppConfig) RematchStartDelay() time.Duration {
	return time.Duration(c.RematchStartDelayMS) * time.Millisecond
}

func (c *AppConfig) SessionLinger() time.Duration {
	return time.Duration(c.SessionLingerSec) * time.Second
}

func (c *AppConfig) QueueBotFallback() time.Duration {
	return time.Duration(c.QueueBotFallbackSec) * time.Second
}
