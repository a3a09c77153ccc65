package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/telegram-chess-bot/internal/chess"
	appcfg "github.com/kapu/telegram-chess-bot/internal/config"
	"github.com/kapu/telegram-chess-bot/internal/display"
	"github.com/kapu/telegram-chess-bot/internal/game"
	"github.com/kapu/telegram-chess-bot/internal/msgcat"
	"github.com/kapu/telegram-chess-bot/internal/obslog"
	"github.com/kapu/telegram-chess-bot/internal/render"
	"github.com/kapu/telegram-chess-bot/internal/tg"
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

	cat, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		logger.Fatal("message catalog init failed", zap.Error(err))
	}

	registry := buildRegistry(cfg, logger)

	engine := chess.NewEngine(cfg.StockfishPath, cfg.EngineThreads, cfg.EngineHashMB)
	ctrl, err := game.NewController(engine, registry, game.Config{
		EngineBudget: time.Duration(cfg.EngineMoveTimeMs) * time.Millisecond,
	}, logger)
	if err != nil {
		logger.Fatal("controller init failed", zap.Error(err))
	}

	client := tg.NewClient(cfg.TelegramAPI, cfg.BotToken)
	sync := display.NewSynchronizer(client, cat, render.NewSVGBoardRenderer(), ctrl, logger)
	bot := newBot(ctrl, sync, client, logger)

	poller := tg.NewPoller(client, cfg.PollTimeoutSec)
	poller.OnUpdate(bot.HandleUpdate)

	ctx, cancel := context.WithCancel(context.Background())
	poller.Start(ctx)
	logger.Info("bot started", zap.Int("poll_timeout_sec", cfg.PollTimeoutSec))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := poller.Stop(stopCtx); err != nil {
		logger.Warn("poller stop", zap.Error(err))
	}
	logger.Info("bot stopped")
}

func buildRegistry(cfg *appcfg.AppConfig, logger *zap.Logger) game.Registry {
	ttl := time.Duration(cfg.SessionTTLSec) * time.Second
	if cfg.RedisURL == "" {
		logger.Info("using in-memory session registry")
		return game.NewMemoryRegistry(ttl)
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("parse REDIS_URL failed", zap.Error(err))
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Fatal("redis ping failed", zap.Error(err))
	}
	logger.Info("using redis session registry")
	return game.NewRedisRegistry(rdb, ttl)
}
