package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GameoCoder/attendance-backend/internal/attendance"
	"github.com/GameoCoder/attendance-backend/internal/config"
	"github.com/GameoCoder/attendance-backend/internal/db"
	internalhttp "github.com/GameoCoder/attendance-backend/internal/http"
	"github.com/GameoCoder/attendance-backend/internal/repository"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	defer pool.Close()

	store := db.NewStore(pool)
	repo := repository.NewStore(pool)
	svc := attendance.NewService(store, repo)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatal("redis ping failed", zap.Error(err))
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	server, err := internalhttp.NewServer(cfg, store, repo, svc, redisClient, logger)
	if err != nil {
		logger.Fatal("server init failed", zap.Error(err))
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	return cfg.Build()
}
