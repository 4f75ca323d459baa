package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matchpoint/arena/internal/app"
	"github.com/matchpoint/arena/internal/auth"
	"github.com/matchpoint/arena/internal/infra"
	"github.com/matchpoint/arena/internal/projection"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	// Apply migrations
	if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Redis fan-out for lobby broadcasts
	redisClient, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	logger.Info("connected to redis")

	hub := infra.NewWSHub(logger)
	defer hub.Shutdown(context.Background())

	cache := projection.NewRedisStore(redisClient)

	broadcaster := infra.NewBroadcaster(redisClient, hub, logger)
	go func() {
		if err := broadcaster.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("broadcast subscriber stopped", "error", err)
		}
	}()

	// Durable event publishing via the transactional outbox
	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()

	poller := infra.NewOutboxPoller(pool, producer, logger)
	poller.Start(ctx)

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTUserExpiry)

	router := app.NewRouter(app.RouterDeps{
		Pool:        pool,
		JWTMgr:      jwtMgr,
		Broadcaster: broadcaster,
		Cache:       cache,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Logger:      logger,
	})

	// Periodic sweep of stale finished lobbies
	lobbySvc := app.NewLobbyService(pool, broadcaster, cache, logger)
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-cfg.LobbyPurgeAfter)
				n, err := lobbySvc.PurgeFinished(ctx, cutoff)
				if err != nil {
					logger.Error("lobby purge failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("purged finished lobbies", "count", n)
				}
			}
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
