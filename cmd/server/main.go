package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"supermart/backend/internal/cache"
	"supermart/backend/internal/config"
	"supermart/backend/internal/httpapi"
	"supermart/backend/internal/service"
	"supermart/backend/internal/store"
	"supermart/backend/internal/store/memory"
	"supermart/backend/internal/store/postgres"
	"supermart/backend/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closers, err := buildRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("[main] store: %v", err)
	}

	stats := buildStatsCache(ctx, cfg)
	if c, ok := stats.(*cache.Redis); ok {
		closers = append(closers, c.Close)
	}

	svc := service.New(repo, service.Options{
		Stats:        stats,
		StatsTTL:     time.Duration(cfg.StatsTTLSeconds) * time.Second,
		CouponPolicy: cfg.CouponPolicy,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.NewServer(svc, cfg.AllowedOrigin).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] WARN: shutdown: %v", err)
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("[main] WARN: close: %v", err)
		}
	}
}

// buildRepository picks the backend: postgres when DATABASE_URL is set, else
// sqlite when SQLITE_PATH is set, else the seeded in-memory store.
func buildRepository(ctx context.Context, cfg config.Config) (store.Repository, []func() error, error) {
	switch {
	case cfg.DatabaseURL != "":
		s, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[main] using postgres store")
		return s, []func() error{s.Close}, nil
	case cfg.SQLitePath != "":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[main] using sqlite store at %s", cfg.SQLitePath)
		return s, []func() error{s.Close}, nil
	default:
		log.Printf("[main] using in-memory store with sample data")
		return memory.NewSeeded(), nil, nil
	}
}

func buildStatsCache(ctx context.Context, cfg config.Config) cache.StatsCache {
	if cfg.RedisAddr == "" {
		return cache.NewNoop()
	}
	c, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("[main] WARN: redis unavailable, dashboard cache disabled: %v", err)
		return cache.NewNoop()
	}
	log.Printf("[main] dashboard cache on redis at %s", cfg.RedisAddr)
	return c
}
