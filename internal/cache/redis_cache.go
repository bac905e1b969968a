package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"supermart/backend/internal/domain"
)

const statsKey = "supermart:dashboard:stats"

type Redis struct {
	client *redis.Client
}

// NewRedis pings the server before committing to it; callers fall back to the
// noop cache on error.
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) GetStats(ctx context.Context) (domain.DashboardStats, bool) {
	raw, err := r.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[cache] WARN: get stats: %v", err)
		}
		return domain.DashboardStats{}, false
	}
	var stats domain.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		log.Printf("[cache] WARN: decode stats: %v", err)
		return domain.DashboardStats{}, false
	}
	return stats, true
}

func (r *Redis) SetStats(ctx context.Context, stats domain.DashboardStats, ttl time.Duration) {
	raw, err := json.Marshal(stats)
	if err != nil {
		log.Printf("[cache] WARN: encode stats: %v", err)
		return
	}
	if err := r.client.Set(ctx, statsKey, raw, ttl).Err(); err != nil {
		log.Printf("[cache] WARN: set stats: %v", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context) {
	if err := r.client.Del(ctx, statsKey).Err(); err != nil {
		log.Printf("[cache] WARN: invalidate stats: %v", err)
	}
}
