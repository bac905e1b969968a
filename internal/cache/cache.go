// Package cache holds the optional read cache for dashboard rollups. The
// server works without Redis; the noop implementation keeps callers free of
// nil checks.
package cache

import (
	"context"
	"time"

	"supermart/backend/internal/domain"
)

type StatsCache interface {
	GetStats(ctx context.Context) (domain.DashboardStats, bool)
	SetStats(ctx context.Context, stats domain.DashboardStats, ttl time.Duration)
	Invalidate(ctx context.Context)
}

type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) GetStats(context.Context) (domain.DashboardStats, bool) {
	return domain.DashboardStats{}, false
}

func (Noop) SetStats(context.Context, domain.DashboardStats, time.Duration) {}

func (Noop) Invalidate(context.Context) {}
