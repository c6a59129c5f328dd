package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apprepository "github.com/dealsphere/dealsphere/internal/app/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	healthStatsCacheKey = "url_health:stats"
	healthStatsCacheTTL = 60 * time.Second
)

// HealthStatsService serves the point-in-time health aggregate, cached
// briefly in Redis so admin dashboards polling it do not hammer Postgres.
type HealthStatsService struct {
	logger *zap.Logger
	repo   apprepository.StatsRepository
	cache  *redis.Client
}

// NewHealthStatsService wires the stats service; cache may be nil.
func NewHealthStatsService(logger *zap.Logger, repo apprepository.StatsRepository, cache *redis.Client) *HealthStatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthStatsService{logger: logger, repo: repo, cache: cache}
}

// Get returns the aggregate, from cache when fresh. Cache failures degrade
// to a direct query.
func (s *HealthStatsService) Get(ctx context.Context) (*apprepository.URLHealthStats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, healthStatsCacheKey).Bytes()
		if err == nil {
			var stats apprepository.URLHealthStats
			if err := json.Unmarshal(cached, &stats); err == nil {
				return &stats, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("health stats cache read failed", zap.Error(err))
		}
	}

	stats, err := s.repo.URLHealthStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("url health stats: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, healthStatsCacheKey, data, healthStatsCacheTTL).Err(); err != nil {
				s.logger.Warn("health stats cache write failed", zap.Error(err))
			}
		}
	}

	return stats, nil
}
