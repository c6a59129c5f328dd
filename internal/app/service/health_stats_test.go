package service

import (
	"context"
	"errors"
	"testing"

	apprepository "github.com/dealsphere/dealsphere/internal/app/repository"
	"go.uber.org/zap"
)

type mockStatsRepository struct {
	fn    func(ctx context.Context) (*apprepository.URLHealthStats, error)
	calls int
}

func (m *mockStatsRepository) URLHealthStats(ctx context.Context) (*apprepository.URLHealthStats, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(ctx)
	}
	return &apprepository.URLHealthStats{}, nil
}

func TestHealthStatsService_GetWithoutCache(t *testing.T) {
	repo := &mockStatsRepository{
		fn: func(ctx context.Context) (*apprepository.URLHealthStats, error) {
			return &apprepository.URLHealthStats{
				TotalActiveDeals: 200,
				HealthyURLs:      150,
				BrokenURLs:       30,
				Unchecked:        20,
				HealthPercentage: 75,
			}, nil
		},
	}

	svc := NewHealthStatsService(zap.NewNop(), repo, nil)
	stats, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stats.TotalActiveDeals != 200 || stats.HealthPercentage != 75 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if repo.calls != 1 {
		t.Errorf("repo called %d times, want 1", repo.calls)
	}
}

func TestHealthStatsService_GetPropagatesQueryError(t *testing.T) {
	repo := &mockStatsRepository{
		fn: func(ctx context.Context) (*apprepository.URLHealthStats, error) {
			return nil, errors.New("query failed")
		},
	}

	svc := NewHealthStatsService(zap.NewNop(), repo, nil)
	if _, err := svc.Get(context.Background()); err == nil {
		t.Fatal("expected error from failing query")
	}
}
