package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler periodically triggers the health check and the two cleanup
// sweeps. Overlap protection lives in the checker's run guard, so a tick
// that fires during an active run fails fast and is simply logged.
type Scheduler struct {
	logger  *zap.Logger
	checker *HealthChecker
	reaper  *DealReaper

	checkInterval   time.Duration
	staleInterval   time.Duration
	qualityInterval time.Duration

	stopChan chan struct{}
}

// NewScheduler creates the background scheduler for the health engine.
func NewScheduler(logger *zap.Logger, checker *HealthChecker, reaper *DealReaper, checkInterval, staleInterval, qualityInterval time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger:          logger,
		checker:         checker,
		reaper:          reaper,
		checkInterval:   checkInterval,
		staleInterval:   staleInterval,
		qualityInterval: qualityInterval,
		stopChan:        make(chan struct{}),
	}
}

// Start launches the scheduling loop in the background.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop terminates the scheduling loop.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

func (s *Scheduler) run() {
	checkTicker := time.NewTicker(s.checkInterval)
	defer checkTicker.Stop()
	staleTicker := time.NewTicker(s.staleInterval)
	defer staleTicker.Stop()
	qualityTicker := time.NewTicker(s.qualityInterval)
	defer qualityTicker.Stop()

	s.logger.Info("health engine scheduler started",
		zap.Duration("check_interval", s.checkInterval),
		zap.Duration("stale_sweep_interval", s.staleInterval),
		zap.Duration("quality_sweep_interval", s.qualityInterval))

	for {
		select {
		case <-checkTicker.C:
			s.runHealthCheck()
		case <-staleTicker.C:
			s.runStaleSweep()
		case <-qualityTicker.C:
			s.runQualitySweep()
		case <-s.stopChan:
			s.logger.Info("health engine scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) runHealthCheck() {
	stats := s.checker.Run(context.Background(), false)
	if stats.Error != "" {
		s.logger.Warn("scheduled URL health check did not complete",
			zap.String("error", stats.Error),
			zap.Int("checked", stats.TotalChecked))
		return
	}
	s.logger.Info("scheduled URL health check finished",
		zap.Int("checked", stats.TotalChecked),
		zap.Int("removed", stats.Removed),
		zap.Int("flagged", stats.FlaggedPendingReview))
}

func (s *Scheduler) runStaleSweep() {
	stats := s.reaper.CleanupStaleFlagged(context.Background())
	if stats.Error != "" {
		s.logger.Warn("scheduled stale deal cleanup failed", zap.String("error", stats.Error))
		return
	}
	s.logger.Info("scheduled stale deal cleanup finished", zap.Int("removed", stats.Removed))
}

func (s *Scheduler) runQualitySweep() {
	stats := s.reaper.CleanupDataQuality(context.Background())
	if stats.Error != "" {
		s.logger.Warn("scheduled data quality cleanup failed", zap.String("error", stats.Error))
		return
	}
	s.logger.Info("scheduled data quality cleanup finished", zap.Int("removed", stats.Removed))
}
