package config

import (
	"testing"
	"time"
)

func TestHealthCheckConfig_NormalizeDefaults(t *testing.T) {
	var cfg HealthCheckConfig
	cfg.Normalize()

	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("request_timeout = %v, want 15s", cfg.RequestTimeout)
	}
	if cfg.RecheckInterval != 2*time.Hour {
		t.Errorf("recheck_interval = %v, want 2h", cfg.RecheckInterval)
	}
	if cfg.SelectionLimit != 200 {
		t.Errorf("selection_limit = %d, want 200", cfg.SelectionLimit)
	}
	if cfg.BatchSize != 50 {
		t.Errorf("batch_size = %d, want 50", cfg.BatchSize)
	}
	if cfg.Concurrency != 10 {
		t.Errorf("concurrency = %d, want 10", cfg.Concurrency)
	}
	if cfg.FailureThreshold != 2 {
		t.Errorf("failure_threshold = %d, want 2", cfg.FailureThreshold)
	}
	if cfg.FlaggedTTL != 24*time.Hour {
		t.Errorf("flagged_ttl = %v, want 24h", cfg.FlaggedTTL)
	}
	if cfg.CheckInterval != 2*time.Hour {
		t.Errorf("check_interval = %v, want 2h", cfg.CheckInterval)
	}
	if cfg.StaleSweepInterval != time.Hour {
		t.Errorf("stale_sweep_interval = %v, want 1h", cfg.StaleSweepInterval)
	}
	if cfg.QualitySweepInterval != 6*time.Hour {
		t.Errorf("quality_sweep_interval = %v, want 6h", cfg.QualitySweepInterval)
	}
}

func TestHealthCheckConfig_NormalizeKeepsOverrides(t *testing.T) {
	cfg := HealthCheckConfig{
		RequestTimeout:   5 * time.Second,
		FailureThreshold: 3,
		FlaggedTTL:       48 * time.Hour,
	}
	cfg.Normalize()

	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("request_timeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.FailureThreshold != 3 {
		t.Errorf("failure_threshold = %d, want 3", cfg.FailureThreshold)
	}
	if cfg.FlaggedTTL != 48*time.Hour {
		t.Errorf("flagged_ttl = %v, want 48h", cfg.FlaggedTTL)
	}
	// Untouched fields still get defaults.
	if cfg.BatchSize != 50 {
		t.Errorf("batch_size = %d, want 50", cfg.BatchSize)
	}
}
