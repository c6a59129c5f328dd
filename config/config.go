package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// URL health checking
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Port              int    `mapstructure:"port"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

type PrometheusConfig struct {
	Port           int    `mapstructure:"port"`
	Retention      string `mapstructure:"retention"`
	ScrapeInterval string `mapstructure:"scrape_interval"`
	Target         string `mapstructure:"target"`
}

// HealthCheckConfig tunes the URL health checking and deal lifecycle engine.
type HealthCheckConfig struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	RecheckInterval  time.Duration `mapstructure:"recheck_interval"`
	SelectionLimit   int           `mapstructure:"selection_limit"`
	BatchSize        int           `mapstructure:"batch_size"`
	Concurrency      int           `mapstructure:"concurrency"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	FlaggedTTL       time.Duration `mapstructure:"flagged_ttl"`

	// Scheduler cadence.
	CheckInterval        time.Duration `mapstructure:"check_interval"`
	StaleSweepInterval   time.Duration `mapstructure:"stale_sweep_interval"`
	QualitySweepInterval time.Duration `mapstructure:"quality_sweep_interval"`
}

// Normalize fills zero-valued health check settings with production defaults.
func (c *HealthCheckConfig) Normalize() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.RecheckInterval <= 0 {
		c.RecheckInterval = 2 * time.Hour
	}
	if c.SelectionLimit <= 0 {
		c.SelectionLimit = 200
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 2
	}
	if c.FlaggedTTL <= 0 {
		c.FlaggedTTL = 24 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 2 * time.Hour
	}
	if c.StaleSweepInterval <= 0 {
		c.StaleSweepInterval = time.Hour
	}
	if c.QualitySweepInterval <= 0 {
		c.QualitySweepInterval = 6 * time.Hour
	}
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.HealthCheck.Normalize()

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")
	v.BindEnv("nats.monitor_port", "NATS_MONITOR_PORT")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
	v.BindEnv("prometheus.retention", "PROM_RETENTION")
	v.BindEnv("prometheus.scrape_interval", "PROM_SCRAPE_INTERVAL")
	v.BindEnv("prometheus.target", "PROM_TARGET")

	// Health checking
	v.BindEnv("health_check.request_timeout", "HEALTH_REQUEST_TIMEOUT")
	v.BindEnv("health_check.recheck_interval", "HEALTH_RECHECK_INTERVAL")
	v.BindEnv("health_check.selection_limit", "HEALTH_SELECTION_LIMIT")
	v.BindEnv("health_check.batch_size", "HEALTH_BATCH_SIZE")
	v.BindEnv("health_check.concurrency", "HEALTH_CONCURRENCY")
	v.BindEnv("health_check.failure_threshold", "HEALTH_FAILURE_THRESHOLD")
	v.BindEnv("health_check.flagged_ttl", "HEALTH_FLAGGED_TTL")
	v.BindEnv("health_check.check_interval", "HEALTH_CHECK_INTERVAL")
	v.BindEnv("health_check.stale_sweep_interval", "HEALTH_STALE_SWEEP_INTERVAL")
	v.BindEnv("health_check.quality_sweep_interval", "HEALTH_QUALITY_SWEEP_INTERVAL")
}
