package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/dealsphere/dealsphere/config"
	appmodel "github.com/dealsphere/dealsphere/internal/app/model"
	apprepository "github.com/dealsphere/dealsphere/internal/app/repository"
	appserver "github.com/dealsphere/dealsphere/internal/app/server"
	appservice "github.com/dealsphere/dealsphere/internal/app/service"
	"github.com/dealsphere/dealsphere/internal/infra/logger"
	infraNATS "github.com/dealsphere/dealsphere/internal/infra/nats"
	infraPostgres "github.com/dealsphere/dealsphere/internal/infra/postgres"
	infraPrometheus "github.com/dealsphere/dealsphere/internal/infra/prometheus"
	infraRedis "github.com/dealsphere/dealsphere/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Duration("health_check_interval", cfg.HealthCheck.CheckInterval),
		zap.Duration("health_recheck_interval", cfg.HealthCheck.RecheckInterval),
		zap.Int("health_failure_threshold", cfg.HealthCheck.FailureThreshold),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Deal{}, &appmodel.AuditEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	dealRepo := apprepository.NewDealRepository(gormDB)
	statsRepo := apprepository.NewStatsRepository(pool)
	auditRepo := apprepository.NewAuditRepository(gormDB)

	publisher := appservice.NewLifecyclePublisher(js)

	prober := appservice.NewProber(appservice.NewSafetyFilter(), cfg.HealthCheck.RequestTimeout)
	checker := appservice.NewHealthChecker(log, dealRepo, prober, publisher, cfg.HealthCheck)
	reaper := appservice.NewDealReaper(log, dealRepo, publisher, cfg.HealthCheck.FlaggedTTL)
	statsService := appservice.NewHealthStatsService(log, statsRepo, redisClient)

	auditConsumer := appservice.NewAuditConsumer(js, log, auditRepo)
	if err := auditConsumer.Start(); err != nil {
		log.Fatal("Failed to start lifecycle audit consumer", zap.Error(err))
	}

	scheduler := appservice.NewScheduler(log, checker, reaper,
		cfg.HealthCheck.CheckInterval,
		cfg.HealthCheck.StaleSweepInterval,
		cfg.HealthCheck.QualitySweepInterval)
	scheduler.Start()
	defer scheduler.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:  log,
		Redis:   redisClient,
		Checker: checker,
		Reaper:  reaper,
		Stats:   statsService,
		Audit:   auditRepo,
	})

	if err := server.Listen(":8080"); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
