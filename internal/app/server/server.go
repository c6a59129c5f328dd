package server

import (
	"context"

	apprepository "github.com/dealsphere/dealsphere/internal/app/repository"
	"github.com/dealsphere/dealsphere/internal/app/service"
	inthttp "github.com/dealsphere/dealsphere/internal/http/handler"
	"github.com/dealsphere/dealsphere/internal/http/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles everything the admin HTTP surface needs.
type Dependencies struct {
	Logger  *zap.Logger
	Redis   *redis.Client
	Checker *service.HealthChecker
	Reaper  *service.DealReaper
	Stats   *service.HealthStatsService
	Audit   apprepository.AuditRepository
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())

	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	adminHandler := inthttp.NewAdminHandler(inthttp.AdminDeps{
		Logger:  s.deps.Logger,
		Checker: s.deps.Checker,
		Reaper:  s.deps.Reaper,
		Stats:   s.deps.Stats,
		Audit:   s.deps.Audit,
	})
	adminHandler.Register(s.app)
}
