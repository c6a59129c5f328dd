package handler

import (
	apprepository "github.com/dealsphere/dealsphere/internal/app/repository"
	"github.com/dealsphere/dealsphere/internal/app/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminDeps groups dependencies required by the admin handlers.
type AdminDeps struct {
	Logger  *zap.Logger
	Checker *service.HealthChecker
	Reaper  *service.DealReaper
	Stats   *service.HealthStatsService
	Audit   apprepository.AuditRepository
}

// AdminHandler exposes the health engine's trigger and status endpoints to
// admin tooling. All failures surface as JSON payloads carrying an error
// key; partial progress is never dropped.
type AdminHandler struct {
	logger  *zap.Logger
	checker *service.HealthChecker
	reaper  *service.DealReaper
	stats   *service.HealthStatsService
	audit   apprepository.AuditRepository
}

// NewAdminHandler creates an admin handler with the provided dependencies.
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		logger:  logger,
		checker: deps.Checker,
		reaper:  deps.Reaper,
		stats:   deps.Stats,
		audit:   deps.Audit,
	}
}

// Register wires admin routes onto the provided router.
func (h *AdminHandler) Register(router fiber.Router) {
	admin := router.Group("/api/admin")
	{
		health := admin.Group("/url-health")
		{
			health.Post("/check", h.RunCheck)
			health.Get("/progress", h.Progress)
			health.Get("/stats", h.HealthStats)
		}

		cleanup := admin.Group("/cleanup")
		{
			cleanup.Post("/stale-flagged", h.CleanupStaleFlagged)
			cleanup.Post("/data-quality", h.CleanupDataQuality)
		}

		admin.Get("/deals/:id/audit", h.DealAuditTrail)
	}
}

// RunCheck handles POST /api/admin/url-health/check?all=true
func (h *AdminHandler) RunCheck(c *fiber.Ctx) error {
	checkAll := c.QueryBool("all", false)

	stats := h.checker.Run(c.UserContext(), checkAll)

	if stats.Error == service.ErrCheckAlreadyRunning.Error() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": stats.Error,
		})
	}
	if stats.Error != "" {
		// Partial progress plus the error, per the stats contract.
		return c.Status(fiber.StatusInternalServerError).JSON(stats)
	}

	return c.JSON(stats)
}

// Progress handles GET /api/admin/url-health/progress
func (h *AdminHandler) Progress(c *fiber.Ctx) error {
	return c.JSON(h.checker.Progress())
}

// HealthStats handles GET /api/admin/url-health/stats
func (h *AdminHandler) HealthStats(c *fiber.Ctx) error {
	stats, err := h.stats.Get(c.UserContext())
	if err != nil {
		h.logger.Error("failed to compute URL health stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to compute URL health stats",
		})
	}
	return c.JSON(stats)
}

// CleanupStaleFlagged handles POST /api/admin/cleanup/stale-flagged
func (h *AdminHandler) CleanupStaleFlagged(c *fiber.Ctx) error {
	stats := h.reaper.CleanupStaleFlagged(c.UserContext())
	if stats.Error != "" {
		return c.Status(fiber.StatusInternalServerError).JSON(stats)
	}
	return c.JSON(stats)
}

// CleanupDataQuality handles POST /api/admin/cleanup/data-quality
func (h *AdminHandler) CleanupDataQuality(c *fiber.Ctx) error {
	stats := h.reaper.CleanupDataQuality(c.UserContext())
	if stats.Error != "" {
		return c.Status(fiber.StatusInternalServerError).JSON(stats)
	}
	return c.JSON(stats)
}

// DealAuditTrail handles GET /api/admin/deals/:id/audit
func (h *AdminHandler) DealAuditTrail(c *fiber.Ctx) error {
	dealID := c.Params("id")
	if dealID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "deal id is required",
		})
	}

	events, err := h.audit.ListByDeal(c.UserContext(), dealID, c.QueryInt("limit", 50))
	if err != nil {
		h.logger.Error("failed to list audit events",
			zap.String("deal_id", dealID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list audit events",
		})
	}
	return c.JSON(fiber.Map{
		"deal_id": dealID,
		"events":  events,
	})
}
