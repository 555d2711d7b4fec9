package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"canvas-backend/internal/cache"
)

// HealthHandler component health checks
type HealthHandler struct {
	db    *gorm.DB
	cache *cache.RedisClient // nil when Redis is disabled
}

// NewHealthHandler creates a HealthHandler
func NewHealthHandler(db *gorm.DB, redisClient *cache.RedisClient) *HealthHandler {
	return &HealthHandler{db: db, cache: redisClient}
}

// ComponentCheck per-component status
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse health check response
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// Check reports overall status (DB + document cache). A missing cache only
// degrades the report; the database decides healthy vs unhealthy.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}

	dbStart := time.Now()
	sqlDB, err := h.db.DB()
	if err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "failed to get database connection",
		}
	} else if err := sqlDB.Ping(); err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "database ping failed",
		}
	} else {
		response.Checks["database"] = ComponentCheck{
			Status:  "healthy",
			Latency: time.Since(dbStart).String(),
		}
	}

	if h.cache != nil {
		cacheStart := time.Now()
		if err := h.cache.Health(c.Context()); err != nil {
			response.Checks["cache"] = ComponentCheck{
				Status: "degraded",
				Error:  "cache unreachable",
			}
		} else {
			response.Checks["cache"] = ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(cacheStart).String(),
			}
		}
	} else {
		response.Checks["cache"] = ComponentCheck{
			Status: "not_configured",
		}
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(response)
}

// Liveness for K8s liveness probes
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Readiness for K8s readiness probes (DB connectivity)
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	if err := sqlDB.Ping(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	return c.SendString("READY")
}
