package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/database"
	"github.com/sahilchouksey/e-center-api/utils/cache"
)

const cachePingTimeout = 2 * time.Second

// HealthHandler reports the state of the database and the cache
type HealthHandler struct {
	cache *cache.RedisCache
}

// NewHealthHandler creates a new health handler. redisCache may be nil.
func NewHealthHandler(redisCache *cache.RedisCache) *HealthHandler {
	return &HealthHandler{cache: redisCache}
}

// HandleCheckHealth handles GET /ping. A missing cache degrades the service
// but does not fail the check; a dead database does.
func (h *HealthHandler) HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	body := fiber.Map{"status": "ok", "database": "ok", "cache": "ok"}
	code := fiber.StatusOK

	if err := store.HealthCheck(); err != nil {
		body["status"] = "unavailable"
		body["database"] = "error"
		code = fiber.StatusServiceUnavailable
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), cachePingTimeout)
	defer cancel()
	if err := h.cache.Ping(ctx); err != nil {
		body["cache"] = "unavailable"
		if code == fiber.StatusOK {
			body["status"] = "degraded"
		}
	}

	return c.Status(code).JSON(body)
}
