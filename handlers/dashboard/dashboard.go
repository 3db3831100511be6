package dashboard

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/e-center-api/services"
	"github.com/sahilchouksey/e-center-api/utils/middleware"
	"github.com/sahilchouksey/e-center-api/utils/response"
)

// DashboardHandler serves the per-user and system-wide summaries
type DashboardHandler struct {
	service *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// GetDashboard handles GET /api/v1/users/dashboard
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	dash, err := h.service.UserDashboard(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		log.Errorf("dashboard: user %d: %v", userID, err)
		return response.InternalServerError(c, "Failed to build dashboard")
	}
	return response.Success(c, dash)
}

// GetSystemDashboard handles GET /api/v1/users/dashboard/system (admin)
func (h *DashboardHandler) GetSystemDashboard(c *fiber.Ctx) error {
	dash, err := h.service.SystemDashboard(c.UserContext())
	if err != nil {
		log.Errorf("dashboard: system: %v", err)
		return response.InternalServerError(c, "Failed to build dashboard")
	}
	return response.Success(c, dash)
}
