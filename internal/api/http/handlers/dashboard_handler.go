package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/service"
)

// DashboardHandler serves the org overview and the deadline calendar.
type DashboardHandler struct {
	dashboard *service.DashboardService
	calendar  *service.CalendarService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService, calendar *service.CalendarService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, calendar: calendar}
}

// Dashboard handles GET /dashboard.
func (h *DashboardHandler) Dashboard(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	dashboard, err := h.dashboard.Get(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, dashboard)
}

// Calendar handles GET /calendar?year=&month=. Missing values default to the
// current month.
func (h *DashboardHandler) Calendar(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	month, err := h.calendar.Month(c.UserContext(), actor, c.QueryInt("year"), c.QueryInt("month"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, month)
}
