package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hostiva/portal/internal/alerts"
)

// AlertsHandler exposes the transient banner feed.
type AlertsHandler struct {
	alerts *alerts.Manager
}

// NewAlertsHandler constructs handler.
func NewAlertsHandler(manager *alerts.Manager) *AlertsHandler {
	return &AlertsHandler{alerts: manager}
}

// ListAlerts GET /portal/alerts.
func (h *AlertsHandler) ListAlerts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.alerts.Active()})
}

// DismissAlert DELETE /portal/alerts/:id.
func (h *AlertsHandler) DismissAlert(c *fiber.Ctx) error {
	h.alerts.Dismiss(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}
