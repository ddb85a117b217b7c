package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hostiva/portal/internal/api/dto"
	"github.com/hostiva/portal/internal/scheduler"
	"github.com/hostiva/portal/pkg/util/errorutil"
)

// RefreshHandler exposes runtime control over the auto-refresh trigger.
type RefreshHandler struct {
	scheduler *scheduler.Scheduler
}

// NewRefreshHandler constructs handler.
func NewRefreshHandler(s *scheduler.Scheduler) *RefreshHandler {
	return &RefreshHandler{scheduler: s}
}

// Configure PUT /portal/refresh.
func (h *RefreshHandler) Configure(c *fiber.Ctx) error {
	var req dto.RefreshConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if req.IntervalMillis != nil {
		if *req.IntervalMillis <= 0 {
			return errorutil.NewValidationError("intervalMillis must be positive", nil)
		}
		h.scheduler.SetRefreshInterval(req.Interval())
	}
	if req.Enabled != nil {
		h.scheduler.SetEnabled(*req.Enabled)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Force POST /portal/refresh.
func (h *RefreshHandler) Force(c *fiber.Ctx) error {
	h.scheduler.ForceRefresh()
	return c.SendStatus(fiber.StatusAccepted)
}
