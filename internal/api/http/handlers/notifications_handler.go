package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/hostiva/portal/internal/api/dto"
	"github.com/hostiva/portal/internal/store"
	"github.com/hostiva/portal/pkg/util/errorutil"
)

// NotificationsHandler exposes the polled notification feed.
type NotificationsHandler struct {
	notifications *store.NotificationStore
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *store.NotificationStore) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// ListNotifications GET /portal/notifications.
func (h *NotificationsHandler) ListNotifications(c *fiber.Ctx) error {
	items := h.notifications.Snapshot()
	views := make([]dto.NotificationView, 0, len(items))
	for _, n := range items {
		views = append(views, dto.NewNotificationView(n))
	}
	return c.JSON(fiber.Map{"data": dto.NotificationFeedResponse{
		Notifications: views,
		UnreadCount:   h.notifications.UnreadCount(),
	}})
}

// MarkAsRead PUT /portal/notifications/:id/read.
func (h *NotificationsHandler) MarkAsRead(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return errorutil.NewValidationError("invalid notification id", nil)
	}
	if err := h.notifications.MarkAsRead(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllAsRead PUT /portal/notifications/read-all.
func (h *NotificationsHandler) MarkAllAsRead(c *fiber.Ctx) error {
	if err := h.notifications.MarkAllAsRead(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
