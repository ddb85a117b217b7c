package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hostiva/portal/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Tickets       *handlers.TicketsHandler
	Notifications *handlers.NotificationsHandler
	Alerts        *handlers.AlertsHandler
	Refresh       *handlers.RefreshHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	portal := app.Group("/portal")

	portal.Get("/tickets", cfg.Tickets.ListTickets)
	portal.Post("/tickets", cfg.Tickets.CreateTicket)
	portal.Get("/tickets/:id", cfg.Tickets.GetTicket)
	portal.Post("/tickets/:id/messages", cfg.Tickets.AddMessage)
	portal.Post("/tickets/:id/quote", cfg.Tickets.CreateQuote)
	portal.Post("/tickets/:id/invoice", cfg.Tickets.SendInvoice)
	portal.Post("/tickets/:id/start", cfg.Tickets.StartWork)
	portal.Post("/tickets/:id/resolve", cfg.Tickets.Resolve)
	portal.Post("/tickets/:id/validate-payment", cfg.Tickets.ValidatePayment)
	portal.Post("/tickets/:id/close", cfg.Tickets.CloseTicket)

	portal.Get("/notifications", cfg.Notifications.ListNotifications)
	portal.Put("/notifications/read-all", cfg.Notifications.MarkAllAsRead)
	portal.Put("/notifications/:id/read", cfg.Notifications.MarkAsRead)

	portal.Get("/alerts", cfg.Alerts.ListAlerts)
	portal.Delete("/alerts/:id", cfg.Alerts.DismissAlert)

	portal.Put("/refresh", cfg.Refresh.Configure)
	portal.Post("/refresh", cfg.Refresh.Force)
}
