package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hostiva/portal/internal/api/dto"
	"github.com/hostiva/portal/internal/backend"
	"github.com/hostiva/portal/internal/domain"
	"github.com/hostiva/portal/internal/store"
	"github.com/hostiva/portal/pkg/util/errorutil"
)

// TicketsHandler exposes the reconciled ticket collection and the workflow
// actions on it.
type TicketsHandler struct {
	tickets *store.TicketStore
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *store.TicketStore) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// ListTickets GET /portal/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	page := parsePageQuery(c)
	snap, err := h.tickets.FetchPage(c.UserContext(), page)
	if err != nil {
		return err
	}
	views := make([]dto.TicketView, 0, len(snap.Tickets))
	for i := range snap.Tickets {
		views = append(views, dto.NewTicketView(&snap.Tickets[i]))
	}
	return c.JSON(fiber.Map{"data": dto.TicketPageResponse{
		Tickets:   views,
		Total:     snap.Total,
		Open:      h.tickets.OpenCount(),
		Resolved:  h.tickets.ResolvedCount(),
		FetchedAt: snap.FetchedAt,
	}})
}

// GetTicket GET /portal/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketView(ticket)})
}

// CreateTicket POST /portal/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Create(c.UserContext(), domain.TicketDraft{
		Description:        req.Description,
		Type:               req.Type,
		ClientEmail:        req.ClientEmail,
		BackofficeURL:      req.BackofficeURL,
		BackofficeLogin:    req.BackofficeLogin,
		BackofficePassword: req.BackofficePassword,
		HostingProvider:    req.HostingProvider,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketView(ticket)})
}

// AddMessage POST /portal/tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	var req dto.MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return errorutil.NewValidationError("content required", nil)
	}
	if err := h.tickets.AppendMessage(c.UserContext(), id, req.Content); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusCreated)
}

// CreateQuote POST /portal/tickets/:id/quote.
func (h *TicketsHandler) CreateQuote(c *fiber.Ctx) error {
	return h.amountAction(c, h.tickets.CreateQuote)
}

// SendInvoice POST /portal/tickets/:id/invoice.
func (h *TicketsHandler) SendInvoice(c *fiber.Ctx) error {
	return h.amountAction(c, h.tickets.SendInvoice)
}

// StartWork POST /portal/tickets/:id/start.
func (h *TicketsHandler) StartWork(c *fiber.Ctx) error {
	return h.plainAction(c, h.tickets.StartWork)
}

// Resolve POST /portal/tickets/:id/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	return h.plainAction(c, h.tickets.Resolve)
}

// ValidatePayment POST /portal/tickets/:id/validate-payment.
func (h *TicketsHandler) ValidatePayment(c *fiber.Ctx) error {
	return h.plainAction(c, h.tickets.ValidatePayment)
}

// CloseTicket POST /portal/tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	return h.plainAction(c, h.tickets.CloseTicket)
}

func (h *TicketsHandler) plainAction(c *fiber.Ctx, action func(ctx context.Context, id int64) error) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	if err := action(c.UserContext(), id); err != nil {
		return err
	}
	return refreshedTicket(c, h.tickets, id)
}

func (h *TicketsHandler) amountAction(c *fiber.Ctx, action func(ctx context.Context, id int64, amount float64) error) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	var req dto.AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := action(c.UserContext(), id, req.Amount); err != nil {
		return err
	}
	return refreshedTicket(c, h.tickets, id)
}

// refreshedTicket answers an action with the spliced local copy; the next
// scheduled refresh reconciles it against the backend.
func refreshedTicket(c *fiber.Ctx, tickets *store.TicketStore, id int64) error {
	snap := tickets.Snapshot()
	for i := range snap.Tickets {
		if snap.Tickets[i].ID == id {
			return c.JSON(fiber.Map{"data": dto.NewTicketView(&snap.Tickets[i])})
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseTicketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorutil.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}

func parsePageQuery(c *fiber.Ctx) backend.Page {
	page := backend.Page{Number: 0, Size: 10, Sort: "id,desc"}
	if raw := c.Query("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			page.Number = parsed
		}
	}
	if raw := c.Query("size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			page.Size = parsed
		}
	}
	if sort := c.Query("sort"); sort == "id,asc" || sort == "id,desc" {
		page.Sort = sort
	}
	return page
}
