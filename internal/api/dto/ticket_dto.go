package dto

import (
	"time"

	"github.com/hostiva/portal/internal/domain"
	"github.com/hostiva/portal/internal/workflow"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Description        string            `json:"description"`
	Type               domain.TicketType `json:"type"`
	ClientEmail        string            `json:"clientEmail"`
	BackofficeURL      string            `json:"backofficeUrl,omitempty"`
	BackofficeLogin    string            `json:"backofficeLogin,omitempty"`
	BackofficePassword string            `json:"backofficePassword,omitempty"`
	HostingProvider    string            `json:"hostingProvider,omitempty"`
}

// AmountRequest carries the quote or invoice amount.
type AmountRequest struct {
	Amount float64 `json:"amount"`
}

// MessageRequest payload.
type MessageRequest struct {
	Content string `json:"content"`
}

// TicketView is a ticket enriched with its derived UI affordances.
type TicketView struct {
	ID              int64               `json:"id"`
	Status          domain.TicketStatus `json:"status"`
	EffectiveStatus domain.TicketStatus `json:"effectiveStatus"`
	Description     string              `json:"description"`
	Type            domain.TicketType   `json:"type"`
	ClientEmail     string              `json:"clientEmail"`
	Amount          float64             `json:"amount,omitempty"`
	Messages        []string            `json:"messages"`
	CreatedDate     time.Time           `json:"createdDate"`
	Actions         []workflow.Action   `json:"actions"`
}

// TicketPageResponse is one page of tickets plus collection totals.
type TicketPageResponse struct {
	Tickets   []TicketView `json:"tickets"`
	Total     int          `json:"total"`
	Open      int          `json:"open"`
	Resolved  int          `json:"resolved"`
	FetchedAt time.Time    `json:"fetchedAt"`
}

// NewTicketView derives the affordance-enriched view of a ticket.
func NewTicketView(t *domain.Ticket) TicketView {
	messages := t.Messages
	if messages == nil {
		messages = []string{}
	}
	return TicketView{
		ID:              t.ID,
		Status:          t.Status,
		EffectiveStatus: workflow.EffectiveStatus(t),
		Description:     t.Description,
		Type:            t.Type,
		ClientEmail:     t.ClientEmail,
		Amount:          t.Amount,
		Messages:        messages,
		CreatedDate:     t.CreatedDate,
		Actions:         workflow.AllowedActions(t),
	}
}
