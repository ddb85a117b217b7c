package workflow

import (
	"strings"

	"github.com/hostiva/portal/internal/domain"
)

// InvoiceMarker prefixes the synthetic message appended when an invoice is
// sent. Several guards fall back to scanning for it because some backend
// flows emit the message without moving the status.
const InvoiceMarker = "FACTURE:"

// QuoteMarker prefixes the synthetic message appended when a quote is created.
const QuoteMarker = "DEVIS:"

// Action enumerates the workflow operations the portal can offer on a ticket.
type Action string

const (
	ActionCreateQuote     Action = "create_quote"
	ActionStartWork       Action = "start_work"
	ActionResolve         Action = "resolve"
	ActionSendInvoice     Action = "send_invoice"
	ActionValidatePayment Action = "validate_payment"
	ActionClose           Action = "close"
)

// HasInvoiceMarker reports whether any message carries the invoice marker.
func HasInvoiceMarker(messages []string) bool {
	for _, msg := range messages {
		if strings.HasPrefix(strings.TrimSpace(msg), InvoiceMarker) {
			return true
		}
	}
	return false
}

// Normalize folds the backend's looser status vocabulary into the portal
// workflow. "Devis validé" means awaiting payment when an invoice has been
// issued, otherwise work is still in progress.
func Normalize(status domain.TicketStatus, messages []string) domain.TicketStatus {
	if status != domain.TicketStatusQuoteValidated {
		return status
	}
	if HasInvoiceMarker(messages) {
		return domain.TicketStatusAwaitingPayment
	}
	return domain.TicketStatusInProgress
}

// EffectiveStatus returns the ticket's status after normalization.
func EffectiveStatus(t *domain.Ticket) domain.TicketStatus {
	return Normalize(t.Status, t.Messages)
}

// CanCreateQuote reports whether a quote may be proposed.
func CanCreateQuote(t *domain.Ticket) bool {
	return EffectiveStatus(t) == domain.TicketStatusNew
}

// CanStartWork reports whether work may begin.
func CanStartWork(t *domain.Ticket) bool {
	return EffectiveStatus(t) == domain.TicketStatusNew
}

// CanResolve reports whether the ticket may be marked resolved.
func CanResolve(t *domain.Ticket) bool {
	return EffectiveStatus(t) == domain.TicketStatusInProgress
}

// CanSendInvoice reports whether an invoice may be issued.
func CanSendInvoice(t *domain.Ticket) bool {
	return EffectiveStatus(t) == domain.TicketStatusResolved
}

// CanValidatePayment reports whether payment may be validated. The message
// scan covers flows that issued an invoice without an explicit status change.
func CanValidatePayment(t *domain.Ticket) bool {
	status := EffectiveStatus(t)
	if status == domain.TicketStatusClosed || status == domain.TicketStatusPaymentValidated {
		return false
	}
	return status == domain.TicketStatusAwaitingPayment || HasInvoiceMarker(t.Messages)
}

// CanClose reports whether the ticket may be closed.
func CanClose(t *domain.Ticket) bool {
	return EffectiveStatus(t) == domain.TicketStatusPaymentValidated
}

// AllowedActions derives the UI affordances for a ticket.
func AllowedActions(t *domain.Ticket) []Action {
	actions := []Action{}
	if CanCreateQuote(t) {
		actions = append(actions, ActionCreateQuote)
	}
	if CanStartWork(t) {
		actions = append(actions, ActionStartWork)
	}
	if CanResolve(t) {
		actions = append(actions, ActionResolve)
	}
	if CanSendInvoice(t) {
		actions = append(actions, ActionSendInvoice)
	}
	if CanValidatePayment(t) {
		actions = append(actions, ActionValidatePayment)
	}
	if CanClose(t) {
		actions = append(actions, ActionClose)
	}
	return actions
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:              {domain.TicketStatusInProgress, domain.TicketStatusAwaitingPayment},
	domain.TicketStatusInProgress:       {domain.TicketStatusResolved},
	domain.TicketStatusResolved:         {domain.TicketStatusAwaitingPayment},
	domain.TicketStatusAwaitingPayment:  {domain.TicketStatusPaymentValidated},
	domain.TicketStatusPaymentValidated: {domain.TicketStatusClosed},
	domain.TicketStatusClosed:           {},
}

// IsValidTransition reports whether the workflow permits moving a ticket from
// current to next. The backend stays authoritative; this only gates what the
// portal offers.
func IsValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the given status.
func IsTerminal(status domain.TicketStatus) bool {
	return status == domain.TicketStatusClosed
}

// IsResolved reports whether the ticket counts as handled for dashboard
// purposes (resolved or closed).
func IsResolved(t *domain.Ticket) bool {
	status := EffectiveStatus(t)
	return status == domain.TicketStatusResolved || status == domain.TicketStatusClosed
}

// IsOpen is the complement of IsResolved.
func IsOpen(t *domain.Ticket) bool {
	return !IsResolved(t)
}
