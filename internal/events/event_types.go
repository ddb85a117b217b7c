package events

import (
	"time"

	"github.com/hostiva/portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketsRefreshed     EventType = "tickets_refreshed"
	EventTicketCreated        EventType = "ticket_created"
	EventTicketStatusChanged  EventType = "ticket_status_changed"
	EventWorkflowStepFailed   EventType = "workflow_step_failed"
	EventNotificationsFetched EventType = "notifications_fetched"
)

// Event represents a portal-side event emitted by the stores.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketsRefreshedPayload payload.
type TicketsRefreshedPayload struct {
	Page  int `json:"page"`
	Count int `json:"count"`
	Total int `json:"total"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Status domain.TicketStatus `json:"status"`
	Type   domain.TicketType   `json:"type"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// WorkflowStepFailedPayload identifies which half of a two-step action broke.
type WorkflowStepFailedPayload struct {
	Action string `json:"action"`
	Step   string `json:"step"`
	Reason string `json:"reason"`
}

// NotificationsFetchedPayload payload.
type NotificationsFetchedPayload struct {
	Count  int `json:"count"`
	Unread int `json:"unread"`
}
