package domain

import "time"

// Notification is a single entry of the user's notification feed.
type Notification struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}

// Severity classifies a notification for display purposes.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SeverityFor maps a raw backend notification type to a display severity.
// Unrecognized types default to info so new backend types degrade gracefully.
func SeverityFor(notificationType string) Severity {
	switch notificationType {
	case "TICKET_RESOLVED", "PAYMENT_VALIDATED", "QUOTE_ACCEPTED":
		return SeveritySuccess
	case "QUOTE_CREATED", "INVOICE_SENT", "PAYMENT_PENDING":
		return SeverityWarning
	case "PAYMENT_FAILED", "TICKET_REJECTED":
		return SeverityError
	default:
		return SeverityInfo
	}
}
