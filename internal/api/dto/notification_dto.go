package dto

import (
	"time"

	"github.com/hostiva/portal/internal/domain"
)

// NotificationView is a notification enriched with its display severity.
type NotificationView struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Severity  domain.Severity `json:"severity"`
	Read      bool            `json:"read"`
	Timestamp time.Time       `json:"timestamp"`
}

// NotificationFeedResponse is the polled feed plus its derived unread count.
type NotificationFeedResponse struct {
	Notifications []NotificationView `json:"notifications"`
	UnreadCount   int                `json:"unreadCount"`
}

// NewNotificationView derives the severity-enriched view.
func NewNotificationView(n domain.Notification) NotificationView {
	return NotificationView{
		ID:        n.ID,
		Type:      n.Type,
		Severity:  domain.SeverityFor(n.Type),
		Read:      n.Read,
		Timestamp: n.Timestamp,
	}
}
