package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hostiva/portal/internal/domain"
	"github.com/hostiva/portal/internal/events"
	"github.com/hostiva/portal/pkg/util/errorutil"
)

// NotificationClient is the slice of the backend client the notification
// store needs.
type NotificationClient interface {
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// NotificationStore maintains the polled snapshot of the user's notification
// feed. All mutation happens inside its own methods; consumers only read
// copies.
type NotificationStore struct {
	client     NotificationClient
	logger     *zap.Logger
	dispatcher events.Dispatcher

	mu     sync.Mutex
	items  []domain.Notification
	seq    uint64
	closed bool
}

// NotificationDependencies bundles collaborators for the store.
type NotificationDependencies struct {
	Client     NotificationClient
	Logger     *zap.Logger
	Dispatcher events.Dispatcher
}

// NewNotificationStore constructs the store.
func NewNotificationStore(deps NotificationDependencies) *NotificationStore {
	return &NotificationStore{
		client:     deps.Client,
		logger:     deps.Logger,
		dispatcher: deps.Dispatcher,
	}
}

// Refresh re-fetches the feed and replaces the snapshot wholesale. A 401
// means the user is simply not logged in: the snapshot empties silently and
// polling carries on. Any other failure keeps the previous snapshot; the
// error is telemetry, never a banner.
func (s *NotificationStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	items, err := s.client.ListNotifications(ctx)

	s.mu.Lock()
	if s.closed || seq != s.seq {
		// A newer fetch superseded this one, or the store was torn down.
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		if errorutil.IsUnauthorized(err) {
			s.items = nil
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()
		s.logger.Debug("notification refresh failed", zap.Error(err))
		return err
	}
	s.items = items
	count := len(items)
	unread := unreadIn(items)
	s.mu.Unlock()

	s.publish(ctx, events.Event{
		Type: events.EventNotificationsFetched,
		Payload: events.NotificationsFetchedPayload{
			Count:  count,
			Unread: unread,
		},
	})
	return nil
}

// Snapshot returns a copy of the current feed.
func (s *NotificationStore) Snapshot() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount recomputes the unread total from the snapshot. It is never
// stored separately, so it cannot drift.
func (s *NotificationStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unreadIn(s.items)
}

// MarkAsRead marks one notification read on the backend, then re-fetches.
// Read state has no latency pressure, so re-fetch beats speculation.
func (s *NotificationStore) MarkAsRead(ctx context.Context, id int64) error {
	if err := s.client.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// MarkAllAsRead marks the whole feed read, then re-fetches.
func (s *NotificationStore) MarkAllAsRead(ctx context.Context) error {
	if err := s.client.MarkAllNotificationsRead(ctx); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Run consumes refresh ticks until ctx is done. Scheduled refresh errors are
// already logged inside Refresh.
func (s *NotificationStore) Run(ctx context.Context, ticks <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			_ = s.Refresh(ctx)
		}
	}
}

// Close stops the store from applying late completions.
func (s *NotificationStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *NotificationStore) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func unreadIn(items []domain.Notification) int {
	count := 0
	for _, n := range items {
		if !n.Read {
			count++
		}
	}
	return count
}
