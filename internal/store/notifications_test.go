package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hostiva/portal/internal/domain"
	"github.com/hostiva/portal/pkg/util/errorutil"
)

// fakeFeed is a scriptable NotificationClient.
type fakeFeed struct {
	mu        sync.Mutex
	items     []domain.Notification
	listErr   error
	readIDs   []int64
	allMarked bool
}

func (f *fakeFeed) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Notification, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeFeed) MarkNotificationRead(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readIDs = append(f.readIDs, id)
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
		}
	}
	return nil
}

func (f *fakeFeed) MarkAllNotificationsRead(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allMarked = true
	for i := range f.items {
		f.items[i].Read = true
	}
	return nil
}

func (f *fakeFeed) set(items []domain.Notification, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
	f.listErr = err
}

func newNotificationStore(feed *fakeFeed) *NotificationStore {
	return NewNotificationStore(NotificationDependencies{
		Client: feed,
		Logger: zap.NewNop(),
	})
}

func TestUnreadCountRecomputed(t *testing.T) {
	t.Parallel()

	feed := &fakeFeed{}
	feed.set([]domain.Notification{
		{ID: 1, Type: "NEW_MESSAGE", Read: false},
		{ID: 2, Type: "TICKET_RESOLVED", Read: true},
		{ID: 3, Type: "INVOICE_SENT", Read: false},
	}, nil)

	s := newNotificationStore(feed)
	require.NoError(t, s.Refresh(context.Background()))
	require.Equal(t, 2, s.UnreadCount())

	require.NoError(t, s.MarkAsRead(context.Background(), 1))
	require.Equal(t, 1, s.UnreadCount())
	require.Equal(t, []int64{1}, feed.readIDs)

	require.NoError(t, s.MarkAllAsRead(context.Background()))
	require.Equal(t, 0, s.UnreadCount())
	require.True(t, feed.allMarked)
}

func TestUnauthorizedClearsSilently(t *testing.T) {
	t.Parallel()

	feed := &fakeFeed{}
	feed.set([]domain.Notification{{ID: 1, Read: false}}, nil)

	s := newNotificationStore(feed)
	require.NoError(t, s.Refresh(context.Background()))
	require.Len(t, s.Snapshot(), 1)

	// Logged out: the 401 is not an error and the snapshot empties.
	feed.set(nil, errorutil.NewUnauthorized("no session"))
	require.NoError(t, s.Refresh(context.Background()))
	require.Empty(t, s.Snapshot())
	require.Equal(t, 0, s.UnreadCount())

	// Logged back in: a successful fetch restores normal population.
	feed.set([]domain.Notification{{ID: 2, Read: false}}, nil)
	require.NoError(t, s.Refresh(context.Background()))
	require.Len(t, s.Snapshot(), 1)
	require.Equal(t, 1, s.UnreadCount())
}

func TestTransientFailureKeepsSnapshot(t *testing.T) {
	t.Parallel()

	feed := &fakeFeed{}
	feed.set([]domain.Notification{{ID: 1, Read: false}}, nil)

	s := newNotificationStore(feed)
	require.NoError(t, s.Refresh(context.Background()))

	feed.set(nil, errorutil.NewBackendUnavailable(context.DeadlineExceeded))
	err := s.Refresh(context.Background())
	require.Error(t, err)
	// Previous snapshot survives the failed poll.
	require.Len(t, s.Snapshot(), 1)
}

func TestFullReplaceNotMerge(t *testing.T) {
	t.Parallel()

	feed := &fakeFeed{}
	feed.set([]domain.Notification{{ID: 1}, {ID: 2}}, nil)

	s := newNotificationStore(feed)
	require.NoError(t, s.Refresh(context.Background()))

	feed.set([]domain.Notification{{ID: 3}}, nil)
	require.NoError(t, s.Refresh(context.Background()))

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, int64(3), snapshot[0].ID)
}

func TestClosedStoreIgnoresRefresh(t *testing.T) {
	t.Parallel()

	feed := &fakeFeed{}
	feed.set([]domain.Notification{{ID: 1}}, nil)

	s := newNotificationStore(feed)
	s.Close()
	require.NoError(t, s.Refresh(context.Background()))
	require.Empty(t, s.Snapshot())
}

func TestSeverityMapping(t *testing.T) {
	t.Parallel()

	require.Equal(t, domain.SeveritySuccess, domain.SeverityFor("TICKET_RESOLVED"))
	require.Equal(t, domain.SeverityWarning, domain.SeverityFor("INVOICE_SENT"))
	require.Equal(t, domain.SeverityError, domain.SeverityFor("PAYMENT_FAILED"))
	require.Equal(t, domain.SeverityInfo, domain.SeverityFor("SOMETHING_NEW"))
	require.Equal(t, domain.SeverityInfo, domain.SeverityFor(""))
}
