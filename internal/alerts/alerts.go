package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hostiva/portal/internal/domain"
	"github.com/hostiva/portal/internal/events"
)

// Banner is a transient, user-dismissable message. Banners auto-clear after a
// severity-dependent delay so no failure state persists indefinitely.
type Banner struct {
	ID        string          `json:"id"`
	Severity  domain.Severity `json:"severity"`
	Message   string          `json:"message"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Manager owns the active banner set. Expired banners are dropped lazily when
// the set is observed, the same discipline the TTL cache uses.
type Manager struct {
	mu      sync.Mutex
	banners []Banner
	now     func() time.Time
	logger  *zap.Logger
}

// NewManager constructs an empty banner set.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{now: time.Now, logger: logger}
}

// NewManagerWithClock is used by tests.
func NewManagerWithClock(logger *zap.Logger, now func() time.Time) *Manager {
	return &Manager{now: now, logger: logger}
}

func ttlFor(severity domain.Severity) time.Duration {
	switch severity {
	case domain.SeverityError:
		return 10 * time.Second
	case domain.SeverityWarning:
		return 6 * time.Second
	default:
		return 3 * time.Second
	}
}

// Push adds a banner and returns it.
func (m *Manager) Push(severity domain.Severity, message string) Banner {
	now := m.now()
	banner := Banner{
		ID:        uuid.NewString(),
		Severity:  severity,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(ttlFor(severity)),
	}
	m.mu.Lock()
	m.banners = append(m.banners, banner)
	m.mu.Unlock()

	if severity == domain.SeverityError {
		m.logger.Warn("alert raised", zap.String("message", message))
	}
	return banner
}

// Active returns the live banners in creation order, dropping expired ones.
func (m *Manager) Active() []Banner {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	live := m.banners[:0]
	for _, banner := range m.banners {
		if now.Before(banner.ExpiresAt) {
			live = append(live, banner)
		}
	}
	m.banners = live
	out := make([]Banner, len(live))
	copy(out, live)
	return out
}

// Dismiss removes a banner by id before its expiry.
func (m *Manager) Dismiss(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, banner := range m.banners {
		if banner.ID == id {
			m.banners = append(m.banners[:i], m.banners[i+1:]...)
			return
		}
	}
}

// RegisterHandlers subscribes banner production to portal events.
func (m *Manager) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventWorkflowStepFailed, m.handleStepFailed)
	dispatcher.Subscribe(events.EventTicketCreated, m.handleTicketCreated)
}

func (m *Manager) handleStepFailed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.WorkflowStepFailedPayload)
	if !ok {
		return nil
	}
	m.Push(domain.SeverityError, fmt.Sprintf("%s: %s failed, please retry (%s)", payload.Action, payload.Step, payload.Reason))
	return nil
}

func (m *Manager) handleTicketCreated(ctx context.Context, event events.Event) error {
	m.Push(domain.SeveritySuccess, fmt.Sprintf("ticket %d created", event.TicketID))
	return nil
}
