package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hostiva/portal/internal/alerts"
	"github.com/hostiva/portal/internal/backend"
	"github.com/hostiva/portal/internal/cache"
	"github.com/hostiva/portal/internal/domain"
	"github.com/hostiva/portal/internal/events"
	"github.com/hostiva/portal/internal/workflow"
	"github.com/hostiva/portal/pkg/util/errorutil"
)

// Workflow step names used in partial-failure reporting.
const (
	StepAmountUpdate  = "amount update"
	StepStatusUpdate  = "status update"
	StepMessageAppend = "message append"
)

// StepError reports which half of a two-step workflow action failed. There is
// no compensating rollback; the user retries the named step.
type StepError struct {
	Action workflow.Action
	Step   string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Action, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// TicketClient is the slice of the backend client the ticket store needs.
type TicketClient interface {
	ListTickets(ctx context.Context, page backend.Page) ([]domain.Ticket, int, error)
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	CreateTicket(ctx context.Context, draft domain.TicketDraft) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	AppendMessage(ctx context.Context, ticketID int64, content string) error
	ListMessages(ctx context.Context, ticketID int64) ([]string, error)
	ValidatePayment(ctx context.Context, ticketID int64) (*domain.Ticket, error)
}

// PageSnapshot is one reconciled page of the ticket collection.
type PageSnapshot struct {
	Tickets   []domain.Ticket `json:"tickets"`
	Total     int             `json:"total"`
	Page      backend.Page    `json:"-"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// TicketStore reconciles three update sources into one consistent in-memory
// collection: explicit fetches, scheduler-driven refreshes and optimistic
// local mutations after user actions. Stale in-flight responses are fenced by
// a monotonic sequence token instead of request cancellation.
type TicketStore struct {
	client     TicketClient
	logger     *zap.Logger
	dispatcher events.Dispatcher
	alerts     *alerts.Manager

	pages       *cache.Cache[string, PageSnapshot]
	l2          *cache.RedisStore
	pageTTL     time.Duration
	softTimeout time.Duration

	mu      sync.Mutex
	current PageSnapshot
	seq     uint64
	closed  bool
}

// TicketDependencies bundles collaborators for the store.
type TicketDependencies struct {
	Client      TicketClient
	Logger      *zap.Logger
	Dispatcher  events.Dispatcher
	Alerts      *alerts.Manager
	L2Cache     *cache.RedisStore
	PageTTL     time.Duration
	SoftTimeout time.Duration
}

// NewTicketStore constructs the store.
func NewTicketStore(deps TicketDependencies) *TicketStore {
	pageTTL := deps.PageTTL
	if pageTTL <= 0 {
		pageTTL = 20 * time.Second
	}
	softTimeout := deps.SoftTimeout
	if softTimeout <= 0 {
		softTimeout = 5 * time.Second
	}
	return &TicketStore{
		client:      deps.Client,
		logger:      deps.Logger,
		dispatcher:  deps.Dispatcher,
		alerts:      deps.Alerts,
		pages:       cache.New[string, PageSnapshot](),
		l2:          deps.L2Cache,
		pageTTL:     pageTTL,
		softTimeout: softTimeout,
		current:     PageSnapshot{Tickets: []domain.Ticket{}, Page: backend.Page{Size: 10, Sort: "id,desc"}},
	}
}

func pageKey(page backend.Page) string {
	return fmt.Sprintf("page=%d&size=%d&sort=%s", page.Number, page.Size, page.Sort)
}

// FetchPage returns the requested page, serving a fresh cached copy when one
// exists and fetching otherwise.
func (s *TicketStore) FetchPage(ctx context.Context, page backend.Page) (PageSnapshot, error) {
	key := pageKey(page)
	if snap, ok := s.pages.Get(key); ok {
		s.setCurrent(snap)
		return snap, nil
	}
	if s.l2 != nil {
		var snap PageSnapshot
		if s.l2.Get(ctx, key, &snap) {
			snap.Page = page
			s.pages.Set(key, snap, s.pageTTL)
			s.setCurrent(snap)
			return snap, nil
		}
	}
	return s.fetch(ctx, page)
}

// Refresh re-fetches the current page, bypassing caches.
func (s *TicketStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	page := s.current.Page
	s.mu.Unlock()
	_, err := s.fetch(ctx, page)
	return err
}

type fetchResult struct {
	tickets []domain.Ticket
	total   int
	err     error
}

// fetch issues the list request with a soft timeout. Past the timeout the
// view falls back to an empty-but-valid page; the request is not cancelled
// and its late result is still applied if no newer fetch superseded it.
func (s *TicketStore) fetch(ctx context.Context, page backend.Page) (PageSnapshot, error) {
	s.mu.Lock()
	if s.closed {
		current := s.current
		s.mu.Unlock()
		return current, nil
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	results := make(chan fetchResult, 1)
	go func() {
		tickets, total, err := s.client.ListTickets(ctx, page)
		results <- fetchResult{tickets: tickets, total: total, err: err}
	}()

	timeout := time.NewTimer(s.softTimeout)
	defer timeout.Stop()

	select {
	case res := <-results:
		return s.applyFetch(ctx, seq, page, res)
	case <-timeout.C:
		s.logger.Warn("ticket fetch slow, serving empty page",
			zap.Duration("soft_timeout", s.softTimeout),
			zap.Int("page", page.Number))
		go func() {
			res := <-results
			_, _ = s.applyFetch(ctx, seq, page, res)
		}()
		empty := PageSnapshot{Tickets: []domain.Ticket{}, Page: page, FetchedAt: time.Now()}
		s.setCurrent(empty)
		return empty, nil
	case <-ctx.Done():
		return PageSnapshot{Tickets: []domain.Ticket{}, Page: page}, errorutil.ToDomainError(ctx.Err())
	}
}

func (s *TicketStore) applyFetch(ctx context.Context, seq uint64, page backend.Page, res fetchResult) (PageSnapshot, error) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		// Superseded by a newer fetch; discard deterministically.
		current := s.current
		s.mu.Unlock()
		return current, nil
	}
	if res.err != nil {
		current := s.current
		s.mu.Unlock()
		s.logger.Warn("ticket fetch failed", zap.Error(res.err))
		s.banner(domain.SeverityError, "could not load tickets")
		return current, res.err
	}
	tickets := res.tickets
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	snap := PageSnapshot{Tickets: tickets, Total: res.total, Page: page, FetchedAt: time.Now()}
	s.current = snap
	s.mu.Unlock()

	s.pages.Set(pageKey(page), snap, s.pageTTL)
	if s.l2 != nil {
		s.l2.Set(ctx, pageKey(page), snap, s.pageTTL)
	}
	s.publish(ctx, events.Event{
		Type: events.EventTicketsRefreshed,
		Payload: events.TicketsRefreshedPayload{
			Page:  page.Number,
			Count: len(tickets),
			Total: res.total,
		},
	})
	return snap, nil
}

// Create submits a new ticket and optimistically prepends the confirmed
// record. The create response is trusted; no re-fetch is needed.
func (s *TicketStore) Create(ctx context.Context, draft domain.TicketDraft) (*domain.Ticket, error) {
	if strings.TrimSpace(draft.Description) == "" {
		return nil, errorutil.NewValidationError("description required", nil)
	}
	if strings.TrimSpace(draft.ClientEmail) == "" {
		return nil, errorutil.NewValidationError("clientEmail required", nil)
	}

	ticket, err := s.client.CreateTicket(ctx, draft)
	if err != nil {
		s.banner(domain.SeverityError, "could not create ticket")
		return nil, err
	}

	s.mu.Lock()
	if !s.closed {
		s.current.Tickets = append([]domain.Ticket{*ticket}, s.current.Tickets...)
		s.current.Total++
	}
	page := s.current.Page
	s.mu.Unlock()
	s.pages.Delete(pageKey(page))

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Status: ticket.Status,
			Type:   ticket.Type,
		},
	})
	return ticket, nil
}

// StartWork moves a new ticket into progress.
func (s *TicketStore) StartWork(ctx context.Context, id int64) error {
	ticket, err := s.ticketForAction(ctx, id, workflow.ActionStartWork, workflow.CanStartWork)
	if err != nil {
		return err
	}
	return s.updateStatus(ctx, ticket, domain.TicketStatusInProgress)
}

// Resolve marks an in-progress ticket resolved.
func (s *TicketStore) Resolve(ctx context.Context, id int64) error {
	ticket, err := s.ticketForAction(ctx, id, workflow.ActionResolve, workflow.CanResolve)
	if err != nil {
		return err
	}
	return s.updateStatus(ctx, ticket, domain.TicketStatusResolved)
}

// CloseTicket closes a payment-validated ticket.
func (s *TicketStore) CloseTicket(ctx context.Context, id int64) error {
	ticket, err := s.ticketForAction(ctx, id, workflow.ActionClose, workflow.CanClose)
	if err != nil {
		return err
	}
	return s.updateStatus(ctx, ticket, domain.TicketStatusClosed)
}

// ValidatePayment confirms payment through the dedicated endpoint.
func (s *TicketStore) ValidatePayment(ctx context.Context, id int64) error {
	ticket, err := s.ticketForAction(ctx, id, workflow.ActionValidatePayment, workflow.CanValidatePayment)
	if err != nil {
		return err
	}
	oldStatus := ticket.Status
	if _, err := s.client.ValidatePayment(ctx, id); err != nil {
		s.banner(domain.SeverityError, "could not validate payment")
		return err
	}
	s.splice(id, func(t *domain.Ticket) {
		t.Status = domain.TicketStatusPaymentValidated
	})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: id,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: domain.TicketStatusPaymentValidated,
		},
	})
	return nil
}

// CreateQuote records a quote amount and appends the formatted quote message.
// The two writes are not atomic: a StepError names the half that failed.
func (s *TicketStore) CreateQuote(ctx context.Context, id int64, amount float64) error {
	if amount <= 0 {
		return errorutil.NewValidationError("quote amount must be positive", nil)
	}
	ticket, err := s.ticketForAction(ctx, id, workflow.ActionCreateQuote, workflow.CanCreateQuote)
	if err != nil {
		return err
	}

	clone := *ticket
	clone.Amount = amount
	if _, err := s.client.UpdateTicket(ctx, &clone); err != nil {
		return s.stepFailed(ctx, workflow.ActionCreateQuote, StepAmountUpdate, id, err)
	}
	s.splice(id, func(t *domain.Ticket) {
		t.Amount = amount
	})

	message := fmt.Sprintf("%s montant %.2f MAD", workflow.QuoteMarker, amount)
	if err := s.client.AppendMessage(ctx, id, message); err != nil {
		return s.stepFailed(ctx, workflow.ActionCreateQuote, StepMessageAppend, id, err)
	}
	s.splice(id, func(t *domain.Ticket) {
		t.Messages = append(t.Messages, message)
	})
	return nil
}

// SendInvoice appends the formatted invoice message, then moves the ticket to
// awaiting payment. The message goes first: payment validation can fall back
// to the invoice marker even if the status write fails.
func (s *TicketStore) SendInvoice(ctx context.Context, id int64, amount float64) error {
	if amount <= 0 {
		return errorutil.NewValidationError("invoice amount must be positive", nil)
	}
	ticket, err := s.ticketForAction(ctx, id, workflow.ActionSendInvoice, workflow.CanSendInvoice)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("%s montant %.2f MAD", workflow.InvoiceMarker, amount)
	if err := s.client.AppendMessage(ctx, id, message); err != nil {
		return s.stepFailed(ctx, workflow.ActionSendInvoice, StepMessageAppend, id, err)
	}
	s.splice(id, func(t *domain.Ticket) {
		t.Messages = append(t.Messages, message)
	})

	oldStatus := ticket.Status
	clone := *ticket
	clone.Status = domain.TicketStatusAwaitingPayment
	clone.Amount = amount
	clone.Messages = append(append([]string{}, ticket.Messages...), message)
	if _, err := s.client.UpdateTicket(ctx, &clone); err != nil {
		return s.stepFailed(ctx, workflow.ActionSendInvoice, StepStatusUpdate, id, err)
	}
	s.splice(id, func(t *domain.Ticket) {
		t.Status = domain.TicketStatusAwaitingPayment
		t.Amount = amount
	})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: id,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: domain.TicketStatusAwaitingPayment,
		},
	})
	return nil
}

// AppendMessage posts a message and mirrors it locally on success.
func (s *TicketStore) AppendMessage(ctx context.Context, id int64, content string) error {
	if strings.TrimSpace(content) == "" {
		return errorutil.NewValidationError("message content required", nil)
	}
	if err := s.client.AppendMessage(ctx, id, content); err != nil {
		s.banner(domain.SeverityError, "could not send message")
		return err
	}
	s.splice(id, func(t *domain.Ticket) {
		t.Messages = append(t.Messages, content)
	})
	return nil
}

// Get fetches one ticket with its full message thread from the backend.
func (s *TicketStore) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.client.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.client.ListMessages(ctx, id)
	if err == nil {
		ticket.Messages = messages
	}
	return ticket, nil
}

// Snapshot returns a copy of the current page.
func (s *TicketStore) Snapshot() PageSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.current
	out.Tickets = make([]domain.Ticket, len(s.current.Tickets))
	copy(out.Tickets, s.current.Tickets)
	return out
}

// OpenCount counts tickets still being worked in the current page.
func (s *TicketStore) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.current.Tickets {
		if workflow.IsOpen(&s.current.Tickets[i]) {
			count++
		}
	}
	return count
}

// ResolvedCount counts resolved and closed tickets in the current page.
func (s *TicketStore) ResolvedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.current.Tickets {
		if workflow.IsResolved(&s.current.Tickets[i]) {
			count++
		}
	}
	return count
}

// Run consumes refresh ticks until ctx is done.
func (s *TicketStore) Run(ctx context.Context, ticks <-chan struct{}) {
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
func (s *TicketStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// ticketForAction locates the local copy (falling back to a point fetch) and
// applies the workflow guard before any write goes out.
func (s *TicketStore) ticketForAction(ctx context.Context, id int64, action workflow.Action, guard func(*domain.Ticket) bool) (*domain.Ticket, error) {
	ticket := s.find(id)
	if ticket == nil {
		fetched, err := s.client.GetTicket(ctx, id)
		if err != nil {
			return nil, err
		}
		ticket = fetched
	}
	if !guard(ticket) {
		return nil, errorutil.NewValidationError(
			fmt.Sprintf("action %s not allowed for status %q", action, ticket.Status), nil)
	}
	return ticket, nil
}

func (s *TicketStore) find(id int64) *domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.current.Tickets {
		if s.current.Tickets[i].ID == id {
			clone := s.current.Tickets[i]
			return &clone
		}
	}
	return nil
}

// updateStatus performs the authoritative write and splices the confirmed
// status locally; the next full refresh reconciles the rest.
func (s *TicketStore) updateStatus(ctx context.Context, ticket *domain.Ticket, newStatus domain.TicketStatus) error {
	oldStatus := ticket.Status
	clone := *ticket
	clone.Status = newStatus
	if _, err := s.client.UpdateTicket(ctx, &clone); err != nil {
		s.banner(domain.SeverityError, fmt.Sprintf("could not update ticket %d", ticket.ID))
		return err
	}
	s.splice(ticket.ID, func(t *domain.Ticket) {
		t.Status = newStatus
	})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return nil
}

// splice mutates the single matching ticket in place, leaving the rest of the
// collection untouched.
func (s *TicketStore) splice(id int64, mutate func(*domain.Ticket)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for i := range s.current.Tickets {
		if s.current.Tickets[i].ID == id {
			mutate(&s.current.Tickets[i])
			return
		}
	}
}

func (s *TicketStore) stepFailed(ctx context.Context, action workflow.Action, step string, ticketID int64, err error) error {
	s.logger.Warn("workflow step failed",
		zap.String("action", string(action)),
		zap.String("step", step),
		zap.Int64("ticket_id", ticketID),
		zap.Error(err))
	s.publish(ctx, events.Event{
		Type:     events.EventWorkflowStepFailed,
		TicketID: ticketID,
		Payload: events.WorkflowStepFailedPayload{
			Action: string(action),
			Step:   step,
			Reason: err.Error(),
		},
	})
	return &StepError{Action: action, Step: step, Err: err}
}

func (s *TicketStore) banner(severity domain.Severity, message string) {
	if s.alerts == nil {
		return
	}
	s.alerts.Push(severity, message)
}

func (s *TicketStore) publish(ctx context.Context, event events.Event) {
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

// setCurrent replaces the current page wholesale (cache hits).
func (s *TicketStore) setCurrent(snap PageSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.current = snap
}
