package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hostiva/portal/internal/auth"
	"github.com/hostiva/portal/internal/config"
	"github.com/hostiva/portal/internal/domain"
	"github.com/hostiva/portal/internal/observability"
	"github.com/hostiva/portal/pkg/util/errorutil"
)

// TotalCountHeader carries the collection size on paginated list responses.
const TotalCountHeader = "X-Total-Count"

// Page describes a pagination request.
type Page struct {
	Number int
	Size   int
	Sort   string
}

// Client talks to the authoritative REST backend. It owns the wire protocol
// and error classification; all state lives in the stores above it.
type Client struct {
	baseURL string
	http    *http.Client
	session *auth.Session
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewClient constructs a backend client.
func NewClient(cfg config.BackendConfig, session *auth.Session, logger *zap.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.RequestTimeout()},
		session: session,
		logger:  logger,
		metrics: metrics,
	}
}

// ListTickets fetches one page of tickets. The total collection size comes
// from the X-Total-Count response header; an empty body is a valid empty page.
func (c *Client) ListTickets(ctx context.Context, page Page) ([]domain.Ticket, int, error) {
	path := fmt.Sprintf("/api/tickets?page=%d&size=%d&sort=%s", page.Number, page.Size, page.Sort)
	resp, err := c.do(ctx, "list_tickets", http.MethodGet, path, nil)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var tickets []domain.Ticket
	if err := decodeBody(resp.Body, &tickets); err != nil {
		return nil, 0, errorutil.NewInternalError(err)
	}
	total := len(tickets)
	if raw := resp.Header.Get(TotalCountHeader); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			total = parsed
		}
	}
	return tickets, total, nil
}

// GetTicket fetches a single ticket by id.
func (c *Client) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	resp, err := c.do(ctx, "get_ticket", http.MethodGet, fmt.Sprintf("/api/tickets/%d", id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	ticket := &domain.Ticket{}
	if err := json.NewDecoder(resp.Body).Decode(ticket); err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return ticket, nil
}

// CreateTicket submits a new ticket. With an attachment the request goes out
// as multipart, otherwise as plain JSON. The response is the authoritative
// new record.
func (c *Client) CreateTicket(ctx context.Context, draft domain.TicketDraft) (*domain.Ticket, error) {
	var resp *http.Response
	var err error
	if draft.Attachment != nil {
		resp, err = c.doMultipart(ctx, "create_ticket", "/api/tickets", draft)
	} else {
		resp, err = c.do(ctx, "create_ticket", http.MethodPost, "/api/tickets", draft)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	ticket := &domain.Ticket{}
	if err := json.NewDecoder(resp.Body).Decode(ticket); err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return ticket, nil
}

// UpdateTicket sends a full-record update, used for status and amount changes.
func (c *Client) UpdateTicket(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	resp, err := c.do(ctx, "update_ticket", http.MethodPut, fmt.Sprintf("/api/tickets/%d", ticket.ID), ticket)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	updated := &domain.Ticket{}
	if err := decodeBody(resp.Body, updated); err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	if updated.ID == 0 {
		// Some deployments answer the PUT with an empty body; the sent record
		// is then the best available view.
		clone := *ticket
		updated = &clone
	}
	return updated, nil
}

// AppendMessage adds one message to a ticket's thread.
func (c *Client) AppendMessage(ctx context.Context, ticketID int64, content string) error {
	payload := map[string]string{"content": content}
	resp, err := c.do(ctx, "append_message", http.MethodPost, fmt.Sprintf("/api/tickets/%d/messages", ticketID), payload)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ListMessages returns a ticket's message thread in server order.
func (c *Client) ListMessages(ctx context.Context, ticketID int64) ([]string, error) {
	resp, err := c.do(ctx, "list_messages", http.MethodGet, fmt.Sprintf("/api/tickets/%d/messages", ticketID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var messages []string
	if err := decodeBody(resp.Body, &messages); err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return messages, nil
}

// ValidatePayment confirms a ticket's payment.
func (c *Client) ValidatePayment(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	resp, err := c.do(ctx, "validate_payment", http.MethodPut, fmt.Sprintf("/api/tickets/%d/validate-payment", ticketID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	ticket := &domain.Ticket{}
	if err := decodeBody(resp.Body, ticket); err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return ticket, nil
}

// ListNotifications fetches the current user's notification feed.
func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	resp, err := c.do(ctx, "list_notifications", http.MethodGet, "/api/notifications", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var notifications []domain.Notification
	if err := decodeBody(resp.Body, &notifications); err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return notifications, nil
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	resp, err := c.do(ctx, "mark_notification_read", http.MethodPut, fmt.Sprintf("/api/notifications/%d/read", id), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// MarkAllNotificationsRead marks the whole feed as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	resp, err := c.do(ctx, "mark_all_notifications_read", http.MethodPut, "/api/notifications/read-all", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Ping probes backend reachability for readiness checks. A 401 still means
// the backend is up.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListNotifications(ctx)
	if err != nil && !errorutil.IsUnauthorized(err) {
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errorutil.NewInternalError(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(op, req)
}

func (c *Client) doMultipart(ctx context.Context, op, path string, draft domain.TicketDraft) (*http.Response, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	meta, err := json.Marshal(draft)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	if err := writer.WriteField("ticket", string(meta)); err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	part, err := writer.CreateFormFile("image", draft.Attachment.FileName)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	if _, err := part.Write(draft.Attachment.Content); err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	if err := writer.Close(); err != nil {
		return nil, errorutil.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, buf)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.send(op, req)
}

func (c *Client) send(op string, req *http.Request) (*http.Response, error) {
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordFailure(op, "TRANSPORT")
		c.logger.Warn("backend call failed", zap.String("op", op), zap.Error(err))
		if req.Context().Err() == context.DeadlineExceeded {
			return nil, errorutil.ToDomainError(context.DeadlineExceeded)
		}
		return nil, errorutil.NewBackendUnavailable(err)
	}
	c.metrics.RecordCall(op, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		domainErr := errorutil.FromResponse(op, resp.StatusCode)
		c.metrics.RecordFailure(op, domainErr.Code)
		c.logger.Debug("backend call rejected",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode))
		return nil, domainErr
	}
	return resp, nil
}

// decodeBody decodes JSON into dest but treats an empty body as a valid
// zero value.
func decodeBody(body io.Reader, dest any) error {
	payload, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	return json.Unmarshal(payload, dest)
}
