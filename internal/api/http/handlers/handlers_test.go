package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hostiva/portal/internal/alerts"
	httptransport "github.com/hostiva/portal/internal/api/http"
	"github.com/hostiva/portal/internal/api/http/handlers"
	"github.com/hostiva/portal/internal/auth"
	"github.com/hostiva/portal/internal/backend"
	"github.com/hostiva/portal/internal/config"
	"github.com/hostiva/portal/internal/domain"
	"github.com/hostiva/portal/internal/events"
	"github.com/hostiva/portal/internal/observability"
	"github.com/hostiva/portal/internal/scheduler"
	"github.com/hostiva/portal/internal/store"
)

// fakeREST emulates the authoritative backend.
type fakeREST struct {
	mu            sync.Mutex
	tickets       []domain.Ticket
	nextID        int64
	failUpdate    bool
	notifications []domain.Notification
}

func (f *fakeREST) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tickets", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set(backend.TotalCountHeader, strconv.Itoa(len(f.tickets)))
		json.NewEncoder(w).Encode(f.tickets)
	})
	mux.HandleFunc("POST /api/tickets", func(w http.ResponseWriter, r *http.Request) {
		var draft domain.TicketDraft
		json.NewDecoder(r.Body).Decode(&draft)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		ticket := domain.Ticket{
			ID:          f.nextID,
			Status:      domain.TicketStatusNew,
			Description: draft.Description,
			ClientEmail: draft.ClientEmail,
			CreatedDate: time.Now(),
		}
		f.tickets = append([]domain.Ticket{ticket}, f.tickets...)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(ticket)
	})
	mux.HandleFunc("PUT /api/tickets/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failUpdate {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var ticket domain.Ticket
		json.NewDecoder(r.Body).Decode(&ticket)
		for i := range f.tickets {
			if f.tickets[i].ID == ticket.ID {
				f.tickets[i] = ticket
			}
		}
		json.NewEncoder(w).Encode(ticket)
	})
	mux.HandleFunc("POST /api/tickets/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.tickets {
			if f.tickets[i].ID == id {
				f.tickets[i].Messages = append(f.tickets[i].Messages, payload["content"])
			}
		}
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /api/tickets/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.tickets {
			if f.tickets[i].ID == id {
				json.NewEncoder(w).Encode(f.tickets[i])
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/tickets/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.tickets {
			if f.tickets[i].ID == id {
				json.NewEncoder(w).Encode(f.tickets[i].Messages)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/notifications", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.notifications)
	})
	mux.HandleFunc("PUT /api/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.notifications {
			f.notifications[i].Read = true
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

type portalFixture struct {
	app  *fiber.App
	rest *fakeREST
}

func newPortal(t *testing.T) *portalFixture {
	t.Helper()

	rest := &fakeREST{nextID: 10}
	server := httptest.NewServer(rest.handler())
	t.Cleanup(server.Close)

	logger := zap.NewNop()
	client := backend.NewClient(
		config.BackendConfig{BaseURL: server.URL, RequestTimeoutSec: 5},
		auth.NewSession(""), logger, observability.NewMetrics())

	dispatcher := events.NewInMemoryDispatcher()
	alertManager := alerts.NewManager(logger)
	alertManager.RegisterHandlers(dispatcher)

	tickets := store.NewTicketStore(store.TicketDependencies{
		Client:      client,
		Logger:      logger,
		Dispatcher:  dispatcher,
		Alerts:      alertManager,
		PageTTL:     time.Minute,
		SoftTimeout: 2 * time.Second,
	})
	notifications := store.NewNotificationStore(store.NotificationDependencies{
		Client:     client,
		Logger:     logger,
		Dispatcher: dispatcher,
	})

	refresh := scheduler.New(time.Hour, true, logger)
	t.Cleanup(refresh.Stop)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler("portal-test", "test", client, nil, observability.NewMetrics()),
		Tickets:       handlers.NewTicketsHandler(tickets),
		Notifications: handlers.NewNotificationsHandler(notifications),
		Alerts:        handlers.NewAlertsHandler(alertManager),
		Refresh:       handlers.NewRefreshHandler(refresh),
	})

	return &portalFixture{app: app, rest: rest}
}

func (p *portalFixture) request(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.app.Test(req, 10000)
	require.NoError(t, err)

	decoded := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func TestListTicketsWithCounts(t *testing.T) {
	t.Parallel()

	p := newPortal(t)
	p.rest.tickets = []domain.Ticket{
		{ID: 2, Status: domain.TicketStatusNew},
		{ID: 1, Status: domain.TicketStatusClosed},
	}

	resp, body := p.request(t, http.MethodGet, "/portal/tickets", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].(map[string]any)
	require.EqualValues(t, 2, data["total"])
	require.EqualValues(t, 1, data["open"])
	require.EqualValues(t, 1, data["resolved"])

	views := data["tickets"].([]any)
	first := views[0].(map[string]any)
	require.Equal(t, string(domain.TicketStatusNew), first["status"])
	require.NotEmpty(t, first["actions"])
}

func TestCreateTicketEndpoint(t *testing.T) {
	t.Parallel()

	p := newPortal(t)
	resp, body := p.request(t, http.MethodPost, "/portal/tickets", map[string]string{
		"description": "dns misconfigured",
		"clientEmail": "client@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := body["data"].(map[string]any)
	require.Equal(t, string(domain.TicketStatusNew), data["status"])
	require.EqualValues(t, 11, data["id"])
}

func TestCreateTicketValidationError(t *testing.T) {
	t.Parallel()

	p := newPortal(t)
	resp, body := p.request(t, http.MethodPost, "/portal/tickets", map[string]string{
		"clientEmail": "client@example.com",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody := body["error"].(map[string]any)
	require.Equal(t, "VALIDATION_FAILED", errBody["code"])
}

func TestInvoiceStatusFailureRaisesAlert(t *testing.T) {
	t.Parallel()

	p := newPortal(t)
	p.rest.tickets = []domain.Ticket{{ID: 3, Status: domain.TicketStatusResolved}}

	// Load the page so the store holds a local copy.
	p.request(t, http.MethodGet, "/portal/tickets", nil)

	p.rest.mu.Lock()
	p.rest.failUpdate = true
	p.rest.mu.Unlock()

	resp, _ := p.request(t, http.MethodPost, "/portal/tickets/3/invoice", map[string]float64{"amount": 750})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// The partial-failure banner names the failed half.
	_, alertsBody := p.request(t, http.MethodGet, "/portal/alerts", nil)
	banners := alertsBody["data"].([]any)
	require.NotEmpty(t, banners)
	message := banners[0].(map[string]any)["message"].(string)
	require.Contains(t, message, "status update")
}

func TestWorkflowActionEndToEnd(t *testing.T) {
	t.Parallel()

	p := newPortal(t)
	p.rest.tickets = []domain.Ticket{{ID: 5, Status: domain.TicketStatusNew}}
	p.request(t, http.MethodGet, "/portal/tickets", nil)

	resp, body := p.request(t, http.MethodPost, "/portal/tickets/5/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.Equal(t, string(domain.TicketStatusInProgress), data["status"])
}

func TestNotificationsEndpoint(t *testing.T) {
	t.Parallel()

	p := newPortal(t)
	p.rest.notifications = []domain.Notification{
		{ID: 1, Type: "INVOICE_SENT", Read: false},
		{ID: 2, Type: "TICKET_RESOLVED", Read: true},
	}

	// Populate the snapshot through the read-all round trip.
	resp, _ := p.request(t, http.MethodPut, "/portal/notifications/read-all", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body := p.request(t, http.MethodGet, "/portal/notifications", nil)
	data := body["data"].(map[string]any)
	require.EqualValues(t, 0, data["unreadCount"])
	items := data["notifications"].([]any)
	require.Len(t, items, 2)
	require.Equal(t, "warning", items[0].(map[string]any)["severity"])
}

func TestHealthLive(t *testing.T) {
	t.Parallel()

	p := newPortal(t)
	resp, body := p.request(t, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alive", body["status"])
}

func TestRefreshConfigValidation(t *testing.T) {
	t.Parallel()

	p := newPortal(t)
	resp, _ := p.request(t, http.MethodPut, "/portal/refresh", map[string]any{"intervalMillis": -5})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = p.request(t, http.MethodPut, "/portal/refresh", map[string]any{"intervalMillis": 60000, "enabled": true})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}
