package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. The values are the
// backend's wire vocabulary; the workflow package decides what each one means.
type TicketStatus string

const (
	TicketStatusNew              TicketStatus = "Nouveau"
	TicketStatusInProgress       TicketStatus = "En cours"
	TicketStatusResolved         TicketStatus = "Résolu"
	TicketStatusAwaitingPayment  TicketStatus = "En attente de paiement"
	TicketStatusPaymentValidated TicketStatus = "Paiement validé"
	TicketStatusClosed           TicketStatus = "Fermé"

	// TicketStatusQuoteValidated is a side state the backend reports when a
	// client accepts a quote. It is not part of the portal workflow and is
	// normalized away by the workflow package.
	TicketStatusQuoteValidated TicketStatus = "Devis validé"
)

// TicketType enumerates request categories.
type TicketType string

const (
	TicketTypeIncident TicketType = "INCIDENT"
	TicketTypeRequest  TicketType = "DEMANDE"
	TicketTypeHosting  TicketType = "HEBERGEMENT"
)

// Ticket is the portal's view of a support request. ID, Status and
// CreatedDate are server-assigned; the portal never invents them.
type Ticket struct {
	ID                 int64        `json:"id"`
	Status             TicketStatus `json:"status"`
	Description        string       `json:"description"`
	Type               TicketType   `json:"type"`
	ClientEmail        string       `json:"clientEmail"`
	BackofficeURL      string       `json:"backofficeUrl,omitempty"`
	BackofficeLogin    string       `json:"backofficeLogin,omitempty"`
	BackofficePassword string       `json:"backofficePassword,omitempty"`
	HostingProvider    string       `json:"hostingProvider,omitempty"`
	Amount             float64      `json:"amount,omitempty"`
	Messages           []string     `json:"messages"`
	CreatedDate        time.Time    `json:"createdDate"`
}

// TicketDraft is the payload for creating a ticket. The backend assigns
// everything else.
type TicketDraft struct {
	Description        string      `json:"description"`
	Type               TicketType  `json:"type"`
	ClientEmail        string      `json:"clientEmail"`
	BackofficeURL      string      `json:"backofficeUrl,omitempty"`
	BackofficeLogin    string      `json:"backofficeLogin,omitempty"`
	BackofficePassword string      `json:"backofficePassword,omitempty"`
	HostingProvider    string      `json:"hostingProvider,omitempty"`
	Attachment         *Attachment `json:"-"`
}

// Attachment is an optional file sent with ticket creation.
type Attachment struct {
	FileName string
	MimeType string
	Content  []byte
}
