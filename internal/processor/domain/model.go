package domain

import "encoding/json"

const (
	EventTypePaymentIntentSucceeded = "payment_intent.succeeded"
	EventTypePaymentIntentFailed    = "payment_intent.payment_failed"
)

// SignatureMode selects how webhook deliveries are authenticated.
type SignatureMode string

const (
	SignatureModeVerified SignatureMode = "verified"
	// SignatureModeTrusted decodes the body without any authenticity check.
	SignatureModeTrusted SignatureMode = "trusted"
)

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Card struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	Country  string `json:"country"`
	ExpMonth int64  `json:"exp_month"`
	ExpYear  int64  `json:"exp_year"`
}

type PaymentMethod struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customer"`
	Type       string          `json:"type"`
	Card       Card            `json:"card"`
	Raw        json.RawMessage `json:"-"`
}

type PaymentIntentRequest struct {
	Currency        string
	Amount          int64
	CustomerID      string
	PaymentMethodID string
	IdempotencyKey  string
	Metadata        map[string]string
}

type PaymentIntent struct {
	ID              string            `json:"id"`
	Status          string            `json:"status"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	CustomerID      string            `json:"customer"`
	PaymentMethodID string            `json:"payment_method"`
	Created         int64             `json:"created"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Raw             json.RawMessage   `json:"-"`
}

// Snapshot returns the processor's own JSON for the intent, falling back to
// the tagged fields when no raw payload was captured.
func (p PaymentIntent) Snapshot() json.RawMessage {
	if len(p.Raw) > 0 {
		return p.Raw
	}
	b, err := json.Marshal(p)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Created       int64           `json:"created"`
	PaymentIntent *PaymentIntent  `json:"-"`
	Raw           json.RawMessage `json:"-"`
}

type InvoiceRequest struct {
	CustomerID      string
	PaymentMethodID string
	DaysUntilDue    int64
	IdempotencyKey  string
	Metadata        map[string]string
}

type InvoiceItemRequest struct {
	CustomerID     string
	InvoiceID      string
	Amount         int64
	Currency       string
	Description    string
	IdempotencyKey string
}

type Invoice struct {
	ID               string          `json:"id"`
	Number           string          `json:"number"`
	Status           string          `json:"status"`
	CustomerID       string          `json:"customer"`
	AmountDue        int64           `json:"amount_due"`
	Currency         string          `json:"currency"`
	HostedInvoiceURL string          `json:"hosted_invoice_url"`
	InvoicePDF       string          `json:"invoice_pdf"`
	Raw              json.RawMessage `json:"-"`
}

// Snapshot returns the processor's own JSON for the invoice.
func (i Invoice) Snapshot() json.RawMessage {
	if len(i.Raw) > 0 {
		return i.Raw
	}
	b, err := json.Marshal(i)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}
