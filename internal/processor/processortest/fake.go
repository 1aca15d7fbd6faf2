// Package processortest provides an in-memory Gateway for service tests.
package processortest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/smallbiznis/offsession/internal/processor/domain"
)

// Gateway records every call and answers from its configurable hooks.
// A nil hook returns a deterministic successful response.
type Gateway struct {
	mu sync.Mutex

	Mode domain.SignatureMode

	CreateCustomerFn      func(email string) (domain.Customer, error)
	AttachFn              func(paymentMethodID, customerID string) (domain.PaymentMethod, error)
	CreateIntentFn        func(req domain.PaymentIntentRequest) (domain.PaymentIntent, error)
	ConstructEventFn      func(payload []byte, header string) (domain.Event, error)
	CreateInvoiceFn       func(req domain.InvoiceRequest) (domain.Invoice, error)
	CreateInvoiceItemFn   func(req domain.InvoiceItemRequest) error
	FinalizeInvoiceFn     func(invoiceID, key string) (domain.Invoice, error)
	RetrieveInvoiceFn     func(invoiceID string) (domain.Invoice, error)
	IntentRequests        []domain.PaymentIntentRequest
	InvoiceRequests       []domain.InvoiceRequest
	InvoiceItemRequests   []domain.InvoiceItemRequest
	FinalizedInvoices     []string
	CreatedCustomers      []string
	AttachedPaymentMethod []string

	// intents keyed by idempotency key, mirroring processor-side coalescing.
	intents  map[string]domain.PaymentIntent
	invoices map[string]domain.Invoice
	seq      int
}

var _ domain.Gateway = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{
		Mode:     domain.SignatureModeTrusted,
		intents:  map[string]domain.PaymentIntent{},
		invoices: map[string]domain.Invoice{},
	}
}

func (g *Gateway) SignatureMode() domain.SignatureMode {
	return g.Mode
}

func (g *Gateway) CreateCustomer(_ context.Context, email string) (domain.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.CreatedCustomers = append(g.CreatedCustomers, email)
	if g.CreateCustomerFn != nil {
		return g.CreateCustomerFn(email)
	}
	g.seq++
	return domain.Customer{ID: fmt.Sprintf("cus_%d", g.seq), Email: email}, nil
}

func (g *Gateway) AttachPaymentMethod(_ context.Context, paymentMethodID, customerID string) (domain.PaymentMethod, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.AttachedPaymentMethod = append(g.AttachedPaymentMethod, paymentMethodID)
	if g.AttachFn != nil {
		return g.AttachFn(paymentMethodID, customerID)
	}
	return domain.PaymentMethod{
		ID:         paymentMethodID,
		CustomerID: customerID,
		Type:       "card",
		Card:       domain.Card{Brand: "visa", Last4: "4242", Country: "US", ExpMonth: 12, ExpYear: 2030},
		Raw:        json.RawMessage(fmt.Sprintf(`{"id":%q,"customer":%q}`, paymentMethodID, customerID)),
	}, nil
}

func (g *Gateway) CreateConfirmedPaymentIntent(_ context.Context, req domain.PaymentIntentRequest) (domain.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.IntentRequests = append(g.IntentRequests, req)
	if g.CreateIntentFn != nil {
		return g.CreateIntentFn(req)
	}
	if req.IdempotencyKey != "" {
		if pi, ok := g.intents[req.IdempotencyKey]; ok {
			return pi, nil
		}
	}
	g.seq++
	pi := domain.PaymentIntent{
		ID:              fmt.Sprintf("pi_%d", g.seq),
		Status:          "succeeded",
		Amount:          req.Amount,
		Currency:        req.Currency,
		CustomerID:      req.CustomerID,
		PaymentMethodID: req.PaymentMethodID,
		Metadata:        req.Metadata,
	}
	if req.IdempotencyKey != "" {
		g.intents[req.IdempotencyKey] = pi
	}
	return pi, nil
}

func (g *Gateway) ConstructEvent(payload []byte, header string) (domain.Event, error) {
	if g.ConstructEventFn != nil {
		return g.ConstructEventFn(payload, header)
	}
	var body struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object domain.PaymentIntent `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return domain.Event{}, &domain.Error{Kind: domain.ErrInvalidPayload, Op: "construct_event", Cause: err}
	}
	evt := domain.Event{ID: body.ID, Type: body.Type, Raw: payload}
	if body.Data.Object.ID != "" {
		pi := body.Data.Object
		evt.PaymentIntent = &pi
	}
	return evt, nil
}

func (g *Gateway) CreateInvoice(_ context.Context, req domain.InvoiceRequest) (domain.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.InvoiceRequests = append(g.InvoiceRequests, req)
	if g.CreateInvoiceFn != nil {
		return g.CreateInvoiceFn(req)
	}
	if inv, ok := g.invoices[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return inv, nil
	}
	g.seq++
	inv := domain.Invoice{ID: fmt.Sprintf("in_%d", g.seq), Status: "draft", CustomerID: req.CustomerID}
	if req.IdempotencyKey != "" {
		g.invoices[req.IdempotencyKey] = inv
	}
	return inv, nil
}

func (g *Gateway) CreateInvoiceItem(_ context.Context, req domain.InvoiceItemRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.InvoiceItemRequests = append(g.InvoiceItemRequests, req)
	if g.CreateInvoiceItemFn != nil {
		return g.CreateInvoiceItemFn(req)
	}
	return nil
}

func (g *Gateway) FinalizeInvoice(_ context.Context, invoiceID, key string) (domain.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.FinalizedInvoices = append(g.FinalizedInvoices, invoiceID)
	if g.FinalizeInvoiceFn != nil {
		return g.FinalizeInvoiceFn(invoiceID, key)
	}
	return domain.Invoice{
		ID:               invoiceID,
		Status:           "open",
		HostedInvoiceURL: "https://invoice.example/" + invoiceID,
		InvoicePDF:       "https://invoice.example/" + invoiceID + ".pdf",
	}, nil
}

func (g *Gateway) RetrieveInvoice(_ context.Context, invoiceID string) (domain.Invoice, error) {
	if g.RetrieveInvoiceFn != nil {
		return g.RetrieveInvoiceFn(invoiceID)
	}
	return domain.Invoice{
		ID:         invoiceID,
		Status:     "open",
		InvoicePDF: "https://invoice.example/" + invoiceID + ".pdf",
	}, nil
}

// Counts returns how many intents and invoices were requested.
func (g *Gateway) Counts() (intents, invoices int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.IntentRequests), len(g.InvoiceRequests)
}
