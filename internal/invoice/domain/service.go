package domain

import (
	"context"
	"errors"

	processordomain "github.com/smallbiznis/offsession/internal/processor/domain"
)

type Service interface {
	// Generate creates, fills and finalizes a send_invoice invoice for a
	// succeeded intent. Every step is keyed by the intent id so concurrent
	// redeliveries converge on one processor invoice.
	Generate(ctx context.Context, pi processordomain.PaymentIntent) (processordomain.Invoice, error)
	// ResolvePDF returns the invoice_pdf URL of a finalized invoice.
	ResolvePDF(ctx context.Context, invoiceID string) (string, error)
}

var (
	ErrMissingCustomer = errors.New("missing_customer")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrPDFUnavailable  = errors.New("pdf_unavailable")
)

// Idempotency key prefixes, suffixed with the payment intent id.
const (
	KeyPrefixInvoice     = "invoice-"
	KeyPrefixInvoiceItem = "invoiceitem-"
	KeyPrefixFinalize    = "finalize-"
)
