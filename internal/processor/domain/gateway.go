package domain

import "context"

// Gateway is the subset of the processor API used by the charge workflow.
// Every method honours ctx cancellation; a deadline surfaces as ErrUpstream.
type Gateway interface {
	CreateCustomer(ctx context.Context, email string) (Customer, error)
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) (PaymentMethod, error)
	CreateConfirmedPaymentIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error)
	ConstructEvent(payload []byte, signatureHeader string) (Event, error)
	CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error)
	CreateInvoiceItem(ctx context.Context, req InvoiceItemRequest) error
	FinalizeInvoice(ctx context.Context, invoiceID, idempotencyKey string) (Invoice, error)
	RetrieveInvoice(ctx context.Context, invoiceID string) (Invoice, error)
	SignatureMode() SignatureMode
}
