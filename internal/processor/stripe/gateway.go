package stripe

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/offsession/internal/config"
	"github.com/smallbiznis/offsession/internal/processor/domain"
	stripe "github.com/stripe/stripe-go/v82"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

// Gateway talks to the Stripe API on behalf of the charge workflow.
type Gateway struct {
	client        *stripe.Client
	webhookSecret string
	mode          domain.SignatureMode
	timeout       time.Duration
	log           *zap.Logger
}

var _ domain.Gateway = (*Gateway)(nil)

func NewGateway(p Params) (*Gateway, error) {
	return New(p.Cfg.Stripe, p.Log)
}

func New(cfg config.StripeConfig, log *zap.Logger) (*Gateway, error) {
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("processor.stripe")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     log.Sugar(),
	}
	if baseURL := strings.TrimSpace(cfg.APIBaseURL); baseURL != "" {
		backendCfg.URL = stripe.String(strings.TrimRight(baseURL, "/"))
	}
	client := stripe.NewClient(secretKey, stripe.WithBackends(stripe.NewBackendsWithConfig(backendCfg)))

	mode := domain.SignatureModeVerified
	if !cfg.HasWebhookSecret() {
		mode = domain.SignatureModeTrusted
		log.Warn("STRIPE_WEBHOOK_SECRET is not set: webhook bodies are trusted without signature verification")
	}

	return &Gateway{
		client:        client,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		mode:          mode,
		timeout:       timeout,
		log:           log,
	}, nil
}

func (g *Gateway) SignatureMode() domain.SignatureMode {
	return g.mode
}

func (g *Gateway) CreateCustomer(ctx context.Context, email string) (domain.Customer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Customer{}, &domain.Error{Kind: domain.ErrInvalidRequest, Op: "create_customer", Message: "email is required"}
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	customer, err := g.client.V1Customers.Create(ctx, &stripe.CustomerCreateParams{
		Email: stripe.String(email),
	})
	if err != nil {
		return domain.Customer{}, mapError("create_customer", err)
	}

	g.log.Debug("customer created", zap.String("customer_id", customer.ID))
	return domain.Customer{ID: customer.ID, Email: customer.Email}, nil
}

func (g *Gateway) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) (domain.PaymentMethod, error) {
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	customerID = strings.TrimSpace(customerID)
	if paymentMethodID == "" || customerID == "" {
		return domain.PaymentMethod{}, &domain.Error{Kind: domain.ErrInvalidRequest, Op: "attach_payment_method", Message: "payment method and customer are required"}
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	pm, err := g.client.V1PaymentMethods.Attach(ctx, paymentMethodID, &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	})
	if err != nil {
		return domain.PaymentMethod{}, mapError("attach_payment_method", err)
	}

	out := toPaymentMethod(pm)
	if out.CustomerID == "" {
		out.CustomerID = customerID
	}
	return out, nil
}

func (g *Gateway) CreateConfirmedPaymentIntent(ctx context.Context, req domain.PaymentIntentRequest) (domain.PaymentIntent, error) {
	if err := validateIntentRequest(req); err != nil {
		return domain.PaymentIntent{}, err
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		Customer:      stripe.String(req.CustomerID),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}

	pi, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return domain.PaymentIntent{}, mapError("create_payment_intent", err)
	}

	out := toPaymentIntent(pi)
	g.log.Debug("payment intent created",
		zap.String("payment_intent_id", out.ID),
		zap.String("status", out.Status),
	)
	return out, nil
}

func (g *Gateway) CreateInvoice(ctx context.Context, req domain.InvoiceRequest) (domain.Invoice, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return domain.Invoice{}, &domain.Error{Kind: domain.ErrInvalidRequest, Op: "create_invoice", Message: "customer is required"}
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.InvoiceCreateParams{
		Customer:         stripe.String(req.CustomerID),
		CollectionMethod: stripe.String(string(stripe.InvoiceCollectionMethodSendInvoice)),
		DaysUntilDue:     stripe.Int64(req.DaysUntilDue),
	}
	if pm := strings.TrimSpace(req.PaymentMethodID); pm != "" {
		params.DefaultPaymentMethod = stripe.String(pm)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}

	inv, err := g.client.V1Invoices.Create(ctx, params)
	if err != nil {
		return domain.Invoice{}, mapError("create_invoice", err)
	}
	return toInvoice(inv), nil
}

func (g *Gateway) CreateInvoiceItem(ctx context.Context, req domain.InvoiceItemRequest) error {
	if strings.TrimSpace(req.InvoiceID) == "" || strings.TrimSpace(req.CustomerID) == "" {
		return &domain.Error{Kind: domain.ErrInvalidRequest, Op: "create_invoice_item", Message: "invoice and customer are required"}
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.InvoiceItemCreateParams{
		Customer:    stripe.String(req.CustomerID),
		Invoice:     stripe.String(req.InvoiceID),
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
	}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}

	if _, err := g.client.V1InvoiceItems.Create(ctx, params); err != nil {
		return mapError("create_invoice_item", err)
	}
	return nil
}

func (g *Gateway) FinalizeInvoice(ctx context.Context, invoiceID, idempotencyKey string) (domain.Invoice, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return domain.Invoice{}, &domain.Error{Kind: domain.ErrInvalidRequest, Op: "finalize_invoice", Message: "invoice is required"}
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.InvoiceFinalizeInvoiceParams{}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}

	inv, err := g.client.V1Invoices.FinalizeInvoice(ctx, invoiceID, params)
	if err != nil {
		return domain.Invoice{}, mapError("finalize_invoice", err)
	}
	return toInvoice(inv), nil
}

func (g *Gateway) RetrieveInvoice(ctx context.Context, invoiceID string) (domain.Invoice, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return domain.Invoice{}, &domain.Error{Kind: domain.ErrNotFound, Op: "retrieve_invoice", Message: "invoice id is required"}
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	inv, err := g.client.V1Invoices.Retrieve(ctx, invoiceID, &stripe.InvoiceRetrieveParams{})
	if err != nil {
		mapped := mapError("retrieve_invoice", err)
		var pe *domain.Error
		if errors.As(mapped, &pe) && isMissing(pe) {
			pe.Kind = domain.ErrNotFound
		}
		return domain.Invoice{}, mapped
	}
	return toInvoice(inv), nil
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, g.timeout)
}

func validateIntentRequest(req domain.PaymentIntentRequest) error {
	switch {
	case req.Amount <= 0:
		return &domain.Error{Kind: domain.ErrInvalidRequest, Op: "create_payment_intent", Message: "amount must be positive"}
	case strings.TrimSpace(req.Currency) == "":
		return &domain.Error{Kind: domain.ErrInvalidRequest, Op: "create_payment_intent", Message: "currency is required"}
	case strings.TrimSpace(req.CustomerID) == "", strings.TrimSpace(req.PaymentMethodID) == "":
		return &domain.Error{Kind: domain.ErrInvalidRequest, Op: "create_payment_intent", Message: "customer and payment method are required"}
	}
	return nil
}
