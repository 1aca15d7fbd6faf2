package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/offsession/internal/config"
	"github.com/smallbiznis/offsession/internal/invoice/domain"
	"github.com/smallbiznis/offsession/internal/observability/logger"
	"github.com/smallbiznis/offsession/internal/observability/metrics"
	processordomain "github.com/smallbiznis/offsession/internal/processor/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultDaysUntilDue = 30
	defaultDescription  = "One-time payment charge"
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Gateway processordomain.Gateway
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log          *zap.Logger
	gateway      processordomain.Gateway
	metrics      *metrics.Metrics
	daysUntilDue int64
	description  string
}

func NewService(p Params) domain.Service {
	days := p.Cfg.Invoice.DaysUntilDue
	if days <= 0 {
		days = defaultDaysUntilDue
	}
	description := strings.TrimSpace(p.Cfg.Invoice.Description)
	if description == "" {
		description = defaultDescription
	}
	return &Service{
		log:          p.Log.Named("invoice.service"),
		gateway:      p.Gateway,
		metrics:      p.Metrics,
		daysUntilDue: days,
		description:  description,
	}
}

func (s *Service) Generate(ctx context.Context, pi processordomain.PaymentIntent) (processordomain.Invoice, error) {
	if strings.TrimSpace(pi.CustomerID) == "" {
		s.metrics.RecordInvoice(ctx, "invalid")
		return processordomain.Invoice{}, domain.ErrMissingCustomer
	}
	if pi.Amount <= 0 || strings.TrimSpace(pi.Currency) == "" {
		s.metrics.RecordInvoice(ctx, "invalid")
		return processordomain.Invoice{}, domain.ErrInvalidAmount
	}

	log := logger.WithContext(ctx, s.log).With(zap.String("payment_intent_id", pi.ID))

	draft, err := s.gateway.CreateInvoice(ctx, processordomain.InvoiceRequest{
		CustomerID:      pi.CustomerID,
		PaymentMethodID: pi.PaymentMethodID,
		DaysUntilDue:    s.daysUntilDue,
		IdempotencyKey:  domain.KeyPrefixInvoice + pi.ID,
		Metadata:        map[string]string{"payment_intent": pi.ID},
	})
	if err != nil {
		return s.fail(ctx, log, "create", err)
	}

	if err := s.gateway.CreateInvoiceItem(ctx, processordomain.InvoiceItemRequest{
		CustomerID:     pi.CustomerID,
		InvoiceID:      draft.ID,
		Amount:         pi.Amount,
		Currency:       pi.Currency,
		Description:    s.description,
		IdempotencyKey: domain.KeyPrefixInvoiceItem + pi.ID,
	}); err != nil {
		return s.fail(ctx, log.With(zap.String("invoice_id", draft.ID)), "add_item", err)
	}

	final, err := s.gateway.FinalizeInvoice(ctx, draft.ID, domain.KeyPrefixFinalize+pi.ID)
	if err != nil {
		return s.fail(ctx, log.With(zap.String("invoice_id", draft.ID)), "finalize", err)
	}

	log.Info("invoice finalized",
		zap.String("invoice_id", final.ID),
		zap.String("status", final.Status),
	)
	s.metrics.RecordInvoice(ctx, "finalized")
	return final, nil
}

func (s *Service) ResolvePDF(ctx context.Context, invoiceID string) (string, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	inv, err := s.gateway.RetrieveInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(inv.InvoicePDF) == "" {
		return "", fmt.Errorf("%w: invoice %s has no pdf yet", domain.ErrPDFUnavailable, invoiceID)
	}
	return inv.InvoicePDF, nil
}

func (s *Service) fail(ctx context.Context, log *zap.Logger, step string, err error) (processordomain.Invoice, error) {
	log.Error("invoice generation failed", zap.String("step", step), zap.Error(err))
	s.metrics.RecordInvoice(ctx, "failed")
	return processordomain.Invoice{}, fmt.Errorf("invoice %s: %w", step, err)
}
