package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/offsession/internal/clock"
	"github.com/smallbiznis/offsession/internal/paymenthistory/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock      `optional:"true"`
	Cache domain.ListCache `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
	cache domain.ListCache
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("paymenthistory.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
		cache: p.Cache,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (domain.PaymentRecord, bool, error) {
	intentID := strings.TrimSpace(req.PaymentIntentID)
	if intentID == "" {
		return domain.PaymentRecord{}, false, domain.ErrInvalidPaymentIntent
	}
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		return domain.PaymentRecord{}, false, domain.ErrInvalidEventType
	}

	snapshot := datatypes.JSON(req.PaymentIntent)
	if len(snapshot) == 0 {
		snapshot = datatypes.JSON("{}")
	}

	record := domain.PaymentRecord{
		ID:              s.genID.Generate(),
		ProviderEventID: strings.TrimSpace(req.ProviderEventID),
		PaymentIntentID: intentID,
		EventType:       eventType,
		Status:          req.Status,
		Amount:          req.Amount,
		Currency:        strings.ToLower(req.Currency),
		CustomerID:      req.CustomerID,
		PaymentMethodID: req.PaymentMethodID,
		Email:           req.Email,
		PaymentIntent:   snapshot,
		CreatedAt:       s.clock.Now().UTC(),
	}
	// invoice_id and invoice_details are written together or not at all.
	if invoiceID := strings.TrimSpace(req.InvoiceID); invoiceID != "" && len(req.InvoiceDetails) > 0 {
		record.InvoiceID = &invoiceID
		record.InvoiceDetails = datatypes.JSON(append([]byte(nil), req.InvoiceDetails...))
	}

	inserted, err := s.repo.Insert(ctx, s.db, &record)
	if err != nil {
		return domain.PaymentRecord{}, false, err
	}
	if !inserted {
		existing, err := s.repo.FindByIntentEvent(ctx, s.db, intentID, eventType)
		if err != nil {
			return domain.PaymentRecord{}, false, err
		}
		if existing == nil {
			return domain.PaymentRecord{}, false, nil
		}
		return *existing, false, nil
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	s.log.Info("payment history recorded",
		zap.String("payment_intent_id", record.PaymentIntentID),
		zap.String("event_type", record.EventType),
		zap.Bool("has_invoice", record.HasInvoice()),
	)
	return record, true, nil
}

func (s *Service) Exists(ctx context.Context, paymentIntentID, eventType string) (bool, error) {
	record, err := s.repo.FindByIntentEvent(ctx, s.db, strings.TrimSpace(paymentIntentID), strings.TrimSpace(eventType))
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// List returns every record newest-first. There is no pagination.
func (s *Service) List(ctx context.Context) ([]domain.PaymentRecord, error) {
	if s.cache != nil {
		if records, ok := s.cache.Get(ctx); ok {
			return records, nil
		}
	}

	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	records := make([]domain.PaymentRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	if s.cache != nil {
		s.cache.Set(ctx, records)
	}
	return records, nil
}

func (s *Service) Latest(ctx context.Context, paymentIntentID string) (domain.PaymentRecord, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return domain.PaymentRecord{}, domain.ErrInvalidPaymentIntent
	}
	items, err := s.repo.FindByPaymentIntentID(ctx, s.db, paymentIntentID)
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	if len(items) == 0 || items[0] == nil {
		return domain.PaymentRecord{}, domain.ErrNotFound
	}
	return *items[0], nil
}
