package service

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	invoicedomain "github.com/smallbiznis/offsession/internal/invoice/domain"
	obscontext "github.com/smallbiznis/offsession/internal/observability/context"
	"github.com/smallbiznis/offsession/internal/observability/logger"
	"github.com/smallbiznis/offsession/internal/observability/metrics"
	"github.com/smallbiznis/offsession/internal/observability/tracing"
	paymenthistorydomain "github.com/smallbiznis/offsession/internal/paymenthistory/domain"
	processordomain "github.com/smallbiznis/offsession/internal/processor/domain"
	"github.com/smallbiznis/offsession/internal/webhook/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Gateway  processordomain.Gateway
	History  paymenthistorydomain.Service
	Invoices invoicedomain.Service
	Lock     domain.Lock      `optional:"true"`
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	gateway  processordomain.Gateway
	history  paymenthistorydomain.Service
	invoices invoicedomain.Service
	lock     domain.Lock
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("webhook.service"),
		gateway:  p.Gateway,
		history:  p.History,
		invoices: p.Invoices,
		lock:     p.Lock,
		metrics:  p.Metrics,
		tracer:   otel.Tracer("offsession/webhook"),
	}
}

// Reconcile authenticates one delivery and records the terminal intent state
// it carries. Store failures are returned so the processor redelivers; the
// (payment_intent_id, event_type) uniqueness keeps redeliveries from writing
// a second row.
func (s *Service) Reconcile(ctx context.Context, payload []byte, signatureHeader string) (domain.Outcome, error) {
	deliveryID := ulid.Make().String()
	ctx = obscontext.WithDeliveryID(ctx, deliveryID)
	ctx, span := s.tracer.Start(ctx, "webhook.reconcile")
	defer span.End()
	span.SetAttributes(tracing.SafeAttributes(attribute.String("webhook.delivery_id", deliveryID))...)

	log := logger.WithContext(ctx, s.log)

	evt, err := s.gateway.ConstructEvent(payload, signatureHeader)
	if err != nil {
		log.Warn("webhook rejected",
			zap.String("signature_mode", string(s.gateway.SignatureMode())),
			zap.String("kind", processordomain.KindOf(err).Error()),
			zap.Error(err),
		)
		s.metrics.RecordWebhookEvent(ctx, "", "rejected")
		span.SetStatus(codes.Error, "rejected")
		return "", err
	}

	span.SetAttributes(tracing.SafeAttributes(attribute.String("webhook.event_type", evt.Type))...)
	log = log.With(zap.String("event_id", evt.ID), zap.String("event_type", evt.Type))

	var outcome domain.Outcome
	switch evt.Type {
	case processordomain.EventTypePaymentIntentSucceeded:
		outcome, err = s.handleSucceeded(ctx, log, evt)
	case processordomain.EventTypePaymentIntentFailed:
		outcome, err = s.handleFailed(ctx, log, evt)
	default:
		log.Debug("webhook event ignored")
		outcome = domain.OutcomeIgnored
	}
	if err != nil {
		s.metrics.RecordWebhookEvent(ctx, evt.Type, "error")
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "reconcile failed")
		return "", err
	}

	span.SetAttributes(tracing.SafeAttributes(attribute.String("webhook.outcome", string(outcome)))...)
	s.metrics.RecordWebhookEvent(ctx, evt.Type, string(outcome))
	return outcome, nil
}

func (s *Service) handleSucceeded(ctx context.Context, log *zap.Logger, evt processordomain.Event) (domain.Outcome, error) {
	pi, err := intentOf(evt)
	if err != nil {
		return "", err
	}
	log = log.With(zap.String("payment_intent_id", pi.ID))

	if dup, err := s.history.Exists(ctx, pi.ID, evt.Type); err != nil {
		return "", err
	} else if dup {
		log.Info("duplicate webhook delivery acknowledged")
		return domain.OutcomeDuplicate, nil
	}

	release, err := s.acquire(ctx, log, pi.ID)
	if err != nil {
		return "", err
	}
	defer release(context.WithoutCancel(ctx))

	// A concurrent delivery may have recorded the row while we waited.
	if dup, err := s.history.Exists(ctx, pi.ID, evt.Type); err != nil {
		return "", err
	} else if dup {
		log.Info("duplicate webhook delivery acknowledged")
		return domain.OutcomeDuplicate, nil
	}

	req := recordRequest(evt, pi)
	inv, err := s.invoices.Generate(ctx, *pi)
	if err != nil {
		// Invoice failure is not fatal: the payment still happened.
		log.Error("invoice generation failed, recording payment without invoice", zap.Error(err))
	} else {
		req.InvoiceID = inv.ID
		req.InvoiceDetails = inv.Snapshot()
	}

	return s.record(ctx, log, req)
}

func (s *Service) handleFailed(ctx context.Context, log *zap.Logger, evt processordomain.Event) (domain.Outcome, error) {
	pi, err := intentOf(evt)
	if err != nil {
		return "", err
	}
	log = log.With(zap.String("payment_intent_id", pi.ID))
	return s.record(ctx, log, recordRequest(evt, pi))
}

func (s *Service) record(ctx context.Context, log *zap.Logger, req paymenthistorydomain.RecordRequest) (domain.Outcome, error) {
	_, inserted, err := s.history.Record(ctx, req)
	if err != nil {
		log.Error("payment history write failed", zap.Error(err))
		return "", err
	}
	if !inserted {
		log.Info("duplicate webhook delivery acknowledged")
		return domain.OutcomeDuplicate, nil
	}
	return domain.OutcomeRecorded, nil
}

// acquire takes the per-intent lock when one is configured. A lock backend
// failure degrades to running unlocked.
func (s *Service) acquire(ctx context.Context, log *zap.Logger, paymentIntentID string) (func(context.Context), error) {
	noop := func(context.Context) {}
	if s.lock == nil {
		return noop, nil
	}
	release, acquired, err := s.lock.Acquire(ctx, paymentIntentID)
	if err != nil {
		log.Warn("intent lock unavailable, continuing without it", zap.Error(err))
		return noop, nil
	}
	if !acquired {
		log.Info("another delivery for this intent is in flight")
		return noop, domain.ErrDeliveryInFlight
	}
	if release == nil {
		release = noop
	}
	return release, nil
}

func intentOf(evt processordomain.Event) (*processordomain.PaymentIntent, error) {
	if evt.PaymentIntent == nil || strings.TrimSpace(evt.PaymentIntent.ID) == "" {
		return nil, &processordomain.Error{
			Kind:    processordomain.ErrInvalidPayload,
			Op:      "reconcile",
			Message: "event does not carry a payment intent",
			Cause:   domain.ErrMissingPaymentIntent,
		}
	}
	return evt.PaymentIntent, nil
}

func recordRequest(evt processordomain.Event, pi *processordomain.PaymentIntent) paymenthistorydomain.RecordRequest {
	return paymenthistorydomain.RecordRequest{
		ProviderEventID: evt.ID,
		PaymentIntentID: pi.ID,
		EventType:       evt.Type,
		Status:          pi.Status,
		Amount:          pi.Amount,
		Currency:        pi.Currency,
		CustomerID:      pi.CustomerID,
		PaymentMethodID: pi.PaymentMethodID,
		Email:           pi.Metadata["email"],
		PaymentIntent:   pi.Snapshot(),
	}
}
