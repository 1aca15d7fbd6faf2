package service

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/offsession/internal/charge/domain"
	"github.com/smallbiznis/offsession/internal/clock"
	"github.com/smallbiznis/offsession/internal/config"
	"github.com/smallbiznis/offsession/internal/observability/logger"
	"github.com/smallbiznis/offsession/internal/observability/metrics"
	paymentmethoddomain "github.com/smallbiznis/offsession/internal/paymentmethod/domain"
	processordomain "github.com/smallbiznis/offsession/internal/processor/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg            config.Config
	Log            *zap.Logger
	PaymentMethods paymentmethoddomain.Service
	Gateway        processordomain.Gateway
	Policy         domain.Policy
	Clock          clock.Clock      `optional:"true"`
	Limiter        domain.Limiter   `optional:"true"`
	Metrics        *metrics.Metrics `optional:"true"`
}

type Service struct {
	log            *zap.Logger
	paymentMethods paymentmethoddomain.Service
	gateway        processordomain.Gateway
	policy         domain.Policy
	clock          clock.Clock
	limiter        domain.Limiter
	metrics        *metrics.Metrics
	window         time.Duration
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		log:            p.Log.Named("charge.service"),
		paymentMethods: p.PaymentMethods,
		gateway:        p.Gateway,
		policy:         p.Policy,
		clock:          clk,
		limiter:        p.Limiter,
		metrics:        p.Metrics,
		window:         p.Cfg.Charge.IdempotencyWindow,
	}
}

// Charge submits a confirmed off-session payment intent against the card
// saved for email. It never writes payment history; the webhook reconciler
// records the terminal outcome.
func (s *Service) Charge(ctx context.Context, email string) (processordomain.PaymentIntent, error) {
	email = paymentmethoddomain.NormalizeEmail(email)
	if email == "" {
		return processordomain.PaymentIntent{}, domain.ErrInvalidEmail
	}
	log := logger.WithContext(ctx, s.log).With(zap.String("email", email))

	if s.limiter != nil {
		allowed, retryAfter, err := s.limiter.Allow(ctx, email)
		if err != nil {
			log.Warn("charge rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			s.metrics.RecordCharge(ctx, "", "rate_limited")
			return processordomain.PaymentIntent{}, &domain.RateLimitedError{RetryAfter: retryAfter}
		}
	}

	pm, err := s.paymentMethods.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, paymentmethoddomain.ErrNotFound) || errors.Is(err, paymentmethoddomain.ErrInvalidEmail) {
			s.metrics.RecordCharge(ctx, "", "not_found")
			return processordomain.PaymentIntent{}, domain.ErrPaymentMethodNotFound
		}
		return processordomain.PaymentIntent{}, err
	}

	amount := s.policy.Resolve(pm.CardCountry)
	key := IdempotencyKey(email, s.clock.Now(), s.window)

	pi, err := s.gateway.CreateConfirmedPaymentIntent(ctx, processordomain.PaymentIntentRequest{
		Currency:        amount.Currency,
		Amount:          amount.Amount,
		CustomerID:      pm.ProviderCustomerID,
		PaymentMethodID: pm.ProviderPaymentMethodID,
		IdempotencyKey:  key,
		Metadata:        map[string]string{"email": email},
	})
	if err != nil {
		kind := processordomain.KindOf(err)
		log.Warn("off-session charge failed",
			zap.String("currency", amount.Currency),
			zap.Int64("amount", amount.Amount),
			zap.String("kind", kind.Error()),
			zap.Error(err),
		)
		s.metrics.RecordCharge(ctx, amount.Currency, kind.Error())
		return processordomain.PaymentIntent{}, err
	}

	log.Info("off-session charge submitted",
		zap.String("payment_intent_id", pi.ID),
		zap.String("status", pi.Status),
		zap.String("currency", amount.Currency),
		zap.Int64("amount", amount.Amount),
	)
	s.metrics.RecordCharge(ctx, amount.Currency, "submitted")
	return pi, nil
}
