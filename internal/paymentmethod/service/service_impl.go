package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/offsession/internal/clock"
	"github.com/smallbiznis/offsession/internal/observability/logger"
	"github.com/smallbiznis/offsession/internal/observability/metrics"
	"github.com/smallbiznis/offsession/internal/paymentmethod/domain"
	processordomain "github.com/smallbiznis/offsession/internal/processor/domain"
	"github.com/smallbiznis/offsession/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Gateway processordomain.Gateway
	Clock   clock.Clock      `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	gateway processordomain.Gateway
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("paymentmethod.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		gateway: p.Gateway,
		clock:   clk,
		metrics: p.Metrics,
	}
}

// Register creates a processor customer for the email, attaches the card to
// it and stores the association. The processor calls run before the insert,
// so a failure there leaves no row behind.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.PaymentMethod, error) {
	email := domain.NormalizeEmail(req.Email)
	if err := domain.ValidateEmail(email); err != nil {
		s.metrics.RecordRegistration(ctx, "invalid")
		return domain.PaymentMethod{}, err
	}
	paymentMethodID := strings.TrimSpace(req.PaymentMethodID)
	if paymentMethodID == "" {
		s.metrics.RecordRegistration(ctx, "invalid")
		return domain.PaymentMethod{}, domain.ErrInvalidPaymentMethod
	}

	log := logger.WithContext(ctx, s.log).With(zap.String("email", email))

	existing, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	if existing != nil {
		s.metrics.RecordRegistration(ctx, "duplicate")
		return domain.PaymentMethod{}, domain.ErrAlreadyRegistered
	}

	customer, err := s.gateway.CreateCustomer(ctx, email)
	if err != nil {
		log.Warn("create customer failed", zap.Error(err))
		s.metrics.RecordRegistration(ctx, "upstream_error")
		return domain.PaymentMethod{}, err
	}

	attached, err := s.gateway.AttachPaymentMethod(ctx, paymentMethodID, customer.ID)
	if err != nil {
		log.Warn("attach payment method failed",
			zap.String("customer_id", customer.ID),
			zap.Error(err),
		)
		s.metrics.RecordRegistration(ctx, "upstream_error")
		return domain.PaymentMethod{}, err
	}

	pm := domain.PaymentMethod{
		ID:                      s.genID.Generate(),
		Email:                   email,
		Provider:                "stripe",
		ProviderCustomerID:      customer.ID,
		ProviderPaymentMethodID: attached.ID,
		CardBrand:               attached.Card.Brand,
		CardLast4:               attached.Card.Last4,
		CardCountry:             strings.ToUpper(attached.Card.Country),
		CardExpMonth:            attached.Card.ExpMonth,
		CardExpYear:             attached.Card.ExpYear,
		Raw:                     rawOrEmpty(attached.Raw),
		CreatedAt:               s.clock.Now().UTC(),
	}
	if pm.ProviderPaymentMethodID == "" {
		pm.ProviderPaymentMethodID = paymentMethodID
	}

	inserted, err := s.repo.Insert(ctx, s.db, &pm)
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.metrics.RecordRegistration(ctx, "duplicate")
			return domain.PaymentMethod{}, domain.ErrAlreadyRegistered
		}
		return domain.PaymentMethod{}, err
	}
	if !inserted {
		s.metrics.RecordRegistration(ctx, "duplicate")
		return domain.PaymentMethod{}, domain.ErrAlreadyRegistered
	}

	log.Info("payment method registered",
		zap.String("customer_id", pm.ProviderCustomerID),
		zap.String("payment_method_id", pm.ProviderPaymentMethodID),
		zap.String("card_country", pm.CardCountry),
	)
	s.metrics.RecordRegistration(ctx, "registered")
	return pm, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.PaymentMethod, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrInvalidEmail
	}
	pm, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if pm == nil {
		return nil, domain.ErrNotFound
	}
	return pm, nil
}

func rawOrEmpty(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
