package repository

import (
	"context"

	"github.com/smallbiznis/offsession/internal/paymentmethod/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, pm *domain.PaymentMethod) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO payment_methods (
			id, email, provider, provider_customer_id, provider_payment_method_id,
			card_brand, card_last4, card_country, card_exp_month, card_exp_year,
			raw, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING`,
		pm.ID,
		pm.Email,
		pm.Provider,
		pm.ProviderCustomerID,
		pm.ProviderPaymentMethodID,
		pm.CardBrand,
		pm.CardLast4,
		pm.CardCountry,
		pm.CardExpMonth,
		pm.CardExpYear,
		pm.Raw,
		pm.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, provider, provider_customer_id, provider_payment_method_id,
			card_brand, card_last4, card_country, card_exp_month, card_exp_year,
			raw, created_at
		 FROM payment_methods WHERE email = ?`,
		email,
	).Scan(&pm).Error
	if err != nil {
		return nil, err
	}
	if pm.ID == 0 {
		return nil, nil
	}
	return &pm, nil
}
