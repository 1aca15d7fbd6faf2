package repository

import (
	"context"

	"github.com/smallbiznis/offsession/internal/paymenthistory/domain"
	"gorm.io/gorm"
)

const recordColumns = `id, provider_event_id, payment_intent_id, event_type, status, amount,
	currency, customer_id, payment_method_id, email, invoice_id,
	payment_intent, invoice_details, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.PaymentRecord) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO payment_history (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (payment_intent_id, event_type) DO NOTHING`,
		record.ID,
		record.ProviderEventID,
		record.PaymentIntentID,
		record.EventType,
		record.Status,
		record.Amount,
		record.Currency,
		record.CustomerID,
		record.PaymentMethodID,
		record.Email,
		record.InvoiceID,
		record.PaymentIntent,
		record.InvoiceDetails,
		record.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByIntentEvent(ctx context.Context, db *gorm.DB, paymentIntentID, eventType string) (*domain.PaymentRecord, error) {
	var record domain.PaymentRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+`
		 FROM payment_history
		 WHERE payment_intent_id = ? AND event_type = ?`,
		paymentIntentID,
		eventType,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) FindByPaymentIntentID(ctx context.Context, db *gorm.DB, paymentIntentID string) ([]*domain.PaymentRecord, error) {
	var records []*domain.PaymentRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+`
		 FROM payment_history
		 WHERE payment_intent_id = ?
		 ORDER BY created_at DESC, id DESC`,
		paymentIntentID,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.PaymentRecord, error) {
	var records []*domain.PaymentRecord
	err := db.WithContext(ctx).Raw(
		`SELECT ` + recordColumns + `
		 FROM payment_history
		 ORDER BY created_at DESC, id DESC`,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
