package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Insert returns false when a record for the same intent and event type
	// already exists.
	Insert(ctx context.Context, db *gorm.DB, record *PaymentRecord) (bool, error)
	FindByIntentEvent(ctx context.Context, db *gorm.DB, paymentIntentID, eventType string) (*PaymentRecord, error)
	FindByPaymentIntentID(ctx context.Context, db *gorm.DB, paymentIntentID string) ([]*PaymentRecord, error)
	List(ctx context.Context, db *gorm.DB) ([]*PaymentRecord, error)
}
