package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Insert returns false when a row for the email already exists.
	Insert(ctx context.Context, db *gorm.DB, pm *PaymentMethod) (bool, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*PaymentMethod, error)
}
