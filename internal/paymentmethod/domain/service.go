package domain

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

type RegisterRequest struct {
	Email           string
	PaymentMethodID string
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (PaymentMethod, error)
	GetByEmail(ctx context.Context, email string) (*PaymentMethod, error)
}

var (
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrAlreadyRegistered    = errors.New("already_registered")
	ErrNotFound             = errors.New("not_found")
)

// NormalizeEmail trims and lowercases an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail reports whether email is a single bare address.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}
