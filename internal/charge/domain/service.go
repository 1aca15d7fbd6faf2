package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	processordomain "github.com/smallbiznis/offsession/internal/processor/domain"
)

// Amount is what one off-session charge collects, in the smallest currency
// unit.
type Amount struct {
	Currency string
	Amount   int64
}

// Policy maps a card issuing country to the charge amount. Implementations
// must be pure: the same country always yields the same Amount.
type Policy interface {
	Resolve(country string) Amount
}

// Limiter bounds how often one email may be charged.
type Limiter interface {
	Allow(ctx context.Context, email string) (bool, time.Duration, error)
}

type Service interface {
	Charge(ctx context.Context, email string) (processordomain.PaymentIntent, error)
}

var (
	ErrPaymentMethodNotFound = errors.New("payment_method_not_found")
	ErrInvalidEmail          = errors.New("invalid_email")
	ErrRateLimited           = errors.New("rate_limited")
)

// RateLimitedError carries the wait hint for a throttled charge.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("too many charge attempts, retry after %s", e.RetryAfter.Round(time.Second))
	}
	return "too many charge attempts"
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
