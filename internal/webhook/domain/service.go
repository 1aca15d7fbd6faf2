package domain

import (
	"context"
	"errors"
)

// Outcome is the terminal state of one delivery. Every outcome is
// acknowledged with 200.
type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

type Service interface {
	Reconcile(ctx context.Context, payload []byte, signatureHeader string) (Outcome, error)
}

// Lock serialises deliveries of the same payment intent.
type Lock interface {
	Acquire(ctx context.Context, paymentIntentID string) (release func(context.Context), acquired bool, err error)
}

var (
	ErrMissingPaymentIntent = errors.New("missing_payment_intent")
	ErrDeliveryInFlight     = errors.New("delivery_in_flight")
)
