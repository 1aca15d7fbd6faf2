package domain

import (
	"context"
	"encoding/json"
	"errors"
)

type RecordRequest struct {
	ProviderEventID string
	PaymentIntentID string
	EventType       string
	Status          string
	Amount          int64
	Currency        string
	CustomerID      string
	PaymentMethodID string
	Email           string
	InvoiceID       string
	PaymentIntent   json.RawMessage
	InvoiceDetails  json.RawMessage
}

type Service interface {
	// Record stores a terminal event. The bool is false when the event was
	// already recorded.
	Record(ctx context.Context, req RecordRequest) (PaymentRecord, bool, error)
	Exists(ctx context.Context, paymentIntentID, eventType string) (bool, error)
	List(ctx context.Context) ([]PaymentRecord, error)
	// Latest returns the most recent record for the intent.
	Latest(ctx context.Context, paymentIntentID string) (PaymentRecord, error)
}

var (
	ErrInvalidPaymentIntent = errors.New("invalid_payment_intent")
	ErrInvalidEventType     = errors.New("invalid_event_type")
	ErrNotFound             = errors.New("not_found")
)
