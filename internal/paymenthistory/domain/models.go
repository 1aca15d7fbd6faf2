package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentRecord is one terminal payment-intent event. Rows are append-only
// and unique per (payment_intent_id, event_type).
type PaymentRecord struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	ProviderEventID string         `gorm:"column:provider_event_id;not null" json:"event_id"`
	PaymentIntentID string         `gorm:"column:payment_intent_id;not null;uniqueIndex:ux_payment_history_intent_event,priority:1" json:"payment_intent_id"`
	EventType       string         `gorm:"column:event_type;not null;uniqueIndex:ux_payment_history_intent_event,priority:2" json:"event_type"`
	Status          string         `gorm:"not null;default:''" json:"status"`
	Amount          int64          `gorm:"not null;default:0" json:"amount"`
	Currency        string         `gorm:"not null;default:''" json:"currency"`
	CustomerID      string         `gorm:"column:customer_id;not null;default:''" json:"customer_id"`
	PaymentMethodID string         `gorm:"column:payment_method_id;not null;default:''" json:"payment_method_id"`
	Email           string         `gorm:"not null;default:''" json:"email"`
	InvoiceID       *string        `gorm:"column:invoice_id" json:"invoice_id"`
	PaymentIntent   datatypes.JSON `gorm:"column:payment_intent;type:jsonb;not null" json:"payment_intent"`
	InvoiceDetails  datatypes.JSON `gorm:"column:invoice_details;type:jsonb" json:"invoice_details"`
	CreatedAt       time.Time      `gorm:"not null;index:ix_payment_history_created_at" json:"created_at"`
}

func (PaymentRecord) TableName() string { return "payment_history" }

// HasInvoice reports whether an invoice was generated for the record.
func (r PaymentRecord) HasInvoice() bool {
	return r.InvoiceID != nil && *r.InvoiceID != "" && len(r.InvoiceDetails) > 0
}
