package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentMethod is the saved card for one email. At most one row exists per
// normalized email.
type PaymentMethod struct {
	ID                      snowflake.ID   `gorm:"primaryKey" json:"id"`
	Email                   string         `gorm:"not null;uniqueIndex:ux_payment_methods_email" json:"email"`
	Provider                string         `gorm:"not null;default:'stripe'" json:"provider"`
	ProviderCustomerID      string         `gorm:"column:provider_customer_id;not null" json:"customer_id"`
	ProviderPaymentMethodID string         `gorm:"column:provider_payment_method_id;not null" json:"payment_method_id"`
	CardBrand               string         `gorm:"column:card_brand;not null;default:''" json:"card_brand"`
	CardLast4               string         `gorm:"column:card_last4;not null;default:''" json:"card_last4"`
	CardCountry             string         `gorm:"column:card_country;not null;default:''" json:"card_country"`
	CardExpMonth            int64          `gorm:"column:card_exp_month;not null;default:0" json:"card_exp_month"`
	CardExpYear             int64          `gorm:"column:card_exp_year;not null;default:0" json:"card_exp_year"`
	Raw                     datatypes.JSON `gorm:"type:jsonb" json:"-"`
	CreatedAt               time.Time      `gorm:"not null" json:"created_at"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }
