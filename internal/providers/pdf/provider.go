package pdf

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/smallbiznis/offsession/internal/invoice/format"
	paymenthistorydomain "github.com/smallbiznis/offsession/internal/paymenthistory/domain"
)

// Renderer turns a recorded payment into a printable document.
type Renderer interface {
	RenderReceipt(ctx context.Context, data ReceiptData) ([]byte, error)
}

type ReceiptData struct {
	MerchantName    string
	ReceiptNumber   string
	PaymentIntentID string
	Email           string
	Status          string
	Succeeded       bool
	Amount          string
	Description     string
	Date            string
	InvoiceID       string
	InvoiceNumber   string
	InvoiceStatus   string
}

// ReceiptFromRecord builds receipt fields from the stored snapshot only, so a
// receipt is available even when invoice generation failed.
func ReceiptFromRecord(record paymenthistorydomain.PaymentRecord, merchantName, description string) ReceiptData {
	data := ReceiptData{
		MerchantName:    merchantName,
		ReceiptNumber:   "RCPT-" + strings.TrimPrefix(record.PaymentIntentID, "pi_"),
		PaymentIntentID: record.PaymentIntentID,
		Email:           record.Email,
		Status:          record.Status,
		Succeeded:       record.EventType == "payment_intent.succeeded",
		Amount:          format.FormatAmount(record.Amount, record.Currency),
		Description:     description,
		Date:            record.CreatedAt.UTC().Format(time.RFC1123),
	}
	if record.HasInvoice() {
		data.InvoiceID = *record.InvoiceID
		var inv struct {
			Number string `json:"number"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(record.InvoiceDetails, &inv); err == nil {
			data.InvoiceNumber = inv.Number
			data.InvoiceStatus = inv.Status
		}
	}
	return data
}
