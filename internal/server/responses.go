package server

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	paymenthistorydomain "github.com/smallbiznis/offsession/internal/paymenthistory/domain"
	paymentmethoddomain "github.com/smallbiznis/offsession/internal/paymentmethod/domain"
)

// paymentMethodResponse carries the processor's payment method object as-is
// under paymentMethod.
type paymentMethodResponse struct {
	ID            snowflake.ID    `json:"id"`
	Email         string          `json:"email"`
	PaymentMethod json.RawMessage `json:"paymentMethod"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type paymentMethodFallback struct {
	ID       string `json:"id"`
	Object   string `json:"object"`
	Type     string `json:"type"`
	Customer string `json:"customer"`
	Card     struct {
		Brand    string `json:"brand"`
		Last4    string `json:"last4"`
		Country  string `json:"country"`
		ExpMonth int64  `json:"exp_month"`
		ExpYear  int64  `json:"exp_year"`
	} `json:"card"`
}

func newPaymentMethodResponse(pm paymentmethoddomain.PaymentMethod) paymentMethodResponse {
	return paymentMethodResponse{
		ID:            pm.ID,
		Email:         pm.Email,
		PaymentMethod: paymentMethodObject(pm),
		CreatedAt:     pm.CreatedAt,
	}
}

// paymentMethodObject rebuilds a minimal object from the stored columns when
// no processor snapshot was kept.
func paymentMethodObject(pm paymentmethoddomain.PaymentMethod) json.RawMessage {
	if raw := bytes.TrimSpace(pm.Raw); len(raw) > 0 && !bytes.Equal(raw, []byte("{}")) && !bytes.Equal(raw, []byte("null")) {
		return json.RawMessage(raw)
	}

	out := paymentMethodFallback{
		ID:       pm.ProviderPaymentMethodID,
		Object:   "payment_method",
		Type:     "card",
		Customer: pm.ProviderCustomerID,
	}
	out.Card.Brand = pm.CardBrand
	out.Card.Last4 = pm.CardLast4
	out.Card.Country = pm.CardCountry
	out.Card.ExpMonth = pm.CardExpMonth
	out.Card.ExpYear = pm.CardExpYear

	b, err := json.Marshal(out)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

// paymentHistoryResponse is one history entry: the intent snapshot and the
// invoice snapshot, null when no invoice was generated.
type paymentHistoryResponse struct {
	ID             snowflake.ID    `json:"id"`
	PaymentIntent  json.RawMessage `json:"paymentIntent"`
	InvoiceDetails json.RawMessage `json:"invoiceDetails"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func newPaymentHistoryResponse(record paymenthistorydomain.PaymentRecord) paymentHistoryResponse {
	resp := paymentHistoryResponse{
		ID:        record.ID,
		CreatedAt: record.CreatedAt,
	}
	if len(record.PaymentIntent) > 0 {
		resp.PaymentIntent = json.RawMessage(record.PaymentIntent)
	}
	if record.HasInvoice() {
		resp.InvoiceDetails = json.RawMessage(record.InvoiceDetails)
	}
	return resp
}

func newPaymentHistoryResponses(records []paymenthistorydomain.PaymentRecord) []paymentHistoryResponse {
	out := make([]paymentHistoryResponse, 0, len(records))
	for _, record := range records {
		out = append(out, newPaymentHistoryResponse(record))
	}
	return out
}
