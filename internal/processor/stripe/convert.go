package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smallbiznis/offsession/internal/processor/domain"
	stripe "github.com/stripe/stripe-go/v82"
)

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &domain.Error{
			Kind:    domain.ErrUpstream,
			Op:      op,
			Code:    "timeout",
			Message: "payment processor did not respond in time",
			Cause:   err,
		}
	}

	var se *stripe.Error
	if !errors.As(err, &se) {
		return &domain.Error{Kind: domain.ErrUpstream, Op: op, Message: err.Error(), Cause: err}
	}

	kind := domain.ErrUpstream
	switch {
	case se.Code == stripe.ErrorCodeAuthenticationRequired:
		kind = domain.ErrAuthenticationRequired
	case se.Code == stripe.ErrorCodeCardDeclined, se.Type == stripe.ErrorTypeCard:
		kind = domain.ErrCardDeclined
	}

	return &domain.Error{
		Kind:    kind,
		Op:      op,
		Code:    string(se.Code),
		Message: se.Msg,
		Status:  se.HTTPStatusCode,
		Cause:   err,
	}
}

func isMissing(pe *domain.Error) bool {
	return pe.Code == string(stripe.ErrorCodeResourceMissing) || pe.Status == http.StatusNotFound
}

func rawJSON(resource stripe.APIResource, fallback any) json.RawMessage {
	if resource.LastResponse != nil && len(resource.LastResponse.RawJSON) > 0 {
		return json.RawMessage(resource.LastResponse.RawJSON)
	}
	b, err := json.Marshal(fallback)
	if err != nil {
		return nil
	}
	return b
}

func toPaymentMethod(pm *stripe.PaymentMethod) domain.PaymentMethod {
	if pm == nil {
		return domain.PaymentMethod{}
	}
	out := domain.PaymentMethod{
		ID:   pm.ID,
		Type: string(pm.Type),
		Raw:  rawJSON(pm.APIResource, pm),
	}
	if pm.Customer != nil {
		out.CustomerID = pm.Customer.ID
	}
	if pm.Card != nil {
		out.Card = domain.Card{
			Brand:    string(pm.Card.Brand),
			Last4:    pm.Card.Last4,
			Country:  pm.Card.Country,
			ExpMonth: pm.Card.ExpMonth,
			ExpYear:  pm.Card.ExpYear,
		}
	}
	return out
}

func toPaymentIntent(pi *stripe.PaymentIntent) domain.PaymentIntent {
	if pi == nil {
		return domain.PaymentIntent{}
	}
	out := domain.PaymentIntent{
		ID:       pi.ID,
		Status:   string(pi.Status),
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
		Created:  pi.Created,
		Metadata: pi.Metadata,
		Raw:      rawJSON(pi.APIResource, pi),
	}
	if pi.Customer != nil {
		out.CustomerID = pi.Customer.ID
	}
	if pi.PaymentMethod != nil {
		out.PaymentMethodID = pi.PaymentMethod.ID
	}
	return out
}

func toInvoice(inv *stripe.Invoice) domain.Invoice {
	if inv == nil {
		return domain.Invoice{}
	}
	out := domain.Invoice{
		ID:               inv.ID,
		Number:           inv.Number,
		Status:           string(inv.Status),
		AmountDue:        inv.AmountDue,
		Currency:         string(inv.Currency),
		HostedInvoiceURL: inv.HostedInvoiceURL,
		InvoicePDF:       inv.InvoicePDF,
		Raw:              rawJSON(inv.APIResource, inv),
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	return out
}
