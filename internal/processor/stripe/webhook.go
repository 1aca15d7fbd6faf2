package stripe

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/smallbiznis/offsession/internal/processor/domain"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// trustedEvent is the subset of an event body read when no signing secret
// is configured.
type trustedEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ConstructEvent authenticates and decodes a webhook delivery. In verified
// mode the signature header must match the raw payload.
func (g *Gateway) ConstructEvent(payload []byte, signatureHeader string) (domain.Event, error) {
	if g.mode == domain.SignatureModeTrusted {
		return decodeTrustedEvent(payload)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, strings.TrimSpace(signatureHeader), g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		kind := domain.ErrInvalidPayload
		if isSignatureFailure(err) {
			kind = domain.ErrSignatureInvalid
		}
		return domain.Event{}, &domain.Error{Kind: kind, Op: "construct_event", Message: err.Error(), Cause: err}
	}

	out := domain.Event{
		ID:      evt.ID,
		Type:    string(evt.Type),
		Created: evt.Created,
		Raw:     json.RawMessage(payload),
	}
	if evt.Data != nil && isPaymentIntentEvent(out.Type) {
		pi, err := decodePaymentIntent(evt.Data.Raw)
		if err != nil {
			return domain.Event{}, err
		}
		out.PaymentIntent = pi
	}
	return out, nil
}

func decodeTrustedEvent(payload []byte) (domain.Event, error) {
	var body trustedEvent
	if err := json.Unmarshal(payload, &body); err != nil {
		return domain.Event{}, &domain.Error{Kind: domain.ErrInvalidPayload, Op: "construct_event", Message: "webhook body is not valid JSON", Cause: err}
	}
	if strings.TrimSpace(body.Type) == "" {
		return domain.Event{}, &domain.Error{Kind: domain.ErrInvalidPayload, Op: "construct_event", Message: "webhook body has no event type"}
	}

	out := domain.Event{
		ID:      body.ID,
		Type:    body.Type,
		Created: body.Created,
		Raw:     json.RawMessage(payload),
	}
	if isPaymentIntentEvent(body.Type) && len(body.Data.Object) > 0 {
		pi, err := decodePaymentIntent(body.Data.Object)
		if err != nil {
			return domain.Event{}, err
		}
		out.PaymentIntent = pi
	}
	return out, nil
}

func decodePaymentIntent(raw json.RawMessage) (*domain.PaymentIntent, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(raw, &pi); err != nil {
		return nil, &domain.Error{Kind: domain.ErrInvalidPayload, Op: "decode_payment_intent", Message: "event object is not a payment intent", Cause: err}
	}
	if strings.TrimSpace(pi.ID) == "" {
		return nil, &domain.Error{Kind: domain.ErrInvalidPayload, Op: "decode_payment_intent", Message: "payment intent id is missing"}
	}
	out := toPaymentIntent(&pi)
	out.Raw = append(json.RawMessage(nil), raw...)
	return &out, nil
}

func isPaymentIntentEvent(eventType string) bool {
	return strings.HasPrefix(eventType, "payment_intent.")
}

func isSignatureFailure(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld)
}
