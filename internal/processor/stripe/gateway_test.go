package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/offsession/internal/config"
	"github.com/smallbiznis/offsession/internal/processor/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc, webhookSecret string) *Gateway {
	t.Helper()

	var baseURL string
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		baseURL = srv.URL
	}

	gw, err := New(config.StripeConfig{
		SecretKey:         "sk_test_123",
		WebhookSecret:     webhookSecret,
		APIBaseURL:        baseURL,
		Timeout:           5 * time.Second,
		MaxNetworkRetries: 0,
	}, zap.NewNop())
	require.NoError(t, err)
	return gw
}

func TestNewRequiresSecretKey(t *testing.T) {
	_, err := New(config.StripeConfig{}, zap.NewNop())
	require.Error(t, err)
}

func TestSignatureModeFollowsWebhookSecret(t *testing.T) {
	require.Equal(t, domain.SignatureModeVerified, newTestGateway(t, nil, "whsec_test").SignatureMode())
	require.Equal(t, domain.SignatureModeTrusted, newTestGateway(t, nil, "").SignatureMode())
}

func TestCreateConfirmedPaymentIntentSendsOffSessionConfirm(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.Equal(t, "charge-key", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "1000", r.PostForm.Get("amount"))
		require.Equal(t, "usd", r.PostForm.Get("currency"))
		require.Equal(t, "cus_1", r.PostForm.Get("customer"))
		require.Equal(t, "pm_1", r.PostForm.Get("payment_method"))
		require.Equal(t, "true", r.PostForm.Get("confirm"))
		require.Equal(t, "true", r.PostForm.Get("off_session"))
		require.Equal(t, "a@example.com", r.PostForm.Get("metadata[email]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","object":"payment_intent","amount":1000,"currency":"usd","status":"succeeded","customer":"cus_1","payment_method":"pm_1","created":1700000000,"metadata":{"email":"a@example.com"}}`))
	}, "whsec_test")

	pi, err := gw.CreateConfirmedPaymentIntent(context.Background(), domain.PaymentIntentRequest{
		Currency:        "usd",
		Amount:          1000,
		CustomerID:      "cus_1",
		PaymentMethodID: "pm_1",
		IdempotencyKey:  "charge-key",
		Metadata:        map[string]string{"email": "a@example.com"},
	})
	require.NoError(t, err)
	require.Equal(t, "pi_1", pi.ID)
	require.Equal(t, "succeeded", pi.Status)
	require.Equal(t, "cus_1", pi.CustomerID)
	require.Equal(t, "pm_1", pi.PaymentMethodID)
	require.Equal(t, int64(1000), pi.Amount)
	require.NotEmpty(t, pi.Raw)
}

func TestCreateConfirmedPaymentIntentCardDeclined(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","decline_code":"generic_decline","message":"Your card was declined."}}`))
	}, "whsec_test")

	_, err := gw.CreateConfirmedPaymentIntent(context.Background(), domain.PaymentIntentRequest{
		Currency: "usd", Amount: 1000, CustomerID: "cus_1", PaymentMethodID: "pm_1",
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrCardDeclined))
	require.Equal(t, "Your card was declined.", err.Error())
}

func TestCreateConfirmedPaymentIntentAuthenticationRequired(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"authentication_required","message":"This payment requires authentication."}}`))
	}, "whsec_test")

	_, err := gw.CreateConfirmedPaymentIntent(context.Background(), domain.PaymentIntentRequest{
		Currency: "eur", Amount: 10000, CustomerID: "cus_1", PaymentMethodID: "pm_1",
	})
	require.True(t, errors.Is(err, domain.ErrAuthenticationRequired))
}

func TestCreateConfirmedPaymentIntentRejectsInvalidRequest(t *testing.T) {
	gw := newTestGateway(t, nil, "whsec_test")

	_, err := gw.CreateConfirmedPaymentIntent(context.Background(), domain.PaymentIntentRequest{Currency: "usd"})
	require.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestAttachPaymentMethodReadsCard(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_methods/pm_1/attach", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "cus_1", r.PostForm.Get("customer"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pm_1","object":"payment_method","type":"card","customer":"cus_1","card":{"brand":"visa","last4":"4242","country":"GB","exp_month":12,"exp_year":2030}}`))
	}, "whsec_test")

	pm, err := gw.AttachPaymentMethod(context.Background(), "pm_1", "cus_1")
	require.NoError(t, err)
	require.Equal(t, "cus_1", pm.CustomerID)
	require.Equal(t, "GB", pm.Card.Country)
	require.Equal(t, "4242", pm.Card.Last4)
	require.Equal(t, int64(2030), pm.Card.ExpYear)
}

func TestAttachPaymentMethodUpstreamError(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such PaymentMethod: 'pm_bad'"}}`))
	}, "whsec_test")

	_, err := gw.AttachPaymentMethod(context.Background(), "pm_bad", "cus_1")
	require.True(t, errors.Is(err, domain.ErrUpstream))
	require.Contains(t, err.Error(), "No such PaymentMethod")
}

func TestRetrieveInvoiceNotFound(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/invoices/in_missing", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such invoice: 'in_missing'"}}`))
	}, "whsec_test")

	_, err := gw.RetrieveInvoice(context.Background(), "in_missing")
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestInvoiceLifecycle(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/v1/invoices":
			require.Equal(t, "send_invoice", r.PostForm.Get("collection_method"))
			require.Equal(t, "30", r.PostForm.Get("days_until_due"))
			require.Equal(t, "pm_1", r.PostForm.Get("default_payment_method"))
			_, _ = w.Write([]byte(`{"id":"in_1","object":"invoice","status":"draft","customer":"cus_1","currency":"usd"}`))
		case "/v1/invoiceitems":
			require.Equal(t, "in_1", r.PostForm.Get("invoice"))
			require.Equal(t, "1000", r.PostForm.Get("amount"))
			require.Equal(t, "One-time payment charge", r.PostForm.Get("description"))
			_, _ = w.Write([]byte(`{"id":"ii_1","object":"invoiceitem"}`))
		case "/v1/invoices/in_1/finalize":
			_, _ = w.Write([]byte(`{"id":"in_1","object":"invoice","status":"open","customer":"cus_1","currency":"usd","amount_due":1000,"invoice_pdf":"https://pay.example/in_1.pdf"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}, "whsec_test")

	ctx := context.Background()
	inv, err := gw.CreateInvoice(ctx, domain.InvoiceRequest{CustomerID: "cus_1", PaymentMethodID: "pm_1", DaysUntilDue: 30})
	require.NoError(t, err)
	require.Equal(t, "in_1", inv.ID)

	require.NoError(t, gw.CreateInvoiceItem(ctx, domain.InvoiceItemRequest{
		CustomerID: "cus_1", InvoiceID: inv.ID, Amount: 1000, Currency: "usd", Description: "One-time payment charge",
	}))

	final, err := gw.FinalizeInvoice(ctx, inv.ID, "finalize-pi_1")
	require.NoError(t, err)
	require.Equal(t, "open", final.Status)
	require.Equal(t, "https://pay.example/in_1.pdf", final.InvoicePDF)
}

func TestConstructEventVerified(t *testing.T) {
	secret := "whsec_test"
	gw := newTestGateway(t, nil, secret)
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","created":1700000000,"data":{"object":{"id":"pi_1","object":"payment_intent","amount":1000,"currency":"usd","status":"succeeded","customer":"cus_1","payment_method":"pm_1"}}}`)

	evt, err := gw.ConstructEvent(payload, buildStripeSignatureHeader(secret, payload, time.Now().Unix()))
	require.NoError(t, err)
	require.Equal(t, domain.EventTypePaymentIntentSucceeded, evt.Type)
	require.NotNil(t, evt.PaymentIntent)
	require.Equal(t, "pi_1", evt.PaymentIntent.ID)
	require.Equal(t, "cus_1", evt.PaymentIntent.CustomerID)
	require.Equal(t, "pm_1", evt.PaymentIntent.PaymentMethodID)
}

func TestConstructEventRejectsTamperedBody(t *testing.T) {
	secret := "whsec_test"
	gw := newTestGateway(t, nil, secret)
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":1000}}}`)
	header := buildStripeSignatureHeader(secret, payload, time.Now().Unix())

	tampered := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":1}}}`)
	_, err := gw.ConstructEvent(tampered, header)
	require.True(t, errors.Is(err, domain.ErrSignatureInvalid))

	_, err = gw.ConstructEvent(payload, buildStripeSignatureHeader("wrong", payload, time.Now().Unix()))
	require.True(t, errors.Is(err, domain.ErrSignatureInvalid))

	_, err = gw.ConstructEvent(payload, "")
	require.True(t, errors.Is(err, domain.ErrSignatureInvalid))
}

func TestConstructEventTrusted(t *testing.T) {
	gw := newTestGateway(t, nil, "")

	evt, err := gw.ConstructEvent([]byte(`{"type":"payment_intent.payment_failed","data":{"object":{"id":"pi_2","amount":10000,"currency":"eur","status":"requires_payment_method","customer":"cus_2"}}}`), "")
	require.NoError(t, err)
	require.Equal(t, domain.EventTypePaymentIntentFailed, evt.Type)
	require.Equal(t, "pi_2", evt.PaymentIntent.ID)
	require.Equal(t, "eur", evt.PaymentIntent.Currency)

	_, err = gw.ConstructEvent([]byte(`not json`), "")
	require.True(t, errors.Is(err, domain.ErrInvalidPayload))
}

func TestConstructEventIgnoresNonIntentObjects(t *testing.T) {
	gw := newTestGateway(t, nil, "")

	evt, err := gw.ConstructEvent([]byte(`{"type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`), "")
	require.NoError(t, err)
	require.Equal(t, "customer.created", evt.Type)
	require.Nil(t, evt.PaymentIntent)
}

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}
