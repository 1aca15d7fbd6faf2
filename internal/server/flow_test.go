package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	chargeservice "github.com/smallbiznis/offsession/internal/charge/service"
	"github.com/smallbiznis/offsession/internal/config"
	invoiceservice "github.com/smallbiznis/offsession/internal/invoice/service"
	"github.com/smallbiznis/offsession/internal/migration"
	paymenthistoryrepository "github.com/smallbiznis/offsession/internal/paymenthistory/repository"
	paymenthistoryservice "github.com/smallbiznis/offsession/internal/paymenthistory/service"
	paymentmethodrepository "github.com/smallbiznis/offsession/internal/paymentmethod/repository"
	paymentmethodservice "github.com/smallbiznis/offsession/internal/paymentmethod/service"
	processordomain "github.com/smallbiznis/offsession/internal/processor/domain"
	"github.com/smallbiznis/offsession/internal/processor/processortest"
	"github.com/smallbiznis/offsession/internal/providers/pdf"
	webhookservice "github.com/smallbiznis/offsession/internal/webhook/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newFlowRouter wires the real services over sqlite and the in-memory
// processor.
func newFlowRouter(t *testing.T) (*gin.Engine, *processortest.Gateway, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	holder, err := config.NewStaticChargePolicyHolder(config.DefaultChargePolicy())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	cfg := config.Config{
		AppName: "offsession",
		Invoice: config.InvoiceConfig{DaysUntilDue: 30, Description: "One-time payment charge"},
	}
	log := zap.NewNop()
	gw := processortest.New()

	paymentMethods := paymentmethodservice.New(paymentmethodservice.Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Repo:    paymentmethodrepository.Provide(),
		Gateway: gw,
	})
	history := paymenthistoryservice.New(paymenthistoryservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  paymenthistoryrepository.Provide(),
	})
	invoices := invoiceservice.NewService(invoiceservice.Params{
		Cfg:     cfg,
		Log:     log,
		Gateway: gw,
	})
	charges := chargeservice.New(chargeservice.Params{
		Cfg:            cfg,
		Log:            log,
		PaymentMethods: paymentMethods,
		Gateway:        gw,
		Policy:         chargeservice.NewConfigPolicy(holder),
	})
	webhooks := webhookservice.New(webhookservice.Params{
		Log:      log,
		Gateway:  gw,
		History:  history,
		Invoices: invoices,
	})

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:              router,
		Cfg:              cfg,
		Log:              log,
		PaymentMethodSvc: paymentMethods,
		ChargeSvc:        charges,
		WebhookSvc:       webhooks,
		HistorySvc:       history,
		InvoiceSvc:       invoices,
		Receipts:         pdf.New(),
	})
	return router, gw, db
}

func chargeAndDeliver(t *testing.T, router http.Handler, email, eventType string) map[string]any {
	t.Helper()

	resp := doJSON(router, http.MethodPost, "/create-payment-intent", fmt.Sprintf(`{"email":%q}`, email))
	if resp.Code != http.StatusOK {
		t.Fatalf("charge: expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	pi, ok := decode(t, resp)["paymentIntent"].(map[string]any)
	require.True(t, ok)

	event, err := json.Marshal(map[string]any{
		"id":   "evt_" + pi["id"].(string),
		"type": eventType,
		"data": map[string]any{"object": pi},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(event))
	webhookResp := httptest.NewRecorder()
	router.ServeHTTP(webhookResp, req)
	if webhookResp.Code != http.StatusOK {
		t.Fatalf("webhook: expected status 200, got %d", webhookResp.Code)
	}
	return pi
}

func listHistory(t *testing.T, router http.Handler) []map[string]any {
	t.Helper()

	resp := doJSON(router, http.MethodGet, "/payment-history", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("history: expected status 200, got %d", resp.Code)
	}
	var items []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &items))
	return items
}

func register(t *testing.T, router http.Handler, email string) {
	t.Helper()

	resp := doJSON(router, http.MethodPost, "/create-customer-payment-method", fmt.Sprintf(`{"email":%q,"paymentMethod":{"id":"pm_card"}}`, email))
	if resp.Code != http.StatusCreated {
		t.Fatalf("register: expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestFlowUSCardCharged(t *testing.T) {
	router, gw, _ := newFlowRouter(t)
	register(t, router, "us@example.com")

	pi := chargeAndDeliver(t, router, "us@example.com", processordomain.EventTypePaymentIntentSucceeded)
	assert.Equal(t, "usd", pi["currency"])
	assert.EqualValues(t, 1000, pi["amount"])

	items := listHistory(t, router)
	require.Len(t, items, 1)
	recorded, ok := items[0]["paymentIntent"].(map[string]any)
	require.True(t, ok, "expected the intent snapshot on the history entry")
	assert.Equal(t, pi["id"], recorded["id"])
	assert.EqualValues(t, 1000, recorded["amount"])
	assert.Equal(t, "usd", recorded["currency"])
	assert.NotEmpty(t, recorded["status"])
	invoice, ok := items[0]["invoiceDetails"].(map[string]any)
	require.True(t, ok, "expected an invoice on the recorded payment")
	invoiceID, ok := invoice["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, invoiceID)
	assert.NotContains(t, items[0], "payment_intent")
	assert.NotContains(t, items[0], "invoice_details")

	resp := doJSON(router, http.MethodGet, "/download-invoice/"+invoiceID, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("download: expected status 200, got %d", resp.Code)
	}
	assert.Equal(t, "https://invoice.example/"+invoiceID+".pdf", decode(t, resp)["url"])

	resp = doJSON(router, http.MethodGet, "/payment-history/"+pi["id"].(string)+"/receipt", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("receipt: expected status 200, got %d", resp.Code)
	}
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")))

	_, invoices := gw.Counts()
	assert.Equal(t, 1, invoices)
}

func TestFlowGBCardCharged(t *testing.T) {
	router, gw, _ := newFlowRouter(t)
	gw.AttachFn = func(paymentMethodID, customerID string) (processordomain.PaymentMethod, error) {
		return processordomain.PaymentMethod{
			ID:         paymentMethodID,
			CustomerID: customerID,
			Type:       "card",
			Card:       processordomain.Card{Brand: "visa", Last4: "0002", Country: "GB"},
		}, nil
	}
	register(t, router, "gb@example.com")

	pi := chargeAndDeliver(t, router, "gb@example.com", processordomain.EventTypePaymentIntentSucceeded)
	assert.Equal(t, "eur", pi["currency"])
	assert.EqualValues(t, 10000, pi["amount"])
}

func TestFlowFailedPaymentRecordedWithoutInvoice(t *testing.T) {
	router, gw, db := newFlowRouter(t)
	register(t, router, "fail@example.com")

	chargeAndDeliver(t, router, "fail@example.com", processordomain.EventTypePaymentIntentFailed)

	items := listHistory(t, router)
	require.Len(t, items, 1)
	require.Contains(t, items[0], "invoiceDetails")
	assert.Nil(t, items[0]["invoiceDetails"])
	require.IsType(t, map[string]any{}, items[0]["paymentIntent"])
	assert.Empty(t, gw.InvoiceRequests)

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM payment_history WHERE invoice_id IS NULL`).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFlowRegistrationReturnsProcessorPaymentMethod(t *testing.T) {
	router, _, _ := newFlowRouter(t)

	resp := doJSON(router, http.MethodPost, "/create-customer-payment-method", `{"email":"alice@example.com","paymentMethod":{"id":"pm_alice"}}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	created, ok := decode(t, resp)["createdPaymentMethod"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", created["email"])
	pm, ok := created["paymentMethod"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pm_alice", pm["id"])
	assert.NotEmpty(t, pm["customer"])
}

func TestFlowUnknownEmailWritesNothing(t *testing.T) {
	router, gw, _ := newFlowRouter(t)

	resp := doJSON(router, http.MethodPost, "/create-payment-intent", `{"email":"ghost@example.com"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	assert.Empty(t, gw.IntentRequests)
	assert.Empty(t, listHistory(t, router))
}

func TestFlowDuplicateRegistrationKeepsFirst(t *testing.T) {
	router, _, db := newFlowRouter(t)
	register(t, router, "dup@example.com")

	resp := doJSON(router, http.MethodPost, "/create-customer-payment-method", `{"email":"DUP@example.com","paymentMethod":{"id":"pm_other"}}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	errBody, ok := decode(t, resp)["err"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "conflict", errBody["type"])

	var pmID string
	require.NoError(t, db.Raw(`SELECT provider_payment_method_id FROM payment_methods WHERE email = ?`, "dup@example.com").Scan(&pmID).Error)
	assert.Equal(t, "pm_card", pmID)
}

func TestFlowUnknownInvoiceReturns500(t *testing.T) {
	router, gw, _ := newFlowRouter(t)
	gw.RetrieveInvoiceFn = func(invoiceID string) (processordomain.Invoice, error) {
		return processordomain.Invoice{}, &processordomain.Error{
			Kind:    processordomain.ErrNotFound,
			Op:      "retrieve_invoice",
			Message: "No such invoice: '" + invoiceID + "'",
		}
	}

	resp := doJSON(router, http.MethodGet, "/download-invoice/in_nope", "")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
	assert.NotEmpty(t, decode(t, resp)["error"])
}
