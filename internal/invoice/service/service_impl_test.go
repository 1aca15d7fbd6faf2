package service

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/offsession/internal/config"
	"github.com/smallbiznis/offsession/internal/invoice/domain"
	processordomain "github.com/smallbiznis/offsession/internal/processor/domain"
	"github.com/smallbiznis/offsession/internal/processor/processortest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(gw processordomain.Gateway) domain.Service {
	return NewService(Params{
		Cfg:     config.Config{Invoice: config.InvoiceConfig{DaysUntilDue: 30, Description: "One-time payment charge"}},
		Log:     zap.NewNop(),
		Gateway: gw,
	})
}

func succeededIntent() processordomain.PaymentIntent {
	return processordomain.PaymentIntent{
		ID:              "pi_1",
		Status:          "succeeded",
		Amount:          1000,
		Currency:        "usd",
		CustomerID:      "cus_1",
		PaymentMethodID: "pm_1",
	}
}

func TestGenerateCreatesFillsAndFinalizes(t *testing.T) {
	gw := processortest.New()
	svc := newTestService(gw)

	inv, err := svc.Generate(context.Background(), succeededIntent())
	require.NoError(t, err)
	assert.Equal(t, "open", inv.Status)
	assert.NotEmpty(t, inv.InvoicePDF)

	require.Len(t, gw.InvoiceRequests, 1)
	created := gw.InvoiceRequests[0]
	assert.Equal(t, "cus_1", created.CustomerID)
	assert.Equal(t, "pm_1", created.PaymentMethodID)
	assert.Equal(t, int64(30), created.DaysUntilDue)
	assert.Equal(t, "invoice-pi_1", created.IdempotencyKey)

	require.Len(t, gw.InvoiceItemRequests, 1)
	item := gw.InvoiceItemRequests[0]
	assert.Equal(t, inv.ID, item.InvoiceID)
	assert.Equal(t, int64(1000), item.Amount)
	assert.Equal(t, "usd", item.Currency)
	assert.Equal(t, "One-time payment charge", item.Description)
	assert.Equal(t, "invoiceitem-pi_1", item.IdempotencyKey)

	require.Equal(t, []string{inv.ID}, gw.FinalizedInvoices)
}

func TestGenerateRedeliveryReusesProcessorInvoice(t *testing.T) {
	gw := processortest.New()
	svc := newTestService(gw)

	first, err := svc.Generate(context.Background(), succeededIntent())
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), succeededIntent())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestGenerateStopsOnUpstreamFailure(t *testing.T) {
	gw := processortest.New()
	gw.CreateInvoiceItemFn = func(processordomain.InvoiceItemRequest) error {
		return &processordomain.Error{Kind: processordomain.ErrUpstream, Op: "create_invoice_item", Message: "boom"}
	}
	svc := newTestService(gw)

	_, err := svc.Generate(context.Background(), succeededIntent())
	require.Error(t, err)
	assert.True(t, errors.Is(err, processordomain.ErrUpstream))
	assert.Empty(t, gw.FinalizedInvoices)
}

func TestGenerateRejectsIntentWithoutCustomer(t *testing.T) {
	gw := processortest.New()
	svc := newTestService(gw)

	pi := succeededIntent()
	pi.CustomerID = ""
	_, err := svc.Generate(context.Background(), pi)
	require.ErrorIs(t, err, domain.ErrMissingCustomer)
	assert.Empty(t, gw.InvoiceRequests)
}

func TestResolvePDF(t *testing.T) {
	gw := processortest.New()
	gw.RetrieveInvoiceFn = func(id string) (processordomain.Invoice, error) {
		switch id {
		case "in_1":
			return processordomain.Invoice{ID: id, InvoicePDF: "https://pay.example/in_1.pdf"}, nil
		case "in_draft":
			return processordomain.Invoice{ID: id}, nil
		default:
			return processordomain.Invoice{}, &processordomain.Error{Kind: processordomain.ErrNotFound, Op: "retrieve_invoice", Message: "No such invoice"}
		}
	}
	svc := newTestService(gw)

	url, err := svc.ResolvePDF(context.Background(), "in_1")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/in_1.pdf", url)

	_, err = svc.ResolvePDF(context.Background(), "in_missing")
	assert.True(t, errors.Is(err, processordomain.ErrNotFound))

	_, err = svc.ResolvePDF(context.Background(), "in_draft")
	assert.ErrorIs(t, err, domain.ErrPDFUnavailable)
}
