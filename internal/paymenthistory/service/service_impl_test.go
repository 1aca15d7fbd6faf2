package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/offsession/internal/clock"
	"github.com/smallbiznis/offsession/internal/migration"
	"github.com/smallbiznis/offsession/internal/paymenthistory/domain"
	"github.com/smallbiznis/offsession/internal/paymenthistory/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memoryCache struct {
	records     []domain.PaymentRecord
	ok          bool
	invalidated int
}

func (c *memoryCache) Get(context.Context) ([]domain.PaymentRecord, bool) {
	return c.records, c.ok
}

func (c *memoryCache) Set(_ context.Context, records []domain.PaymentRecord) {
	c.records = records
	c.ok = true
}

func (c *memoryCache) Invalidate(context.Context) {
	c.records = nil
	c.ok = false
	c.invalidated++
}

func setupService(t *testing.T, cache domain.ListCache) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

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
	clk := clock.NewFakeClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
		Cache: cache,
	})
	return svc, db, clk
}

func successRequest(intentID string) domain.RecordRequest {
	return domain.RecordRequest{
		ProviderEventID: "evt_" + intentID,
		PaymentIntentID: intentID,
		EventType:       "payment_intent.succeeded",
		Status:          "succeeded",
		Amount:          1000,
		Currency:        "USD",
		CustomerID:      "cus_1",
		PaymentMethodID: "pm_1",
		Email:           "a@example.com",
		InvoiceID:       "in_1",
		PaymentIntent:   json.RawMessage(`{"id":"` + intentID + `"}`),
		InvoiceDetails:  json.RawMessage(`{"id":"in_1","status":"open"}`),
	}
}

func TestRecordIsUniquePerIntentAndEvent(t *testing.T) {
	svc, db, _ := setupService(t, nil)
	ctx := context.Background()

	first, inserted, err := svc.Record(ctx, successRequest("pi_1"))
	require.NoError(t, err)
	require.True(t, inserted)
	require.True(t, first.HasInvoice())
	assert.Equal(t, "usd", first.Currency)

	second, inserted, err := svc.Record(ctx, successRequest("pi_1"))
	require.NoError(t, err)
	require.False(t, inserted)
	assert.Equal(t, first.ID, second.ID)

	failed := successRequest("pi_1")
	failed.EventType = "payment_intent.payment_failed"
	_, inserted, err = svc.Record(ctx, failed)
	require.NoError(t, err)
	require.True(t, inserted)

	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM payment_history WHERE payment_intent_id = ?`, "pi_1").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}

func TestRecordWithoutInvoiceStoresNull(t *testing.T) {
	svc, db, _ := setupService(t, nil)

	req := successRequest("pi_2")
	req.EventType = "payment_intent.payment_failed"
	req.InvoiceID = ""
	req.InvoiceDetails = nil

	record, inserted, err := svc.Record(context.Background(), req)
	require.NoError(t, err)
	require.True(t, inserted)
	require.False(t, record.HasInvoice())

	var nulls int64
	if err := db.Raw(`SELECT COUNT(*) FROM payment_history WHERE invoice_id IS NULL AND invoice_details IS NULL`).Scan(&nulls).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if nulls != 1 {
		t.Fatalf("expected null invoice columns, got %d rows", nulls)
	}
}

func TestRecordRejectsMissingKeys(t *testing.T) {
	svc, _, _ := setupService(t, nil)

	_, _, err := svc.Record(context.Background(), domain.RecordRequest{EventType: "payment_intent.succeeded"})
	require.ErrorIs(t, err, domain.ErrInvalidPaymentIntent)

	_, _, err = svc.Record(context.Background(), domain.RecordRequest{PaymentIntentID: "pi_1"})
	require.ErrorIs(t, err, domain.ErrInvalidEventType)
}

func TestListNewestFirst(t *testing.T) {
	svc, _, clk := setupService(t, nil)
	ctx := context.Background()

	for _, id := range []string{"pi_a", "pi_b", "pi_c"} {
		_, _, err := svc.Record(ctx, successRequest(id))
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}

	records, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "pi_c", records[0].PaymentIntentID)
	assert.Equal(t, "pi_b", records[1].PaymentIntentID)
	assert.Equal(t, "pi_a", records[2].PaymentIntentID)
}

func TestListUsesCacheUntilInsert(t *testing.T) {
	cache := &memoryCache{}
	svc, _, _ := setupService(t, cache)
	ctx := context.Background()

	_, _, err := svc.Record(ctx, successRequest("pi_1"))
	require.NoError(t, err)
	require.Equal(t, 1, cache.invalidated)

	records, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, cache.ok)

	cache.records = append(cache.records, domain.PaymentRecord{PaymentIntentID: "pi_cached"})
	records, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	_, _, err = svc.Record(ctx, successRequest("pi_2"))
	require.NoError(t, err)
	require.Equal(t, 2, cache.invalidated)

	records, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "pi_2", records[0].PaymentIntentID)
}

func TestExistsAndLatest(t *testing.T) {
	svc, _, clk := setupService(t, nil)
	ctx := context.Background()

	ok, err := svc.Exists(ctx, "pi_1", "payment_intent.succeeded")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.Latest(ctx, "pi_1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	failed := successRequest("pi_1")
	failed.EventType = "payment_intent.payment_failed"
	_, _, err = svc.Record(ctx, failed)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, _, err = svc.Record(ctx, successRequest("pi_1"))
	require.NoError(t, err)

	ok, err = svc.Exists(ctx, "pi_1", "payment_intent.succeeded")
	require.NoError(t, err)
	require.True(t, ok)

	latest, err := svc.Latest(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.succeeded", latest.EventType)
}
