package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronoel/bolt-payment-gateway/internal/domain"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestInvoice(wallet string) *domain.Invoice {
	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	return &domain.Invoice{
		ID:              uuid.NewString(),
		WalletAddress:   wallet,
		Status:          domain.InvoiceStatusCreated,
		Amount:          4990,
		SettlementAsset: domain.SettlementAssetUSD,
		MerchantOrderID: "order-1",
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
		ExpiresAt:       &expires,
	}
}

func TestInvoiceCreateAndFind(t *testing.T) {
	repo := NewInvoiceRepo(testDB(t))

	inv := newTestInvoice("SP1MERCHANT")
	require.NoError(t, repo.Create(inv))

	got, err := repo.FindByID(inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, domain.InvoiceStatusCreated, got.Status)
	assert.Equal(t, int64(4990), got.Amount)
	assert.Equal(t, domain.SettlementAssetUSD, got.SettlementAsset)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, inv.ExpiresAt.Equal(*got.ExpiresAt))
}

func TestInvoiceFindByIDMissing(t *testing.T) {
	repo := NewInvoiceRepo(testDB(t))

	got, err := repo.FindByID("no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvoiceUpdateStatus(t *testing.T) {
	repo := NewInvoiceRepo(testDB(t))

	inv := newTestInvoice("SP1MERCHANT")
	require.NoError(t, repo.Create(inv))

	changed, err := repo.UpdateStatus(inv.ID, domain.InvoiceStatusPaid)
	require.NoError(t, err)
	assert.True(t, changed)

	// Same status again is a no-op, not an error.
	changed, err = repo.UpdateStatus(inv.ID, domain.InvoiceStatusPaid)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.UpdateStatus("no-such-id", domain.InvoiceStatusPaid)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestInvoiceFindByMerchant(t *testing.T) {
	repo := NewInvoiceRepo(testDB(t))

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		inv := newTestInvoice("SP1MERCHANT")
		inv.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if i%2 == 0 {
			inv.Status = domain.InvoiceStatusPaid
		}
		if i == 3 {
			inv.MerchantOrderID = "order-special"
		}
		require.NoError(t, repo.Create(inv))
	}
	other := newTestInvoice("SP1OTHER")
	require.NoError(t, repo.Create(other))

	invoices, total, err := repo.FindByMerchant("SP1MERCHANT", InvoiceFilter{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, invoices, 5)
	// Newest first.
	assert.True(t, invoices[0].CreatedAt.After(invoices[4].CreatedAt))

	invoices, total, err = repo.FindByMerchant("SP1MERCHANT", InvoiceFilter{
		Status: string(domain.InvoiceStatusPaid), Limit: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, invoices, 3)

	invoices, total, err = repo.FindByMerchant("SP1MERCHANT", InvoiceFilter{
		MerchantOrderID: "order-special", Limit: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, invoices, 1)

	from := base.Add(90 * time.Minute)
	to := base.Add(210 * time.Minute)
	_, total, err = repo.FindByMerchant("SP1MERCHANT", InvoiceFilter{
		From: &from, To: &to, Limit: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Pagination: total counts all matches, the page is bounded.
	invoices, total, err = repo.FindByMerchant("SP1MERCHANT", InvoiceFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, invoices, 1)
}
