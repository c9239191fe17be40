package domain

import "time"

type InvoiceStatus string

const (
	InvoiceStatusCreated InvoiceStatus = "created"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusExpired InvoiceStatus = "expired"
	InvoiceStatusSettled InvoiceStatus = "settled"
)

// ValidInvoiceStatus reports whether s is one of the known invoice states.
func ValidInvoiceStatus(s InvoiceStatus) bool {
	switch s {
	case InvoiceStatusCreated, InvoiceStatusPaid, InvoiceStatusExpired, InvoiceStatusSettled:
		return true
	}
	return false
}

type SettlementAsset string

const (
	SettlementAssetUSD SettlementAsset = "USD"
	SettlementAssetBRL SettlementAsset = "BRL"
)

// ValidSettlementAsset reports whether a is a supported settlement asset.
func ValidSettlementAsset(a SettlementAsset) bool {
	return a == SettlementAssetUSD || a == SettlementAssetBRL
}

// Invoice is a merchant payment request denominated in fiat minor units.
type Invoice struct {
	ID              string          `json:"invoice_id"`
	WalletAddress   string          `json:"wallet_address"`
	Status          InvoiceStatus   `json:"status"`
	Amount          int64           `json:"amount"`
	SettlementAsset SettlementAsset `json:"settlement_asset"`
	MerchantOrderID string          `json:"merchant_order_id"`
	CreatedAt       time.Time       `json:"created_at"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
}

// ExpiredAt reports whether the invoice must be treated as expired at the
// given instant. An invoice past its expires_at counts as expired even when
// the persisted status still reads created (lazy expiry).
func (i *Invoice) ExpiredAt(now time.Time) bool {
	if i.Status == InvoiceStatusExpired {
		return true
	}
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}
