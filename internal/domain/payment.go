package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusAccepted  PaymentStatus = "accepted"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
)

type PaymentToken string

const (
	PaymentTokenSBTC PaymentToken = "sBTC"
	PaymentTokenUSDT PaymentToken = "USDT"
)

// ValidPaymentToken reports whether t is a supported payment asset.
func ValidPaymentToken(t PaymentToken) bool {
	return t == PaymentTokenSBTC || t == PaymentTokenUSDT
}

// Payment is a single settlement attempt against an invoice. Amount is in
// integer base-asset units (satoshis for sBTC). A payment row is never
// deleted: rejected rows remain as an audit trail.
type Payment struct {
	ID            string        `json:"payment_id"`
	InvoiceID     string        `json:"invoice_id"`
	Status        PaymentStatus `json:"status"`
	Asset         PaymentToken  `json:"asset"`
	Amount        int64         `json:"amount"`
	SenderAddress string        `json:"sender_address,omitempty"`
	TxID          string        `json:"tx_id,omitempty"`
	ReceivedAt    time.Time     `json:"received_at"`
}

// NewPayment builds a payment in the accepted state, the entry state of the
// submission workflow.
func NewPayment(invoiceID string, asset PaymentToken, amount int64, receivedAt time.Time) *Payment {
	return &Payment{
		ID:         uuid.NewString(),
		InvoiceID:  invoiceID,
		Status:     PaymentStatusAccepted,
		Asset:      asset,
		Amount:     amount,
		ReceivedAt: receivedAt,
	}
}
