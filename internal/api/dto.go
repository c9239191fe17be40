package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ronoel/bolt-payment-gateway/internal/domain"
	"github.com/ronoel/bolt-payment-gateway/internal/money"
)

type createInvoiceRequest struct {
	Amount          string `json:"amount"`
	SettlementAsset string `json:"settlement_asset"`
	MerchantOrderID string `json:"merchant_order_id"`
}

type invoiceResponse struct {
	InvoiceID       string     `json:"invoice_id"`
	Status          string     `json:"status"`
	Amount          string     `json:"amount"`
	SettlementAsset string     `json:"settlement_asset"`
	MerchantOrderID string     `json:"merchant_order_id"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CheckoutURL     string     `json:"checkout_url"`
}

func newInvoiceResponse(inv *domain.Invoice) invoiceResponse {
	return invoiceResponse{
		InvoiceID:       inv.ID,
		Status:          string(inv.Status),
		Amount:          money.Format(inv.Amount),
		SettlementAsset: string(inv.SettlementAsset),
		MerchantOrderID: inv.MerchantOrderID,
		CreatedAt:       inv.CreatedAt,
		ExpiresAt:       inv.ExpiresAt,
		CheckoutURL:     fmt.Sprintf("https://pay.example.com/i/%s", inv.ID),
	}
}

type listInvoicesResponse struct {
	Items  []invoiceResponse `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type submitPaymentRequest struct {
	SerializedTransaction string `json:"serialized_transaction"`
	Asset                 string `json:"asset"`
	Amount                string `json:"amount"`
}

type paymentResponse struct {
	PaymentID     string    `json:"payment_id"`
	InvoiceID     string    `json:"invoice_id"`
	Status        string    `json:"status"`
	Asset         string    `json:"asset"`
	Amount        string    `json:"amount"`
	SenderAddress string    `json:"sender_address,omitempty"`
	TxID          string    `json:"tx_id,omitempty"`
	ReceivedAt    time.Time `json:"received_at"`
}

func newPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		PaymentID:     p.ID,
		InvoiceID:     p.InvoiceID,
		Status:        string(p.Status),
		Asset:         string(p.Asset),
		Amount:        strconv.FormatInt(p.Amount, 10),
		SenderAddress: p.SenderAddress,
		TxID:          p.TxID,
		ReceivedAt:    p.ReceivedAt,
	}
}

type quoteResponse struct {
	FromAsset   string    `json:"from_asset"`
	ToAsset     string    `json:"to_asset"`
	FromAmount  string    `json:"from_amount"`
	ToAmount    string    `json:"to_amount"`
	UnitPrice   string    `json:"unit_price"`
	Spread      string    `json:"spread"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

type errorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	RequiredAmount string `json:"required_amount,omitempty"`
}
