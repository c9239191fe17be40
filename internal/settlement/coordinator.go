// Package settlement orchestrates the payment-submission workflow: invoice
// validation, quoting, payment acceptance, broadcast, confirmation and the
// final invoice transition. It is the only component that spans both stores
// and the network call.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/ronoel/bolt-payment-gateway/internal/bolt"
	"github.com/ronoel/bolt-payment-gateway/internal/domain"
	"github.com/ronoel/bolt-payment-gateway/internal/money"
	"github.com/ronoel/bolt-payment-gateway/internal/observability"
	"github.com/ronoel/bolt-payment-gateway/internal/quote"
)

// InvoiceStore is the invoice persistence contract the coordinator needs.
type InvoiceStore interface {
	FindByID(id string) (*domain.Invoice, error)
	UpdateStatus(id string, status domain.InvoiceStatus) (bool, error)
}

// PaymentStore is the payment persistence contract. Create must detect a
// second active payment atomically and return
// domain.ErrDuplicateActivePayment; Confirm must be an atomic
// accepted-to-confirmed transition returning nil when the payment was
// already finalized.
type PaymentStore interface {
	Create(p *domain.Payment) error
	UpdateStatus(id string, status domain.PaymentStatus) (bool, error)
	Confirm(id, txID, senderAddress string) (*domain.Payment, error)
}

// PriceSource yields the current base-asset unit price in fiat minor units.
type PriceSource interface {
	CurrentPrice(ctx context.Context) (int64, error)
}

// Broadcaster submits a signed transaction to the settlement network.
type Broadcaster interface {
	Broadcast(ctx context.Context, serializedTx string, amount int64, recipient string) (*bolt.BroadcastResult, error)
}

// SubmitPaymentRequest is the client-declared payment submission.
type SubmitPaymentRequest struct {
	SerializedTransaction string
	Asset                 domain.PaymentToken
	Amount                string
}

// Coordinator runs the submit-payment saga. It holds no per-invoice state:
// the at-most-one-active-payment guarantee is delegated entirely to the
// payment store's uniqueness constraint, which keeps the coordinator safe
// to run on any number of server instances.
type Coordinator struct {
	invoices    InvoiceStore
	payments    PaymentStore
	prices      PriceSource
	broadcaster Broadcaster
	now         func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source, used by tests to pin expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(invoices InvoiceStore, payments PaymentStore, prices PriceSource, broadcaster Broadcaster, opts ...Option) *Coordinator {
	c := &Coordinator{
		invoices:    invoices,
		payments:    payments,
		prices:      prices,
		broadcaster: broadcaster,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitPayment drives one submission attempt through the saga. Before a
// payment row exists every failure is a clean rejection with no writes.
// After the accept step the payment row is the durable record: a broadcast
// failure compensates it to rejected (best effort) and a failed invoice
// update after confirmation is logged, never escalated.
func (c *Coordinator) SubmitPayment(ctx context.Context, invoiceID string, req SubmitPaymentRequest) (*domain.Payment, error) {
	// Step 1: request shape.
	if req.SerializedTransaction == "" {
		observability.SubmitOutcome("invalid_request")
		return nil, &domain.ValidationError{
			Code:    "invalid_transaction",
			Message: "Serialized transaction cannot be empty",
		}
	}
	if !domain.ValidPaymentToken(req.Asset) {
		observability.SubmitOutcome("invalid_request")
		return nil, &domain.ValidationError{
			Code:    "unsupported_asset",
			Message: fmt.Sprintf("Payment asset %q is not supported", req.Asset),
		}
	}
	amount, err := strconv.ParseInt(req.Amount, 10, 64)
	if err != nil || amount <= 0 {
		observability.SubmitOutcome("invalid_request")
		return nil, &domain.ValidationError{
			Code:    "invalid_amount",
			Message: "Payment amount must be a positive number of base-asset units",
		}
	}

	// Step 2: load the invoice.
	inv, err := c.invoices.FindByID(invoiceID)
	if err != nil {
		observability.SubmitOutcome("persistence_error")
		return nil, &domain.PersistenceError{Op: "load invoice", Err: err}
	}
	if inv == nil {
		observability.SubmitOutcome("invoice_not_found")
		return nil, &domain.NotFoundError{
			Code:    "invoice_not_found",
			Message: "Invoice not found",
		}
	}
	switch inv.Status {
	case domain.InvoiceStatusPaid, domain.InvoiceStatusSettled:
		observability.SubmitOutcome("already_paid")
		return nil, &domain.ConflictError{
			Code:    "invoice_already_paid",
			Message: "Invoice has already been paid",
		}
	}
	if inv.ExpiredAt(c.now()) {
		observability.SubmitOutcome("expired")
		return nil, &domain.ConflictError{
			Code:    "invoice_expired",
			Message: "Invoice has expired and cannot accept payments",
		}
	}

	// Step 3: quote the required base-asset amount.
	price, err := c.prices.CurrentPrice(ctx)
	if err != nil {
		observability.SubmitOutcome("price_unavailable")
		return nil, err
	}
	base, err := quote.SatoshisForFiat(inv.Amount, price)
	if err != nil {
		observability.SubmitOutcome("price_unavailable")
		return nil, &domain.UpstreamError{Op: "quote", Transient: true, Err: err}
	}
	required := quote.WithSpread(base, quote.SpreadPerMille)
	if amount < required {
		observability.SubmitOutcome("underpayment")
		return nil, &domain.PreconditionError{
			Code: "underpayment_detected",
			Message: fmt.Sprintf(
				"Declared amount %d is below the required %d base-asset units", amount, required,
			),
			RequiredAmount: required,
		}
	}

	// Step 4: accept. The store's uniqueness constraint is the only guard
	// against a racing submission for the same invoice.
	payment := domain.NewPayment(inv.ID, req.Asset, amount, c.now())
	if err := c.payments.Create(payment); err != nil {
		if errors.Is(err, domain.ErrDuplicateActivePayment) {
			observability.SubmitOutcome("duplicate")
			return nil, &domain.ConflictError{
				Code:    "payment_already_exists",
				Message: "A payment for this invoice has already been accepted or confirmed",
			}
		}
		observability.SubmitOutcome("persistence_error")
		return nil, &domain.PersistenceError{Op: "create payment", Err: err}
	}

	// Step 5: broadcast. On failure the accepted row is compensated to
	// rejected; it stays behind as an audit record either way, and the
	// invoice is untouched so the client may retry.
	result, err := c.broadcaster.Broadcast(ctx, req.SerializedTransaction, required, inv.WalletAddress)
	if err != nil {
		if _, uerr := c.payments.UpdateStatus(payment.ID, domain.PaymentStatusRejected); uerr != nil {
			log.Printf("[settlement] failed to reject payment %s after broadcast error: %v", payment.ID, uerr)
		}
		observability.SubmitOutcome("broadcast_failed")
		return nil, err
	}

	// Step 6: confirm.
	confirmed, err := c.payments.Confirm(payment.ID, result.TxID, result.Sender)
	if err != nil {
		observability.SubmitOutcome("persistence_error")
		return nil, &domain.PersistenceError{Op: "confirm payment", Err: err}
	}
	if confirmed == nil {
		observability.SubmitOutcome("confirmation_conflict")
		return nil, &domain.ConflictError{
			Code:    "payment_confirmation_conflict",
			Message: "Payment was finalized by a concurrent request",
		}
	}

	// Step 7: settle the invoice. The confirmed payment is authoritative;
	// a failed status update is reconciled later, not surfaced.
	if changed, err := c.invoices.UpdateStatus(inv.ID, domain.InvoiceStatusPaid); err != nil {
		log.Printf("[settlement] payment %s confirmed but invoice %s not marked paid: %v", confirmed.ID, inv.ID, err)
	} else if !changed {
		log.Printf("[settlement] invoice %s already transitioned while confirming payment %s", inv.ID, confirmed.ID)
	}

	log.Printf("[settlement] payment %s confirmed for invoice %s, tx %s, amount %s %s",
		confirmed.ID, inv.ID, confirmed.TxID, money.Format(inv.Amount), inv.SettlementAsset)
	observability.SubmitOutcome("confirmed")
	return confirmed, nil
}

// RequiredAmount quotes the base-asset amount currently required to settle
// the given fiat amount, spread included. Shared by the public quote
// endpoint so quoted and enforced figures always agree.
func (c *Coordinator) RequiredAmount(ctx context.Context, fiatMinorUnits int64) (int64, int64, error) {
	price, err := c.prices.CurrentPrice(ctx)
	if err != nil {
		return 0, 0, err
	}
	base, err := quote.SatoshisForFiat(fiatMinorUnits, price)
	if err != nil {
		return 0, 0, &domain.UpstreamError{Op: "quote", Transient: true, Err: err}
	}
	return quote.WithSpread(base, quote.SpreadPerMille), price, nil
}
