package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ronoel/bolt-payment-gateway/internal/domain"
	"github.com/ronoel/bolt-payment-gateway/internal/money"
	"github.com/ronoel/bolt-payment-gateway/internal/quote"
	"github.com/ronoel/bolt-payment-gateway/internal/repository"
	"github.com/ronoel/bolt-payment-gateway/internal/settlement"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	invoiceLifetime  = 24 * time.Hour
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	invoiceRepo *repository.InvoiceRepo
	paymentRepo *repository.PaymentRepo
	coordinator *settlement.Coordinator
	oracle      *quote.Oracle
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Validation
// failures are the client's to fix and are not logged; upstream failures
// are logged at error severity and presented as retryable.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusUnprocessableEntity, ve.Code, ve.Message)
		return
	}
	var nfe *domain.NotFoundError
	if errors.As(err, &nfe) {
		writeError(w, http.StatusNotFound, nfe.Code, nfe.Message)
		return
	}
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		writeError(w, http.StatusConflict, ce.Code, ce.Message)
		return
	}
	var pre *domain.PreconditionError
	if errors.As(err, &pre) {
		writeJSON(w, http.StatusPreconditionFailed, errorResponse{
			Error:          pre.Code,
			Message:        pre.Message,
			RequiredAmount: strconv.FormatInt(pre.RequiredAmount, 10),
		})
		return
	}
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		log.Printf("[api] upstream error: %v", err)
		status := http.StatusInternalServerError
		if ue.Transient {
			status = http.StatusBadGateway
		}
		writeError(w, status, "upstream_error", "An upstream dependency failed, please retry")
		return
	}
	log.Printf("[api] internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "database_error", "Internal server error")
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil
		}
	}
	return &t
}

// --- CreateInvoice ---

func (h *Handlers) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")

	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount_format", "Amount format is invalid")
		return
	}
	if amount <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_amount", "Amount must be a positive number")
		return
	}

	asset := domain.SettlementAsset(req.SettlementAsset)
	if !domain.ValidSettlementAsset(asset) {
		writeError(w, http.StatusBadRequest, "unsupported_asset",
			fmt.Sprintf("Settlement asset %q is not supported", req.SettlementAsset))
		return
	}

	now := time.Now().UTC()
	expires := now.Add(invoiceLifetime)
	inv := &domain.Invoice{
		ID:              uuid.NewString(),
		WalletAddress:   wallet,
		Status:          domain.InvoiceStatusCreated,
		Amount:          amount,
		SettlementAsset: asset,
		MerchantOrderID: req.MerchantOrderID,
		CreatedAt:       now,
		ExpiresAt:       &expires,
	}

	if err := h.invoiceRepo.Create(inv); err != nil {
		log.Printf("[api] create invoice: %v", err)
		writeError(w, http.StatusInternalServerError, "database_error", "Failed to create invoice")
		return
	}

	log.Printf("[api] created invoice %s for merchant %s, amount %s %s",
		inv.ID, wallet, money.Format(inv.Amount), inv.SettlementAsset)
	writeJSON(w, http.StatusOK, newInvoiceResponse(inv))
}

// --- GetInvoice ---

func (h *Handlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := h.invoiceRepo.FindByID(id)
	if err != nil {
		log.Printf("[api] get invoice %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "database_error", "Failed to retrieve invoice")
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "invoice_not_found", "Invoice not found")
		return
	}

	writeJSON(w, http.StatusOK, newInvoiceResponse(inv))
}

// --- ListInvoices ---

func (h *Handlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	q := r.URL.Query()

	limit := defaultListLimit
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > maxListLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit",
				fmt.Sprintf("Limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = v
	}
	offset := 0
	if s := q.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid_offset", "Offset must be a non-negative integer")
			return
		}
		offset = v
	}
	status := q.Get("status")
	if status != "" && !domain.ValidInvoiceStatus(domain.InvoiceStatus(status)) {
		writeError(w, http.StatusBadRequest, "invalid_status",
			fmt.Sprintf("Status %q is not a valid invoice status", status))
		return
	}

	filter := repository.InvoiceFilter{
		Status:          status,
		MerchantOrderID: q.Get("merchant_order_id"),
		From:            parseTime(q.Get("from_date")),
		To:              parseTime(q.Get("to_date")),
		Limit:           limit,
		Offset:          offset,
	}

	invoices, total, err := h.invoiceRepo.FindByMerchant(wallet, filter)
	if err != nil {
		log.Printf("[api] list invoices for %s: %v", wallet, err)
		writeError(w, http.StatusInternalServerError, "database_error", "Failed to retrieve invoices")
		return
	}

	items := make([]invoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, newInvoiceResponse(&invoices[i]))
	}
	writeJSON(w, http.StatusOK, listInvoicesResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// --- ListInvoicePayments ---

// ListInvoicePayments returns every payment attempt against an invoice,
// rejected rows included, as an audit trail.
func (h *Handlers) ListInvoicePayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := h.invoiceRepo.FindByID(id)
	if err != nil {
		log.Printf("[api] list payments for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "database_error", "Failed to retrieve invoice")
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "invoice_not_found", "Invoice not found")
		return
	}

	payments, err := h.paymentRepo.FindByInvoice(id)
	if err != nil {
		log.Printf("[api] list payments for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "database_error", "Failed to retrieve payments")
		return
	}

	items := make([]paymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, newPaymentResponse(&payments[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// --- GetQuote ---

func (h *Handlers) GetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if from := q.Get("from"); from != "BTC" {
		writeError(w, http.StatusBadRequest, "unsupported_from_asset",
			fmt.Sprintf("From asset %q is not supported, only BTC is available", from))
		return
	}
	if to := q.Get("to"); to != "USD" {
		writeError(w, http.StatusBadRequest, "unsupported_to_asset",
			fmt.Sprintf("To asset %q is not supported, only USD is available", to))
		return
	}

	toAmount, err := money.Parse(q.Get("to_amount"))
	if err != nil || toAmount <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_amount", "to_amount must be a positive number")
		return
	}

	required, unitPrice, err := h.coordinator.RequiredAmount(r.Context(), toAmount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		FromAsset:   "BTC",
		ToAsset:     "USD",
		FromAmount:  strconv.FormatInt(required, 10),
		ToAmount:    money.Format(toAmount),
		UnitPrice:   money.Format(unitPrice),
		Spread:      fmt.Sprintf("%.1f%%", float64(quote.SpreadPerMille)/10),
		RefreshedAt: time.Now().UTC(),
	})
}

// --- SubmitPayment ---

func (h *Handlers) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req submitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "Request body must be valid JSON")
		return
	}

	payment, err := h.coordinator.SubmitPayment(r.Context(), id, settlement.SubmitPaymentRequest{
		SerializedTransaction: req.SerializedTransaction,
		Asset:                 domain.PaymentToken(req.Asset),
		Amount:                req.Amount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPaymentResponse(payment))
}

// --- InvalidatePriceCache ---

// InvalidatePriceCache forces the next quote to fetch a fresh upstream
// price. Operational escape hatch, not part of the payment flow.
func (h *Handlers) InvalidatePriceCache(w http.ResponseWriter, r *http.Request) {
	h.oracle.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
