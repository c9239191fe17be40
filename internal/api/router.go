package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ronoel/bolt-payment-gateway/internal/quote"
	"github.com/ronoel/bolt-payment-gateway/internal/repository"
	"github.com/ronoel/bolt-payment-gateway/internal/settlement"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	invoiceRepo *repository.InvoiceRepo,
	paymentRepo *repository.PaymentRepo,
	coordinator *settlement.Coordinator,
	oracle *quote.Oracle,
) http.Handler {
	h := &Handlers{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		coordinator: coordinator,
		oracle:      oracle,
	}

	r := chi.NewRouter()

	// Middleware. promhttp sets its own content type on /metrics.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Invoices.
		r.Post("/merchants/{wallet}/invoices", h.CreateInvoice)
		r.Get("/merchants/{wallet}/invoices", h.ListInvoices)
		r.Get("/invoices/{id}", h.GetInvoice)

		// Payments.
		r.Post("/invoices/{id}/payments/submit", h.SubmitPayment)
		r.Get("/invoices/{id}/payments", h.ListInvoicePayments)

		// Quotes.
		r.Get("/quotes", h.GetQuote)

		// Operational.
		r.Post("/admin/price-cache/invalidate", h.InvalidatePriceCache)
	})

	return r
}
