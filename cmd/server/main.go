package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ronoel/bolt-payment-gateway/internal/api"
	"github.com/ronoel/bolt-payment-gateway/internal/bolt"
	"github.com/ronoel/bolt-payment-gateway/internal/quote"
	"github.com/ronoel/bolt-payment-gateway/internal/repository"
	"github.com/ronoel/bolt-payment-gateway/internal/settlement"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	port := env("PORT", "8080")
	dbPath := env("DB_PATH", "bolt.db")
	boltAPI := env("BOLT_API_URL", "http://localhost:3000")
	priceAPI := env("PRICE_API_URL", "https://api.binance.com/api/v3")

	log.Printf("Initializing database at %s", dbPath)
	db, err := repository.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	// Create repositories.
	invoiceRepo := repository.NewInvoiceRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)

	// Create services.
	oracle := quote.NewOracle(priceAPI, quote.WithTTL(30*time.Second))
	boltClient := bolt.NewClient(boltAPI)
	coordinator := settlement.NewCoordinator(invoiceRepo, paymentRepo, oracle, boltClient)

	// Create router.
	router := api.NewRouter(invoiceRepo, paymentRepo, coordinator, oracle)

	log.Printf("Bolt Payment Gateway")
	log.Printf("Listening on http://localhost:%s", port)
	log.Printf("API base: http://localhost:%s/api/v1", port)
	log.Printf("Bolt node: %s", boltAPI)
	log.Printf("Price feed: %s", priceAPI)
	log.Printf("")
	log.Printf("Endpoints:")
	log.Printf("  POST   /api/v1/merchants/{wallet}/invoices")
	log.Printf("  GET    /api/v1/merchants/{wallet}/invoices")
	log.Printf("  GET    /api/v1/invoices/{id}")
	log.Printf("  POST   /api/v1/invoices/{id}/payments/submit")
	log.Printf("  GET    /api/v1/invoices/{id}/payments")
	log.Printf("  GET    /api/v1/quotes")
	log.Printf("  POST   /api/v1/admin/price-cache/invalidate")

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
