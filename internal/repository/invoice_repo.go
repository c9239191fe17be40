package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ronoel/bolt-payment-gateway/internal/domain"
)

type InvoiceRepo struct {
	db *sql.DB
}

func NewInvoiceRepo(db *sql.DB) *InvoiceRepo {
	return &InvoiceRepo{db: db}
}

func (r *InvoiceRepo) Create(inv *domain.Invoice) error {
	_, err := r.db.Exec(
		`INSERT INTO invoices
		(id, wallet_address, status, amount, settlement_asset, merchant_order_id,
		 created_at, expires_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		inv.ID, inv.WalletAddress, string(inv.Status), inv.Amount,
		string(inv.SettlementAsset), inv.MerchantOrderID,
		inv.CreatedAt.Format(time.RFC3339), formatNullableTime(inv.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// FindByID returns the invoice or nil when no such row exists.
func (r *InvoiceRepo) FindByID(id string) (*domain.Invoice, error) {
	row := r.db.QueryRow("SELECT * FROM invoices WHERE id = ?", id)
	inv, err := scanInvoice(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	return inv, nil
}

type InvoiceFilter struct {
	Status          string
	MerchantOrderID string
	From            *time.Time
	To              *time.Time
	Limit           int
	Offset          int
}

// FindByMerchant lists a merchant's invoices newest first, with the filter
// pushed into SQL. Returns the page and the total matching count.
func (r *InvoiceRepo) FindByMerchant(wallet string, f InvoiceFilter) ([]domain.Invoice, int, error) {
	clauses := []string{"wallet_address = ?"}
	args := []any{wallet}

	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.MerchantOrderID != "" {
		clauses = append(clauses, "merchant_order_id = ?")
		args = append(args, f.MerchantOrderID)
	}
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.From.Format(time.RFC3339))
	}
	if f.To != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.To.Format(time.RFC3339))
	}

	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM invoices"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	query := "SELECT * FROM invoices" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, total, rows.Err()
}

// UpdateStatus sets the invoice status and reports whether a row actually
// changed. A no-op (missing id or same status) is not an error.
func (r *InvoiceRepo) UpdateStatus(id string, status domain.InvoiceStatus) (bool, error) {
	res, err := r.db.Exec(
		"UPDATE invoices SET status = ? WHERE id = ? AND status != ?",
		string(status), id, string(status),
	)
	if err != nil {
		return false, fmt.Errorf("update invoice status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanInvoice(scan func(...any) error) (*domain.Invoice, error) {
	var inv domain.Invoice
	var status, asset, createdAt string
	var expiresAt sql.NullString

	err := scan(
		&inv.ID, &inv.WalletAddress, &status, &inv.Amount, &asset,
		&inv.MerchantOrderID, &createdAt, &expiresAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Status = domain.InvoiceStatus(status)
	inv.SettlementAsset = domain.SettlementAsset(asset)
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		inv.ExpiresAt = &t
	}
	return &inv, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
