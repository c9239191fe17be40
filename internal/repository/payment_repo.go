package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ronoel/bolt-payment-gateway/internal/domain"
)

type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

// Create inserts the payment. When the partial unique index rejects a
// second accepted/confirmed payment for the same invoice, the violation is
// surfaced as domain.ErrDuplicateActivePayment. The check-and-insert is a
// single atomic statement; callers must not pre-check.
func (r *PaymentRepo) Create(p *domain.Payment) error {
	_, err := r.db.Exec(
		`INSERT INTO payments
		(id, invoice_id, status, asset, amount, sender_address, tx_id, received_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.InvoiceID, string(p.Status), string(p.Asset), p.Amount,
		nullableString(p.SenderAddress), nullableString(p.TxID),
		p.ReceivedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateActivePayment
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// FindByID returns the payment or nil when no such row exists.
func (r *PaymentRepo) FindByID(id string) (*domain.Payment, error) {
	row := r.db.QueryRow("SELECT * FROM payments WHERE id = ?", id)
	p, err := scanPayment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return p, nil
}

// FindActiveByInvoice returns the invoice's accepted or confirmed payment,
// nil when none exists. The partial unique index guarantees at most one.
func (r *PaymentRepo) FindActiveByInvoice(invoiceID string) (*domain.Payment, error) {
	row := r.db.QueryRow(
		"SELECT * FROM payments WHERE invoice_id = ? AND status IN ('accepted','confirmed')",
		invoiceID,
	)
	p, err := scanPayment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active payment: %w", err)
	}
	return p, nil
}

// FindByInvoice lists every payment attempt against an invoice, rejected
// rows included, oldest first.
func (r *PaymentRepo) FindByInvoice(invoiceID string) ([]domain.Payment, error) {
	rows, err := r.db.Query(
		"SELECT * FROM payments WHERE invoice_id = ? ORDER BY received_at", invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// FindByTxID looks a payment up by its network transaction id.
func (r *PaymentRepo) FindByTxID(txID string) (*domain.Payment, error) {
	row := r.db.QueryRow("SELECT * FROM payments WHERE tx_id = ?", txID)
	p, err := scanPayment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find payment by tx: %w", err)
	}
	return p, nil
}

// UpdateStatus sets the payment status and reports whether a row changed.
func (r *PaymentRepo) UpdateStatus(id string, status domain.PaymentStatus) (bool, error) {
	res, err := r.db.Exec(
		"UPDATE payments SET status = ? WHERE id = ?", string(status), id,
	)
	if err != nil {
		return false, fmt.Errorf("update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Confirm atomically transitions an accepted payment to confirmed and
// records the network-returned fields. Returns nil when the payment was not
// in the accepted state, e.g. already finalized by a racing caller.
func (r *PaymentRepo) Confirm(id, txID, senderAddress string) (*domain.Payment, error) {
	res, err := r.db.Exec(
		`UPDATE payments SET status = ?, tx_id = ?, sender_address = ?
		 WHERE id = ? AND status = ?`,
		string(domain.PaymentStatusConfirmed), txID, senderAddress,
		id, string(domain.PaymentStatusAccepted),
	)
	if err != nil {
		return nil, fmt.Errorf("confirm payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return r.FindByID(id)
}

// isUniqueViolation narrows on the driver's numeric result code, never on
// message text.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanPayment(scan func(...any) error) (*domain.Payment, error) {
	var p domain.Payment
	var status, asset, receivedAt string
	var sender, txID sql.NullString

	err := scan(
		&p.ID, &p.InvoiceID, &status, &asset, &p.Amount, &sender, &txID, &receivedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PaymentStatus(status)
	p.Asset = domain.PaymentToken(asset)
	p.ReceivedAt, _ = time.Parse(time.RFC3339, receivedAt)
	if sender.Valid {
		p.SenderAddress = sender.String
	}
	if txID.Valid {
		p.TxID = txID.String
	}
	return &p, nil
}
