package repositories

import (
	"context"
	"fmt"
	"strings"

	"studentpay-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository struct {
	DB *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{DB: db}
}

const transactionColumns = `
	t.txn_id, t.txn_reference, t.department_id, COALESCE(d.dept_name, ''), t.payment_id,
	t.amount_paid, COALESCE(t.status, ''), COALESCE(t.customer_code, ''),
	COALESCE(t.first_name, ''), COALESCE(t.last_name, ''), t.customer_email, t.received_from,
	COALESCE(t.ip_address, ''), TO_CHAR(t.date_paid, 'YYYY-MM-DD'),
	t.receipt_state, COALESCE(t.receipt_hash, ''), COALESCE(t.receipt_url, ''),
	t.created_at, t.receipted_at
`

const transactionFrom = `
	FROM transactions t
	LEFT JOIN departments d ON d.id = t.department_id
`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	tx := &models.Transaction{}
	err := row.Scan(
		&tx.TxnID, &tx.Reference, &tx.DepartmentID, &tx.DeptName, &tx.PaymentID,
		&tx.AmountPaid, &tx.Status, &tx.CustomerCode,
		&tx.FirstName, &tx.LastName, &tx.CustomerEmail, &tx.ReceivedFrom,
		&tx.IPAddress, &tx.DatePaid,
		&tx.ReceiptState, &tx.ReceiptHash, &tx.ReceiptURL,
		&tx.CreatedAt, &tx.ReceiptedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return tx, nil
}

// CreatePending records a verified transaction awaiting its receipt.
// A second insert for the same provider id or reference is a no-op and reports created=false.
func (r *TransactionRepository) CreatePending(ctx context.Context, tx *models.Transaction) (bool, error) {
	query := `
		INSERT INTO transactions (
			txn_id, txn_reference, department_id, payment_id, amount_paid, status,
			customer_code, first_name, last_name, customer_email, received_from,
			ip_address, date_paid, receipt_state
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::date, $14)
		ON CONFLICT DO NOTHING
		RETURNING created_at
	`

	err := r.DB.QueryRow(ctx, query,
		tx.TxnID, tx.Reference, tx.DepartmentID, tx.PaymentID, tx.AmountPaid, tx.Status,
		tx.CustomerCode, tx.FirstName, tx.LastName, tx.CustomerEmail, tx.ReceivedFrom,
		tx.IPAddress, tx.DatePaid, models.ReceiptStatePending,
	).Scan(&tx.CreatedAt)

	if err != nil {
		if notFound(err) == ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to create transaction: %w", err)
	}

	tx.ReceiptState = models.ReceiptStatePending
	return true, nil
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+transactionColumns+transactionFrom+` WHERE t.txn_reference = $1`, reference)
	return scanTransaction(row)
}

// GetByReceiptHash finds a receipted transaction by exact hash match
func (r *TransactionRepository) GetByReceiptHash(ctx context.Context, hash string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + transactionFrom + `
		WHERE t.receipt_hash = $1 AND t.receipt_state = 'receipted'`
	return scanTransaction(r.DB.QueryRow(ctx, query, hash))
}

// MarkReceipted moves a pending transaction to receipted. It reports false when the
// transaction was already receipted (or does not exist), so the transition happens once.
func (r *TransactionRepository) MarkReceipted(ctx context.Context, reference, hash, url string) (bool, error) {
	query := `
		UPDATE transactions
		SET receipt_state = $2, receipt_hash = $3, receipt_url = $4, receipted_at = NOW()
		WHERE txn_reference = $1 AND receipt_state = $5
	`
	tag, err := r.DB.Exec(ctx, query, reference, models.ReceiptStateReceipted, hash, url, models.ReceiptStatePending)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction receipted: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns a page of a department's transactions, newest first
func (r *TransactionRepository) List(ctx context.Context, filter models.TransactionFilter) (*models.TransactionPage, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	conds := []string{"t.department_id = $1"}
	args := []any{filter.DepartmentID}
	if filter.PaymentID > 0 {
		args = append(args, filter.PaymentID)
		conds = append(conds, fmt.Sprintf("t.payment_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("t.status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	page := &models.TransactionPage{Results: []*models.Transaction{}}
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM transactions t`+where, args...).Scan(&page.Count); err != nil {
		return nil, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + transactionColumns + transactionFrom + where +
		fmt.Sprintf(" ORDER BY t.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		page.Results = append(page.Results, tx)
	}
	return page, rows.Err()
}

// Stats sums collected amounts for a department
func (r *TransactionRepository) Stats(ctx context.Context, departmentID int) (*models.TransactionStats, error) {
	query := `
		SELECT COALESCE(SUM(amount_paid), 0), COUNT(*),
		       (SELECT COUNT(*) FROM payments WHERE department_id = $1)
		FROM transactions
		WHERE department_id = $1
	`
	stats := &models.TransactionStats{}
	err := r.DB.QueryRow(ctx, query, departmentID).Scan(&stats.TotalAmount, &stats.TotalTransactions, &stats.TotalPayments)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
