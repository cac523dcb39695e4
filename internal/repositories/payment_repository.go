package repositories

import (
	"context"
	"fmt"

	"studentpay-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (department_id, payment_for, amount_due)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.DB.QueryRow(ctx, query, p.DepartmentID, p.PaymentFor, p.AmountDue).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, id int) (*models.Payment, error) {
	query := `SELECT id, department_id, payment_for, amount_due, created_at FROM payments WHERE id = $1`

	p := &models.Payment{}
	err := r.DB.QueryRow(ctx, query, id).Scan(&p.ID, &p.DepartmentID, &p.PaymentFor, &p.AmountDue, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *PaymentRepository) ListByDepartment(ctx context.Context, departmentID int) ([]*models.Payment, error) {
	query := `
		SELECT id, department_id, payment_for, amount_due, created_at
		FROM payments
		WHERE department_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []*models.Payment{}
	for rows.Next() {
		p := &models.Payment{}
		if err := rows.Scan(&p.ID, &p.DepartmentID, &p.PaymentFor, &p.AmountDue, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Update changes a payment owned by the given department
func (r *PaymentRepository) Update(ctx context.Context, p *models.Payment) error {
	query := `
		UPDATE payments SET payment_for = $3, amount_due = $4
		WHERE id = $1 AND department_id = $2
		RETURNING created_at
	`
	err := r.DB.QueryRow(ctx, query, p.ID, p.DepartmentID, p.PaymentFor, p.AmountDue).Scan(&p.CreatedAt)
	return notFound(err)
}

// Delete removes a payment owned by the given department
func (r *PaymentRepository) Delete(ctx context.Context, id, departmentID int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM payments WHERE id = $1 AND department_id = $2`, id, departmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PaymentRepository) CountByDepartment(ctx context.Context, departmentID int) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE department_id = $1`, departmentID).Scan(&n)
	return n, err
}
