package repositories

import (
	"context"
	"fmt"

	"studentpay-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DepartmentRepository struct {
	DB *pgxpool.Pool
}

func NewDepartmentRepository(db *pgxpool.Pool) *DepartmentRepository {
	return &DepartmentRepository{DB: db}
}

const departmentColumns = `
	id, email, password_hash, dept_name,
	COALESCE(account_number, ''), COALESCE(bank_name, ''), COALESCE(bank_code, ''),
	COALESCE(account_name, ''), COALESCE(sub_account_code, ''),
	COALESCE(logo_url, ''), COALESCE(president_signature_url, ''), COALESCE(secretary_signature_url, ''),
	is_verified, is_staff, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row rowScanner) (*models.Department, error) {
	d := &models.Department{}
	err := row.Scan(
		&d.ID, &d.Email, &d.PasswordHash, &d.DeptName,
		&d.AccountNumber, &d.BankName, &d.BankCode,
		&d.AccountName, &d.SubAccountCode,
		&d.LogoURL, &d.PresidentSignatureURL, &d.SecretarySignatureURL,
		&d.IsVerified, &d.IsStaff, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

func (r *DepartmentRepository) Create(ctx context.Context, d *models.Department) error {
	query := `
		INSERT INTO departments (email, password_hash, dept_name)
		VALUES ($1, $2, $3)
		RETURNING id, is_verified, is_staff, created_at, updated_at
	`
	err := r.DB.QueryRow(ctx, query, d.Email, d.PasswordHash, d.DeptName).
		Scan(&d.ID, &d.IsVerified, &d.IsStaff, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create department: %w", err)
	}
	return nil
}

func (r *DepartmentRepository) Get(ctx context.Context, id int) (*models.Department, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE id = $1`, id)
	return scanDepartment(row)
}

func (r *DepartmentRepository) GetByEmail(ctx context.Context, email string) (*models.Department, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE LOWER(email) = LOWER($1)`, email)
	return scanDepartment(row)
}

func (r *DepartmentRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM departments WHERE LOWER(email) = LOWER($1))`, email).Scan(&exists)
	return exists, err
}

// UpdateProfile persists name and bank/settlement details
func (r *DepartmentRepository) UpdateProfile(ctx context.Context, d *models.Department) error {
	query := `
		UPDATE departments
		SET dept_name = $2, account_number = $3, bank_name = $4, bank_code = $5,
		    account_name = $6, sub_account_code = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.DB.QueryRow(ctx, query,
		d.ID, d.DeptName, d.AccountNumber, d.BankName, d.BankCode, d.AccountName, d.SubAccountCode,
	).Scan(&d.UpdatedAt)
	return notFound(err)
}

// UpdateAsset stores the public URL of an uploaded logo or signature
func (r *DepartmentRepository) UpdateAsset(ctx context.Context, id int, kind, url string) error {
	var column string
	switch kind {
	case models.AssetLogo:
		column = "logo_url"
	case models.AssetPresidentSignature:
		column = "president_signature_url"
	case models.AssetSecretarySignature:
		column = "secretary_signature_url"
	default:
		return fmt.Errorf("unknown asset kind %q", kind)
	}

	tag, err := r.DB.Exec(ctx, `UPDATE departments SET `+column+` = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DepartmentRepository) SetVerified(ctx context.Context, id int, verified bool) error {
	tag, err := r.DB.Exec(ctx, `UPDATE departments SET is_verified = $2, updated_at = NOW() WHERE id = $1`, id, verified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DepartmentRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	tag, err := r.DB.Exec(ctx, `UPDATE departments SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
