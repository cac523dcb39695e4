package models

import "time"

// Department is a collecting unit (a student association or faculty body).
// It logs in with email/password and must be verified by staff before it can take payments.
type Department struct {
	ID                    int       `json:"id"`
	Email                 string    `json:"email"`
	PasswordHash          string    `json:"-"`
	DeptName              string    `json:"dept_name"`
	AccountNumber         string    `json:"account_number,omitempty"`
	BankName              string    `json:"bank_name,omitempty"`
	BankCode              string    `json:"bank_code,omitempty"`
	AccountName           string    `json:"account_name,omitempty"`
	SubAccountCode        string    `json:"sub_account_code,omitempty"`
	LogoURL               string    `json:"logo_url,omitempty"`
	PresidentSignatureURL string    `json:"president_signature_url,omitempty"`
	SecretarySignatureURL string    `json:"secretary_signature_url,omitempty"`
	IsVerified            bool      `json:"is_verified"`
	IsStaff               bool      `json:"is_staff"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Role returns the JWT role for the department account
func (d *Department) Role() string {
	if d.IsStaff {
		return RoleStaff
	}
	return RoleDepartment
}

const (
	RoleDepartment = "department"
	RoleStaff      = "staff"
)

// Asset kinds a department can upload
const (
	AssetLogo               = "logo"
	AssetPresidentSignature = "president_signature"
	AssetSecretarySignature = "secretary_signature"
)

type RegisterDepartmentRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	DeptName string `json:"dept_name" validate:"required,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	Department  *Department `json:"department"`
}

type UpdateDepartmentRequest struct {
	DeptName      string `json:"dept_name" validate:"omitempty,max=50"`
	BankName      string `json:"bank_name" validate:"required_with=AccountNumber"`
	AccountNumber string `json:"account_number" validate:"omitempty,len=10,numeric"`
}

type RejectDepartmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,nefield=OldPassword"`
}
