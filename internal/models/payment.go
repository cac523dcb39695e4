package models

import "time"

// Payment is a dues item a department collects (e.g. "Departmental Dues 2024/2025").
// AmountDue is in minor units (kobo).
type Payment struct {
	ID           int       `json:"id"`
	DepartmentID int       `json:"department_id"`
	PaymentFor   string    `json:"payment_for"`
	AmountDue    int64     `json:"amount_due"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreatePaymentRequest struct {
	PaymentFor string `json:"payment_for" validate:"required,max=50"`
	AmountDue  int64  `json:"amount_due" validate:"required,gt=0"`
}

type UpdatePaymentRequest struct {
	PaymentFor string `json:"payment_for" validate:"omitempty,max=50"`
	AmountDue  int64  `json:"amount_due" validate:"omitempty,gt=0"`
}
