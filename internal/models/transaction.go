package models

import "time"

// ReceiptState tracks receipt issuance for a transaction. It only moves pending -> receipted.
type ReceiptState string

const (
	ReceiptStatePending   ReceiptState = "pending"
	ReceiptStateReceipted ReceiptState = "receipted"
)

// Transaction is a provider-verified payment. TxnID is the provider's transaction id.
type Transaction struct {
	TxnID         int64        `json:"txn_id"`
	Reference     string       `json:"txn_reference"`
	DepartmentID  *int         `json:"department_id,omitempty"`
	DeptName      string       `json:"department_name,omitempty"`
	PaymentID     *int         `json:"payment_id,omitempty"`
	AmountPaid    int64        `json:"amount_paid"` // kobo
	Status        string       `json:"status"`
	CustomerCode  string       `json:"customer_code,omitempty"`
	FirstName     string       `json:"first_name,omitempty"`
	LastName      string       `json:"last_name,omitempty"`
	CustomerEmail string       `json:"customer_email"`
	ReceivedFrom  string       `json:"received_from"`
	IPAddress     string       `json:"ip_address,omitempty"`
	DatePaid      string       `json:"date_paid"` // YYYY-MM-DD
	ReceiptState  ReceiptState `json:"receipt_state"`
	ReceiptHash   string       `json:"receipt_hash,omitempty"`
	ReceiptURL    string       `json:"receipt_url,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	ReceiptedAt   *time.Time   `json:"receipted_at,omitempty"`
}

// InitiateTransactionRequest starts a checkout for a student paying a department's dues
type InitiateTransactionRequest struct {
	FirstName     string `json:"first_name" validate:"required,max=20"`
	LastName      string `json:"last_name" validate:"required,max=20"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	DepartmentID  int    `json:"department" validate:"required,gt=0"`
	PaymentID     int    `json:"payment" validate:"required,gt=0"`
}

type InitiateTransactionResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type ReceiptURLResponse struct {
	ReceiptURL string `json:"receipt_url"`
	Hash       string `json:"receipt_hash"`
}

// TransactionFilter is used for the paginated department listing
type TransactionFilter struct {
	DepartmentID int
	PaymentID    int
	Status       string
	Limit        int
	Offset       int
}

type TransactionPage struct {
	Count   int            `json:"count"`
	Results []*Transaction `json:"results"`
}

type TransactionStats struct {
	TotalAmount       int64 `json:"total_amount"`
	TotalTransactions int   `json:"total_transactions"`
	TotalPayments     int   `json:"total_payments"`
}
