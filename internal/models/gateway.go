package models

// TransactionMetadata is the metadata attached at checkout and echoed back on verification
type TransactionMetadata struct {
	DepartmentID int    `json:"department_id"`
	PaymentID    int    `json:"payment_id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	CustomerCode string `json:"customer_code,omitempty"`
}

// VerifiedTransaction is a successful payment as reported by the provider
type VerifiedTransaction struct {
	TxnID     int64
	Status    string
	Amount    int64 // kobo
	IPAddress string
	Reference string
	DatePaid  string // YYYY-MM-DD
	Metadata  TransactionMetadata
}

// ReceivedFrom is the payer name printed on the receipt
func (v *VerifiedTransaction) ReceivedFrom() string {
	name := v.Metadata.FirstName
	if v.Metadata.LastName != "" {
		if name != "" {
			name += " "
		}
		name += v.Metadata.LastName
	}
	if name == "" {
		return v.Metadata.Email
	}
	return name
}

// CheckoutRequest initializes a hosted payment page
type CheckoutRequest struct {
	Email       string
	Amount      int64 // kobo
	Reference   string
	SubAccount  string
	CallbackURL string
	Metadata    TransactionMetadata
}

type CheckoutResult struct {
	AuthorizationURL string
	Reference        string
}

type CustomerRequest struct {
	Email     string
	FirstName string
	LastName  string
}

type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type SubAccountRequest struct {
	BusinessName  string
	BankCode      string
	AccountNumber string
}
