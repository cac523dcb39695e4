package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"studentpay-backend/internal/config"
	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/models"
)

// Provider is the payment processor dues are collected through.
// Responses are untrusted: VerifyTransaction reports not-found, unsuccessful and
// malformed payloads as apperror upstream errors.
type Provider interface {
	Name() string
	VerifyTransaction(ctx context.Context, reference string) (*models.VerifiedTransaction, error)
	InitializeCheckout(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResult, error)
	CreateCustomer(ctx context.Context, req *models.CustomerRequest) (string, error)
}

// BankDirectory resolves settlement bank accounts and registers department subaccounts
type BankDirectory interface {
	ListBanks(ctx context.Context) ([]models.Bank, error)
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (string, error)
	CreateSubAccount(ctx context.Context, req *models.SubAccountRequest) (string, error)
}

const (
	ProviderPaystack = "paystack"
	ProviderRazorpay = "razorpay"
)

// New builds the configured provider. Bank resolution always goes through Paystack,
// which covers the Nigerian banks departments settle into.
func New(cfg *config.Config, client *http.Client, logger *logging.Logger) (Provider, BankDirectory, error) {
	paystack := NewPaystackClient(cfg.Payment.Paystack.BaseURL, cfg.Payment.Paystack.SecretKey, client, logger)

	switch strings.ToLower(cfg.Payment.Provider) {
	case "", ProviderPaystack:
		return paystack, paystack, nil
	case ProviderRazorpay:
		if cfg.Payment.Razorpay.KeyID == "" || cfg.Payment.Razorpay.KeySecret == "" {
			return nil, nil, fmt.Errorf("razorpay provider selected without key id/secret")
		}
		return NewRazorpayProvider(cfg.Payment.Razorpay.KeyID, cfg.Payment.Razorpay.KeySecret, logger), paystack, nil
	default:
		return nil, nil, fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
	}
}

// flexInt accepts ids sent either as JSON numbers or as strings
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("invalid id %s", b)
		}
		n = int(fl)
	}
	*f = flexInt(n)
	return nil
}

type rawMetadata struct {
	DepartmentID flexInt `json:"department_id"`
	PaymentID    flexInt `json:"payment_id"`
	Email        string  `json:"email"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	CustomerCode string  `json:"customer_code"`
}

// decodeMetadata handles metadata delivered as an object or as a JSON-encoded string
func decodeMetadata(raw json.RawMessage) (models.TransactionMetadata, error) {
	var meta rawMetadata
	if len(raw) == 0 || string(raw) == "null" {
		return models.TransactionMetadata{}, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return models.TransactionMetadata{}, err
		}
		if inner == "" {
			return models.TransactionMetadata{}, nil
		}
		raw = json.RawMessage(inner)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return models.TransactionMetadata{}, err
	}
	return models.TransactionMetadata{
		DepartmentID: int(meta.DepartmentID),
		PaymentID:    int(meta.PaymentID),
		Email:        meta.Email,
		FirstName:    meta.FirstName,
		LastName:     meta.LastName,
		CustomerCode: meta.CustomerCode,
	}, nil
}

// validateMetadata enforces the fields receipt issuance cannot do without
func validateMetadata(m models.TransactionMetadata) error {
	var missing []string
	if m.DepartmentID <= 0 {
		missing = append(missing, "department_id")
	}
	if m.PaymentID <= 0 {
		missing = append(missing, "payment_id")
	}
	if m.Email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("transaction metadata missing %s", strings.Join(missing, ", "))
	}
	return nil
}
