package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"

	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/models"
	"studentpay-backend/internal/timeutil"
	"studentpay-backend/pkg/apperror"
)

// The razorpay SDK resources used here, narrowed so tests can stand in for them
type paymentFetcher interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type linkCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type customerCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayProvider collects dues through Razorpay payment links.
// The reference it verifies is a Razorpay payment id (pay_...).
type RazorpayProvider struct {
	payments  paymentFetcher
	links     linkCreator
	customers customerCreator
	logger    *logging.Logger
}

func NewRazorpayProvider(keyID, keySecret string, logger *logging.Logger) *RazorpayProvider {
	client := razorpay.NewClient(keyID, keySecret)
	return newRazorpayProvider(client.Payment, client.PaymentLink, client.Customer, logger)
}

func newRazorpayProvider(payments paymentFetcher, links linkCreator, customers customerCreator, logger *logging.Logger) *RazorpayProvider {
	return &RazorpayProvider{
		payments:  payments,
		links:     links,
		customers: customers,
		logger:    logger.Named("razorpay"),
	}
}

func (p *RazorpayProvider) Name() string { return ProviderRazorpay }

func (p *RazorpayProvider) VerifyTransaction(ctx context.Context, reference string) (*models.VerifiedTransaction, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, apperror.NewUpstreamError("Transaction reference is required", nil)
	}

	payment, err := p.payments.Fetch(reference, nil, nil)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "does not exist") {
			return nil, apperror.NewUpstreamError("Transaction not found", err)
		}
		p.logger.Warn(ctx, "razorpay verification failed", zap.String("reference", reference), zap.Error(err))
		return nil, apperror.NewUpstreamError("Unknown error from Razorpay", err)
	}

	status, _ := payment["status"].(string)
	if status != "captured" {
		return nil, apperror.NewUpstreamError("Transaction not successful", fmt.Errorf("status %q", status))
	}

	amount, ok := payment["amount"].(float64)
	if !ok || amount <= 0 {
		return nil, apperror.NewUpstreamError("Invalid transaction from Razorpay", errors.New("missing amount"))
	}
	createdAt, ok := payment["created_at"].(float64)
	if !ok {
		return nil, apperror.NewUpstreamError("Invalid payment date from Razorpay", errors.New("missing created_at"))
	}

	// notes come back as a JSON object; reuse the metadata decoder for number/string ids
	notes, _ := json.Marshal(payment["notes"])
	meta, err := decodeMetadata(notes)
	if err != nil {
		return nil, apperror.NewUpstreamError("Invalid transaction metadata from Razorpay", err)
	}
	if meta.Email == "" {
		meta.Email, _ = payment["email"].(string)
	}
	if meta.CustomerCode == "" {
		meta.CustomerCode, _ = payment["customer_id"].(string)
	}
	if err := validateMetadata(meta); err != nil {
		return nil, apperror.NewUpstreamError("Invalid transaction metadata from Razorpay", err)
	}

	id, _ := payment["id"].(string)
	if id == "" {
		id = reference
	}

	return &models.VerifiedTransaction{
		TxnID:     NumericID(id),
		Status:    status,
		Amount:    int64(amount),
		Reference: id,
		DatePaid:  time.Unix(int64(createdAt), 0).UTC().Format(timeutil.DateLayout),
		Metadata:  meta,
	}, nil
}

// NumericID maps an alphanumeric provider id onto a stable positive int64
func NumericID(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64() & (1<<63 - 1))
}

func (p *RazorpayProvider) InitializeCheckout(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResult, error) {
	data := map[string]interface{}{
		"amount":       req.Amount,
		"currency":     "NGN",
		"reference_id": req.Reference,
		"customer": map[string]interface{}{
			"email": req.Email,
			"name":  strings.TrimSpace(req.Metadata.FirstName + " " + req.Metadata.LastName),
		},
		"notes": map[string]interface{}{
			"department_id": req.Metadata.DepartmentID,
			"payment_id":    req.Metadata.PaymentID,
			"email":         req.Metadata.Email,
			"first_name":    req.Metadata.FirstName,
			"last_name":     req.Metadata.LastName,
			"customer_code": req.Metadata.CustomerCode,
		},
	}
	if req.CallbackURL != "" {
		data["callback_url"] = req.CallbackURL
		data["callback_method"] = "get"
	}

	link, err := p.links.Create(data, nil)
	if err != nil {
		return nil, apperror.NewUpstreamError("Could not initialize payment", err)
	}
	shortURL, _ := link["short_url"].(string)
	if shortURL == "" {
		return nil, apperror.NewUpstreamError("Could not initialize payment", errors.New("empty payment link"))
	}
	return &models.CheckoutResult{AuthorizationURL: shortURL, Reference: req.Reference}, nil
}

func (p *RazorpayProvider) CreateCustomer(ctx context.Context, req *models.CustomerRequest) (string, error) {
	customer, err := p.customers.Create(map[string]interface{}{
		"name":          strings.TrimSpace(req.FirstName + " " + req.LastName),
		"email":         req.Email,
		"fail_existing": "0",
	}, nil)
	if err != nil {
		return "", apperror.NewUpstreamError("Could not create customer", err)
	}
	id, _ := customer["id"].(string)
	return id, nil
}
