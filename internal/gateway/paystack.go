package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/models"
	"studentpay-backend/internal/timeutil"
	"studentpay-backend/pkg/apperror"
)

const (
	DefaultPaystackBaseURL = "https://api.paystack.co"
	paystackTimeout        = 15 * time.Second
	paystackNotFoundCode   = "transaction_not_found"
)

// PaystackClient talks to the Paystack REST API
type PaystackClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
	logger    *logging.Logger
}

func NewPaystackClient(baseURL, secretKey string, client *http.Client, logger *logging.Logger) *PaystackClient {
	if baseURL == "" {
		baseURL = DefaultPaystackBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: paystackTimeout}
	}
	return &PaystackClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      client,
		logger:    logger.Named("paystack"),
	}
}

func (c *PaystackClient) Name() string { return ProviderPaystack }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

// paystackError carries a non-success envelope
type paystackError struct {
	HTTPStatus int
	Code       string
	Message    string
}

func (e *paystackError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("paystack %d %s: %s", e.HTTPStatus, e.Code, e.Message)
	}
	return fmt.Sprintf("paystack %d: %s", e.HTTPStatus, e.Message)
}

// do sends a request and decodes the envelope's data into out
func (c *PaystackClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paystack request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("paystack response unreadable: %w", err)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("invalid response from paystack (status %d): %w", resp.StatusCode, err)
	}
	if !env.Status || resp.StatusCode >= 400 {
		return &paystackError{HTTPStatus: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("invalid paystack data: %w", err)
	}
	return nil
}

type paystackTransaction struct {
	ID        int64           `json:"id"`
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	PaidAt    string          `json:"paid_at"`
	IPAddress string          `json:"ip_address"`
	Metadata  json.RawMessage `json:"metadata"`
	Customer  struct {
		Email        string `json:"email"`
		CustomerCode string `json:"customer_code"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
	} `json:"customer"`
}

// VerifyTransaction confirms a successful payment for reference.
// Paystack amounts are already in kobo.
func (c *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (*models.VerifiedTransaction, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, apperror.NewUpstreamError("Transaction reference is required", nil)
	}

	var data paystackTransaction
	err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data)
	if err != nil {
		var pe *paystackError
		if errors.As(err, &pe) && (pe.Code == paystackNotFoundCode || pe.HTTPStatus == http.StatusNotFound) {
			return nil, apperror.NewUpstreamError("Transaction not found", err)
		}
		c.logger.Warn(ctx, "paystack verification failed", zap.String("reference", reference), zap.Error(err))
		return nil, apperror.NewUpstreamError("Unknown error from Paystack", err)
	}

	if data.Status != "success" {
		return nil, apperror.NewUpstreamError("Transaction not successful", fmt.Errorf("status %q", data.Status))
	}

	meta, err := decodeMetadata(data.Metadata)
	if err != nil {
		return nil, apperror.NewUpstreamError("Invalid transaction metadata from Paystack", err)
	}
	if meta.Email == "" {
		meta.Email = data.Customer.Email
	}
	if meta.CustomerCode == "" {
		meta.CustomerCode = data.Customer.CustomerCode
	}
	if meta.FirstName == "" && meta.LastName == "" {
		meta.FirstName, meta.LastName = data.Customer.FirstName, data.Customer.LastName
	}
	if err := validateMetadata(meta); err != nil {
		return nil, apperror.NewUpstreamError("Invalid transaction metadata from Paystack", err)
	}

	datePaid, err := timeutil.CanonicalDate(data.PaidAt)
	if err != nil {
		return nil, apperror.NewUpstreamError("Invalid payment date from Paystack", err)
	}
	if data.ID <= 0 || data.Amount <= 0 {
		return nil, apperror.NewUpstreamError("Invalid transaction from Paystack",
			fmt.Errorf("id=%d amount=%d", data.ID, data.Amount))
	}

	ref := data.Reference
	if ref == "" {
		ref = reference
	}

	return &models.VerifiedTransaction{
		TxnID:     data.ID,
		Status:    data.Status,
		Amount:    data.Amount,
		IPAddress: data.IPAddress,
		Reference: ref,
		DatePaid:  datePaid,
		Metadata:  meta,
	}, nil
}

// InitializeCheckout starts a hosted checkout that settles into the department subaccount
func (c *PaystackClient) InitializeCheckout(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResult, error) {
	body := map[string]any{
		"email":     req.Email,
		"amount":    strconv.FormatInt(req.Amount, 10),
		"reference": req.Reference,
		"metadata":  req.Metadata,
	}
	if req.SubAccount != "" {
		body["subaccount"] = req.SubAccount
		body["bearer"] = "subaccount"
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, apperror.NewUpstreamError("Could not initialize payment", err)
	}
	if data.AuthorizationURL == "" {
		return nil, apperror.NewUpstreamError("Could not initialize payment", errors.New("empty authorization url"))
	}
	return &models.CheckoutResult{AuthorizationURL: data.AuthorizationURL, Reference: data.Reference}, nil
}

func (c *PaystackClient) CreateCustomer(ctx context.Context, req *models.CustomerRequest) (string, error) {
	body := map[string]string{
		"email":      req.Email,
		"first_name": req.FirstName,
		"last_name":  req.LastName,
	}
	var data struct {
		CustomerCode string `json:"customer_code"`
	}
	if err := c.do(ctx, http.MethodPost, "/customer", body, &data); err != nil {
		return "", apperror.NewUpstreamError("Could not create customer", err)
	}
	return data.CustomerCode, nil
}

func (c *PaystackClient) ListBanks(ctx context.Context) ([]models.Bank, error) {
	var data []models.Bank
	if err := c.do(ctx, http.MethodGet, "/bank?country=nigeria&perPage=100", nil, &data); err != nil {
		return nil, apperror.NewUpstreamError("Could not fetch bank list", err)
	}
	return data, nil
}

func (c *PaystackClient) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (string, error) {
	q := url.Values{}
	q.Set("account_number", accountNumber)
	q.Set("bank_code", bankCode)

	var data struct {
		AccountName string `json:"account_name"`
	}
	if err := c.do(ctx, http.MethodGet, "/bank/resolve?"+q.Encode(), nil, &data); err != nil {
		return "", apperror.NewUpstreamError("Could not resolve account number", err)
	}
	return data.AccountName, nil
}

func (c *PaystackClient) CreateSubAccount(ctx context.Context, req *models.SubAccountRequest) (string, error) {
	body := map[string]any{
		"business_name":     req.BusinessName,
		"settlement_bank":   req.BankCode,
		"account_number":    req.AccountNumber,
		"percentage_charge": 0,
	}
	var data struct {
		SubAccountCode string `json:"subaccount_code"`
	}
	if err := c.do(ctx, http.MethodPost, "/subaccount", body, &data); err != nil {
		return "", apperror.NewUpstreamError("Could not create subaccount", err)
	}
	return data.SubAccountCode, nil
}
