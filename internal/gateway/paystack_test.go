package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/models"
	"studentpay-backend/pkg/apperror"
)

func newPaystackServer(t *testing.T, handler http.HandlerFunc) *PaystackClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPaystackClient(srv.URL+"/", "sk_test_123", srv.Client(), logging.NewNop())
}

const successBody = `{
  "status": true,
  "message": "Verification successful",
  "data": {
    "id": 1001,
    "status": "success",
    "reference": "ref_abc",
    "amount": 500000,
    "paid_at": "2024-01-05T09:30:12.000Z",
    "ip_address": "41.58.1.2",
    "metadata": {"department_id": 3, "payment_id": "7", "email": "jane@x.com",
                 "first_name": "Jane", "last_name": "Doe", "customer_code": "CUS_1"},
    "customer": {"email": "jane@x.com", "customer_code": "CUS_1"}
  }
}`

func TestPaystackVerify_Success(t *testing.T) {
	client := newPaystackServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ref_abc", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		w.Write([]byte(successBody))
	})

	tx, err := client.VerifyTransaction(context.Background(), "ref_abc")

	require.NoError(t, err)
	assert.Equal(t, &models.VerifiedTransaction{
		TxnID:     1001,
		Status:    "success",
		Amount:    500000,
		IPAddress: "41.58.1.2",
		Reference: "ref_abc",
		DatePaid:  "2024-01-05",
		Metadata: models.TransactionMetadata{
			DepartmentID: 3,
			PaymentID:    7,
			Email:        "jane@x.com",
			FirstName:    "Jane",
			LastName:     "Doe",
			CustomerCode: "CUS_1",
		},
	}, tx)
	assert.Equal(t, "Jane Doe", tx.ReceivedFrom())
}

func TestPaystackVerify_NotFound(t *testing.T) {
	client := newPaystackServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": false, "message": "Transaction reference not found", "code": "transaction_not_found"}`))
	})

	_, err := client.VerifyTransaction(context.Background(), "nope")

	require.Error(t, err)
	appErr := apperror.GetAppError(err)
	assert.Equal(t, apperror.CodeUpstreamFailure, appErr.Code)
	assert.Equal(t, "Transaction not found", appErr.Message)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestPaystackVerify_Malformed(t *testing.T) {
	client := newPaystackServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>upstream down</html>`))
	})

	_, err := client.VerifyTransaction(context.Background(), "ref_abc")

	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeUpstreamFailure))
}

func TestPaystackVerify_NotSuccessful(t *testing.T) {
	client := newPaystackServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": true, "data": {"id": 5, "status": "abandoned", "amount": 100}}`))
	})

	_, err := client.VerifyTransaction(context.Background(), "ref_abc")

	require.Error(t, err)
	assert.Equal(t, "Transaction not successful", apperror.GetAppError(err).Message)
}

func TestPaystackVerify_MissingMetadata(t *testing.T) {
	client := newPaystackServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": true, "data": {"id": 5, "status": "success", "amount": 100,
			"paid_at": "2024-01-05T09:30:12Z", "metadata": ""}}`))
	})

	_, err := client.VerifyTransaction(context.Background(), "ref_abc")

	require.Error(t, err)
	appErr := apperror.GetAppError(err)
	assert.Equal(t, apperror.CodeUpstreamFailure, appErr.Code)
	assert.Contains(t, appErr.Detail, "department_id")
}

func TestPaystackVerify_EmptyReference(t *testing.T) {
	client := NewPaystackClient("", "sk", nil, logging.NewNop())
	_, err := client.VerifyTransaction(context.Background(), "")
	assert.True(t, apperror.HasCode(err, apperror.CodeUpstreamFailure))
}

func TestPaystackInitializeCheckout(t *testing.T) {
	client := newPaystackServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "500000", body["amount"])
		assert.Equal(t, "ACCT_dept", body["subaccount"])
		assert.Equal(t, "subaccount", body["bearer"])
		meta := body["metadata"].(map[string]any)
		assert.EqualValues(t, 3, meta["department_id"])

		w.Write([]byte(`{"status": true, "data": {"authorization_url": "https://checkout.paystack.com/x", "reference": "ref_1"}}`))
	})

	res, err := client.InitializeCheckout(context.Background(), &models.CheckoutRequest{
		Email:      "jane@x.com",
		Amount:     500000,
		Reference:  "ref_1",
		SubAccount: "ACCT_dept",
		Metadata:   models.TransactionMetadata{DepartmentID: 3, PaymentID: 7, Email: "jane@x.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/x", res.AuthorizationURL)
}

func TestPaystackBankDirectory(t *testing.T) {
	client := newPaystackServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bank":
			w.Write([]byte(`{"status": true, "data": [{"name": "Access Bank", "code": "044"}]}`))
		case "/bank/resolve":
			assert.Equal(t, "0123456789", r.URL.Query().Get("account_number"))
			assert.Equal(t, "044", r.URL.Query().Get("bank_code"))
			w.Write([]byte(`{"status": true, "data": {"account_name": "CSC STUDENTS ASSOC"}}`))
		case "/subaccount":
			w.Write([]byte(`{"status": true, "data": {"subaccount_code": "ACCT_abc"}}`))
		case "/customer":
			w.Write([]byte(`{"status": true, "data": {"customer_code": "CUS_9"}}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	banks, err := client.ListBanks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Bank{{Name: "Access Bank", Code: "044"}}, banks)

	name, err := client.ResolveAccount(ctx, "0123456789", "044")
	require.NoError(t, err)
	assert.Equal(t, "CSC STUDENTS ASSOC", name)

	code, err := client.CreateSubAccount(ctx, &models.SubAccountRequest{BusinessName: "CSC", BankCode: "044", AccountNumber: "0123456789"})
	require.NoError(t, err)
	assert.Equal(t, "ACCT_abc", code)

	customer, err := client.CreateCustomer(ctx, &models.CustomerRequest{Email: "jane@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "CUS_9", customer)
}
