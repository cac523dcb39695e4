package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/models"
	"studentpay-backend/pkg/apperror"
)

type fakeRazorpay struct {
	payment map[string]interface{}
	err     error
	created map[string]interface{}
}

func (f *fakeRazorpay) Fetch(string, map[string]interface{}, map[string]string) (map[string]interface{}, error) {
	return f.payment, f.err
}

func (f *fakeRazorpay) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.created = data
	return map[string]interface{}{"id": "plink_1", "short_url": "https://rzp.io/i/abc"}, f.err
}

func TestRazorpayVerify_Captured(t *testing.T) {
	fake := &fakeRazorpay{payment: map[string]interface{}{
		"id":         "pay_29QQoUBi66xm2f",
		"status":     "captured",
		"amount":     float64(250000),
		"email":      "jane@x.com",
		"created_at": float64(1704447012), // 2024-01-05T09:30:12Z
		"notes":      map[string]interface{}{"department_id": "3", "payment_id": float64(7)},
	}}
	p := newRazorpayProvider(fake, fake, fake, logging.NewNop())

	tx, err := p.VerifyTransaction(context.Background(), "pay_29QQoUBi66xm2f")

	require.NoError(t, err)
	assert.Equal(t, NumericID("pay_29QQoUBi66xm2f"), tx.TxnID)
	assert.Positive(t, tx.TxnID)
	assert.Equal(t, int64(250000), tx.Amount)
	assert.Equal(t, "2024-01-05", tx.DatePaid)
	assert.Equal(t, models.TransactionMetadata{DepartmentID: 3, PaymentID: 7, Email: "jane@x.com"}, tx.Metadata)
}

func TestRazorpayVerify_NotFound(t *testing.T) {
	fake := &fakeRazorpay{err: errors.New("BAD_REQUEST_ERROR: The id provided does not exist")}
	p := newRazorpayProvider(fake, fake, fake, logging.NewNop())

	_, err := p.VerifyTransaction(context.Background(), "pay_missing")

	require.Error(t, err)
	assert.Equal(t, "Transaction not found", apperror.GetAppError(err).Message)
}

func TestRazorpayVerify_NotCaptured(t *testing.T) {
	fake := &fakeRazorpay{payment: map[string]interface{}{"status": "authorized"}}
	p := newRazorpayProvider(fake, fake, fake, logging.NewNop())

	_, err := p.VerifyTransaction(context.Background(), "pay_1")

	assert.True(t, apperror.HasCode(err, apperror.CodeUpstreamFailure))
}

func TestRazorpayInitializeCheckout(t *testing.T) {
	fake := &fakeRazorpay{}
	p := newRazorpayProvider(fake, fake, fake, logging.NewNop())

	res, err := p.InitializeCheckout(context.Background(), &models.CheckoutRequest{
		Email:     "jane@x.com",
		Amount:    250000,
		Reference: "ref_1",
		Metadata:  models.TransactionMetadata{DepartmentID: 3, PaymentID: 7, Email: "jane@x.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://rzp.io/i/abc", res.AuthorizationURL)
	assert.Equal(t, "ref_1", fake.created["reference_id"])
	assert.Equal(t, int64(250000), fake.created["amount"])
}

func TestNumericIDStable(t *testing.T) {
	assert.Equal(t, NumericID("pay_1"), NumericID("pay_1"))
	assert.NotEqual(t, NumericID("pay_1"), NumericID("pay_2"))
}
