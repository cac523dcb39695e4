package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/models"
	"studentpay-backend/internal/repositories"
	"studentpay-backend/pkg/apperror"
)

type fakeHashStore struct {
	byHash map[string]*models.Transaction
	calls  int
	err    error
}

func (f *fakeHashStore) GetByReceiptHash(_ context.Context, hash string) (*models.Transaction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tx, ok := f.byHash[hash]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return tx, nil
}

type memoryCache struct {
	data map[string][]byte
}

func (m *memoryCache) GetJSON(_ context.Context, key string, dest any) bool {
	raw, ok := m.data[key]
	return ok && json.Unmarshal(raw, dest) == nil
}

func (m *memoryCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) {
	raw, _ := json.Marshal(value)
	m.data[key] = raw
}

func receiptedTx() *models.Transaction {
	hash := ComputeHash("jane@x.com", "2024-01-05", 1001)
	return &models.Transaction{
		TxnID:        1001,
		AmountPaid:   500000,
		DatePaid:     "2024-01-05",
		DeptName:     "Department of Computer Science",
		ReceiptState: models.ReceiptStateReceipted,
		ReceiptHash:  hash,
	}
}

func TestVerify_KnownHash(t *testing.T) {
	tx := receiptedTx()
	store := &fakeHashStore{byHash: map[string]*models.Transaction{tx.ReceiptHash: tx}}
	v := NewVerifier(store, nil, logging.NewNop())

	result, err := v.Verify(context.Background(), ComputeHash("jane@x.com", "2024-01-05", 1001))

	require.NoError(t, err)
	assert.Equal(t, &models.VerificationResult{
		Status:        models.VerificationValid,
		TransactionID: 1001,
		Amount:        500000,
		Date:          "2024-01-05",
		Department:    "Department of Computer Science",
	}, result)
}

func TestVerify_UnknownHashIsInvalidNotError(t *testing.T) {
	v := NewVerifier(&fakeHashStore{byHash: map[string]*models.Transaction{}}, nil, logging.NewNop())

	result, err := v.Verify(context.Background(), "deadbeef")

	require.NoError(t, err)
	assert.Equal(t, models.VerificationInvalid, result.Status)
	assert.False(t, result.IsValid())
	assert.Zero(t, result.TransactionID)
}

func TestVerify_CaseSensitive(t *testing.T) {
	tx := receiptedTx()
	store := &fakeHashStore{byHash: map[string]*models.Transaction{tx.ReceiptHash: tx}}
	v := NewVerifier(store, nil, logging.NewNop())

	upper := []byte(tx.ReceiptHash)
	for i, c := range upper {
		if c >= 'a' && c <= 'f' {
			upper[i] = c - 32
		}
	}

	result, err := v.Verify(context.Background(), string(upper))
	require.NoError(t, err)
	assert.Equal(t, models.VerificationInvalid, result.Status)
}

func TestVerify_MissingHash(t *testing.T) {
	store := &fakeHashStore{}
	v := NewVerifier(store, nil, logging.NewNop())

	_, err := v.Verify(context.Background(), "  ")

	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeMissingHash))
	assert.Equal(t, 400, apperror.GetAppError(err).Status)
	assert.Zero(t, store.calls)
}

func TestVerify_StoreFailurePropagates(t *testing.T) {
	v := NewVerifier(&fakeHashStore{err: errors.New("connection reset")}, nil, logging.NewNop())

	_, err := v.Verify(context.Background(), "abc")

	assert.EqualError(t, err, "connection reset")
}

func TestVerify_CachesOnlyValidResults(t *testing.T) {
	tx := receiptedTx()
	store := &fakeHashStore{byHash: map[string]*models.Transaction{tx.ReceiptHash: tx}}
	results := &memoryCache{data: map[string][]byte{}}
	v := NewVerifier(store, results, logging.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := v.Verify(ctx, tx.ReceiptHash)
		require.NoError(t, err)
		assert.True(t, result.IsValid())
	}
	assert.Equal(t, 1, store.calls)

	for i := 0; i < 2; i++ {
		_, err := v.Verify(ctx, "deadbeef")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.calls)
	assert.Len(t, results.data, 1)
}
