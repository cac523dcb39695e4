package repositories

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"studentpay-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPayment(ctx context.Context, t *testing.T) (*models.Department, *models.Payment) {
	t.Helper()
	pool := requirePool(t)

	dept := &models.Department{
		Email:        uuid.NewString() + "@dept.test",
		PasswordHash: "x",
		DeptName:     "Computer Science",
	}
	require.NoError(t, NewDepartmentRepository(pool).Create(ctx, dept))

	payment := &models.Payment{DepartmentID: dept.ID, PaymentFor: "Dues", AmountDue: 500000}
	require.NoError(t, NewPaymentRepository(pool).Create(ctx, payment))
	return dept, payment
}

var nextTxnID atomic.Int64

func init() { nextTxnID.Store(time.Now().UnixNano()) }

func pendingTxn(dept *models.Department, payment *models.Payment) *models.Transaction {
	return &models.Transaction{
		TxnID:         nextTxnID.Add(1),
		Reference:     "ref-" + uuid.NewString(),
		DepartmentID:  &dept.ID,
		PaymentID:     &payment.ID,
		AmountPaid:    payment.AmountDue,
		Status:        "success",
		FirstName:     "Jane",
		LastName:      "Doe",
		CustomerEmail: "jane@x.com",
		ReceivedFrom:  "Jane Doe",
		DatePaid:      "2024-01-05",
	}
}

func TestTransactionRepository_CreatePendingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dept, payment := seedPayment(ctx, t)
	repo := NewTransactionRepository(testPool)

	tx := pendingTxn(dept, payment)
	created, err := repo.CreatePending(ctx, tx)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, tx.CreatedAt.IsZero())

	created, err = repo.CreatePending(ctx, pendingTxn(dept, payment))
	require.NoError(t, err)
	assert.True(t, created, "distinct reference should insert")

	dup := pendingTxn(dept, payment)
	dup.Reference = tx.Reference
	created, err = repo.CreatePending(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created, "same reference must not insert twice")

	got, err := repo.GetByReference(ctx, tx.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptStatePending, got.ReceiptState)
	assert.Equal(t, "Computer Science", got.DeptName)
	assert.Equal(t, "2024-01-05", got.DatePaid)
	assert.Nil(t, got.ReceiptedAt)
}

func TestTransactionRepository_MarkReceiptedOnce(t *testing.T) {
	ctx := context.Background()
	dept, payment := seedPayment(ctx, t)
	repo := NewTransactionRepository(testPool)

	tx := pendingTxn(dept, payment)
	_, err := repo.CreatePending(ctx, tx)
	require.NoError(t, err)

	hash := strings.Repeat("a", 56) + uuid.NewString()[:8]

	_, err = repo.GetByReceiptHash(ctx, hash)
	assert.ErrorIs(t, err, ErrNotFound, "pending rows are not discoverable by hash")

	ok, err := repo.MarkReceipted(ctx, tx.Reference, hash, "https://cdn.test/r.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkReceipted(ctx, tx.Reference, strings.Repeat("b", 64), "https://cdn.test/other.pdf")
	require.NoError(t, err)
	assert.False(t, ok, "second transition must be rejected")

	got, err := repo.GetByReceiptHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, tx.Reference, got.Reference)
	assert.Equal(t, models.ReceiptStateReceipted, got.ReceiptState)
	assert.Equal(t, "https://cdn.test/r.pdf", got.ReceiptURL)
	assert.NotNil(t, got.ReceiptedAt)

	_, err = repo.GetByReceiptHash(ctx, strings.Repeat("c", 64))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionRepository_MarkReceiptedUnknownReference(t *testing.T) {
	requirePool(t)
	ok, err := NewTransactionRepository(testPool).MarkReceipted(context.Background(), "ref-missing-"+uuid.NewString(), strings.Repeat("d", 64), "u")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransactionRepository_ListAndStats(t *testing.T) {
	ctx := context.Background()
	dept, payment := seedPayment(ctx, t)
	repo := NewTransactionRepository(testPool)

	for i := 0; i < 3; i++ {
		_, err := repo.CreatePending(ctx, pendingTxn(dept, payment))
		require.NoError(t, err)
	}

	page, err := repo.List(ctx, models.TransactionFilter{DepartmentID: dept.ID, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	assert.Len(t, page.Results, 2)

	stats, err := repo.Stats(ctx, dept.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3*payment.AmountDue, stats.TotalAmount)
	assert.EqualValues(t, 3, stats.TotalTransactions)
	assert.EqualValues(t, 1, stats.TotalPayments)
}
