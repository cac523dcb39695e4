package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentpay-backend/internal/cache"
	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/models"
	"studentpay-backend/pkg/apperror"
)

func newPaymentFixture() (*PaymentService, *memoryPayments, *memoryCache) {
	repo := newMemoryPayments()
	c := newMemoryCache()
	depts := newMemoryDepartments(
		&models.Department{ID: 1, DeptName: "Computer Science"},
		&models.Department{ID: 2, DeptName: "Physics"},
	)
	return NewPaymentService(repo, depts, c, logging.NewNop()), repo, c
}

func TestPaymentCRUD(t *testing.T) {
	svc, _, _ := newPaymentFixture()
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, &models.CreatePaymentRequest{PaymentFor: " Dues ", AmountDue: 250000})
	require.NoError(t, err)
	assert.Equal(t, "Dues", p.PaymentFor)

	updated, err := svc.Update(ctx, 1, p.ID, &models.UpdatePaymentRequest{AmountDue: 300000})
	require.NoError(t, err)
	assert.Equal(t, int64(300000), updated.AmountDue)
	assert.Equal(t, "Dues", updated.PaymentFor)

	require.NoError(t, svc.Delete(ctx, 1, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestPayment_OtherDepartmentCannotModify(t *testing.T) {
	svc, _, _ := newPaymentFixture()
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, &models.CreatePaymentRequest{PaymentFor: "Dues", AmountDue: 1000})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 2, p.ID, &models.UpdatePaymentRequest{AmountDue: 1})
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
	assert.True(t, apperror.HasCode(svc.Delete(ctx, 2, p.ID), apperror.CodeNotFound))
}

func TestListByDepartment_CachedAndInvalidated(t *testing.T) {
	svc, _, c := newPaymentFixture()
	ctx := context.Background()
	key := cache.DepartmentPaymentsKey(1)

	_, err := svc.Create(ctx, 1, &models.CreatePaymentRequest{PaymentFor: "Dues", AmountDue: 1000})
	require.NoError(t, err)

	list, err := svc.ListByDepartment(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, c.has(key))

	_, err = svc.Create(ctx, 1, &models.CreatePaymentRequest{PaymentFor: "Levy", AmountDue: 500})
	require.NoError(t, err)
	assert.False(t, c.has(key))

	list, err = svc.ListByDepartment(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestListByDepartment_Empty(t *testing.T) {
	svc, _, _ := newPaymentFixture()

	list, err := svc.ListByDepartment(context.Background(), 2)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = svc.ListByDepartment(context.Background(), 99)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}
