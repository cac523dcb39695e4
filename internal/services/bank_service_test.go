package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/models"
)

func TestListBanks_Cached(t *testing.T) {
	dir := &fakeBankDirectory{banks: []models.Bank{{Name: "Access Bank", Code: "044"}}}
	svc := NewBankService(dir, newMemoryCache(), logging.NewNop())

	for i := 0; i < 3; i++ {
		banks, err := svc.ListBanks(context.Background())
		require.NoError(t, err)
		assert.Len(t, banks, 1)
	}
	assert.Equal(t, 1, dir.listCalls)
}

func TestBankCode(t *testing.T) {
	dir := &fakeBankDirectory{banks: []models.Bank{{Name: "Access Bank", Code: "044"}}}
	svc := NewBankService(dir, newMemoryCache(), logging.NewNop())

	code, err := svc.BankCode(context.Background(), "  ACCESS bank ")
	require.NoError(t, err)
	assert.Equal(t, "044", code)

	_, err = svc.BankCode(context.Background(), "Nope")
	assert.Error(t, err)
}
