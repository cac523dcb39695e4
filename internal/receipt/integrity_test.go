package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"studentpay-backend/internal/models"
)

func TestComputeHash_KnownTriple(t *testing.T) {
	h := ComputeHash("jane@x.com", "2024-01-05", 1001)

	assert.Equal(t, "97720d196e1ba0fd5ca22bde41cf0aa2adf1d3cc9ff3af15df16f456dd76f681", h)
	assert.Len(t, h, 64)
}

func TestComputeHash_Deterministic(t *testing.T) {
	first := ComputeHash("jane@x.com", "2024-01-05", 1001)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeHash("jane@x.com", "2024-01-05", 1001))
	}
	assert.NotEqual(t, first, ComputeHash("jane@x.com", "2024-01-05", 1002))
	assert.NotEqual(t, first, ComputeHash("jane@x.com", "2024-01-06", 1001))
	assert.NotEqual(t, first, ComputeHash("john@x.com", "2024-01-05", 1001))
}

func TestBuildVerifyURL_NormalizesSlashes(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://pay.example.edu", "https://pay.example.edu/verify?hash=abc"},
		{"https://pay.example.edu/", "https://pay.example.edu/verify?hash=abc"},
		{"https://pay.example.edu///", "https://pay.example.edu/verify?hash=abc"},
		{"https://example.edu/dues/", "https://example.edu/dues/verify?hash=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildVerifyURL(tt.base, "abc"))
		})
	}
}

func TestIntegrity_UsesIdentityOnly(t *testing.T) {
	i := NewIntegrity("http://localhost:8000/")
	id := models.ReceiptIdentity{CustomerEmail: "jane@x.com", DatePaid: "2024-01-05", TxnID: 1001}

	hash := i.Hash(id)

	assert.Equal(t, ComputeHash("jane@x.com", "2024-01-05", 1001), hash)
	assert.Equal(t, "http://localhost:8000/verify?hash="+hash, i.VerifyURL(hash))
}
