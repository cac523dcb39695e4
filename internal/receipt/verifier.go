package receipt

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"studentpay-backend/internal/cache"
	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/metrics"
	"studentpay-backend/internal/models"
	"studentpay-backend/internal/repositories"
	"studentpay-backend/pkg/apperror"
)

// HashLookup finds a receipted transaction by its stored receipt hash.
// It returns repositories.ErrNotFound when nothing matches.
type HashLookup interface {
	GetByReceiptHash(ctx context.Context, hash string) (*models.Transaction, error)
}

// ResultCache stores verification answers. *cache.Cache satisfies it.
type ResultCache interface {
	GetJSON(ctx context.Context, key string, dest any) bool
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration)
}

// Verifier answers whether a receipt hash belongs to a receipted transaction.
// It never writes to the transaction store.
type Verifier struct {
	store  HashLookup
	cache  ResultCache
	logger *logging.Logger
}

// NewVerifier builds a verifier; results is optional
func NewVerifier(store HashLookup, results ResultCache, logger *logging.Logger) *Verifier {
	return &Verifier{store: store, cache: results, logger: logger.Named("receipt_verifier")}
}

// Verify looks hash up exactly as given. An unknown hash is an invalid result, not an error.
func (v *Verifier) Verify(ctx context.Context, hash string) (*models.VerificationResult, error) {
	if strings.TrimSpace(hash) == "" {
		metrics.ReceiptVerifications.WithLabelValues("missing").Inc()
		return nil, apperror.ErrMissingHash
	}

	key := cache.VerificationKey(hash)
	if v.cache != nil {
		var cached models.VerificationResult
		if v.cache.GetJSON(ctx, key, &cached) && cached.IsValid() {
			metrics.ReceiptVerifications.WithLabelValues(models.VerificationValid).Inc()
			return &cached, nil
		}
	}

	tx, err := v.store.GetByReceiptHash(ctx, hash)
	if errors.Is(err, repositories.ErrNotFound) {
		metrics.ReceiptVerifications.WithLabelValues(models.VerificationInvalid).Inc()
		return &models.VerificationResult{Status: models.VerificationInvalid}, nil
	}
	if err != nil {
		v.logger.Error(ctx, "receipt lookup failed", zap.Error(err))
		return nil, err
	}

	result := &models.VerificationResult{
		Status:        models.VerificationValid,
		TransactionID: tx.TxnID,
		Amount:        tx.AmountPaid,
		Date:          tx.DatePaid,
		Department:    tx.DeptName,
	}

	// Receipted transactions are immutable so a valid answer can be cached
	if v.cache != nil {
		v.cache.SetJSON(ctx, key, result, cache.VerificationTTL)
	}

	metrics.ReceiptVerifications.WithLabelValues(models.VerificationValid).Inc()
	return result, nil
}
