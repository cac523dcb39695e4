package handlers

import (
	"context"
	"net/http"

	"studentpay-backend/internal/models"
	"studentpay-backend/pkg/utils"
)

type ReceiptVerifier interface {
	Verify(ctx context.Context, hash string) (*models.VerificationResult, error)
}

type ReceiptIssuer interface {
	IssueReceipt(ctx context.Context, reference string) (*models.ReceiptURLResponse, error)
}

type ReceiptHandler struct {
	verifier ReceiptVerifier
	issuer   ReceiptIssuer
}

func NewReceiptHandler(verifier ReceiptVerifier, issuer ReceiptIssuer) *ReceiptHandler {
	return &ReceiptHandler{verifier: verifier, issuer: issuer}
}

// Verify answers GET /verify?hash=. Unknown hashes are 404 with status "invalid".
func (h *ReceiptHandler) Verify(w http.ResponseWriter, r *http.Request) {
	result, err := h.verifier.Verify(r.Context(), r.URL.Query().Get("hash"))
	if err != nil {
		utils.Error(w, err)
		return
	}

	if !result.IsValid() {
		utils.JSON(w, http.StatusNotFound, result)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

// IssueReceipt answers the provider callback GET /api/pay/verify?trxref=
func (h *ReceiptHandler) IssueReceipt(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("trxref")
	if reference == "" {
		reference = r.URL.Query().Get("reference")
	}

	res, err := h.issuer.IssueReceipt(r.Context(), reference)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}
