package handlers

import (
	"context"
	"net/http"

	"studentpay-backend/internal/models"
	"studentpay-backend/pkg/utils"
)

type BankLister interface {
	ListBanks(ctx context.Context) ([]models.Bank, error)
}

type BankHandler struct {
	banks BankLister
}

func NewBankHandler(banks BankLister) *BankHandler {
	return &BankHandler{banks: banks}
}

func (h *BankHandler) List(w http.ResponseWriter, r *http.Request) {
	banks, err := h.banks.ListBanks(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, banks)
}
