package handlers

import (
	"context"
	"net/http"
	"strconv"

	"studentpay-backend/internal/models"
	"studentpay-backend/pkg/apperror"
	"studentpay-backend/pkg/utils"
)

type TransactionService interface {
	Initiate(ctx context.Context, req *models.InitiateTransactionRequest) (*models.InitiateTransactionResponse, error)
	List(ctx context.Context, filter models.TransactionFilter) (*models.TransactionPage, error)
	Stats(ctx context.Context, departmentID int) (*models.TransactionStats, error)
}

type TransactionHandler struct {
	Service TransactionService
}

func NewTransactionHandler(s TransactionService) *TransactionHandler {
	return &TransactionHandler{Service: s}
}

// Initiate starts a checkout and returns the provider's authorization URL
func (h *TransactionHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req models.InitiateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	res, err := h.Service.Initiate(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

// List pages through the authenticated department's transactions.
// Query: limit, offset, payment, status.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	deptID, err := currentDepartment(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	filter, err := parseTransactionFilter(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	filter.DepartmentID = deptID

	page, err := h.Service.List(r.Context(), filter)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, page)
}

func (h *TransactionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	deptID, err := currentDepartment(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	stats, err := h.Service.Stats(r.Context(), deptID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, stats)
}

func parseTransactionFilter(r *http.Request) (models.TransactionFilter, error) {
	q := r.URL.Query()
	var filter models.TransactionFilter

	ints := map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset, "payment": &filter.PaymentID}
	for name, dst := range ints {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, apperror.NewBadRequestError("Invalid " + name + " parameter")
		}
		*dst = n
	}
	filter.Status = q.Get("status")
	return filter, nil
}
