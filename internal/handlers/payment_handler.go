package handlers

import (
	"context"
	"net/http"

	"studentpay-backend/internal/models"
	"studentpay-backend/pkg/utils"
)

type PaymentService interface {
	Create(ctx context.Context, departmentID int, req *models.CreatePaymentRequest) (*models.Payment, error)
	Get(ctx context.Context, id int) (*models.Payment, error)
	ListByDepartment(ctx context.Context, departmentID int) ([]*models.Payment, error)
	Update(ctx context.Context, departmentID, id int, req *models.UpdatePaymentRequest) (*models.Payment, error)
	Delete(ctx context.Context, departmentID, id int) error
}

type PaymentHandler struct {
	Service PaymentService
}

func NewPaymentHandler(s PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: s}
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	deptID, err := currentDepartment(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.CreatePaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	payment, err := h.Service.Create(r.Context(), deptID, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, payment)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	payment, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) ListByDepartment(w http.ResponseWriter, r *http.Request) {
	deptID, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	payments, err := h.Service.ListByDepartment(r.Context(), deptID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	deptID, err := currentDepartment(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.UpdatePaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	payment, err := h.Service.Update(r.Context(), deptID, id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deptID, err := currentDepartment(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), deptID, id); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
