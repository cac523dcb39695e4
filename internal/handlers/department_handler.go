package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"studentpay-backend/internal/middleware"
	"studentpay-backend/internal/models"
	"studentpay-backend/pkg/apperror"
	"studentpay-backend/pkg/utils"
)

const maxAssetBytes = 5 << 20

type DepartmentService interface {
	Register(ctx context.Context, req *models.RegisterDepartmentRequest) (*models.Department, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	Get(ctx context.Context, id int) (*models.Department, error)
	UpdateProfile(ctx context.Context, id int, req *models.UpdateDepartmentRequest) (*models.Department, error)
	ChangePassword(ctx context.Context, id int, req *models.ChangePasswordRequest) error
	UploadAsset(ctx context.Context, id int, kind string, data []byte) (*models.Department, error)
	Approve(ctx context.Context, id int) (*models.Department, error)
	Reject(ctx context.Context, id int, reason string) (*models.Department, error)
}

type DepartmentHandler struct {
	Service DepartmentService
}

func NewDepartmentHandler(s DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{Service: s}
}

// currentDepartment is the id put in context by the auth middleware
func currentDepartment(r *http.Request) (int, error) {
	id, ok := middleware.GetDepartmentIDFromContext(r.Context())
	if !ok {
		return 0, apperror.ErrUnauthorized
	}
	return id, nil
}

func (h *DepartmentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterDepartmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	dept, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, dept)
}

func (h *DepartmentHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	res, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *DepartmentHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, err := currentDepartment(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	dept, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dept)
}

func (h *DepartmentHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, err := currentDepartment(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.UpdateDepartmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	dept, err := h.Service.UpdateProfile(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dept)
}

func (h *DepartmentHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := currentDepartment(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), id, &req); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// UploadAsset accepts a multipart "file" field for the logo or a signature
func (h *DepartmentHandler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	id, err := currentDepartment(r)
	if err != nil {
		utils.Error(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAssetBytes+1024)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(w, apperror.NewBadRequestError("Image must be 5MB or smaller"))
			return
		}
		utils.Error(w, apperror.NewBadRequestError("file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAssetBytes+1))
	if err != nil {
		utils.Error(w, apperror.NewBadRequestError("Could not read uploaded file"))
		return
	}
	if len(data) > maxAssetBytes {
		utils.Error(w, apperror.NewBadRequestError("Image must be 5MB or smaller"))
		return
	}

	dept, err := h.Service.UploadAsset(r.Context(), id, mux.Vars(r)["kind"], data)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dept)
}

func (h *DepartmentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	dept, err := h.Service.Approve(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dept)
}

func (h *DepartmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, err)
		return
	}

	var req models.RejectDepartmentRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			utils.Error(w, err)
			return
		}
	}

	dept, err := h.Service.Reject(r.Context(), id, req.Reason)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dept)
}
