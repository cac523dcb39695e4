package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentpay-backend/internal/middleware"
	"studentpay-backend/internal/models"
	"studentpay-backend/pkg/apperror"
)

func asDepartment(r *http.Request, id int) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.DepartmentIDKey, id))
}

type stubPayments struct {
	created   *models.CreatePaymentRequest
	createdBy int
	deleted   [2]int
}

func (s *stubPayments) Create(_ context.Context, departmentID int, req *models.CreatePaymentRequest) (*models.Payment, error) {
	s.created, s.createdBy = req, departmentID
	return &models.Payment{ID: 9, DepartmentID: departmentID, PaymentFor: req.PaymentFor, AmountDue: req.AmountDue}, nil
}

func (s *stubPayments) Get(_ context.Context, id int) (*models.Payment, error) {
	if id != 9 {
		return nil, apperror.NewNotFoundError("Payment")
	}
	return &models.Payment{ID: 9, DepartmentID: 3, PaymentFor: "Dues", AmountDue: 500000}, nil
}

func (s *stubPayments) ListByDepartment(_ context.Context, departmentID int) ([]*models.Payment, error) {
	return []*models.Payment{}, nil
}

func (s *stubPayments) Update(_ context.Context, departmentID, id int, req *models.UpdatePaymentRequest) (*models.Payment, error) {
	return &models.Payment{ID: id, DepartmentID: departmentID}, nil
}

func (s *stubPayments) Delete(_ context.Context, departmentID, id int) error {
	s.deleted = [2]int{departmentID, id}
	return nil
}

func TestPaymentHandler_Create(t *testing.T) {
	svc := &stubPayments{}
	h := NewPaymentHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(`{"payment_for":"Dues","amount_due":500000}`))
	rec := httptest.NewRecorder()
	h.Create(rec, asDepartment(req, 3))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 3, svc.createdBy)
	assert.Equal(t, int64(500000), svc.created.AmountDue)
}

func TestPaymentHandler_CreateValidation(t *testing.T) {
	h := NewPaymentHandler(&stubPayments{})

	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(`{"amount_due":0}`))
	rec := httptest.NewRecorder()
	h.Create(rec, asDepartment(req, 3))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, apperror.CodeValidation, body["code"])

	fields := map[string]bool{}
	for _, e := range body["errors"].([]any) {
		fields[e.(map[string]any)["field"].(string)] = true
	}
	assert.True(t, fields["payment_for"])
	assert.True(t, fields["amount_due"])
}

func TestPaymentHandler_CreateRequiresAuth(t *testing.T) {
	h := NewPaymentHandler(&stubPayments{})

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaymentHandler_GetAndDelete(t *testing.T) {
	svc := &stubPayments{}
	h := NewPaymentHandler(svc)

	rec := httptest.NewRecorder()
	h.Get(rec, mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/payments/10", nil), map[string]string{"id": "10"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/payments/abc", nil), map[string]string{"id": "abc"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/api/payments/9", nil), map[string]string{"id": "9"})
	rec = httptest.NewRecorder()
	h.Delete(rec, asDepartment(req, 3))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, [2]int{3, 9}, svc.deleted)
}

func TestPaymentHandler_ListByDepartmentEmpty(t *testing.T) {
	h := NewPaymentHandler(&stubPayments{})

	rec := httptest.NewRecorder()
	h.ListByDepartment(rec, mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/departments/3/payments", nil), map[string]string{"id": "3"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

type stubTransactions struct {
	filter models.TransactionFilter
}

func (s *stubTransactions) Initiate(_ context.Context, req *models.InitiateTransactionRequest) (*models.InitiateTransactionResponse, error) {
	return &models.InitiateTransactionResponse{AuthorizationURL: "https://checkout.example/abc", Reference: "ref"}, nil
}

func (s *stubTransactions) List(_ context.Context, filter models.TransactionFilter) (*models.TransactionPage, error) {
	s.filter = filter
	return &models.TransactionPage{Results: []*models.Transaction{}}, nil
}

func (s *stubTransactions) Stats(_ context.Context, departmentID int) (*models.TransactionStats, error) {
	return nil, apperror.NewNotFoundError("Transactions")
}

func TestTransactionHandler_ListFilter(t *testing.T) {
	svc := &stubTransactions{}
	h := NewTransactionHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/pay?limit=20&offset=40&payment=9&status=success", nil)
	rec := httptest.NewRecorder()
	h.List(rec, asDepartment(req, 3))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TransactionFilter{DepartmentID: 3, PaymentID: 9, Status: "success", Limit: 20, Offset: 40}, svc.filter)
}

func TestTransactionHandler_ListRejectsBadLimit(t *testing.T) {
	h := NewTransactionHandler(&stubTransactions{})

	rec := httptest.NewRecorder()
	h.List(rec, asDepartment(httptest.NewRequest(http.MethodGet, "/api/pay?limit=-1", nil), 3))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionHandler_InitiateValidatesEmail(t *testing.T) {
	h := NewTransactionHandler(&stubTransactions{})

	body := `{"first_name":"Jane","last_name":"Doe","customer_email":"not-an-email","department":3,"payment":9}`
	rec := httptest.NewRecorder()
	h.Initiate(rec, httptest.NewRequest(http.MethodPost, "/api/pay", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperror.CodeValidation, decodeBody(t, rec)["code"])
}

func TestTransactionHandler_StatsNotFound(t *testing.T) {
	h := NewTransactionHandler(&stubTransactions{})

	rec := httptest.NewRecorder()
	h.Stats(rec, asDepartment(httptest.NewRequest(http.MethodGet, "/api/pay/stats", nil), 3))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubDepartments struct {
	DepartmentService
	kind  string
	data  []byte
	pwErr error
}

func (s *stubDepartments) UploadAsset(_ context.Context, id int, kind string, data []byte) (*models.Department, error) {
	s.kind, s.data = kind, data
	return &models.Department{ID: id, LogoURL: "https://cdn.example.edu/departments/3/logo.png"}, nil
}

func (s *stubDepartments) ChangePassword(_ context.Context, id int, req *models.ChangePasswordRequest) error {
	return s.pwErr
}

func TestDepartmentHandler_UploadAsset(t *testing.T) {
	svc := &stubDepartments{}
	h := NewDepartmentHandler(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "logo.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/departments/me/assets/logo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = mux.SetURLVars(req, map[string]string{"kind": "logo"})

	rec := httptest.NewRecorder()
	h.UploadAsset(rec, asDepartment(req, 3))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "logo", svc.kind)
	assert.Equal(t, []byte("png-bytes"), svc.data)
}

func TestDepartmentHandler_UploadAssetMissingFile(t *testing.T) {
	h := NewDepartmentHandler(&stubDepartments{})

	req := httptest.NewRequest(http.MethodPost, "/api/departments/me/assets/logo", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")

	rec := httptest.NewRecorder()
	h.UploadAsset(rec, asDepartment(req, 3))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDepartmentHandler_ChangePasswordSameValue(t *testing.T) {
	h := NewDepartmentHandler(&stubDepartments{})

	body := `{"old_password":"password1","new_password":"password1"}`
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, asDepartment(httptest.NewRequest(http.MethodPut, "/api/departments/me/password", strings.NewReader(body)), 3))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := decodeBody(t, rec)["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "new_password", errs[0].(map[string]any)["field"])
}

func TestDepartmentHandler_ChangePasswordWrongOld(t *testing.T) {
	h := NewDepartmentHandler(&stubDepartments{pwErr: apperror.NewBadRequestError("Current password is incorrect")})

	body := `{"old_password":"password1","new_password":"password2"}`
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, asDepartment(httptest.NewRequest(http.MethodPut, "/api/departments/me/password", strings.NewReader(body)), 3))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeJSON_Malformed(t *testing.T) {
	var req models.LoginRequest
	rec := httptest.NewRecorder()
	err := decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{")), &req)

	require.Error(t, err)
	assert.Equal(t, apperror.CodeBadRequest, apperror.GetAppError(err).Code)
}
