package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studentpay-backend/internal/handlers"
	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/middleware"
)

func NewRouter(
	receiptHandler *handlers.ReceiptHandler,
	departmentHandler *handlers.DepartmentHandler,
	paymentHandler *handlers.PaymentHandler,
	transactionHandler *handlers.TransactionHandler,
	bankHandler *handlers.BankHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	verifyLimiter *middleware.RateLimiter,
	logger *logging.Logger,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PanicRecovery(logger))
	r.Use(middleware.MetricsMiddleware)

	// Public receipt verification (QR codes point here)
	r.Handle("/verify", verifyLimiter.Middleware(http.HandlerFunc(receiptHandler.Verify))).Methods("GET")

	// Public API routes - Authentication
	r.HandleFunc("/auth/register", departmentHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", departmentHandler.Login).Methods("POST")

	// Public API routes - Checkout and provider callback
	r.HandleFunc("/api/pay/verify", receiptHandler.IssueReceipt).Methods("GET")
	r.HandleFunc("/api/pay", transactionHandler.Initiate).Methods("POST")
	r.HandleFunc("/api/banks", bankHandler.List).Methods("GET")
	r.HandleFunc("/api/departments/{id}/payments", paymentHandler.ListByDepartment).Methods("GET")
	r.HandleFunc("/api/payments/{id}", paymentHandler.Get).Methods("GET")

	// Protected API routes - Transactions
	payAPI := r.PathPrefix("/api/pay").Subrouter()
	payAPI.Use(authMiddleware.Authenticate)
	payAPI.HandleFunc("", transactionHandler.List).Methods("GET")
	payAPI.HandleFunc("/stats", transactionHandler.Stats).Methods("GET")

	// Protected API routes - Department profile
	meAPI := r.PathPrefix("/api/departments/me").Subrouter()
	meAPI.Use(authMiddleware.Authenticate)
	meAPI.HandleFunc("", departmentHandler.GetMe).Methods("GET")
	meAPI.HandleFunc("", departmentHandler.UpdateMe).Methods("PUT")
	meAPI.HandleFunc("/password", departmentHandler.ChangePassword).Methods("PUT")
	meAPI.HandleFunc("/assets/{kind}", departmentHandler.UploadAsset).Methods("POST")

	// Protected API routes - Payments
	paymentsAPI := r.PathPrefix("/api/payments").Subrouter()
	paymentsAPI.Use(authMiddleware.Authenticate)
	paymentsAPI.HandleFunc("", paymentHandler.Create).Methods("POST")
	paymentsAPI.HandleFunc("/{id}", paymentHandler.Update).Methods("PUT")
	paymentsAPI.HandleFunc("/{id}", paymentHandler.Delete).Methods("DELETE")

	// Staff-only routes - Department approval
	adminAPI := r.PathPrefix("/api/admin").Subrouter()
	adminAPI.Use(authMiddleware.Authenticate)
	adminAPI.Use(authMiddleware.RequireStaff)
	adminAPI.HandleFunc("/departments/{id}/approve", departmentHandler.Approve).Methods("POST")
	adminAPI.HandleFunc("/departments/{id}/reject", departmentHandler.Reject).Methods("POST")

	// Health and metrics
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	return r
}
