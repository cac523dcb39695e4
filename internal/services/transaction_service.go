package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/models"
	"studentpay-backend/internal/repositories"
	"studentpay-backend/pkg/apperror"
)

// CheckoutProvider starts hosted payments. gateway.Provider satisfies it.
type CheckoutProvider interface {
	InitializeCheckout(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResult, error)
	CreateCustomer(ctx context.Context, req *models.CustomerRequest) (string, error)
}

type TransactionStore interface {
	List(ctx context.Context, filter models.TransactionFilter) (*models.TransactionPage, error)
	Stats(ctx context.Context, departmentID int) (*models.TransactionStats, error)
}

type TransactionService struct {
	provider    CheckoutProvider
	txns        TransactionStore
	payments    PaymentGetter
	departments DepartmentGetter
	callbackURL string
	logger      *logging.Logger
}

func NewTransactionService(
	provider CheckoutProvider,
	txns TransactionStore,
	payments PaymentGetter,
	departments DepartmentGetter,
	callbackURL string,
	logger *logging.Logger,
) *TransactionService {
	return &TransactionService{
		provider:    provider,
		txns:        txns,
		payments:    payments,
		departments: departments,
		callbackURL: callbackURL,
		logger:      logger.Named("transaction_service"),
	}
}

// Initiate opens a checkout for a student paying one of a verified department's dues.
// The department and payment ids travel as typed metadata so receipt issuance can find them.
func (s *TransactionService) Initiate(ctx context.Context, req *models.InitiateTransactionRequest) (*models.InitiateTransactionResponse, error) {
	dept, err := s.departments.Get(ctx, req.DepartmentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NewNotFoundError("Department")
		}
		return nil, err
	}
	if !dept.IsVerified {
		return nil, apperror.New(http.StatusForbidden, apperror.CodeDepartmentUnapproved,
			"Department is not verified to receive payments")
	}

	payment, err := s.payments.Get(ctx, req.PaymentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NewNotFoundError("Payment")
		}
		return nil, err
	}
	if payment.DepartmentID != dept.ID {
		return nil, apperror.NewBadRequestError("Payment does not belong to this department")
	}

	email := strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	firstName, lastName := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)

	customerCode, err := s.provider.CreateCustomer(ctx, &models.CustomerRequest{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		return nil, err
	}

	reference := uuid.NewString()
	result, err := s.provider.InitializeCheckout(ctx, &models.CheckoutRequest{
		Email:       email,
		Amount:      payment.AmountDue,
		Reference:   reference,
		SubAccount:  dept.SubAccountCode,
		CallbackURL: s.callbackURL,
		Metadata: models.TransactionMetadata{
			DepartmentID: dept.ID,
			PaymentID:    payment.ID,
			Email:        email,
			FirstName:    firstName,
			LastName:     lastName,
			CustomerCode: customerCode,
		},
	})
	if err != nil {
		return nil, err
	}
	if result.Reference != "" {
		reference = result.Reference
	}

	s.logger.Info(ctx, "checkout initialized",
		zap.String("reference", reference),
		zap.Int("department_id", dept.ID),
		zap.Int("payment_id", payment.ID))

	return &models.InitiateTransactionResponse{AuthorizationURL: result.AuthorizationURL, Reference: reference}, nil
}

func (s *TransactionService) List(ctx context.Context, filter models.TransactionFilter) (*models.TransactionPage, error) {
	return s.txns.List(ctx, filter)
}

// Stats summarizes a department's collections. A department with no transactions has no stats.
func (s *TransactionService) Stats(ctx context.Context, departmentID int) (*models.TransactionStats, error) {
	stats, err := s.txns.Stats(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if stats.TotalTransactions == 0 {
		return nil, apperror.NewNotFoundError("Transactions for this department")
	}
	return stats, nil
}
