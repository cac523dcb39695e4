package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"studentpay-backend/internal/cache"
	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/models"
	"studentpay-backend/internal/repositories"
	"studentpay-backend/pkg/apperror"
)

type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	Get(ctx context.Context, id int) (*models.Payment, error)
	ListByDepartment(ctx context.Context, departmentID int) ([]*models.Payment, error)
	Update(ctx context.Context, p *models.Payment) error
	Delete(ctx context.Context, id, departmentID int) error
}

// PaymentService manages the dues items a department collects
type PaymentService struct {
	repo        PaymentStore
	departments DepartmentGetter
	cache       JSONCache
	logger      *logging.Logger
}

func NewPaymentService(repo PaymentStore, departments DepartmentGetter, c JSONCache, logger *logging.Logger) *PaymentService {
	return &PaymentService{repo: repo, departments: departments, cache: c, logger: logger.Named("payment_service")}
}

func (s *PaymentService) Create(ctx context.Context, departmentID int, req *models.CreatePaymentRequest) (*models.Payment, error) {
	p := &models.Payment{
		DepartmentID: departmentID,
		PaymentFor:   strings.TrimSpace(req.PaymentFor),
		AmountDue:    req.AmountDue,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, departmentID)
	s.logger.Info(ctx, "payment created", zap.Int("payment_id", p.ID), zap.Int("department_id", departmentID))
	return p, nil
}

func (s *PaymentService) Get(ctx context.Context, id int) (*models.Payment, error) {
	p, err := s.repo.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperror.NewNotFoundError("Payment")
	}
	return p, err
}

// ListByDepartment is the public list students pick from. Served from cache when warm.
func (s *PaymentService) ListByDepartment(ctx context.Context, departmentID int) ([]*models.Payment, error) {
	key := cache.DepartmentPaymentsKey(departmentID)

	var payments []*models.Payment
	if s.cache.GetJSON(ctx, key, &payments) {
		return payments, nil
	}

	if _, err := s.departments.Get(ctx, departmentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NewNotFoundError("Department")
		}
		return nil, err
	}

	payments, err := s.repo.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	s.cache.SetJSON(ctx, key, payments, cache.PaymentsTTL)
	return payments, nil
}

// Update changes a payment owned by departmentID. Other departments' payments read as not found.
func (s *PaymentService) Update(ctx context.Context, departmentID, id int, req *models.UpdatePaymentRequest) (*models.Payment, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.DepartmentID != departmentID {
		return nil, apperror.NewNotFoundError("Payment")
	}

	if name := strings.TrimSpace(req.PaymentFor); name != "" {
		p.PaymentFor = name
	}
	if req.AmountDue > 0 {
		p.AmountDue = req.AmountDue
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NewNotFoundError("Payment")
		}
		return nil, err
	}
	s.invalidate(ctx, departmentID)
	return p, nil
}

func (s *PaymentService) Delete(ctx context.Context, departmentID, id int) error {
	if err := s.repo.Delete(ctx, id, departmentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperror.NewNotFoundError("Payment")
		}
		return err
	}
	s.invalidate(ctx, departmentID)
	return nil
}

func (s *PaymentService) invalidate(ctx context.Context, departmentID int) {
	s.cache.InvalidateKeys(ctx, cache.DepartmentPaymentsKey(departmentID))
}
