package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"studentpay-backend/internal/auth"
	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/mail"
	"studentpay-backend/internal/models"
	"studentpay-backend/internal/receipt"
	"studentpay-backend/internal/repositories"
	"studentpay-backend/internal/storage"
	"studentpay-backend/pkg/apperror"
)

type DepartmentStore interface {
	Create(ctx context.Context, d *models.Department) error
	Get(ctx context.Context, id int) (*models.Department, error)
	GetByEmail(ctx context.Context, email string) (*models.Department, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, d *models.Department) error
	UpdateAsset(ctx context.Context, id int, kind, url string) error
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	SetVerified(ctx context.Context, id int, verified bool) error
}

// TokenIssuer signs access tokens. *auth.JWTManager satisfies it.
type TokenIssuer interface {
	GenerateToken(dept *models.Department) (string, error)
}

type DepartmentService struct {
	repo    DepartmentStore
	banks   *BankService
	tokens  TokenIssuer
	storage storage.ObjectStorage
	mailer  MailQueue
	siteURL string
	logger  *logging.Logger
}

func NewDepartmentService(
	repo DepartmentStore,
	banks *BankService,
	tokens TokenIssuer,
	store storage.ObjectStorage,
	mailer MailQueue,
	siteURL string,
	logger *logging.Logger,
) *DepartmentService {
	return &DepartmentService{
		repo:    repo,
		banks:   banks,
		tokens:  tokens,
		storage: store,
		mailer:  mailer,
		siteURL: strings.TrimRight(siteURL, "/"),
		logger:  logger.Named("department_service"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *DepartmentService) Register(ctx context.Context, req *models.RegisterDepartmentRequest) (*models.Department, error) {
	email := normalizeEmail(req.Email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.NewConflictError("A department with this email already exists")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	dept := &models.Department{
		Email:        email,
		PasswordHash: hash,
		DeptName:     strings.TrimSpace(req.DeptName),
	}
	if err := s.repo.Create(ctx, dept); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "department registered", zap.Int("department_id", dept.ID))
	s.notify(ctx, dept, mail.WelcomeMessage, "")
	return dept, nil
}

func (s *DepartmentService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	dept, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.VerifyPassword(dept.PasswordHash, req.Password) {
		return nil, apperror.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(dept)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{AccessToken: token, Department: dept}, nil
}

func (s *DepartmentService) Get(ctx context.Context, id int) (*models.Department, error) {
	dept, err := s.repo.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperror.NewNotFoundError("Department")
	}
	return dept, err
}

// UpdateProfile renames the department and, when an account number is given,
// registers it as the settlement account for future payments.
func (s *DepartmentService) UpdateProfile(ctx context.Context, id int, req *models.UpdateDepartmentRequest) (*models.Department, error) {
	dept, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.DeptName); name != "" {
		dept.DeptName = name
	}

	if req.AccountNumber != "" && (req.AccountNumber != dept.AccountNumber || !strings.EqualFold(req.BankName, dept.BankName)) {
		settlement, err := s.banks.RegisterSettlement(ctx, dept.DeptName, req.BankName, req.AccountNumber)
		if err != nil {
			return nil, err
		}
		dept.AccountNumber = req.AccountNumber
		dept.BankName = strings.TrimSpace(req.BankName)
		dept.BankCode = settlement.BankCode
		dept.AccountName = settlement.AccountName
		dept.SubAccountCode = settlement.SubAccountCode
	}

	if err := s.repo.UpdateProfile(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

func (s *DepartmentService) ChangePassword(ctx context.Context, id int, req *models.ChangePasswordRequest) error {
	dept, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(dept.PasswordHash, req.OldPassword) {
		return apperror.NewBadRequestError("Current password is incorrect")
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, hash)
}

// IsAssetKind reports whether kind names an uploadable department image
func IsAssetKind(kind string) bool {
	switch kind {
	case models.AssetLogo, models.AssetPresidentSignature, models.AssetSecretarySignature:
		return true
	}
	return false
}

// UploadAsset stores a logo or signature image and records its URL.
// Images are re-encoded to PNG so receipts embed them without conversion.
func (s *DepartmentService) UploadAsset(ctx context.Context, id int, kind string, data []byte) (*models.Department, error) {
	if !IsAssetKind(kind) {
		return nil, apperror.NewBadRequestError("Unknown asset kind: " + kind)
	}

	png, err := receipt.NormalizePNG(data)
	if errors.Is(err, receipt.ErrImageTooLarge) {
		return nil, apperror.NewBadRequestError("Image must be at most 4096x4096 pixels")
	}
	if err != nil {
		return nil, apperror.NewBadRequestError("Uploaded file is not a supported image")
	}

	url, err := s.storage.Upload(ctx, storage.AssetKey(id, kind, ".png"), png, "image/png")
	if err != nil {
		return nil, apperror.Wrap(http.StatusBadGateway, apperror.CodeStorageUpload, "Problem encountered storing image", err)
	}

	if err := s.repo.UpdateAsset(ctx, id, kind, url); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NewNotFoundError("Department")
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Approve marks a department verified so it can start collecting payments
func (s *DepartmentService) Approve(ctx context.Context, id int) (*models.Department, error) {
	return s.setVerified(ctx, id, true, "")
}

func (s *DepartmentService) Reject(ctx context.Context, id int, reason string) (*models.Department, error) {
	return s.setVerified(ctx, id, false, reason)
}

func (s *DepartmentService) setVerified(ctx context.Context, id int, verified bool, reason string) (*models.Department, error) {
	if err := s.repo.SetVerified(ctx, id, verified); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperror.NewNotFoundError("Department")
		}
		return nil, err
	}
	dept, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "department verification changed",
		zap.Int("department_id", id), zap.Bool("verified", verified))
	if verified {
		s.notify(ctx, dept, mail.ApprovedMessage, "")
	} else {
		s.notify(ctx, dept, mail.RejectedMessage, reason)
	}
	return dept, nil
}

func (s *DepartmentService) notify(ctx context.Context, dept *models.Department, build func(mail.DepartmentData) (*mail.Message, error), reason string) {
	if s.mailer == nil {
		return
	}
	loginURL := ""
	if s.siteURL != "" {
		loginURL = s.siteURL + "/login"
	}
	msg, err := build(mail.DepartmentData{
		To:             dept.Email,
		DepartmentName: dept.DeptName,
		Reason:         reason,
		LoginURL:       loginURL,
	})
	if err != nil {
		s.logger.Warn(ctx, "failed to build department mail", zap.Int("department_id", dept.ID), zap.Error(err))
		return
	}
	s.mailer.Enqueue(ctx, msg)
}
