package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/mail"
	"studentpay-backend/internal/metrics"
	"studentpay-backend/internal/models"
	"studentpay-backend/internal/receipt"
	"studentpay-backend/internal/repositories"
	"studentpay-backend/internal/storage"
	"studentpay-backend/internal/timeutil"
	"studentpay-backend/pkg/apperror"
)

// TransactionVerifier confirms a payment with the provider. gateway.Provider satisfies it.
type TransactionVerifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*models.VerifiedTransaction, error)
}

// ReceiptTransactionStore is the part of the transaction repository receipt issuance needs
type ReceiptTransactionStore interface {
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	CreatePending(ctx context.Context, tx *models.Transaction) (bool, error)
	MarkReceipted(ctx context.Context, reference, hash, url string) (bool, error)
}

type PaymentGetter interface {
	Get(ctx context.Context, id int) (*models.Payment, error)
}

type DepartmentGetter interface {
	Get(ctx context.Context, id int) (*models.Department, error)
}

type ReceiptComposer interface {
	Compose(ctx context.Context, req *models.ReceiptRequest) (*models.ReceiptDocument, error)
}

// MailQueue accepts mail for background delivery. *mail.Dispatcher satisfies it.
type MailQueue interface {
	Enqueue(ctx context.Context, msg *mail.Message) bool
}

// ReceiptService turns a provider payment reference into a stored, verifiable receipt
type ReceiptService struct {
	provider    TransactionVerifier
	txns        ReceiptTransactionStore
	payments    PaymentGetter
	departments DepartmentGetter
	composer    ReceiptComposer
	storage     storage.ObjectStorage
	mailer      MailQueue
	logger      *logging.Logger

	flight singleflight.Group
}

func NewReceiptService(
	provider TransactionVerifier,
	txns ReceiptTransactionStore,
	payments PaymentGetter,
	departments DepartmentGetter,
	composer ReceiptComposer,
	store storage.ObjectStorage,
	mailer MailQueue,
	logger *logging.Logger,
) *ReceiptService {
	return &ReceiptService{
		provider:    provider,
		txns:        txns,
		payments:    payments,
		departments: departments,
		composer:    composer,
		storage:     store,
		mailer:      mailer,
		logger:      logger.Named("receipt_service"),
	}
}

// IssueReceipt returns the receipt for reference, generating and storing it on first call.
// Repeated and concurrent calls for the same reference yield the same receipt.
func (s *ReceiptService) IssueReceipt(ctx context.Context, reference string) (*models.ReceiptURLResponse, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperror.NewBadRequestError("trxref query parameter is required")
	}

	if existing, err := s.receipted(ctx, reference); err != nil || existing != nil {
		return existing, err
	}

	// the first caller's cancellation must not fail everyone sharing the flight
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.flight.Do(reference, func() (interface{}, error) {
		return s.issue(flightCtx, reference)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug(ctx, "receipt issuance shared with concurrent request", zap.String("reference", reference))
	}
	return v.(*models.ReceiptURLResponse), nil
}

// receipted returns the stored receipt for reference, or nil when there is none yet
func (s *ReceiptService) receipted(ctx context.Context, reference string) (*models.ReceiptURLResponse, error) {
	tx, err := s.txns.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx.ReceiptState != models.ReceiptStateReceipted {
		return nil, nil
	}
	metrics.ReceiptsIssued.WithLabelValues("existing").Inc()
	return &models.ReceiptURLResponse{ReceiptURL: tx.ReceiptURL, Hash: tx.ReceiptHash}, nil
}

func (s *ReceiptService) issue(ctx context.Context, reference string) (*models.ReceiptURLResponse, error) {
	// a previous flight may have finished between the caller's check and this one
	if existing, err := s.receipted(ctx, reference); err != nil || existing != nil {
		return existing, err
	}

	vt, err := s.provider.VerifyTransaction(ctx, reference)
	if err != nil {
		metrics.ReceiptsIssued.WithLabelValues("upstream_error").Inc()
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewUpstreamError("Could not verify transaction", err)
	}
	if vt.Reference != reference {
		if existing, err := s.receipted(ctx, vt.Reference); err != nil || existing != nil {
			return existing, err
		}
	}

	payment, dept, err := s.loadParties(ctx, vt)
	if err != nil {
		metrics.ReceiptsIssued.WithLabelValues("upstream_error").Inc()
		return nil, err
	}

	tx := newPendingTransaction(vt, payment, dept)
	created, err := s.txns.CreatePending(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !created {
		// a pending row survives from an earlier attempt whose upload failed
		if existing, err := s.receipted(ctx, vt.Reference); err != nil || existing != nil {
			return existing, err
		}
	}

	doc, err := s.composer.Compose(ctx, buildReceiptRequest(vt, payment, dept))
	if err != nil {
		metrics.ReceiptsIssued.WithLabelValues("generation_error").Inc()
		s.logger.Error(ctx, "receipt generation failed", zap.String("reference", vt.Reference), zap.Error(err))
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewReceiptGenerationError("Problem encountered creating receipt", err)
	}

	url, err := s.storage.Upload(ctx, storage.ReceiptKey(doc.Hash), doc.PDF, "application/pdf")
	if err != nil {
		metrics.ReceiptsIssued.WithLabelValues("storage_error").Inc()
		return nil, apperror.NewStorageUploadError(err)
	}

	updated, err := s.txns.MarkReceipted(ctx, vt.Reference, doc.Hash, url)
	if err != nil {
		return nil, err
	}
	if !updated {
		// another instance receipted it first; its hash is the same and the object was overwritten in place
		if existing, err := s.receipted(ctx, vt.Reference); err != nil || existing != nil {
			return existing, err
		}
		return nil, fmt.Errorf("transaction %s vanished while issuing receipt", vt.Reference)
	}

	metrics.ReceiptsIssued.WithLabelValues("issued").Inc()
	s.logger.Info(ctx, "receipt issued",
		zap.String("reference", vt.Reference),
		zap.Int64("txn_id", vt.TxnID),
		zap.String("hash", doc.Hash))

	s.sendReceipt(ctx, tx, payment, dept, doc, url)

	return &models.ReceiptURLResponse{ReceiptURL: url, Hash: doc.Hash}, nil
}

// loadParties resolves the payment and department named in the provider metadata
func (s *ReceiptService) loadParties(ctx context.Context, vt *models.VerifiedTransaction) (*models.Payment, *models.Department, error) {
	payment, err := s.payments.Get(ctx, vt.Metadata.PaymentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, apperror.NewUpstreamError("Transaction references an unknown payment", err)
		}
		return nil, nil, err
	}
	if payment.DepartmentID != vt.Metadata.DepartmentID {
		return nil, nil, apperror.NewUpstreamError("Transaction metadata does not match payment",
			fmt.Errorf("payment %d belongs to department %d, not %d", payment.ID, payment.DepartmentID, vt.Metadata.DepartmentID))
	}

	dept, err := s.departments.Get(ctx, vt.Metadata.DepartmentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, apperror.NewUpstreamError("Transaction references an unknown department", err)
		}
		return nil, nil, err
	}
	return payment, dept, nil
}

func newPendingTransaction(vt *models.VerifiedTransaction, payment *models.Payment, dept *models.Department) *models.Transaction {
	deptID, paymentID := dept.ID, payment.ID
	return &models.Transaction{
		TxnID:         vt.TxnID,
		Reference:     vt.Reference,
		DepartmentID:  &deptID,
		DeptName:      dept.DeptName,
		PaymentID:     &paymentID,
		AmountPaid:    vt.Amount,
		Status:        vt.Status,
		CustomerCode:  vt.Metadata.CustomerCode,
		FirstName:     vt.Metadata.FirstName,
		LastName:      vt.Metadata.LastName,
		CustomerEmail: vt.Metadata.Email,
		ReceivedFrom:  vt.ReceivedFrom(),
		IPAddress:     vt.IPAddress,
		DatePaid:      vt.DatePaid,
		ReceiptState:  models.ReceiptStatePending,
	}
}

func buildReceiptRequest(vt *models.VerifiedTransaction, payment *models.Payment, dept *models.Department) *models.ReceiptRequest {
	return &models.ReceiptRequest{
		DepartmentName:     dept.DeptName,
		Header:             strings.ToUpper(dept.DeptName),
		DepartmentLogo:     dept.LogoURL,
		PresidentSignature: dept.PresidentSignatureURL,
		SecretarySignature: dept.SecretarySignatureURL,
		DatePaid:           displayDate(vt.DatePaid),
		ReceivedFrom:       vt.ReceivedFrom(),
		PaymentFor:         payment.PaymentFor,
		Amount:             vt.Amount,
		Identity: models.ReceiptIdentity{
			CustomerEmail: vt.Metadata.Email,
			DatePaid:      vt.DatePaid,
			TxnID:         vt.TxnID,
		},
	}
}

func displayDate(canonical string) string {
	t, err := timeutil.ParseDate(canonical)
	if err != nil {
		return canonical
	}
	return t.Format(timeutil.DisplayLayout)
}

// sendReceipt queues the receipt mail. Failures never reach the payer's request.
func (s *ReceiptService) sendReceipt(ctx context.Context, tx *models.Transaction, payment *models.Payment, dept *models.Department, doc *models.ReceiptDocument, url string) {
	if s.mailer == nil || tx.CustomerEmail == "" {
		return
	}
	msg, err := mail.ReceiptMessage(mail.ReceiptData{
		To:             tx.CustomerEmail,
		ReceivedFrom:   tx.ReceivedFrom,
		DepartmentName: dept.DeptName,
		PaymentFor:     payment.PaymentFor,
		Amount:         receipt.FormatAmount(tx.AmountPaid),
		DatePaid:       displayDate(tx.DatePaid),
		Reference:      tx.Reference,
		ReceiptURL:     url,
		VerifyURL:      doc.VerifyURL,
		PDF:            doc.PDF,
		Filename:       fmt.Sprintf("%s_%s.pdf", strings.ReplaceAll(tx.ReceivedFrom, " ", "_"), tx.DatePaid),
	})
	if err != nil {
		s.logger.Warn(ctx, "failed to build receipt mail", zap.String("reference", tx.Reference), zap.Error(err))
		return
	}
	s.mailer.Enqueue(ctx, msg)
}
