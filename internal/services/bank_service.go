package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"studentpay-backend/internal/cache"
	"studentpay-backend/internal/gateway"
	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/models"
	"studentpay-backend/pkg/apperror"
)

// JSONCache is the cache surface services use. *cache.Cache satisfies it.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest any) bool
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration)
	InvalidateKeys(ctx context.Context, keys ...string)
}

// BankService serves the settlement bank list and resolves department accounts
type BankService struct {
	directory gateway.BankDirectory
	cache     JSONCache
	logger    *logging.Logger
}

func NewBankService(directory gateway.BankDirectory, c JSONCache, logger *logging.Logger) *BankService {
	return &BankService{directory: directory, cache: c, logger: logger.Named("bank_service")}
}

// ListBanks returns the provider's bank list, cached for a day
func (s *BankService) ListBanks(ctx context.Context) ([]models.Bank, error) {
	var banks []models.Bank
	if s.cache.GetJSON(ctx, cache.BankListKey, &banks) && len(banks) > 0 {
		return banks, nil
	}

	banks, err := s.directory.ListBanks(ctx)
	if err != nil {
		s.logger.Warn(ctx, "failed to fetch bank list", zap.Error(err))
		return nil, err
	}
	s.cache.SetJSON(ctx, cache.BankListKey, banks, cache.BanksTTL)
	return banks, nil
}

// BankCode looks a bank up by name, ignoring case and surrounding space
func (s *BankService) BankCode(ctx context.Context, bankName string) (string, error) {
	banks, err := s.ListBanks(ctx)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(bankName)
	for _, b := range banks {
		if strings.EqualFold(b.Name, name) {
			return b.Code, nil
		}
	}
	return "", apperror.NewBadRequestError("Unknown bank: " + name)
}

// SettlementAccount is a resolved bank account registered as a provider subaccount
type SettlementAccount struct {
	BankCode       string
	AccountName    string
	SubAccountCode string
}

// RegisterSettlement resolves the account holder and creates the subaccount payments settle into
func (s *BankService) RegisterSettlement(ctx context.Context, businessName, bankName, accountNumber string) (*SettlementAccount, error) {
	code, err := s.BankCode(ctx, bankName)
	if err != nil {
		return nil, err
	}

	accountName, err := s.directory.ResolveAccount(ctx, accountNumber, code)
	if err != nil {
		return nil, err
	}

	subAccount, err := s.directory.CreateSubAccount(ctx, &models.SubAccountRequest{
		BusinessName:  businessName,
		BankCode:      code,
		AccountNumber: accountNumber,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "settlement account registered",
		zap.String("bank_code", code), zap.String("subaccount", subAccount))
	return &SettlementAccount{BankCode: code, AccountName: accountName, SubAccountCode: subAccount}, nil
}
