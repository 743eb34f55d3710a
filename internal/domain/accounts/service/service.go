// Package service provides account management and ownership checks.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerline/statements/internal/domain/accounts/repository"
	"github.com/ledgerline/statements/pkg/money"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrInvalidAccount = errors.New("invalid account")
)

var validTypes = map[repository.AccountType]bool{
	repository.AccountTypeChecking:   true,
	repository.AccountTypeSavings:    true,
	repository.AccountTypeCreditCard: true,
	repository.AccountTypeCash:       true,
}

// AccountService manages accounts and answers ownership queries for
// the import pipeline
type AccountService struct {
	repo   repository.AccountRepository
	logger *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(repo repository.AccountRepository, logger *slog.Logger) *AccountService {
	return &AccountService{repo: repo, logger: logger}
}

// Create validates and stores a new account
func (s *AccountService) Create(ctx context.Context, userID uuid.UUID, name string, accountType repository.AccountType, currencyCode string) (*repository.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidAccount)
	}
	if accountType == "" {
		accountType = repository.AccountTypeChecking
	}
	if !validTypes[accountType] {
		return nil, fmt.Errorf("%w: unknown account type %q", ErrInvalidAccount, accountType)
	}
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	if !money.IsValidCurrency(currencyCode) {
		return nil, fmt.Errorf("%w: unknown currency %q", ErrInvalidAccount, currencyCode)
	}

	account := &repository.Account{
		UserID:       userID,
		Name:         name,
		Type:         accountType,
		CurrencyCode: currencyCode,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		slog.String("user_id", userID.String()),
		slog.String("account_id", account.ID.String()),
	)
	return account, nil
}

// GetOwned returns the account if it exists and belongs to the user
func (s *AccountService) GetOwned(ctx context.Context, id, userID uuid.UUID) (*repository.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	// Report foreign accounts as missing rather than forbidden.
	if account.UserID != userID {
		return nil, ErrNotFound
	}
	return account, nil
}

// List returns the user's accounts
func (s *AccountService) List(ctx context.Context, userID uuid.UUID) ([]*repository.Account, error) {
	return s.repo.ListByUserID(ctx, userID)
}

// Delete removes an account owned by the user
func (s *AccountService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// CurrencyFor resolves the account's currency for the import pipeline,
// enforcing ownership on the way.
func (s *AccountService) CurrencyFor(ctx context.Context, accountID, userID uuid.UUID) (string, error) {
	account, err := s.GetOwned(ctx, accountID, userID)
	if err != nil {
		return "", err
	}
	return account.CurrencyCode, nil
}
