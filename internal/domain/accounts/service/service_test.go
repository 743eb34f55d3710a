package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/statements/internal/domain/accounts/repository"
)

type fakeRepo struct {
	accounts map[uuid.UUID]*repository.Account
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[uuid.UUID]*repository.Account)}
}

func (f *fakeRepo) Create(_ context.Context, account *repository.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return account, nil
}

func (f *fakeRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]*repository.Account, error) {
	var out []*repository.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.accounts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.accounts, id)
	return nil
}

func newTestService() (*AccountService, *fakeRepo) {
	repo := newFakeRepo()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	return NewAccountService(repo, logger), repo
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService()
	userID := uuid.New()

	t.Run("valid account", func(t *testing.T) {
		account, err := svc.Create(context.Background(), userID, "Main Checking", repository.AccountTypeChecking, "eur")
		require.NoError(t, err)
		assert.Equal(t, "EUR", account.CurrencyCode, "currency should be upper-cased")
		assert.NotEqual(t, uuid.Nil, account.ID)
	})

	t.Run("defaults to checking", func(t *testing.T) {
		account, err := svc.Create(context.Background(), userID, "Wallet", "", "EUR")
		require.NoError(t, err)
		assert.Equal(t, repository.AccountTypeChecking, account.Type)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		_, err := svc.Create(context.Background(), userID, "   ", repository.AccountTypeChecking, "EUR")
		assert.ErrorIs(t, err, ErrInvalidAccount)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := svc.Create(context.Background(), userID, "X", "mattress", "EUR")
		assert.ErrorIs(t, err, ErrInvalidAccount)
	})

	t.Run("rejects unknown currency", func(t *testing.T) {
		_, err := svc.Create(context.Background(), userID, "X", repository.AccountTypeChecking, "ZZZ")
		assert.ErrorIs(t, err, ErrInvalidAccount)
	})
}

func TestGetOwned(t *testing.T) {
	svc, _ := newTestService()
	owner := uuid.New()
	account, err := svc.Create(context.Background(), owner, "Main", repository.AccountTypeChecking, "GBP")
	require.NoError(t, err)

	t.Run("owner can read", func(t *testing.T) {
		got, err := svc.GetOwned(context.Background(), account.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("stranger gets not found", func(t *testing.T) {
		_, err := svc.GetOwned(context.Background(), account.ID, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := svc.GetOwned(context.Background(), uuid.New(), owner)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCurrencyFor(t *testing.T) {
	svc, _ := newTestService()
	owner := uuid.New()
	account, err := svc.Create(context.Background(), owner, "Main", repository.AccountTypeChecking, "USD")
	require.NoError(t, err)

	currency, err := svc.CurrencyFor(context.Background(), account.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "USD", currency)

	_, err = svc.CurrencyFor(context.Background(), account.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, repo := newTestService()
	owner := uuid.New()
	account, err := svc.Create(context.Background(), owner, "Main", repository.AccountTypeChecking, "EUR")
	require.NoError(t, err)

	require.Error(t, svc.Delete(context.Background(), account.ID, uuid.New()))
	require.NoError(t, svc.Delete(context.Background(), account.ID, owner))
	assert.Empty(t, repo.accounts)
}
