// Package repository provides database operations for accounts.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountType represents the kind of account
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeCash       AccountType = "cash"
)

// Account represents a bank account transactions are imported into
type Account struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Name         string
	Type         AccountType
	CurrencyCode string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
