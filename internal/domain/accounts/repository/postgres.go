package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ledgerline/statements/pkg/db"
)

// PostgresAccountRepository implements AccountRepository using PostgreSQL
type PostgresAccountRepository struct {
	db db.Querier
}

// NewPostgresAccountRepository creates a new PostgreSQL account repository
func NewPostgresAccountRepository(querier db.Querier) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: querier}
}

// Create inserts a new account
func (r *PostgresAccountRepository) Create(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO accounts (id, user_id, name, type, currency_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		account.ID,
		account.UserID,
		account.Name,
		account.Type,
		account.CurrencyCode,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by ID
func (r *PostgresAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	query := `
		SELECT id, user_id, name, type, currency_code, created_at, updated_at
		FROM accounts
		WHERE id = $1`

	account := &Account{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.UserID,
		&account.Name,
		&account.Type,
		&account.CurrencyCode,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// ListByUserID retrieves all accounts owned by the user
func (r *PostgresAccountRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*Account, error) {
	query := `
		SELECT id, user_id, name, type, currency_code, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account := &Account{}
		if err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Name,
			&account.Type,
			&account.CurrencyCode,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Delete removes an account
func (r *PostgresAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}
