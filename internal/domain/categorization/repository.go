package categorization

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/statements/pkg/db"
)

// CategoryRule represents a user-defined categorization rule
type CategoryRule struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	MatchPattern string
	Category     string
	Priority     int
	CreatedAt    time.Time
}

// TransactionRef is a transaction id with its description, the unit
// the similarity index works on
type TransactionRef struct {
	ID          uuid.UUID
	Description string
}

// Repository handles database operations for categorization
type Repository struct {
	db db.Querier
}

// NewRepository creates a new categorization repository
func NewRepository(querier db.Querier) *Repository {
	return &Repository{db: querier}
}

// GetUserRules fetches all categorization rules for a user, ordered by priority
func (r *Repository) GetUserRules(ctx context.Context, userID uuid.UUID) ([]CategoryRule, error) {
	query := `
		SELECT id, user_id, match_pattern, category, priority, created_at
		FROM category_rules
		WHERE user_id = $1
		ORDER BY priority DESC, created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list category rules: %w", err)
	}
	defer rows.Close()

	var rules []CategoryRule
	for rows.Next() {
		var rule CategoryRule
		if err := rows.Scan(
			&rule.ID,
			&rule.UserID,
			&rule.MatchPattern,
			&rule.Category,
			&rule.Priority,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// CreateRule creates a new categorization rule
func (r *Repository) CreateRule(ctx context.Context, rule *CategoryRule) error {
	query := `
		INSERT INTO category_rules (id, user_id, match_pattern, category, priority)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		rule.ID,
		rule.UserID,
		rule.MatchPattern,
		rule.Category,
		rule.Priority,
	).Scan(&rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create category rule: %w", err)
	}
	return nil
}

// DeleteRule removes a rule owned by the user
func (r *Repository) DeleteRule(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM category_rules WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete category rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecentTransactions fetches the user's latest transactions for the
// similarity index
func (r *Repository) RecentTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]TransactionRef, error) {
	query := `
		SELECT id, description
		FROM transactions
		WHERE user_id = $1
		ORDER BY posted_at DESC, created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}
	defer rows.Close()

	var refs []TransactionRef
	for rows.Next() {
		var ref TransactionRef
		if err := rows.Scan(&ref.ID, &ref.Description); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// SetCategory assigns a category to the given transactions, scoped to
// the owner
func (r *Repository) SetCategory(ctx context.Context, userID uuid.UUID, transactionIDs []uuid.UUID, category string) (int64, error) {
	if len(transactionIDs) == 0 {
		return 0, nil
	}
	query := `
		UPDATE transactions
		SET category = $3
		WHERE user_id = $1 AND id = ANY($2)`

	tag, err := r.db.Exec(ctx, query, userID, transactionIDs, category)
	if err != nil {
		return 0, fmt.Errorf("failed to update transaction categories: %w", err)
	}
	return tag.RowsAffected(), nil
}
