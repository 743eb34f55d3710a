package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ledgerline/statements/pkg/db"
)

// PostgresGoalRepository implements GoalRepository using PostgreSQL
type PostgresGoalRepository struct {
	db db.Querier
}

// NewPostgresGoalRepository creates a new PostgreSQL goal repository
func NewPostgresGoalRepository(querier db.Querier) *PostgresGoalRepository {
	return &PostgresGoalRepository{db: querier}
}

// Create inserts a new goal
func (r *PostgresGoalRepository) Create(ctx context.Context, goal *Goal) error {
	query := `
		INSERT INTO goals (id, user_id, name, status, target_amount_minor, current_amount_minor, currency_code, start_at, end_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	if goal.StartAt.IsZero() {
		goal.StartAt = time.Now()
	}

	err := r.db.QueryRow(ctx, query,
		goal.ID,
		goal.UserID,
		goal.Name,
		goal.Status,
		goal.TargetAmountMinor,
		goal.CurrentAmountMinor,
		goal.CurrencyCode,
		goal.StartAt,
		goal.EndAt,
	).Scan(&goal.CreatedAt, &goal.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// GetByID retrieves a goal by ID
func (r *PostgresGoalRepository) GetByID(ctx context.Context, id uuid.UUID) (*Goal, error) {
	query := `
		SELECT id, user_id, name, status, target_amount_minor, current_amount_minor, currency_code, start_at, end_at, created_at, updated_at
		FROM goals
		WHERE id = $1`

	goal := &Goal{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&goal.ID,
		&goal.UserID,
		&goal.Name,
		&goal.Status,
		&goal.TargetAmountMinor,
		&goal.CurrentAmountMinor,
		&goal.CurrencyCode,
		&goal.StartAt,
		&goal.EndAt,
		&goal.CreatedAt,
		&goal.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return goal, nil
}

// ListByUserID retrieves the user's goals, optionally filtered by status
func (r *PostgresGoalRepository) ListByUserID(ctx context.Context, userID uuid.UUID, statusFilter *GoalStatus) ([]*Goal, error) {
	query := `
		SELECT id, user_id, name, status, target_amount_minor, current_amount_minor, currency_code, start_at, end_at, created_at, updated_at
		FROM goals
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*Goal
	for rows.Next() {
		goal := &Goal{}
		if err := rows.Scan(
			&goal.ID,
			&goal.UserID,
			&goal.Name,
			&goal.Status,
			&goal.TargetAmountMinor,
			&goal.CurrentAmountMinor,
			&goal.CurrencyCode,
			&goal.StartAt,
			&goal.EndAt,
			&goal.CreatedAt,
			&goal.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

// UpdateStatus changes a goal's lifecycle state
func (r *PostgresGoalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status GoalStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE goals SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update goal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a goal and its contributions
func (r *PostgresGoalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddContribution records a contribution and moves the goal's running
// total inside one transaction. It returns the goal's total after the
// increment so callers decide on completion against the value the
// database actually holds, not a stale read.
func (r *PostgresGoalRepository) AddContribution(ctx context.Context, contribution *GoalContribution) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if contribution.ID == uuid.Nil {
		contribution.ID = uuid.New()
	}
	if contribution.ContributedAt.IsZero() {
		contribution.ContributedAt = time.Now()
	}

	insertQuery := `
		INSERT INTO goal_contributions (id, goal_id, amount_minor, currency_code, note, transaction_id, contributed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err = tx.QueryRow(ctx, insertQuery,
		contribution.ID,
		contribution.GoalID,
		contribution.AmountMinor,
		contribution.CurrencyCode,
		contribution.Note,
		contribution.TransactionID,
		contribution.ContributedAt,
	).Scan(&contribution.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert contribution: %w", err)
	}

	updateQuery := `
		UPDATE goals
		SET current_amount_minor = current_amount_minor + $2, updated_at = now()
		WHERE id = $1
		RETURNING current_amount_minor`
	var newTotal int64
	if err := tx.QueryRow(ctx, updateQuery, contribution.GoalID, contribution.AmountMinor).Scan(&newTotal); err != nil {
		return 0, fmt.Errorf("failed to update goal amount: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newTotal, nil
}

// ListContributions retrieves recent contributions for a goal
func (r *PostgresGoalRepository) ListContributions(ctx context.Context, goalID uuid.UUID, limit int) ([]*GoalContribution, error) {
	query := `
		SELECT id, goal_id, amount_minor, currency_code, note, transaction_id, contributed_at, created_at
		FROM goal_contributions
		WHERE goal_id = $1
		ORDER BY contributed_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, goalID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*GoalContribution
	for rows.Next() {
		c := &GoalContribution{}
		if err := rows.Scan(
			&c.ID,
			&c.GoalID,
			&c.AmountMinor,
			&c.CurrencyCode,
			&c.Note,
			&c.TransactionID,
			&c.ContributedAt,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}
