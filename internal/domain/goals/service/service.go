// Package service provides savings goal management.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/statements/internal/domain/goals/repository"
	"github.com/ledgerline/statements/pkg/money"
)

var (
	ErrNotFound    = errors.New("goal not found")
	ErrInvalidGoal = errors.New("invalid goal")
)

const contributionListLimit = 50

// GoalService manages savings goals and their contributions
type GoalService struct {
	repo   repository.GoalRepository
	logger *slog.Logger
}

// NewGoalService creates a new goal service
func NewGoalService(repo repository.GoalRepository, logger *slog.Logger) *GoalService {
	return &GoalService{repo: repo, logger: logger}
}

// Create validates and stores a new goal
func (s *GoalService) Create(ctx context.Context, userID uuid.UUID, name string, targetMinor int64, currencyCode string, endAt *time.Time) (*repository.Goal, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidGoal)
	}
	if targetMinor <= 0 {
		return nil, fmt.Errorf("%w: target amount must be positive", ErrInvalidGoal)
	}
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	if !money.IsValidCurrency(currencyCode) {
		return nil, fmt.Errorf("%w: unknown currency %q", ErrInvalidGoal, currencyCode)
	}
	if endAt != nil && endAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: end date is in the past", ErrInvalidGoal)
	}

	goal := &repository.Goal{
		UserID:            userID,
		Name:              name,
		Status:            repository.GoalStatusActive,
		TargetAmountMinor: targetMinor,
		CurrencyCode:      currencyCode,
		EndAt:             endAt,
	}
	if err := s.repo.Create(ctx, goal); err != nil {
		return nil, err
	}

	s.logger.Info("goal created",
		slog.String("user_id", userID.String()),
		slog.String("goal_id", goal.ID.String()),
	)
	return goal, nil
}

// GetOwned returns the goal if it exists and belongs to the user
func (s *GoalService) GetOwned(ctx context.Context, id, userID uuid.UUID) (*repository.Goal, error) {
	goal, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if goal.UserID != userID {
		return nil, ErrNotFound
	}
	return goal, nil
}

// List returns the user's goals, optionally filtered by status
func (s *GoalService) List(ctx context.Context, userID uuid.UUID, statusFilter *repository.GoalStatus) ([]*repository.Goal, error) {
	return s.repo.ListByUserID(ctx, userID, statusFilter)
}

// Contribute records money put toward a goal. The amount may be
// negative to correct an earlier contribution, but never by more than
// the goal currently holds.
func (s *GoalService) Contribute(ctx context.Context, userID, goalID uuid.UUID, amountMinor int64, note *string, transactionID *uuid.UUID) (*repository.GoalContribution, error) {
	goal, err := s.GetOwned(ctx, goalID, userID)
	if err != nil {
		return nil, err
	}
	if amountMinor == 0 {
		return nil, fmt.Errorf("%w: contribution amount cannot be zero", ErrInvalidGoal)
	}
	if amountMinor < 0 && goal.CurrentAmountMinor+amountMinor < 0 {
		return nil, fmt.Errorf("%w: correction exceeds the saved amount", ErrInvalidGoal)
	}
	if goal.Status != repository.GoalStatusActive {
		return nil, fmt.Errorf("%w: goal is %s", ErrInvalidGoal, goal.Status)
	}

	contribution := &repository.GoalContribution{
		GoalID:        goalID,
		AmountMinor:   amountMinor,
		CurrencyCode:  goal.CurrencyCode,
		Note:          note,
		TransactionID: transactionID,
	}
	newTotal, err := s.repo.AddContribution(ctx, contribution)
	if err != nil {
		return nil, err
	}

	// Close out the goal when the target is reached. The repository
	// returns the total after its own atomic increment, so concurrent
	// contributions cannot make this decision from a stale snapshot.
	if newTotal >= goal.TargetAmountMinor {
		if err := s.repo.UpdateStatus(ctx, goalID, repository.GoalStatusCompleted); err != nil {
			s.logger.Warn("failed to mark goal completed",
				slog.String("goal_id", goalID.String()), slog.Any("error", err))
		}
	}
	return contribution, nil
}

// Contributions lists recent contributions for a goal owned by the user
func (s *GoalService) Contributions(ctx context.Context, userID, goalID uuid.UUID) ([]*repository.GoalContribution, error) {
	if _, err := s.GetOwned(ctx, goalID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListContributions(ctx, goalID, contributionListLimit)
}

// SetStatus changes a goal's lifecycle state
func (s *GoalService) SetStatus(ctx context.Context, userID, goalID uuid.UUID, status repository.GoalStatus) error {
	switch status {
	case repository.GoalStatusActive, repository.GoalStatusPaused,
		repository.GoalStatusCompleted, repository.GoalStatusArchived:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidGoal, status)
	}
	if _, err := s.GetOwned(ctx, goalID, userID); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, goalID, status)
}

// Delete removes a goal owned by the user
func (s *GoalService) Delete(ctx context.Context, userID, goalID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, goalID, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, goalID)
}
