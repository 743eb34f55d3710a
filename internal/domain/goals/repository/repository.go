// Package repository provides database operations for savings goals.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GoalStatus represents the status of a goal
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusPaused    GoalStatus = "paused"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusArchived  GoalStatus = "archived"
)

// Goal represents a savings goal funded by contributions
type Goal struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Name               string
	Status             GoalStatus
	TargetAmountMinor  int64
	CurrentAmountMinor int64
	CurrencyCode       string
	StartAt            time.Time
	EndAt              *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// GoalContribution represents money put toward a goal, optionally
// linked to an imported transaction
type GoalContribution struct {
	ID            uuid.UUID
	GoalID        uuid.UUID
	AmountMinor   int64
	CurrencyCode  string
	Note          *string
	TransactionID *uuid.UUID
	ContributedAt time.Time
	CreatedAt     time.Time
}

// GoalRepository defines the interface for goal persistence operations
type GoalRepository interface {
	Create(ctx context.Context, goal *Goal) error
	GetByID(ctx context.Context, id uuid.UUID) (*Goal, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, statusFilter *GoalStatus) ([]*Goal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status GoalStatus) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddContribution(ctx context.Context, contribution *GoalContribution) (int64, error)
	ListContributions(ctx context.Context, goalID uuid.UUID, limit int) ([]*GoalContribution, error)
}
