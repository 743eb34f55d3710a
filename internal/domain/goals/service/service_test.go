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

	"github.com/ledgerline/statements/internal/domain/goals/repository"
)

type fakeRepo struct {
	goals         map[uuid.UUID]*repository.Goal
	contributions []*repository.GoalContribution

	// beforeAdd runs just before AddContribution applies its increment,
	// letting tests interleave a rival contribution.
	beforeAdd func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{goals: make(map[uuid.UUID]*repository.Goal)}
}

func (f *fakeRepo) Create(_ context.Context, goal *repository.Goal) error {
	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	goal.CreatedAt = time.Now()
	goal.UpdatedAt = goal.CreatedAt
	f.goals[goal.ID] = goal
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Goal, error) {
	goal, ok := f.goals[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *goal
	return &copied, nil
}

func (f *fakeRepo) ListByUserID(_ context.Context, userID uuid.UUID, statusFilter *repository.GoalStatus) ([]*repository.Goal, error) {
	var out []*repository.Goal
	for _, g := range f.goals {
		if g.UserID != userID {
			continue
		}
		if statusFilter != nil && g.Status != *statusFilter {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status repository.GoalStatus) error {
	goal, ok := f.goals[id]
	if !ok {
		return sql.ErrNoRows
	}
	goal.Status = status
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.goals[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.goals, id)
	return nil
}

func (f *fakeRepo) AddContribution(_ context.Context, contribution *repository.GoalContribution) (int64, error) {
	if f.beforeAdd != nil {
		f.beforeAdd()
	}
	if contribution.ID == uuid.Nil {
		contribution.ID = uuid.New()
	}
	f.contributions = append(f.contributions, contribution)
	f.goals[contribution.GoalID].CurrentAmountMinor += contribution.AmountMinor
	return f.goals[contribution.GoalID].CurrentAmountMinor, nil
}

func (f *fakeRepo) ListContributions(_ context.Context, goalID uuid.UUID, _ int) ([]*repository.GoalContribution, error) {
	var out []*repository.GoalContribution
	for _, c := range f.contributions {
		if c.GoalID == goalID {
			out = append(out, c)
		}
	}
	return out, nil
}

func newTestService() (*GoalService, *fakeRepo) {
	repo := newFakeRepo()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	return NewGoalService(repo, logger), repo
}

func TestCreateGoal(t *testing.T) {
	svc, _ := newTestService()
	userID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		goal, err := svc.Create(context.Background(), userID, "Vacation", 150000, "eur", nil)
		require.NoError(t, err)
		assert.Equal(t, repository.GoalStatusActive, goal.Status)
		assert.Equal(t, "EUR", goal.CurrencyCode)
		assert.Zero(t, goal.CurrentAmountMinor)
	})

	t.Run("rejects non-positive target", func(t *testing.T) {
		_, err := svc.Create(context.Background(), userID, "X", 0, "EUR", nil)
		assert.ErrorIs(t, err, ErrInvalidGoal)
	})

	t.Run("rejects past deadline", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		_, err := svc.Create(context.Background(), userID, "X", 100, "EUR", &past)
		assert.ErrorIs(t, err, ErrInvalidGoal)
	})

	t.Run("rejects unknown currency", func(t *testing.T) {
		_, err := svc.Create(context.Background(), userID, "X", 100, "???", nil)
		assert.ErrorIs(t, err, ErrInvalidGoal)
	})
}

func TestContribute(t *testing.T) {
	userID := uuid.New()

	newGoal := func(t *testing.T, svc *GoalService) *repository.Goal {
		t.Helper()
		goal, err := svc.Create(context.Background(), userID, "Emergency Fund", 100000, "EUR", nil)
		require.NoError(t, err)
		return goal
	}

	t.Run("moves the running total", func(t *testing.T) {
		svc, repo := newTestService()
		goal := newGoal(t, svc)

		_, err := svc.Contribute(context.Background(), userID, goal.ID, 25000, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(25000), repo.goals[goal.ID].CurrentAmountMinor)
	})

	t.Run("completes the goal at target", func(t *testing.T) {
		svc, repo := newTestService()
		goal := newGoal(t, svc)

		_, err := svc.Contribute(context.Background(), userID, goal.ID, 100000, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, repository.GoalStatusCompleted, repo.goals[goal.ID].Status)
	})

	t.Run("completes on the total the repository returns", func(t *testing.T) {
		svc, repo := newTestService()
		goal := newGoal(t, svc)

		// A rival contribution lands between this call's read of the
		// goal and its increment. The stale snapshot alone would not
		// reach the target, but the stored total does.
		repo.beforeAdd = func() {
			repo.beforeAdd = nil
			repo.goals[goal.ID].CurrentAmountMinor += 60000
		}
		_, err := svc.Contribute(context.Background(), userID, goal.ID, 40000, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, repository.GoalStatusCompleted, repo.goals[goal.ID].Status)
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		svc, _ := newTestService()
		goal := newGoal(t, svc)

		_, err := svc.Contribute(context.Background(), userID, goal.ID, 0, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidGoal)
	})

	t.Run("correction cannot overdraw", func(t *testing.T) {
		svc, _ := newTestService()
		goal := newGoal(t, svc)

		_, err := svc.Contribute(context.Background(), userID, goal.ID, 1000, nil, nil)
		require.NoError(t, err)
		_, err = svc.Contribute(context.Background(), userID, goal.ID, -2000, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidGoal)
	})

	t.Run("rejects inactive goal", func(t *testing.T) {
		svc, _ := newTestService()
		goal := newGoal(t, svc)
		require.NoError(t, svc.SetStatus(context.Background(), userID, goal.ID, repository.GoalStatusPaused))

		_, err := svc.Contribute(context.Background(), userID, goal.ID, 100, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidGoal)
	})

	t.Run("stranger cannot contribute", func(t *testing.T) {
		svc, _ := newTestService()
		goal := newGoal(t, svc)

		_, err := svc.Contribute(context.Background(), uuid.New(), goal.ID, 100, nil, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSetStatus(t *testing.T) {
	svc, repo := newTestService()
	userID := uuid.New()
	goal, err := svc.Create(context.Background(), userID, "Car", 500000, "EUR", nil)
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(context.Background(), userID, goal.ID, repository.GoalStatusArchived))
	assert.Equal(t, repository.GoalStatusArchived, repo.goals[goal.ID].Status)

	assert.ErrorIs(t, svc.SetStatus(context.Background(), userID, goal.ID, "bogus"), ErrInvalidGoal)
}
