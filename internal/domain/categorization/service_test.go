package categorization

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rules        []CategoryRule
	rulesErr     error
	transactions []TransactionRef

	updatedIDs      []uuid.UUID
	updatedCategory string
}

func (f *fakeStore) GetUserRules(_ context.Context, _ uuid.UUID) ([]CategoryRule, error) {
	return f.rules, f.rulesErr
}

func (f *fakeStore) CreateRule(_ context.Context, rule *CategoryRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeStore) DeleteRule(_ context.Context, id, _ uuid.UUID) error {
	for i, r := range f.rules {
		if r.ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStore) RecentTransactions(_ context.Context, _ uuid.UUID, _ int) ([]TransactionRef, error) {
	return f.transactions, nil
}

func (f *fakeStore) SetCategory(_ context.Context, _ uuid.UUID, ids []uuid.UUID, category string) (int64, error) {
	f.updatedIDs = ids
	f.updatedCategory = category
	return int64(len(ids)), nil
}

func newTestService(store *fakeStore) *Service {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	return NewService(store, logger)
}

func TestAddRule(t *testing.T) {
	svc := newTestService(&fakeStore{})
	userID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		rule, err := svc.AddRule(context.Background(), userID, " NETFLIX ", "Streaming", 5)
		require.NoError(t, err)
		assert.Equal(t, "NETFLIX", rule.MatchPattern)
		assert.Equal(t, "Streaming", rule.Category)
	})

	t.Run("rejects short pattern", func(t *testing.T) {
		_, err := svc.AddRule(context.Background(), userID, "N", "Streaming", 0)
		assert.ErrorIs(t, err, ErrInvalidRule)
	})

	t.Run("rejects empty category", func(t *testing.T) {
		_, err := svc.AddRule(context.Background(), userID, "NETFLIX", "  ", 0)
		assert.ErrorIs(t, err, ErrInvalidRule)
	})
}

func TestCategorizeBatch(t *testing.T) {
	userID := uuid.New()

	t.Run("keyword and fuzzy fallback", func(t *testing.T) {
		store := &fakeStore{rules: []CategoryRule{
			rule("STARBUCKS", "Coffee", 0),
			rule("LIDL", "Groceries", 0),
		}}
		svc := newTestService(store)

		categories := svc.CategorizeBatch(context.Background(), userID, []string{
			"STARBUCKS STORE 0123", // keyword hit
			"STARBUCS",             // fuzzy hit, one letter off
			"UNRELATED PAYMENT",    // no hit
		})

		require.Len(t, categories, 3)
		require.NotNil(t, categories[0])
		assert.Equal(t, "Coffee", *categories[0])
		require.NotNil(t, categories[1])
		assert.Equal(t, "Coffee", *categories[1])
		assert.Nil(t, categories[2])
	})

	t.Run("no rules yields all nil", func(t *testing.T) {
		svc := newTestService(&fakeStore{})
		categories := svc.CategorizeBatch(context.Background(), userID, []string{"A", "B"})
		assert.Equal(t, []*string{nil, nil}, categories)
	})

	t.Run("store failure degrades to uncategorized", func(t *testing.T) {
		svc := newTestService(&fakeStore{rulesErr: errors.New("boom")})
		categories := svc.CategorizeBatch(context.Background(), userID, []string{"A"})
		require.Len(t, categories, 1)
		assert.Nil(t, categories[0])
	})
}

func TestApplyToSimilar(t *testing.T) {
	userID := uuid.New()
	start1, start2, electric := uuid.New(), uuid.New(), uuid.New()

	store := &fakeStore{transactions: []TransactionRef{
		{ID: start1, Description: "STARBUCKS STORE 0123"},
		{ID: start2, Description: "STARBUCKS STORE 0456"},
		{ID: electric, Description: "ELECTRIC COMPANY DIRECT DEBIT"},
	}}
	svc := newTestService(store)

	updated, err := svc.ApplyToSimilar(context.Background(), userID, "STARBUCKS STORE 0999", "Coffee")
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
	assert.Equal(t, "Coffee", store.updatedCategory)
	assert.ElementsMatch(t, []uuid.UUID{start1, start2}, store.updatedIDs)

	t.Run("validates input", func(t *testing.T) {
		_, err := svc.ApplyToSimilar(context.Background(), userID, "", "Coffee")
		assert.ErrorIs(t, err, ErrInvalidRule)
	})

	t.Run("no transactions", func(t *testing.T) {
		svc := newTestService(&fakeStore{})
		updated, err := svc.ApplyToSimilar(context.Background(), userID, "ANYTHING AT ALL", "Misc")
		require.NoError(t, err)
		assert.Zero(t, updated)
	})
}
