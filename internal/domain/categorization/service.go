package categorization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidRule = errors.New("invalid category rule")

const (
	// fuzzyThreshold is the minimum similarity score for a fuzzy rule
	// hit during batch categorization.
	fuzzyThreshold = 80

	// similarCandidates caps how many recent transactions feed the
	// similarity index.
	similarCandidates = 500
)

// Store defines the persistence operations the service needs
type Store interface {
	GetUserRules(ctx context.Context, userID uuid.UUID) ([]CategoryRule, error)
	CreateRule(ctx context.Context, rule *CategoryRule) error
	DeleteRule(ctx context.Context, id, userID uuid.UUID) error
	RecentTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]TransactionRef, error)
	SetCategory(ctx context.Context, userID uuid.UUID, transactionIDs []uuid.UUID, category string) (int64, error)
}

// Service handles transaction categorization logic
type Service struct {
	repo   Store
	logger *slog.Logger
}

// NewService creates a new categorization service
func NewService(repo Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Rules returns the user's rules ordered by priority
func (s *Service) Rules(ctx context.Context, userID uuid.UUID) ([]CategoryRule, error) {
	return s.repo.GetUserRules(ctx, userID)
}

// AddRule validates and stores a new rule
func (s *Service) AddRule(ctx context.Context, userID uuid.UUID, pattern, category string, priority int) (*CategoryRule, error) {
	pattern = strings.TrimSpace(pattern)
	category = strings.TrimSpace(category)
	if len(pattern) < 2 {
		return nil, fmt.Errorf("%w: pattern must be at least 2 characters", ErrInvalidRule)
	}
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidRule)
	}

	rule := &CategoryRule{
		UserID:       userID,
		MatchPattern: pattern,
		Category:     category,
		Priority:     priority,
	}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// RemoveRule deletes a rule owned by the user
func (s *Service) RemoveRule(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.DeleteRule(ctx, id, userID)
}

// CategorizeBatch assigns a category to each description, or nil when
// no rule matches. Keyword hits win; fuzzy matching is the fallback
// for near misses. Failures degrade to uncategorized rather than
// blocking an import.
func (s *Service) CategorizeBatch(ctx context.Context, userID uuid.UUID, descriptions []string) []*string {
	categories := make([]*string, len(descriptions))

	rules, err := s.repo.GetUserRules(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load category rules",
			slog.String("user_id", userID.String()), slog.Any("error", err))
		return categories
	}
	if len(rules) == 0 {
		return categories
	}

	engine := NewEngine(rules)
	fuzzyMatcher := NewFuzzyMatcher(rules)

	hits := engine.MatchBatch(descriptions)
	for i, hit := range hits {
		if hit != nil {
			category := hit.Category
			categories[i] = &category
			continue
		}
		if fuzzyHit := fuzzyMatcher.Match(descriptions[i], fuzzyThreshold); fuzzyHit != nil {
			category := fuzzyHit.Category
			categories[i] = &category
		}
	}
	return categories
}

// ApplyToSimilar assigns a category to every recent transaction whose
// description resembles the given one.
func (s *Service) ApplyToSimilar(ctx context.Context, userID uuid.UUID, description, category string) (int64, error) {
	description = strings.TrimSpace(description)
	category = strings.TrimSpace(category)
	if description == "" || category == "" {
		return 0, fmt.Errorf("%w: description and category are required", ErrInvalidRule)
	}

	refs, err := s.repo.RecentTransactions(ctx, userID, similarCandidates)
	if err != nil {
		return 0, err
	}
	if len(refs) == 0 {
		return 0, nil
	}

	index, err := NewSimilarityIndex()
	if err != nil {
		return 0, err
	}
	defer index.Close()

	docs := make([]SimilarDocument, len(refs))
	for i, ref := range refs {
		docs[i] = SimilarDocument{ID: ref.ID.String(), Description: ref.Description}
	}
	if err := index.Index(docs); err != nil {
		return 0, err
	}

	hits, err := index.FindSimilar(description, len(refs))
	if err != nil {
		return 0, err
	}

	ids := make([]uuid.UUID, 0, len(hits))
	for _, hit := range hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	updated, err := s.repo.SetCategory(ctx, userID, ids, category)
	if err != nil {
		return 0, err
	}
	s.logger.Info("category applied to similar transactions",
		slog.String("user_id", userID.String()),
		slog.String("category", category),
		slog.Int64("updated", updated),
	)
	return updated, nil
}
