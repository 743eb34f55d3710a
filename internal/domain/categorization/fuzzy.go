package categorization

import (
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FuzzyMatchResult is a rule matched by approximate similarity
type FuzzyMatchResult struct {
	Pattern  string
	Category string
	Score    int
	Distance int
}

// FuzzyMatcher catches descriptions that keyword rules miss because of
// small spelling variations, like "STARBUCKS 0123" after a rule was
// written against "STARBUCKS".
type FuzzyMatcher struct {
	mu       sync.RWMutex
	patterns []fuzzyPattern
}

type fuzzyPattern struct {
	normalized string
	category   string
	priority   int
}

// NewFuzzyMatcher creates a fuzzy matcher from the user's rules
func NewFuzzyMatcher(rules []CategoryRule) *FuzzyMatcher {
	fm := &FuzzyMatcher{}
	fm.Build(rules)
	return fm
}

// Build rebuilds the pattern list from the rules
func (fm *FuzzyMatcher) Build(rules []CategoryRule) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	fm.patterns = fm.patterns[:0]
	for _, rule := range rules {
		normalized := strings.ToUpper(strings.TrimSpace(rule.MatchPattern))
		if normalized == "" {
			continue
		}
		fm.patterns = append(fm.patterns, fuzzyPattern{
			normalized: normalized,
			category:   rule.Category,
			priority:   rule.Priority,
		})
	}
}

// Match returns the best match scoring at or above threshold (0-100),
// or nil.
func (fm *FuzzyMatcher) Match(description string, threshold int) *FuzzyMatchResult {
	matches := fm.MatchAll(description, threshold)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// MatchAll returns every match at or above threshold, best first.
func (fm *FuzzyMatcher) MatchAll(description string, threshold int) []FuzzyMatchResult {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	normalized := strings.ToUpper(description)
	var results []FuzzyMatchResult
	for _, p := range fm.patterns {
		score := similarityScore(normalized, p.normalized)
		if score < threshold {
			continue
		}
		results = append(results, FuzzyMatchResult{
			Pattern:  p.normalized,
			Category: p.category,
			Score:    score,
			Distance: fuzzy.LevenshteinDistance(normalized, p.normalized),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// similarityScore rates how close two normalized strings are on a
// 0-100 scale. Containment scores high since bank descriptions usually
// wrap the merchant name in branch codes and dates.
func similarityScore(description, pattern string) int {
	if description == pattern {
		return 100
	}
	if strings.Contains(description, pattern) {
		return 75 + 25*len(pattern)/len(description)
	}
	if strings.Contains(pattern, description) {
		return 75 + 25*len(description)/len(pattern)
	}

	maxLen := len(description)
	if len(pattern) > maxLen {
		maxLen = len(pattern)
	}
	if maxLen == 0 {
		return 0
	}
	distance := fuzzy.LevenshteinDistance(description, pattern)
	score := 100 - 100*distance/maxLen

	// Subsequence matches early in the string still count for something.
	if rank := fuzzy.RankMatchFold(pattern, description); rank >= 0 && rank < len(description) {
		if sub := 60 - 40*rank/len(description); sub > score {
			score = sub
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}
