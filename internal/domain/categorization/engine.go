// Package categorization assigns categories to transaction
// descriptions using user-defined keyword rules, with fuzzy matching
// and a similarity index for bulk re-categorization.
package categorization

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// MatchResult is a rule hit for a description
type MatchResult struct {
	Pattern  string
	Category string
	RuleID   string
	Priority int
}

// Engine matches descriptions against keyword rules using the
// Aho-Corasick algorithm: one pass through the text regardless of how
// many patterns are loaded.
type Engine struct {
	mu       sync.RWMutex
	matcher  *ahocorasick.Matcher
	patterns []string
	metadata [][]MatchResult
}

// NewEngine creates an engine from the user's rules
func NewEngine(rules []CategoryRule) *Engine {
	e := &Engine{}
	e.Build(rules)
	return e
}

// Build rebuilds the matcher from the rules. Duplicate patterns keep
// all their metadata grouped under one automaton entry.
func (e *Engine) Build(rules []CategoryRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	patternToIndex := make(map[string]int, len(rules))
	patterns := make([]string, 0, len(rules))
	metadata := make([][]MatchResult, 0, len(rules))

	for _, rule := range rules {
		cleanPattern := strings.ToUpper(strings.TrimSpace(rule.MatchPattern))
		if cleanPattern == "" {
			continue
		}
		result := MatchResult{
			Pattern:  rule.MatchPattern,
			Category: rule.Category,
			RuleID:   rule.ID.String(),
			Priority: rule.Priority,
		}
		if idx, exists := patternToIndex[cleanPattern]; exists {
			metadata[idx] = append(metadata[idx], result)
			continue
		}
		patternToIndex[cleanPattern] = len(patterns)
		patterns = append(patterns, cleanPattern)
		metadata = append(metadata, []MatchResult{result})
	}

	e.patterns = patterns
	e.metadata = metadata
	e.matcher = nil
	if len(patterns) > 0 {
		bytePatterns := make([][]byte, len(patterns))
		for i, p := range patterns {
			bytePatterns[i] = []byte(p)
		}
		e.matcher = ahocorasick.NewMatcher(bytePatterns)
	}
}

// Match returns the highest-priority rule hit for the description, or
// nil when nothing matches.
func (e *Engine) Match(description string) *MatchResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matchLocked(description)
}

// MatchBatch matches many descriptions under a single lock. Entries
// with no hit are nil.
func (e *Engine) MatchBatch(descriptions []string) []*MatchResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	results := make([]*MatchResult, len(descriptions))
	for i, desc := range descriptions {
		results[i] = e.matchLocked(desc)
	}
	return results
}

func (e *Engine) matchLocked(description string) *MatchResult {
	if e.matcher == nil {
		return nil
	}
	hits := e.matcher.Match([]byte(strings.ToUpper(description)))
	if len(hits) == 0 {
		return nil
	}

	var best *MatchResult
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.metadata) {
			continue
		}
		for i := range e.metadata[idx] {
			m := &e.metadata[idx][i]
			// Longer patterns break priority ties: "CAFE LISBOA" beats "CAFE".
			if best == nil || m.Priority > best.Priority ||
				(m.Priority == best.Priority && len(m.Pattern) > len(best.Pattern)) {
				copied := *m
				best = &copied
			}
		}
	}
	return best
}

// IsEmpty reports whether any patterns are loaded
func (e *Engine) IsEmpty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matcher == nil
}
